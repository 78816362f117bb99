package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer answers the client side of a net.Pipe.
type fakeServer struct {
	t    *testing.T
	conn net.Conn

	mu       sync.Mutex
	commands []command
	rawArgs  []json.RawMessage
}

// pipeDialer returns a dialer handing out the client end and a server for the other.
func pipeDialer(t *testing.T) (Dialer, *fakeServer) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	fs := &fakeServer{t: t, conn: server}
	return func(ctx context.Context) (net.Conn, error) { return client, nil }, fs
}

func (s *fakeServer) send(op Opcode, v any) {
	data, err := json.Marshal(v)
	require.NoError(s.t, err)
	_ = WriteFrame(s.conn, op, data)
}

// acceptHandshake reads the handshake and replies with READY.
func (s *fakeServer) acceptHandshake() handshake {
	op, data, err := ReadFrame(s.conn)
	require.NoError(s.t, err)
	require.Equal(s.t, OpHandshake, op)
	var hs handshake
	require.NoError(s.t, json.Unmarshal(data, &hs))
	s.send(OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "READY", "data": map[string]any{"v": 1}})
	return hs
}

// serve answers each command with reply until the pipe closes.
func (s *fakeServer) serve(reply func(cmd command) any) {
	for {
		op, data, err := ReadFrame(s.conn)
		if err != nil {
			return
		}
		if op != OpFrame {
			continue
		}
		var raw struct {
			Cmd   string          `json:"cmd"`
			Args  json.RawMessage `json:"args"`
			Nonce string          `json:"nonce"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		cmd := command{Cmd: raw.Cmd, Nonce: raw.Nonce}
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.rawArgs = append(s.rawArgs, raw.Args)
		s.mu.Unlock()
		if reply != nil {
			if r := reply(cmd); r != nil {
				s.send(OpFrame, r)
			}
		}
	}
}

func (s *fakeServer) received() ([]command, []json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]command{}, s.commands...), append([]json.RawMessage{}, s.rawArgs...)
}

func TestLogin_EmptyClientID(t *testing.T) {
	c := NewClient(testLogger())
	err := c.Login(context.Background(), "")
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, Disconnected, c.State())
}

func TestLogin_DialFailure(t *testing.T) {
	c := NewClient(testLogger(), WithDialer(func(ctx context.Context) (net.Conn, error) {
		return nil, errors.New("no socket")
	}))
	err := c.Login(context.Background(), "123")
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, Disconnected, c.State())
}

func TestLogin_Ready(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))

	ready := make(chan struct{})
	c.OnReady(func() { close(ready) })

	hsCh := make(chan handshake, 1)
	go func() {
		hsCh <- server.acceptHandshake()
		server.serve(nil)
	}()

	require.NoError(t, c.Login(context.Background(), "1234"))
	assert.Equal(t, Ready, c.State())
	assert.Equal(t, "1234", c.ClientID())

	hs := <-hsCh
	assert.Equal(t, 1, hs.Version)
	assert.Equal(t, "1234", hs.ClientID)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("ready callback not invoked")
	}
}

func TestLogin_Rejected(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))

	go func() {
		_, _, _ = ReadFrame(server.conn)
		server.send(OpClose, Error{Code: 4000, Message: "Invalid Client ID"})
	}()

	err := c.Login(context.Background(), "bad")
	require.Error(t, err)
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 4000, perr.Code)
	assert.Equal(t, Disconnected, c.State())
}

func TestLogin_Timeout(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))

	// Swallow the handshake and never answer
	go func() { _, _, _ = ReadFrame(server.conn) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Login(ctx, "1234")
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, Disconnected, c.State())
}

func TestOnReady_AfterReady(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))
	go func() {
		server.acceptHandshake()
		server.serve(nil)
	}()
	require.NoError(t, c.Login(context.Background(), "1234"))

	called := make(chan struct{})
	c.OnReady(func() { close(called) })
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("late ready callback not invoked")
	}
}

func TestSetActivity_Success(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))
	go func() {
		server.acceptHandshake()
		server.serve(func(cmd command) any {
			return map[string]any{"cmd": cmd.Cmd, "evt": nil, "nonce": cmd.Nonce, "data": map[string]any{}}
		})
	}()
	require.NoError(t, c.Login(context.Background(), "1234"))

	start := int64(1700000000000)
	args := SetActivityArgs{PID: 42, Activity: &Activity{
		Details:    "Band - Song",
		Timestamps: Timestamps{Start: &start},
		Buttons:    []Button{{Label: "Listen", URL: "https://open.soniditos.com/track/1/band"}},
		Type:       2,
	}}
	require.NoError(t, c.SetActivity(context.Background(), args))

	cmds, rawArgs := server.received()
	require.Len(t, cmds, 1)
	assert.Equal(t, "SET_ACTIVITY", cmds[0].Cmd)
	assert.NotEmpty(t, cmds[0].Nonce)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rawArgs[0], &decoded))
	assert.Equal(t, float64(42), decoded["pid"])
	activity := decoded["activity"].(map[string]any)
	assert.Equal(t, "Band - Song", activity["details"])
	assert.Equal(t, float64(2), activity["type"])
	assets := activity["assets"].(map[string]any)
	assert.Nil(t, assets["large_image"])
	assert.Nil(t, assets["large_text"])
}

func TestSetActivity_ErrorEvent(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))
	go func() {
		server.acceptHandshake()
		server.serve(func(cmd command) any {
			return map[string]any{
				"cmd": cmd.Cmd, "evt": "ERROR", "nonce": cmd.Nonce,
				"data": map[string]any{"code": 4002, "message": "child \"activity\" fails"},
			}
		})
	}()
	require.NoError(t, c.Login(context.Background(), "1234"))

	err := c.SetActivity(context.Background(), SetActivityArgs{PID: 1, Activity: &Activity{}})
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 4002, perr.Code)
}

func TestSetActivity_NoResponseCountsAsSuccess(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial), WithResponseTimeout(20*time.Millisecond))
	go func() {
		server.acceptHandshake()
		server.serve(nil)
	}()
	require.NoError(t, c.Login(context.Background(), "1234"))

	assert.NoError(t, c.SetActivity(context.Background(), SetActivityArgs{PID: 1, Activity: &Activity{}}))
}

func TestSetActivity_NotConnected(t *testing.T) {
	c := NewClient(testLogger())
	err := c.SetActivity(context.Background(), SetActivityArgs{Activity: &Activity{}})
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestPingAnsweredWithPong(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))
	go server.acceptHandshake()
	require.NoError(t, c.Login(context.Background(), "1234"))

	go server.send(OpPing, map[string]any{"n": 1})
	op, data, err := ReadFrame(server.conn)
	require.NoError(t, err)
	assert.Equal(t, OpPong, op)
	assert.JSONEq(t, `{"n":1}`, string(data))
}

func TestServerCloseDisconnects(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))
	go server.acceptHandshake()
	require.NoError(t, c.Login(context.Background(), "1234"))

	_ = server.conn.Close()
	assert.Eventually(t, func() bool { return c.State() == Disconnected }, time.Second, 5*time.Millisecond)
}

func TestClose(t *testing.T) {
	dial, server := pipeDialer(t)
	c := NewClient(testLogger(), WithDialer(dial))
	go server.acceptHandshake()
	require.NoError(t, c.Login(context.Background(), "1234"))

	closed := make(chan Opcode, 1)
	go func() {
		op, _, _ := ReadFrame(server.conn)
		closed <- op
	}()

	require.NoError(t, c.Close())
	assert.Equal(t, Disconnected, c.State())
	assert.Equal(t, OpClose, <-closed)
	assert.NoError(t, c.Close())
}
