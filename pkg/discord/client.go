// Package discord is a client for the local Discord RPC transport: it
// connects over the IPC socket (named pipe on Windows), performs the
// handshake, waits for READY and submits SET_ACTIVITY commands.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
)

const (
	// maxEndpoints is the number of discord-ipc-N endpoints tried
	maxEndpoints = 10

	// DefaultHandshakeTimeout bounds Login when ctx has no deadline
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultResponseTimeout bounds the wait for a command response
	DefaultResponseTimeout = 2 * time.Second
)

// Dialer opens a connection to the presence service.
type Dialer func(ctx context.Context) (net.Conn, error)

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the IPC endpoint discovery.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithResponseTimeout sets how long SetActivity waits for an answer.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Client) { c.responseTimeout = d }
}

// Client is a presence session.
type Client struct {
	logger          *slog.Logger
	dial            Dialer
	responseTimeout time.Duration

	state atomic.Int32

	mu       sync.Mutex // guards conn, pending, onReady and frame writes
	conn     net.Conn
	clientID string
	pending  map[string]chan response
	onReady  []func()
}

// NewClient creates a disconnected client.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		logger:          logger,
		dial:            DefaultDialer,
		responseTimeout: DefaultResponseTimeout,
		pending:         make(map[string]chan response),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the connection state
func (c *Client) State() State {
	return State(c.state.Load())
}

// ClientID returns the application id used for the last login
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// OnReady registers fn to run once the session becomes ready. If it is
// already ready fn runs immediately in its own goroutine.
func (c *Client) OnReady(fn func()) {
	c.mu.Lock()
	c.onReady = append(c.onReady, fn)
	ready := c.State() == Ready
	c.mu.Unlock()

	if ready {
		go fn()
	}
}

// Login connects, performs the handshake and waits for READY.
func (c *Client) Login(ctx context.Context, clientID string) error {
	if clientID == "" {
		return apperrors.InvalidInputf("presence client id is empty")
	}
	if !c.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return apperrors.InvalidInputf("presence session is %s", c.State())
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.state.Store(int32(Disconnected))
		return apperrors.Unavailablef("connect presence IPC: %v", err)
	}

	if err := c.handshake(ctx, conn, clientID); err != nil {
		_ = conn.Close()
		c.state.Store(int32(Disconnected))
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.clientID = clientID
	callbacks := append([]func(){}, c.onReady...)
	c.state.Store(int32(Ready))
	c.mu.Unlock()

	c.logger.Info("Presence session ready", "client_id", clientID)

	go c.readLoop(conn)
	for _, fn := range callbacks {
		go fn()
	}
	return nil
}

// handshake sends the handshake frame and reads until the READY dispatch.
func (c *Client) handshake(ctx context.Context, conn net.Conn, clientID string) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultHandshakeTimeout)
	}
	_ = conn.SetDeadline(deadline)
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	payload, err := json.Marshal(handshake{Version: 1, ClientID: clientID})
	if err != nil {
		return apperrors.Internalf("encode handshake: %v", err)
	}
	if err := WriteFrame(conn, OpHandshake, payload); err != nil {
		return apperrors.Unavailablef("send handshake: %v", err)
	}

	for {
		op, data, err := ReadFrame(conn)
		if err != nil {
			return apperrors.Unavailablef("read handshake reply: %v", err)
		}

		switch op {
		case OpClose:
			var perr Error
			_ = json.Unmarshal(data, &perr)
			return fmt.Errorf("handshake rejected: %w", &perr)
		case OpPing:
			if err := WriteFrame(conn, OpPong, data); err != nil {
				return apperrors.Unavailablef("send pong: %v", err)
			}
		case OpFrame:
			var resp response
			if err := json.Unmarshal(data, &resp); err != nil {
				return apperrors.Internalf("decode handshake reply: %v", err)
			}
			if resp.Evt == "READY" {
				return nil
			}
			if resp.Evt == "ERROR" {
				return decodeError(resp.Data)
			}
		}
	}
}

// readLoop dispatches responses until the connection fails.
func (c *Client) readLoop(conn net.Conn) {
	for {
		op, data, err := ReadFrame(conn)
		if err != nil {
			c.disconnect(conn, err)
			return
		}

		switch op {
		case OpPing:
			c.mu.Lock()
			err := WriteFrame(conn, OpPong, data)
			c.mu.Unlock()
			if err != nil {
				c.disconnect(conn, err)
				return
			}
		case OpClose:
			var perr Error
			_ = json.Unmarshal(data, &perr)
			c.disconnect(conn, &perr)
			return
		case OpFrame:
			var resp response
			if err := json.Unmarshal(data, &resp); err != nil {
				c.logger.Debug("Ignoring undecodable presence frame", "error", err)
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[resp.Nonce]
			c.mu.Unlock()
			if ok {
				select {
				case ch <- resp:
				default:
				}
			}
		}
	}
}

// disconnect drops conn if it is still the active connection.
func (c *Client) disconnect(conn net.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	_ = conn.Close()
	c.state.Store(int32(Disconnected))
	if cause != nil && !errors.Is(cause, net.ErrClosed) {
		c.logger.Warn("Presence session disconnected", "error", cause)
	}
}

// SetActivity submits an activity. A missing answer within the response
// timeout counts as success.
func (c *Client) SetActivity(ctx context.Context, args SetActivityArgs) error {
	if args.PID == 0 {
		args.PID = os.Getpid()
	}
	nonce := uuid.NewString()
	payload, err := json.Marshal(command{Cmd: "SET_ACTIVITY", Args: args, Nonce: nonce})
	if err != nil {
		return apperrors.Internalf("encode SET_ACTIVITY: %v", err)
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.State() != Ready {
		c.mu.Unlock()
		return apperrors.Unavailablef("presence session is %s", c.State())
	}
	c.pending[nonce] = ch
	err = WriteFrame(conn, OpFrame, payload)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, nonce)
		c.mu.Unlock()
	}()

	if err != nil {
		c.disconnect(conn, err)
		return apperrors.Unavailablef("send SET_ACTIVITY: %v", err)
	}

	timer := time.NewTimer(c.responseTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		c.logger.Debug("No SET_ACTIVITY response", "nonce", nonce)
		return nil
	case resp := <-ch:
		if resp.Evt == "ERROR" {
			return decodeError(resp.Data)
		}
		return nil
	}
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if conn != nil {
		_ = WriteFrame(conn, OpClose, []byte("{}"))
	}
	c.mu.Unlock()

	c.state.Store(int32(Disconnected))
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func decodeError(data json.RawMessage) error {
	var perr Error
	if err := json.Unmarshal(data, &perr); err != nil {
		return apperrors.Internalf("decode presence error: %v", err)
	}
	return &perr
}
