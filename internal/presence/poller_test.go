package presence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soniditos/soniditos-desktop/internal/bridge"
	"github.com/soniditos/soniditos-desktop/internal/config"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
	"github.com/soniditos/soniditos-desktop/pkg/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePage answers evaluations from a table of expressions.
type fakePage struct {
	mu      sync.Mutex
	values  map[string]any
	fail    map[string]int // remaining failures per expression
	evalLog []string
}

func newFakePage() *fakePage {
	return &fakePage{values: map[string]any{}, fail: map[string]int{}}
}

func (p *fakePage) set(expr string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[expr] = v
}

func (p *fakePage) failTimes(expr string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[expr] = n
}

func (p *fakePage) Eval(ctx context.Context, expr string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evalLog = append(p.evalLog, expr)
	if p.fail[expr] > 0 {
		p.fail[expr]--
		return nil, errors.New("page script failed")
	}
	v, ok := p.values[expr]
	if !ok {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(v)
}

// fakeSession records presence calls.
type fakeSession struct {
	mu         sync.Mutex
	loginErr   error
	setErr     error
	logins     []string
	ready      []func()
	activities []discord.SetActivityArgs
	calls      atomic.Int32
}

func (s *fakeSession) Login(ctx context.Context, clientID string) error {
	s.calls.Add(1)
	s.mu.Lock()
	s.logins = append(s.logins, clientID)
	err := s.loginErr
	callbacks := append([]func(){}, s.ready...)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (s *fakeSession) OnReady(fn func()) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, fn)
}

func (s *fakeSession) SetActivity(ctx context.Context, args discord.SetActivityArgs) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, args)
	return s.setErr
}

func (s *fakeSession) State() discord.State {
	return discord.Ready
}

func (s *fakeSession) submitted() []discord.SetActivityArgs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]discord.SetActivityArgs{}, s.activities...)
}

func (s *fakeSession) loginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logins)
}

func staticConfig(cfg *Config, err error) ConfigLoader {
	return func() (*Config, error) { return cfg, err }
}

func testOptions() Options {
	return Options{
		Interval:            10 * time.Millisecond,
		ElapsedPollInterval: 5 * time.Millisecond,
		ElapsedTimeout:      0,
		MissingElapsed:      config.MissingElapsedOmit,
		ElapsedSelector:     config.DefaultElapsedSelector,
		MediaIDKey:          config.DefaultMediaIDKey,
		TrackURL:            config.DefaultTrackURL,
		ActivityType:        config.DefaultActivityType,
	}
}

func playingPage() *fakePage {
	page := newFakePage()
	page.set(bridge.MediaField("title"), "A")
	page.set(bridge.MediaField("artist"), "B")
	page.set(bridge.MediaField("album"), "Album")
	page.set(bridge.ArtworkSource(), "https://cdn.soniditos.com/a.jpg")
	page.set(bridge.LocalStorageItem(config.DefaultMediaIDKey), "77")
	page.set(bridge.TextContent(config.DefaultElapsedSelector), " 2:05 ")
	return page
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestPoller(session Session, page bridge.Evaluator, load ConfigLoader, opts Options) *Poller {
	return NewPoller(testLogger(), load, session, page, opts,
		WithClock(func() time.Time { return fixedNow }), WithPID(99))
}

func TestPoller_ConfigFailureMakesNoPresenceCalls(t *testing.T) {
	session := &fakeSession{}
	p := newTestPoller(session, playingPage(), staticConfig(nil, errors.New("no file")), testOptions())

	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	assert.Zero(t, session.calls.Load())
	assert.False(t, p.Running())
}

func TestPoller_LogsFailureKind(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewPoller(logger, staticConfig(nil, apperrors.NotFoundf("presence config %s", "presence.json")),
		&fakeSession{}, playingPage(), testOptions())

	p.Start(context.Background())

	assert.Contains(t, buf.String(), "Presence disabled: config load failed")
	assert.Contains(t, buf.String(), "kind=not_found")
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPoller_DisconnectedSessionLogsQuietly(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	session := &fakeSession{setErr: apperrors.Unavailablef("presence session is %s", discord.Disconnected)}
	p := NewPoller(logger, staticConfig(&Config{ClientID: "1", Button1: "Listen"}, nil), session, playingPage(), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool { return len(session.submitted()) >= 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Presence session not connected")
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, buf.String(), "Presence update failed")
}

func TestPoller_LoginFailureStaysInert(t *testing.T) {
	session := &fakeSession{loginErr: errors.New("no presence service")}
	p := newTestPoller(session, playingPage(), staticConfig(&Config{ClientID: "1", Button1: "Listen"}, nil), testOptions())

	p.Start(context.Background())
	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, session.loginCount(), "login is not retried")
	assert.Empty(t, session.submitted())
	assert.False(t, p.Running())
}

func TestPoller_SubmitsActivity(t *testing.T) {
	session := &fakeSession{}
	p := newTestPoller(session, playingPage(), staticConfig(&Config{ClientID: "1180", Button1: "Listen"}, nil), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool { return len(session.submitted()) >= 2 }, time.Second, 5*time.Millisecond)

	args := session.submitted()[0]
	assert.Equal(t, 99, args.PID)
	act := args.Activity
	assert.Equal(t, "B - A", act.Details)
	require.NotNil(t, act.Timestamps.Start)
	assert.Equal(t, fixedNow.UnixMilli()-125000, *act.Timestamps.Start)
	assert.Equal(t, "https://cdn.soniditos.com/a.jpg", *act.Assets.LargeImage)
	assert.Equal(t, "Album", *act.Assets.LargeText)
	require.Len(t, act.Buttons, 1)
	assert.Equal(t, "Listen", act.Buttons[0].Label)
	assert.Equal(t, "https://open.soniditos.com/track/77/B", act.Buttons[0].URL)
	assert.Equal(t, 2, act.Type)

	assert.Equal(t, 1, session.loginCount())
}

func TestPoller_FailingReadDoesNotStopNextCycle(t *testing.T) {
	session := &fakeSession{}
	page := playingPage()
	page.failTimes(bridge.MediaField("title"), 3)
	p := newTestPoller(session, page, staticConfig(&Config{ClientID: "1", Button1: "Listen"}, nil), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool { return len(session.submitted()) > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "B - A", session.submitted()[0].Activity.Details)
}

func TestPoller_MissingLabelPolicies(t *testing.T) {
	tests := []struct {
		policy    string
		wantStart *int64
	}{
		{config.MissingElapsedOmit, nil},
		{config.MissingElapsedZero, func() *int64 { v := fixedNow.UnixMilli(); return &v }()},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			page := playingPage()
			page.set(bridge.TextContent(config.DefaultElapsedSelector), nil)

			opts := testOptions()
			opts.ElapsedTimeout = 20 * time.Millisecond
			opts.MissingElapsed = tt.policy

			session := &fakeSession{}
			p := newTestPoller(session, page, staticConfig(&Config{ClientID: "1", Button1: "Listen"}, nil), opts)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)
			defer p.Stop()

			require.Eventually(t, func() bool { return len(session.submitted()) > 0 }, time.Second, 5*time.Millisecond)
			assert.Equal(t, tt.wantStart, session.submitted()[0].Activity.Timestamps.Start)
		})
	}
}

func TestSnapshot_LabelNeverFoundWaitsForCancellation(t *testing.T) {
	page := playingPage()
	page.set(bridge.TextContent(config.DefaultElapsedSelector), "")
	p := newTestPoller(&fakeSession{}, page, staticConfig(nil, nil), testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	snap, err := p.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, snap.Elapsed)
}

func TestSnapshot_LabelFoundAfterRetries(t *testing.T) {
	page := playingPage()
	label := bridge.TextContent(config.DefaultElapsedSelector)
	page.failTimes(label, 2)
	p := newTestPoller(&fakeSession{}, page, staticConfig(nil, nil), testOptions())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Resolved)
	assert.Equal(t, "2:05", snap.Elapsed)
	assert.Equal(t, "77", snap.MediaID)
}

func TestPoller_RebindsToNewWindowContext(t *testing.T) {
	session := &fakeSession{}
	p := newTestPoller(session, playingPage(), staticConfig(&Config{ClientID: "1", Button1: "Listen"}, nil), testOptions())

	first, cancelFirst := context.WithCancel(context.Background())
	p.Start(first)
	require.Eventually(t, p.Running, time.Second, time.Millisecond)

	cancelFirst()
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)

	second, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()
	p.Start(second)
	defer p.Stop()

	assert.True(t, p.Running())
	assert.Equal(t, 1, session.loginCount())

	before := len(session.submitted())
	require.Eventually(t, func() bool { return len(session.submitted()) > before }, time.Second, 5*time.Millisecond)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.PresenceConfig{
		Interval:        0,
		MissingElapsed:  "bogus",
		ElapsedSelector: "span",
		TrackURL:        "https://example.com/t",
		ActivityType:    3,
	})
	assert.Equal(t, config.DefaultPresenceInterval, opts.Interval)
	assert.Equal(t, config.DefaultElapsedPollInterval, opts.ElapsedPollInterval)
	assert.Equal(t, config.MissingElapsedOmit, opts.MissingElapsed)
	assert.Equal(t, "span", opts.ElapsedSelector)
	assert.Equal(t, 3, opts.ActivityType)
}
