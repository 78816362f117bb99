// Package presence mirrors the page's playback state into the desktop
// presence service.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soniditos/soniditos-desktop/internal/bridge"
	"github.com/soniditos/soniditos-desktop/internal/config"
	apperrors "github.com/soniditos/soniditos-desktop/internal/errors"
	"github.com/soniditos/soniditos-desktop/internal/schedule"
	"github.com/soniditos/soniditos-desktop/pkg/discord"
)

// Session is the presence service connection used by the poller
type Session interface {
	Login(ctx context.Context, clientID string) error
	OnReady(fn func())
	SetActivity(ctx context.Context, args discord.SetActivityArgs) error
	State() discord.State
}

// Options control the update loop
type Options struct {
	Interval            time.Duration
	ElapsedPollInterval time.Duration
	ElapsedTimeout      time.Duration
	MissingElapsed      string
	ElapsedSelector     string
	MediaIDKey          string
	TrackURL            string
	AbsentText          string
	ActivityType        int
}

// OptionsFromConfig converts the presence section of the app config
func OptionsFromConfig(c config.PresenceConfig) Options {
	return Options{
		Interval:            config.ValidatePollInterval(c.Interval, config.DefaultPresenceInterval),
		ElapsedPollInterval: config.ValidatePollInterval(c.ElapsedPollInterval, config.DefaultElapsedPollInterval),
		ElapsedTimeout:      c.ElapsedTimeout,
		MissingElapsed:      config.ValidateMissingElapsed(c.MissingElapsed),
		ElapsedSelector:     c.ElapsedSelector,
		MediaIDKey:          c.MediaIDKey,
		TrackURL:            c.TrackURL,
		AbsentText:          c.AbsentText,
		ActivityType:        c.ActivityType,
	}
}

// Poller runs the one-time session setup and the periodic update loop.
type Poller struct {
	logger  *slog.Logger
	load    ConfigLoader
	session Session
	eval    bridge.Evaluator
	opts    Options
	now     func() time.Time
	pid     int

	mu       sync.Mutex
	started  bool
	ready    bool
	settings Settings
	loopCtx  context.Context
	task     *schedule.Task
}

// Option customises a Poller
type Option func(*Poller)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithPID sets the process id reported with each activity
func WithPID(pid int) Option {
	return func(p *Poller) { p.pid = pid }
}

// NewPoller creates an idle poller
func NewPoller(logger *slog.Logger, load ConfigLoader, session Session, eval bridge.Evaluator, opts Options, options ...Option) *Poller {
	p := &Poller{
		logger:  logger,
		load:    load,
		session: session,
		eval:    eval,
		opts:    opts,
		now:     time.Now,
		pid:     os.Getpid(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Start binds the update loop to ctx. The first call loads the presence
// config and logs in; later calls only re-bind the loop, for example after
// the window was recreated. It blocks while logging in.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.loopCtx = ctx
	first := !p.started
	p.started = true
	ready := p.ready
	p.mu.Unlock()

	if !first {
		if ready {
			p.startLoop()
		}
		return
	}

	cfg, err := p.load()
	if err != nil {
		_ = apperrors.Log(p.logger, err, "Presence disabled: config load failed")
		return
	}

	p.mu.Lock()
	p.settings = Settings{
		Button1:        cfg.Button1,
		TrackURL:       p.opts.TrackURL,
		AbsentText:     p.opts.AbsentText,
		ActivityType:   p.opts.ActivityType,
		MissingElapsed: p.opts.MissingElapsed,
	}
	p.mu.Unlock()

	p.session.OnReady(func() {
		p.mu.Lock()
		p.ready = true
		p.mu.Unlock()
		p.startLoop()
	})

	if err := p.session.Login(ctx, cfg.ClientID); err != nil {
		_ = apperrors.Log(p.logger, err, "Presence login failed", "client_id", cfg.ClientID)
		return
	}
	p.logger.Info("Presence session opened", "client_id", cfg.ClientID)
}

// startLoop schedules updates on the current loop context unless a task
// already runs on it.
func (p *Poller) startLoop() {
	p.mu.Lock()
	if p.loopCtx == nil || p.loopCtx.Err() != nil {
		p.mu.Unlock()
		return
	}
	old := p.task
	if old != nil && old.Parent() == p.loopCtx && !stopped(old) {
		p.mu.Unlock()
		return
	}
	p.task = schedule.Every(p.loopCtx, p.opts.Interval, p.update)
	p.mu.Unlock()

	// In-flight updates of the old task take mu, so wait without holding it
	if old != nil {
		old.Stop()
	}
	p.logger.Debug("Presence update loop started", "interval", p.opts.Interval)
}

func stopped(t *schedule.Task) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

// Running reports whether the update loop is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task != nil && !stopped(p.task)
}

// Stop halts the update loop; the session stays open.
func (p *Poller) Stop() {
	p.mu.Lock()
	task := p.task
	p.task = nil
	p.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// update performs one attempt. Failures are logged and dropped.
func (p *Poller) update(ctx context.Context) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("Presence update skipped", "error", err)
		}
		return
	}

	p.mu.Lock()
	settings := p.settings
	p.mu.Unlock()

	args, err := BuildActivity(snap, settings, p.now(), p.pid)
	if err != nil {
		p.logger.Warn("Presence activity not built", "error", err, "elapsed", snap.Elapsed)
		return
	}
	if err := p.session.SetActivity(ctx, args); err != nil {
		if apperrors.IsUnavailable(err) {
			p.logger.Debug("Presence session not connected, update dropped", "error", err)
			return
		}
		p.logger.Warn("Presence update failed", "error", err)
		return
	}
	p.logger.Debug("Presence updated", "details", args.Activity.Details)
}

// Snapshot reads the playback state from the page.
func (p *Poller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	reads := []struct {
		expr string
		dst  *string
	}{
		{bridge.MediaField("title"), &snap.Title},
		{bridge.MediaField("artist"), &snap.Artist},
		{bridge.MediaField("album"), &snap.Album},
		{bridge.ArtworkSource(), &snap.Artwork},
	}
	for _, r := range reads {
		g.Go(func() error {
			v, _, err := bridge.String(gctx, p.eval, r.expr)
			if err != nil {
				return err
			}
			*r.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	mediaID, _, err := bridge.String(ctx, p.eval, bridge.LocalStorageItem(p.opts.MediaIDKey))
	if err != nil {
		return Snapshot{}, err
	}
	snap.MediaID = mediaID

	label, err := schedule.PollUntil(ctx, p.opts.ElapsedPollInterval, p.opts.ElapsedTimeout,
		func(ctx context.Context) (string, error) {
			v, _, err := bridge.String(ctx, p.eval, bridge.TextContent(p.opts.ElapsedSelector))
			return strings.TrimSpace(v), err
		},
		func(err error, next time.Duration) {
			p.logger.Debug("Elapsed label lookup failed", "error", err, "retry_in", next)
		})
	switch {
	case err == nil:
		snap.Elapsed = label
		snap.Resolved = true
	case errors.Is(err, schedule.ErrTimeout):
		snap.Elapsed = DiscoveringLabel
	default:
		return Snapshot{}, err
	}
	return snap, nil
}
