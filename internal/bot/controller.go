// Package bot coordinates the forwarder lifecycle for the control panel:
// start and stop the monitoring pipeline, report status and drive the login
// flow through the session authenticator.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/monitor"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/session"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/telegram"
	"github.com/VadimTikh/telegram-poll-forwarder/internal/userconfig"
)

var (
	// ErrMissingConfiguration groups the start preconditions; the concrete
	// sentinels below wrap it so callers can match either level.
	ErrMissingConfiguration = errors.New("bot: required configuration missing")
	ErrMissingSourceGroup   = fmt.Errorf("%w: source group", ErrMissingConfiguration)
	ErrMissingCallNumber    = fmt.Errorf("%w: call phone number", ErrMissingConfiguration)

	ErrNotAuthorized = errors.New("bot: telegram session not authorized")
)

// Authenticator is the session surface the controller drives.
// *session.Authenticator implements it.
type Authenticator interface {
	Connect(ctx context.Context) (session.Conn, error)
	Authorized(ctx context.Context) bool
	LoginWithCode(ctx context.Context, onChallenge func(telegram.Challenge)) (bool, error)
	Disconnect() error
}

// Runner is the monitoring pipeline. *monitor.Monitor implements it.
type Runner interface {
	Start(ctx context.Context, conn monitor.Conn, source, dest string) error
	Stop()
}

// Status is a point-in-time view for the panel.
type Status struct {
	Running        bool
	ConnectedSince *time.Time
}

type Controller struct {
	auth   Authenticator
	runner Runner
	config *userconfig.Manager
	logger *slog.Logger
	now    func() time.Time

	mu             sync.Mutex
	running        bool
	connectedSince time.Time
}

type Options struct {
	Authenticator Authenticator
	Runner        Runner
	Config        *userconfig.Manager
	Logger        *slog.Logger
	Now           func() time.Time
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		auth:   opts.Authenticator,
		runner: opts.Runner,
		config: opts.Config,
		logger: logger,
		now:    now,
	}
}

// Start connects the session and starts the monitor. Starting never performs
// a login: an unauthorized session fails with ErrNotAuthorized and the panel
// has to run the QR flow first. Starting while running is a logged no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn("bot_already_running")
		return nil
	}

	cfg := c.config.Get()
	if cfg.SourceGroup == "" {
		return ErrMissingSourceGroup
	}
	if cfg.CallPhoneNumber == "" {
		return ErrMissingCallNumber
	}

	conn, err := c.auth.Connect(ctx)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if !c.auth.Authorized(ctx) {
		return ErrNotAuthorized
	}

	if err := c.runner.Start(ctx, conn, cfg.SourceGroup, cfg.DestinationChat); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	c.running = true
	c.connectedSince = c.now()
	c.logger.Info("bot_started", "source", cfg.SourceGroup, "dest", cfg.DestinationChat)
	return nil
}

// Stop tears the pipeline down and disconnects. Stopping while stopped is a
// logged no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		c.logger.Warn("bot_not_running")
		return nil
	}

	c.runner.Stop()
	err := c.auth.Disconnect()

	c.running = false
	c.connectedSince = time.Time{}
	c.logger.Info("bot_stopped")
	return err
}

// Status reports the current run state without touching the network.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{Running: c.running}
	if c.running {
		since := c.connectedSince
		st.ConnectedSince = &since
	}
	return st
}

// CheckAuthorized connects if needed and answers the advisory authorization
// question. Any failure along the way reads as "not authorized".
func (c *Controller) CheckAuthorized(ctx context.Context) bool {
	if _, err := c.auth.Connect(ctx); err != nil {
		c.logger.Debug("auth_check_connect_error", "error", err.Error())
		return false
	}
	return c.auth.Authorized(ctx)
}

// BeginLoginFlow ensures a connection and runs one QR login attempt,
// delivering challenges through onChallenge.
func (c *Controller) BeginLoginFlow(ctx context.Context, onChallenge func(telegram.Challenge)) (bool, error) {
	if _, err := c.auth.Connect(ctx); err != nil {
		return false, fmt.Errorf("login: %w", err)
	}
	return c.auth.LoginWithCode(ctx, onChallenge)
}
