// Package session owns the lifecycle of the authenticated Telegram session:
// connect with the persisted token, advisory authorization checks, the QR
// login flow and disconnect.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/telegram"
)

var (
	ErrNotInitialized          = errors.New("session: client not initialized")
	ErrLoginInProgress         = errors.New("session: login attempt already in flight")
	ErrSecondFactorUnsupported = errors.New("session: second factor login is not supported")
)

// Conn is the live connection handle the authenticator manages and shares
// with the monitor. *telegram.Conn implements it.
type Conn interface {
	Authorized(ctx context.Context) (bool, error)
	SignInWithLoginCode(ctx context.Context, onChallenge func(telegram.Challenge)) error
	SubscribePolls(ctx context.Context, source string, fn telegram.PollHandler) error
	UnsubscribePolls()
	ForwardMessage(ctx context.Context, from, to string, msgID int) error
	SendText(ctx context.Context, to, text string) error
	Close() error
}

// Dialer opens a fresh connection (session restored from storage).
type Dialer func(ctx context.Context) (Conn, error)

type Authenticator struct {
	mu        sync.Mutex
	dial      Dialer
	conn      Conn
	loggingIn bool
	logger    *slog.Logger
}

func NewAuthenticator(dial Dialer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{dial: dial, logger: logger}
}

// Connect opens the connection, or returns the existing one. The persisted
// token is restored by the session storage during the dial; when it still
// authorizes, the storage re-saves it on the fly (refresh on success).
func (a *Authenticator) Connect(ctx context.Context) (Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := a.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	a.conn = conn

	if ok, authErr := conn.Authorized(ctx); authErr == nil && ok {
		a.logger.Info("session_restored")
	} else {
		a.logger.Info("session_login_required")
	}
	return conn, nil
}

// Conn returns the live connection, if any.
func (a *Authenticator) Conn() (Conn, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn, a.conn != nil
}

// Authorized is advisory: it never fails, it only answers false when there is
// no connection or the status query itself errors.
func (a *Authenticator) Authorized(ctx context.Context) bool {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return false
	}
	ok, err := conn.Authorized(ctx)
	if err != nil {
		a.logger.Debug("auth_status_error", "error", err.Error())
		return false
	}
	return ok
}

// LoginWithCode drives one QR login attempt. Requires an existing connection.
// Already authorized sessions return true immediately. Exactly one attempt
// may be in flight; overlap is rejected with ErrLoginInProgress. A second
// factor demand fails hard with ErrSecondFactorUnsupported; any other
// handshake failure resolves (false, nil) — terminal for this attempt,
// detail in the log.
func (a *Authenticator) LoginWithCode(ctx context.Context, onChallenge func(telegram.Challenge)) (bool, error) {
	a.mu.Lock()
	conn := a.conn
	if conn == nil {
		a.mu.Unlock()
		return false, ErrNotInitialized
	}
	if a.loggingIn {
		a.mu.Unlock()
		return false, ErrLoginInProgress
	}
	a.loggingIn = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.loggingIn = false
		a.mu.Unlock()
	}()

	if ok, err := conn.Authorized(ctx); err == nil && ok {
		a.logger.Info("login_already_authorized")
		return true, nil
	}

	err := conn.SignInWithLoginCode(ctx, onChallenge)
	switch {
	case err == nil:
		// gotd persists the fresh token through the session storage.
		a.logger.Info("qr_login_success")
		return true, nil
	case errors.Is(err, telegram.ErrSecondFactorRequired):
		a.logger.Error("qr_login_second_factor_required")
		return false, ErrSecondFactorUnsupported
	default:
		a.logger.Error("qr_login_failed", "error", err.Error())
		return false, nil
	}
}

// Disconnect closes the connection and clears the handle. No-op when no
// connection exists.
func (a *Authenticator) Disconnect() error {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		a.logger.Warn("disconnect_error", "error", err.Error())
		return err
	}
	a.logger.Info("session_disconnected")
	return nil
}
