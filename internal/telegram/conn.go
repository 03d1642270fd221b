// Package telegram owns the MTProto connection: dialing with a persisted
// session, authorization queries, the QR login handshake, the live update
// subscription and outbound sends. Everything above it talks to the Conn
// through small interfaces, so the rest of the system is testable without a
// network.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
)

var (
	ErrSecondFactorRequired = errors.New("telegram: second factor required")
	ErrSubscriptionActive   = errors.New("telegram: poll subscription already active")
)

// Device metadata reported to Telegram on connect.
const (
	deviceModel   = "Samsung Galaxy S23"
	systemVersion = "Android 13"
	appVersion    = "10.0.1"
)

const (
	dialTimeout  = 30 * time.Second
	closeTimeout = 5 * time.Second
)

type Config struct {
	APIID   int
	APIHash string
	// Storage persists the opaque session token; gotd re-saves it after
	// every successful authorization.
	Storage telegram.SessionStorage
	Logger  *slog.Logger
}

// Conn is a live MTProto connection. At most one exists per process.
type Conn struct {
	client *telegram.Client
	api    *tg.Client
	sender *message.Sender
	peers  *peers.Manager
	logger *slog.Logger

	loggedIn <-chan struct{}

	subMu sync.Mutex
	sub   *subscription

	stop      context.CancelFunc
	done      chan error
	closeOnce sync.Once
	closeErr  error
}

// Dial opens the connection, restoring the persisted session if present.
// It returns once the transport is up; the caller checks authorization
// separately.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.APIID == 0 || cfg.APIHash == "" {
		return nil, fmt.Errorf("telegram dial: missing api_id/api_hash")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dispatcher := tg.NewUpdateDispatcher()
	conn := &Conn{
		logger:   logger,
		loggedIn: qrlogin.OnLoginToken(dispatcher),
		done:     make(chan error, 1),
	}
	dispatcher.OnNewMessage(func(_ context.Context, _ tg.Entities, u *tg.UpdateNewMessage) error {
		conn.dispatchMessage(u.Message)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(_ context.Context, _ tg.Entities, u *tg.UpdateNewChannelMessage) error {
		conn.dispatchMessage(u.Message)
		return nil
	})

	client := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: cfg.Storage,
		UpdateHandler:  dispatcher,
		Device: telegram.DeviceConfig{
			DeviceModel:   deviceModel,
			SystemVersion: systemVersion,
			AppVersion:    appVersion,
		},
	})
	conn.client = client

	runCtx, stop := context.WithCancel(context.Background())
	conn.stop = stop

	ready := make(chan struct{})
	go func() {
		conn.done <- client.Run(runCtx, func(runCtx context.Context) error {
			close(ready)
			<-runCtx.Done()
			return runCtx.Err()
		})
	}()

	select {
	case <-ready:
	case err := <-conn.done:
		stop()
		if err == nil {
			err = errors.New("run loop exited before ready")
		}
		return nil, fmt.Errorf("telegram connect: %w", err)
	case <-ctx.Done():
		stop()
		return nil, ctx.Err()
	case <-time.After(dialTimeout):
		stop()
		return nil, fmt.Errorf("telegram connect: timeout after %s", dialTimeout)
	}

	conn.api = client.API()
	conn.sender = message.NewSender(conn.api)
	conn.peers = peers.Options{}.Build(conn.api)

	logger.Info("telegram_connected")
	return conn, nil
}

// Authorized reports whether the current session is signed in.
func (c *Conn) Authorized(ctx context.Context) (bool, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("auth status: %w", err)
	}
	return status.Authorized, nil
}

// Close tears down the run loop. Safe to call more than once; later calls
// return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.stop()
		select {
		case err := <-c.done:
			if err != nil && !errors.Is(err, context.Canceled) {
				c.closeErr = err
			}
		case <-time.After(closeTimeout):
			c.closeErr = fmt.Errorf("telegram close: timeout after %s", closeTimeout)
		}
		c.logger.Info("telegram_disconnected")
	})
	return c.closeErr
}
