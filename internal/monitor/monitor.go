// Package monitor watches the source group for new polls and drives the
// notification pipeline: forward the poll message, send a text summary, then
// trigger the voice call. Pipeline steps are fault-isolated; one failing step
// never blocks the next.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/telegram"
)

var ErrAlreadyStarted = errors.New("monitor: already started")

const (
	defaultMinDelay = 1 * time.Second
	defaultMaxDelay = 3 * time.Second
)

// Conn is the slice of the connection the monitor needs. *telegram.Conn and
// the wider session handle both satisfy it.
type Conn interface {
	SubscribePolls(ctx context.Context, source string, fn telegram.PollHandler) error
	UnsubscribePolls()
	ForwardMessage(ctx context.Context, from, to string, msgID int) error
	SendText(ctx context.Context, to, text string) error
}

// Caller places the alert call; admission (cooldown) is its own concern.
type Caller interface {
	Call() bool
}

type Options struct {
	Caller Caller
	Logger *slog.Logger
	// MinDelay/MaxDelay bound the random pacing delay before each pipeline
	// run. Zero values keep the 1-3s production window.
	MinDelay time.Duration
	MaxDelay time.Duration
}

type Monitor struct {
	caller   Caller
	logger   *slog.Logger
	minDelay time.Duration
	maxDelay time.Duration

	mu      sync.Mutex
	running bool
	conn    Conn
	wg      *sync.WaitGroup
}

func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minDelay, maxDelay := opts.MinDelay, opts.MaxDelay
	if minDelay <= 0 {
		minDelay = defaultMinDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Monitor{
		caller:   opts.Caller,
		logger:   logger,
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Start registers the poll subscription on conn. A second Start without an
// intervening Stop fails with ErrAlreadyStarted; the monitor holds exactly
// one subscription at a time.
func (m *Monitor) Start(ctx context.Context, conn Conn, source, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyStarted
	}

	// The pipeline context deliberately has no cancellation: side effects of
	// an already-detected poll complete or fail on their own, even across a
	// Stop, and must not die with the request context Start was given.
	runCtx := context.WithoutCancel(ctx)
	wg := new(sync.WaitGroup)
	handler := func(ev telegram.PollEvent) {
		// The Add is gated on this start still being current, so Stop's
		// Wait cannot race a late Add.
		m.mu.Lock()
		if m.wg != wg {
			m.mu.Unlock()
			return
		}
		wg.Add(1)
		m.mu.Unlock()
		go func() {
			defer wg.Done()
			m.handle(runCtx, conn, source, dest, ev)
		}()
	}
	if err := conn.SubscribePolls(ctx, source, handler); err != nil {
		return fmt.Errorf("subscribe polls: %w", err)
	}

	m.running = true
	m.conn = conn
	m.wg = wg
	m.logger.Info("monitor_started", "source", source, "dest", dest)
	return nil
}

// Stop drops the subscription and waits for in-flight pipeline runs to
// finish; it never cancels them. Idempotent; teardown problems on a dead
// connection are swallowed.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	wg := m.wg
	m.running = false
	m.conn = nil
	m.wg = nil
	m.mu.Unlock()

	conn.UnsubscribePolls()
	wg.Wait()
	m.logger.Info("monitor_stopped")
}

// Running reports whether a subscription is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) handle(ctx context.Context, conn Conn, source, dest string, ev telegram.PollEvent) {
	m.logger.Info("poll_detected", "message_id", ev.MessageID, "question", ev.Question)

	time.Sleep(m.pacingDelay())

	if err := conn.ForwardMessage(ctx, source, dest, ev.MessageID); err != nil {
		m.logger.Error("poll_forward_error", "message_id", ev.MessageID, "error", err.Error())
	} else {
		m.logger.Info("poll_forwarded", "message_id", ev.MessageID)
	}

	if err := conn.SendText(ctx, dest, Summary(ev)); err != nil {
		m.logger.Error("poll_summary_error", "message_id", ev.MessageID, "error", err.Error())
	} else {
		m.logger.Info("poll_summary_sent", "message_id", ev.MessageID)
	}

	if m.caller != nil {
		m.caller.Call()
	}
}

func (m *Monitor) pacingDelay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	return m.minDelay + rand.N(m.maxDelay-m.minDelay)
}

// Summary renders the notification text for a poll: the question followed by
// a numbered option list.
func Summary(ev telegram.PollEvent) string {
	var b strings.Builder
	b.WriteString("🔔 Новый опрос!\n\nВопрос: ")
	b.WriteString(ev.Question)
	b.WriteString("\n\nВарианты:")
	for i, opt := range ev.Options {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, opt)
	}
	return b.String()
}
