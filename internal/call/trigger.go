// Package call places the voice-call alert through the telephony provider,
// gated by a global cooldown so rapid successive polls cannot cause an alert
// storm.
package call

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// SpokenScript is the fixed TwiML announcement for every alert call.
const SpokenScript = `<Response><Say language="ru-RU">Внимание! Новый опрос в группе Телеграм!</Say><Pause length="1"/><Say language="ru-RU">Проверьте Телеграм.</Say></Response>`

// Dialer issues one call request to the provider. The implementation carries
// its own bounded request timeout.
type Dialer interface {
	Dial(to, from, twiml string) (sid, status string, err error)
}

// Settings returns the current call destination and cooldown; both are
// panel-editable at runtime.
type Settings func() (to string, cooldown time.Duration)

type Options struct {
	Dialer   Dialer
	From     string
	Settings Settings
	Logger   *slog.Logger
	Now      func() time.Time
}

type Trigger struct {
	mu       sync.Mutex
	dialer   Dialer
	from     string
	settings Settings
	logger   *slog.Logger
	now      func() time.Time

	// lastCall only ever moves forward, and only on a successful call.
	lastCall time.Time
}

func New(opts Options) *Trigger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Trigger{
		dialer:   opts.Dialer,
		from:     opts.From,
		settings: opts.Settings,
		logger:   logger,
		now:      now,
	}
}

// Call runs the admission check and, when allowed, issues exactly one
// provider request. Refusal inside the cooldown is an expected negative
// outcome, not an error. A failed request does not advance the cooldown
// state, so the next attempt is not penalized.
//
// The whole operation is serialized; concurrent poll handlers cannot slip a
// second call through the cooldown window.
func (t *Trigger) Call() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	to, cooldown := t.settings()
	if to == "" {
		t.logger.Error("call_skipped", "reason", "no destination number configured")
		return false
	}

	now := t.now()
	if !t.lastCall.IsZero() {
		elapsed := now.Sub(t.lastCall)
		if elapsed < cooldown {
			remaining := int(math.Ceil((cooldown - elapsed).Seconds()))
			t.logger.Warn("call_cooldown_active", "remaining_seconds", remaining)
			return false
		}
	}

	t.logger.Info("call_dialing", "to", to)
	sid, status, err := t.dialer.Dial(to, t.from, SpokenScript)
	if err != nil {
		t.logger.Error("call_failed", "error", err.Error())
		return false
	}

	t.lastCall = t.now()
	t.logger.Info("call_placed", "sid", sid, "status", status)
	return true
}
