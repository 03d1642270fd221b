package call

import (
	"errors"
	"testing"
	"time"
)

type fakeDialer struct {
	calls []struct{ to, from, twiml string }
	err   error
}

func (f *fakeDialer) Dial(to, from, twiml string) (string, string, error) {
	f.calls = append(f.calls, struct{ to, from, twiml string }{to, from, twiml})
	if f.err != nil {
		return "", "", f.err
	}
	return "CA123", "queued", nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func settings(cd time.Duration) Settings {
	return func() (string, time.Duration) { return "+79990001122", cd }
}

func newTrigger(d Dialer, c *clock, cd time.Duration) *Trigger {
	return New(Options{
		Dialer:   d,
		From:     "+15550100",
		Settings: settings(cd),
		Now:      c.now,
	})
}

func TestFirstCallGoesThrough(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	trigger := newTrigger(dialer, newClock(), time.Minute)

	if !trigger.Call() {
		t.Fatalf("Call() = false, want true")
	}
	if len(dialer.calls) != 1 {
		t.Fatalf("provider requests = %d, want 1", len(dialer.calls))
	}
	got := dialer.calls[0]
	if got.to != "+79990001122" || got.from != "+15550100" {
		t.Fatalf("Dial(to=%q, from=%q), want configured numbers", got.to, got.from)
	}
	if got.twiml != SpokenScript {
		t.Fatalf("Dial twiml = %q, want the fixed script", got.twiml)
	}
}

func TestCooldownRefusesWithoutProviderRequest(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	clk := newClock()
	trigger := newTrigger(dialer, clk, time.Minute)

	if !trigger.Call() {
		t.Fatalf("first Call() = false, want true")
	}
	clk.advance(10 * time.Second)
	if trigger.Call() {
		t.Fatalf("second Call() inside cooldown = true, want false")
	}
	if len(dialer.calls) != 1 {
		t.Fatalf("provider requests = %d, want 1 (cooldown must not dial)", len(dialer.calls))
	}
}

func TestCooldownElapsedAllowsNextCall(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	clk := newClock()
	trigger := newTrigger(dialer, clk, time.Minute)

	if !trigger.Call() {
		t.Fatalf("first Call() = false, want true")
	}
	clk.advance(61 * time.Second)
	if !trigger.Call() {
		t.Fatalf("Call() after cooldown = false, want true")
	}
	if len(dialer.calls) != 2 {
		t.Fatalf("provider requests = %d, want 2", len(dialer.calls))
	}
}

func TestFailedCallDoesNotAdvanceCooldown(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{err: errors.New("http 401")}
	clk := newClock()
	trigger := newTrigger(dialer, clk, time.Minute)

	if trigger.Call() {
		t.Fatalf("Call() = true on provider failure")
	}
	// The next attempt must not be penalized by the failed one.
	dialer.err = nil
	clk.advance(time.Second)
	if !trigger.Call() {
		t.Fatalf("Call() after failure = false, want true (timestamp must not advance on failure)")
	}
	if len(dialer.calls) != 2 {
		t.Fatalf("provider requests = %d, want 2", len(dialer.calls))
	}
}

func TestMissingDestinationRefuses(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	trigger := New(Options{
		Dialer:   dialer,
		From:     "+15550100",
		Settings: func() (string, time.Duration) { return "", time.Minute },
		Now:      newClock().now,
	})
	if trigger.Call() {
		t.Fatalf("Call() = true without a destination number")
	}
	if len(dialer.calls) != 0 {
		t.Fatalf("provider requests = %d, want 0", len(dialer.calls))
	}
}

func TestCooldownChangeTakesEffect(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	clk := newClock()
	cooldown := time.Minute
	trigger := New(Options{
		Dialer:   dialer,
		From:     "+15550100",
		Settings: func() (string, time.Duration) { return "+79990001122", cooldown },
		Now:      clk.now,
	})

	if !trigger.Call() {
		t.Fatalf("first Call() = false, want true")
	}
	clk.advance(10 * time.Second)
	cooldown = 5 * time.Second
	if !trigger.Call() {
		t.Fatalf("Call() with shortened cooldown = false, want true")
	}
}
