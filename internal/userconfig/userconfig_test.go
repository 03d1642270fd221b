package userconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.DestinationChat != "me" {
		t.Fatalf("Default().DestinationChat = %q, want me", cfg.DestinationChat)
	}
	if cfg.CallCooldownSeconds != 60 {
		t.Fatalf("Default().CallCooldownSeconds = %d, want 60", cfg.CallCooldownSeconds)
	}
	if got := cfg.Cooldown(); got != 60*time.Second {
		t.Fatalf("Cooldown() = %v, want 60s", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), FileName), nil)
	if got := m.Load(); got != Default() {
		t.Fatalf("Load() = %+v, want defaults", got)
	}
}

func TestLoadCorruptFileUsesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	m := NewManager(path, nil)
	if got := m.Load(); got != Default() {
		t.Fatalf("Load() = %+v, want defaults", got)
	}
}

func TestUpdatePersistsAndNormalizes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	m := NewManager(path, nil)

	saved, err := m.Update(Config{
		SourceGroup:     "  lunchgroup  ",
		CallPhoneNumber: "+79990001122",
		// DestinationChat and cooldown left empty on purpose.
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if saved.SourceGroup != "lunchgroup" {
		t.Fatalf("SourceGroup = %q, want trimmed", saved.SourceGroup)
	}
	if saved.DestinationChat != "me" {
		t.Fatalf("DestinationChat = %q, want default me", saved.DestinationChat)
	}
	if saved.CallCooldownSeconds != 60 {
		t.Fatalf("CallCooldownSeconds = %d, want default 60", saved.CallCooldownSeconds)
	}

	// A fresh manager must see the persisted values.
	again := NewManager(path, nil)
	if got := again.Load(); got != saved {
		t.Fatalf("Load() = %+v, want %+v", got, saved)
	}
}

func TestGetReturnsCurrent(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), FileName), nil)
	if _, err := m.Update(Config{SourceGroup: "g", CallCooldownSeconds: 120}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got := m.Get()
	if got.SourceGroup != "g" || got.CallCooldownSeconds != 120 {
		t.Fatalf("Get() = %+v, want updated values", got)
	}
}
