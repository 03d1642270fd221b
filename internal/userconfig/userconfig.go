// Package userconfig holds the panel-editable settings and persists them as
// JSON under the state directory. Secrets (API credentials, panel password)
// never live here; they come from the environment or the viper config file.
package userconfig

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/VadimTikh/telegram-poll-forwarder/internal/fsstore"
)

const FileName = "config.json"

const (
	DefaultDestinationChat     = "me"
	DefaultCallCooldownSeconds = 60
)

type Config struct {
	// SourceGroup is the watched conversation (username, @username, me, or a
	// numeric chat ID).
	SourceGroup string `json:"sourceGroup"`
	// DestinationChat receives forwarded polls and notifications.
	DestinationChat string `json:"destinationChat"`
	// CallPhoneNumber is the E.164 number called on every new poll.
	CallPhoneNumber string `json:"callPhoneNumber"`
	// CallCooldownSeconds is the minimum interval between successful calls.
	CallCooldownSeconds int `json:"callCooldownSeconds"`
}

func Default() Config {
	return Config{
		SourceGroup:         "",
		DestinationChat:     DefaultDestinationChat,
		CallPhoneNumber:     "",
		CallCooldownSeconds: DefaultCallCooldownSeconds,
	}
}

func (c Config) Cooldown() time.Duration {
	secs := c.CallCooldownSeconds
	if secs <= 0 {
		secs = DefaultCallCooldownSeconds
	}
	return time.Duration(secs) * time.Second
}

func normalize(c Config) Config {
	c.SourceGroup = strings.TrimSpace(c.SourceGroup)
	c.CallPhoneNumber = strings.TrimSpace(c.CallPhoneNumber)
	c.DestinationChat = strings.TrimSpace(c.DestinationChat)
	if c.DestinationChat == "" {
		c.DestinationChat = DefaultDestinationChat
	}
	if c.CallCooldownSeconds <= 0 {
		c.CallCooldownSeconds = DefaultCallCooldownSeconds
	}
	return c
}

type Manager struct {
	mu      sync.Mutex
	path    string
	current Config
	logger  *slog.Logger
}

func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, current: Default(), logger: logger}
}

// Load reads the persisted config, falling back to defaults when the file is
// missing or unreadable. A corrupt file is logged, not fatal.
func (m *Manager) Load() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := Default()
	found, err := fsstore.ReadJSON(m.path, &saved)
	switch {
	case err != nil:
		m.logger.Error("config_load_error", "path", m.path, "error", err.Error())
		m.current = Default()
	case found:
		m.current = normalize(saved)
		m.logger.Info("config_loaded", "path", m.path)
	default:
		m.current = Default()
		m.logger.Info("config_defaults", "path", m.path)
	}
	return m.current
}

func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Update replaces the current settings with the given ones (empty fields
// reset to their defaults), persists the result and returns it.
func (m *Manager) Update(in Config) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := normalize(in)
	if err := fsstore.WriteJSONAtomic(m.path, next, fsstore.FileOptions{}); err != nil {
		return m.current, fmt.Errorf("save config: %w", err)
	}
	m.current = next
	m.logger.Info("config_saved", "path", m.path)
	return m.current, nil
}
