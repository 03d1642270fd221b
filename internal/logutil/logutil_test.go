package logutil

import (
	"path/filepath"
	"testing"
)

func TestNewLoggerFromConfigLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level   string
		wantErr bool
	}{
		{level: ""},
		{level: "debug"},
		{level: "info"},
		{level: "warn"},
		{level: "warning"},
		{level: "error"},
		{level: "verbose", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.level, func(t *testing.T) {
			t.Parallel()
			_, err := newLoggerFromConfig(loggerConfig{Level: tc.level})
			if tc.wantErr && err == nil {
				t.Fatalf("newLoggerFromConfig(level=%q) expected error", tc.level)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("newLoggerFromConfig(level=%q) error = %v", tc.level, err)
			}
		})
	}
}

func TestNewLoggerFromConfigFormats(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"", "text", "json"} {
		if _, err := newLoggerFromConfig(loggerConfig{Format: format}); err != nil {
			t.Fatalf("newLoggerFromConfig(format=%q) error = %v", format, err)
		}
	}
	if _, err := newLoggerFromConfig(loggerConfig{Format: "xml"}); err == nil {
		t.Fatalf("newLoggerFromConfig(format=xml) expected error")
	}
}

func TestNewLoggerFromConfigFileRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := newLoggerFromConfig(loggerConfig{FileEnabled: true}); err == nil {
		t.Fatalf("newLoggerFromConfig(file enabled, no path) expected error")
	}
	cfg := loggerConfig{
		FileEnabled: true,
		FilePath:    filepath.Join(t.TempDir(), "app.log"),
	}
	if _, err := newLoggerFromConfig(cfg); err != nil {
		t.Fatalf("newLoggerFromConfig(file enabled) error = %v", err)
	}
}
