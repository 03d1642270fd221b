package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

type loggerConfig struct {
	Level     string
	Format    string
	AddSource bool

	FileEnabled  bool
	FilePath     string
	FileMaxSize  int // megabytes
	FileBackups  int
	FileMaxAge   int // days
	FileCompress bool
}

// LoggerFromViper builds the process logger from logging.* keys. When
// logging.file.enabled is set, records are written both to stderr and to a
// size-rotated file.
func LoggerFromViper() (*slog.Logger, error) {
	cfg := loggerConfig{
		Level:        viper.GetString("logging.level"),
		Format:       viper.GetString("logging.format"),
		AddSource:    viper.GetBool("logging.add_source"),
		FileEnabled:  viper.GetBool("logging.file.enabled"),
		FilePath:     viper.GetString("logging.file.path"),
		FileMaxSize:  viper.GetInt("logging.file.max_size_mb"),
		FileBackups:  viper.GetInt("logging.file.max_backups"),
		FileMaxAge:   viper.GetInt("logging.file.max_age_days"),
		FileCompress: viper.GetBool("logging.file.compress"),
	}
	if !viper.IsSet("logging.level") && viper.GetBool("trace") {
		cfg.Level = "debug"
	}
	return newLoggerFromConfig(cfg)
}

func newLoggerFromConfig(cfg loggerConfig) (*slog.Logger, error) {
	level, err := parseSlogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if cfg.FileEnabled {
		path := strings.TrimSpace(cfg.FilePath)
		if path == "" {
			return nil, fmt.Errorf("logging.file.enabled requires logging.file.path")
		}
		rotated := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.FileMaxSize,
			MaxBackups: cfg.FileBackups,
			MaxAge:     cfg.FileMaxAge,
			Compress:   cfg.FileCompress,
		}
		out = io.MultiWriter(os.Stderr, rotated)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown logging.format: %s", cfg.Format)
	}

	return slog.New(h), nil
}

func parseSlogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level: %s", s)
	}
}
