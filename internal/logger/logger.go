// Package logger builds the process slog.Logger. Output always goes to
// stderr because stdout carries the stdio transport.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
)

// DefaultMaxSizeMB is the log file size that triggers rotation on startup.
const DefaultMaxSizeMB = 10

// maxStatementLen bounds how much SQL ends up in a single log record.
const maxStatementLen = 100

// Config selects level, format and the optional log file.
type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	File      string
	MaxSizeMB int64
}

// FromConfig maps the process configuration to logger settings.
func FromConfig(c *config.Config) Config {
	return Config{
		Level:     ParseLevel(c.LogLevel),
		Format:    strings.ToLower(c.LogFormat),
		File:      c.LogFile,
		MaxSizeMB: DefaultMaxSizeMB,
	}
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to stderr and, if cfg.File is set, to that
// file as well. The returned closer releases the file.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	writers := []io.Writer{stderr}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		dir := filepath.Dir(cfg.File)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		if err := rotateIfNeeded(cfg.File, cfg.MaxSizeMB*1024*1024); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	var w io.Writer = stderr
	if len(writers) > 1 {
		w = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer, nil
}

func rotateIfNeeded(filename string, maxSize int64) error {
	if maxSize <= 0 {
		return nil
	}
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < maxSize {
		return nil
	}
	backup := fmt.Sprintf("%s.%s", filename, time.Now().Format("20060102-150405"))
	if err := os.Rename(filename, backup); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Truncate shortens a SQL statement for logging.
func Truncate(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxStatementLen {
		cut := maxStatementLen
		for cut > 0 && !utf8.RuneStart(sql[cut]) {
			cut--
		}
		return sql[:cut] + "..."
	}
	return sql
}

// Statement logs one executed statement at debug level, or at error level
// when err is non-nil.
func Statement(l *slog.Logger, op, sql string, rows int64, err error) {
	attrs := []any{slog.String("op", op), slog.String("sql", Truncate(sql))}
	if err != nil {
		l.Error("statement failed", append(attrs, slog.Any("error", err))...)
		return
	}
	l.Debug("statement executed", append(attrs, slog.Int64("rows", rows))...)
}

// Discard returns a logger that drops every record. Used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
