package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a configured level name to a log level. Empty means info.
func ParseLevel(level string) (log.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return log.InfoLevel, nil
	}
	l, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log.level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger builds the process logger writing to w. Components derive their own
// prefix with WithPrefix.
func NewLogger(w io.Writer, c LogConfig) *log.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          AppName,
		Level:           level,
		ReportTimestamp: true,
	})
}
