// Package logx builds the charmbracelet/log loggers shared by every component.
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Level palette mirrors ui's colours so log lines and command output match.
var (
	colorDebug = lipgloss.Color("#555555")
	colorInfo  = lipgloss.Color("#00B4D8")
	colorWarn  = lipgloss.Color("#FFB800")
	colorError = lipgloss.Color("#FF4444")
)

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", "error", "off"). Unknown names fall back to "warn".
func New(w io.Writer, level string) *log.Logger {
	if strings.EqualFold(strings.TrimSpace(level), "off") {
		return Discard()
	}
	l := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	styles := log.DefaultStyles()
	styles.Levels = map[log.Level]lipgloss.Style{
		log.DebugLevel: lipgloss.NewStyle().Foreground(colorDebug).SetString("DEBU"),
		log.InfoLevel:  lipgloss.NewStyle().Foreground(colorInfo).SetString("INFO"),
		log.WarnLevel:  lipgloss.NewStyle().Foreground(colorWarn).SetString("WARN"),
		log.ErrorLevel: lipgloss.NewStyle().Foreground(colorError).Bold(true).SetString("ERRO"),
	}
	l.SetStyles(styles)
	return l
}

// Stderr is New(os.Stderr, level).
func Stderr(level string) *log.Logger { return New(os.Stderr, level) }

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel maps a config string to a log level.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
