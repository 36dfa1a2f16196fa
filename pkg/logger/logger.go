// Package logger provides component-scoped leveled logging for parlor.
//
// Every log line carries a component tag so interleaved output from the
// realtime channel, the REST client and the conversation loop stays
// attributable.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	levelVar slog.LevelVar
	log      = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}))
)

// SetLevel sets the minimum level emitted by the package logger.
func SetLevel(l Level) {
	switch l {
	case DEBUG:
		levelVar.Set(slog.LevelDebug)
	case WARN:
		levelVar.Set(slog.LevelWarn)
	case ERROR:
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// ParseLevel maps a config string to a Level. Unknown values default to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func attrs(component string, fields map[string]any) []any {
	out := make([]any, 0, 2+2*len(fields))
	out = append(out, "component", component)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func DebugC(component, msg string) { log.Debug(msg, "component", component) }
func InfoC(component, msg string)  { log.Info(msg, "component", component) }
func WarnC(component, msg string)  { log.Warn(msg, "component", component) }
func ErrorC(component, msg string) { log.Error(msg, "component", component) }

func DebugCF(component, msg string, f map[string]any) { log.Debug(msg, attrs(component, f)...) }
func InfoCF(component, msg string, f map[string]any)  { log.Info(msg, attrs(component, f)...) }
func WarnCF(component, msg string, f map[string]any)  { log.Warn(msg, attrs(component, f)...) }
func ErrorCF(component, msg string, f map[string]any) { log.Error(msg, attrs(component, f)...) }
