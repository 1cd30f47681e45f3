package client

import (
	"fmt"
	"strings"

	"github.com/mborders/logmatic"
)

// logmaticLogger 终端日志实现
type logmaticLogger struct {
	l *logmatic.Logger
}

// NewLogmaticLogger 创建终端日志器
//
// level: "trace" | "debug" | "info" | "warn" | "error"; anything else is info.
func NewLogmaticLogger(level string) Logger {
	l := logmatic.NewLogger()
	l.SetLevel(parseLevel(level))
	return &logmaticLogger{l: l}
}

func parseLevel(level string) logmatic.LogLevel {
	switch strings.ToLower(level) {
	case "trace":
		return logmatic.TRACE
	case "debug":
		return logmatic.DEBUG
	case "warn", "warning":
		return logmatic.WARN
	case "error":
		return logmatic.ERROR
	default:
		return logmatic.INFO
	}
}

func (g *logmaticLogger) Debug(msg string, args ...interface{}) {
	g.l.Debug("%s", formatEntry(msg, args))
}

func (g *logmaticLogger) Info(msg string, args ...interface{}) {
	g.l.Info("%s", formatEntry(msg, args))
}

func (g *logmaticLogger) Warn(msg string, args ...interface{}) {
	g.l.Warn("%s", formatEntry(msg, args))
}

func (g *logmaticLogger) Error(msg string, args ...interface{}) {
	g.l.Error("%s", formatEntry(msg, args))
}

// formatEntry renders msg followed by key=value pairs.
func formatEntry(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, "%v", args[i])
		}
	}
	return b.String()
}

type nopLogger struct{}

// NopLogger 丢弃所有日志
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
