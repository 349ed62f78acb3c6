package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/alexhholmes/treeidx"
)

// Logrus wraps a logrus.Logger to implement treeidx.Logger. Every entry
// carries component=treeidx.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus creates a treeidx.Logger from a logrus.Logger.
func NewLogrus(logger *logrus.Logger) treeidx.Logger {
	return &Logrus{entry: logger.WithField("component", Component)}
}

func (l *Logrus) Error(msg string, args ...any) {
	l.entry.WithFields(argsToFields(args)).Error(msg)
}

func (l *Logrus) Warn(msg string, args ...any) {
	l.entry.WithFields(argsToFields(args)).Warn(msg)
}

func (l *Logrus) Info(msg string, args ...any) {
	l.entry.WithFields(argsToFields(args)).Info(msg)
}

// argsToFields pairs up slog-style arguments. Pairs with a non-string key
// and a trailing unpaired argument are dropped.
func argsToFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
