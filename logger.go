package treeidx

// Logger receives lifecycle and failure events from an index: create, open
// and close, root splits and collapses, aborted operations and failed
// commits. Arguments after msg are alternating key-value pairs, as with
// log/slog, so *slog.Logger satisfies Logger directly. Package logger adapts
// logrus and zap.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// DiscardLogger drops every event. It is the default.
type DiscardLogger struct{}

func (DiscardLogger) Error(string, ...any) {}
func (DiscardLogger) Warn(string, ...any)  {}
func (DiscardLogger) Info(string, ...any)  {}
