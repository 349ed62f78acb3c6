package logger

import (
	"go.uber.org/zap"

	"github.com/alexhholmes/treeidx"
)

// Zap wraps a zap.Logger to implement treeidx.Logger. Entries are logged
// under the logger name "treeidx".
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap creates a treeidx.Logger from a zap.Logger.
func NewZap(logger *zap.Logger) treeidx.Logger {
	return &Zap{sugar: logger.Named(Component).Sugar()}
}

func (z *Zap) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }
func (z *Zap) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *Zap) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
