// Package log provides the logging facade shared by every internal package.
//
// It wraps go.uber.org/zap's SugaredLogger behind a small named-component
// handle so call sites never import zap directly and a single process-wide
// level/output switch is enough to retune every component at once.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var defaultLogger atomic.Pointer[zap.SugaredLogger]

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	defaultLogger.Store(l.Sugar())
}

// SetDefault swaps the process-wide base logger. Existing Component handles
// pick up the new logger on their next call.
func SetDefault(l *zap.Logger) {
	defaultLogger.Store(l.Sugar())
}

// Component is a lazily-resolved, named logger handle. Resolving the
// underlying logger on every call (rather than caching it at construction)
// means SetDefault takes effect for handles created before the swap.
type Component struct {
	name string
}

// Logger returns a handle for the named component, e.g. "core/upgrader".
func Logger(name string) *Component {
	return &Component{name: name}
}

func (c *Component) sugar() *zap.SugaredLogger {
	return defaultLogger.Load().With("component", c.name)
}

func (c *Component) Debug(msg string, kv ...interface{}) { c.sugar().Debugw(msg, kv...) }
func (c *Component) Info(msg string, kv ...interface{})  { c.sugar().Infow(msg, kv...) }
func (c *Component) Warn(msg string, kv ...interface{})  { c.sugar().Warnw(msg, kv...) }
func (c *Component) Error(msg string, kv ...interface{}) { c.sugar().Errorw(msg, kv...) }
