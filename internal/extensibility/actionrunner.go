// Package extensibility holds pluggable pieces around the stream dispatcher:
// action runner decorators and event sources that feed a core.Manager.
package extensibility

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/comalice/avssm"
)

// LoggingRunner wraps an ActionRunner and logs every action with its
// duration.
type LoggingRunner struct {
	inner  avssm.ActionRunner
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingRunner wraps inner. A nil logger means slog.Default().
func NewLoggingRunner(inner avssm.ActionRunner, logger *slog.Logger, level slog.Level) *LoggingRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingRunner{inner: inner, logger: logger, level: level}
}

// Run logs after delegating to the inner runner.
func (r *LoggingRunner) Run(c *avssm.Connection, id avssm.ActionID, payload any) {
	start := time.Now()
	r.inner.Run(c, id, payload)
	r.logger.Log(context.Background(), r.level, "stream action",
		"conn", c,
		"action", id,
		"state", c.State(),
		"took", time.Since(start),
	)
}

// RecoveringRunner stops a panicking action from taking down the endpoint's
// executor. The panic is logged and the dispatch continues with the next
// action.
type RecoveringRunner struct {
	inner  avssm.ActionRunner
	logger *slog.Logger
	// OnPanic, when set, is called with the recovered value.
	OnPanic func(c *avssm.Connection, id avssm.ActionID, err error)
}

// NewRecoveringRunner wraps inner. A nil logger means slog.Default().
func NewRecoveringRunner(inner avssm.ActionRunner, logger *slog.Logger) *RecoveringRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveringRunner{inner: inner, logger: logger}
}

func (r *RecoveringRunner) Run(c *avssm.Connection, id avssm.ActionID, payload any) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		err, ok := v.(error)
		if !ok {
			err = fmt.Errorf("%v", v)
		}
		err = fmt.Errorf("action %s panicked: %w", id, err)
		r.logger.Error("stream action panicked", "conn", c, "action", id, "err", err, "stack", string(debug.Stack()))
		if r.OnPanic != nil {
			r.OnPanic(c, id, err)
		}
	}()
	r.inner.Run(c, id, payload)
}
