package sweep

import (
	"context"
	"sync/atomic"

	"github.com/studydesk/storedoctor/pkg/errclass"
	"github.com/studydesk/storedoctor/pkg/model"
)

// Trigger serializes sweep invocations in one process. A Fire that arrives
// while a sweep is running is rejected instead of queued.
type Trigger struct {
	engine  *Engine
	running atomic.Bool
}

// NewTrigger wraps e.
func NewTrigger(e *Engine) *Trigger {
	return &Trigger{engine: e}
}

// Fire runs a sweep unless one is already running, in which case it returns
// E_SWEEP_IN_PROGRESS.
func (t *Trigger) Fire(ctx context.Context) (*model.Report, error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, errclass.ErrSweepInProgress.WithMessage("a sweep is already running")
	}
	defer t.running.Store(false)
	return t.engine.Run(ctx)
}

// Running reports whether a sweep is in flight.
func (t *Trigger) Running() bool {
	return t.running.Load()
}
