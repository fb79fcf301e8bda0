// Package sweep runs the data-integrity sweep over a key-value store: an
// ordered list of repair phases, a health score, and a bounded history.
//
// The engine holds no lock. Callers must not run two sweeps against one
// store at the same time; Trigger does that for in-process callers and
// internal/lock for separate processes.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/internal/history"
	"github.com/studydesk/storedoctor/internal/schema"
	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/pkg/errclass"
	"github.com/studydesk/storedoctor/pkg/logging"
	"github.com/studydesk/storedoctor/pkg/metrics"
	"github.com/studydesk/storedoctor/pkg/model"
	"github.com/studydesk/storedoctor/pkg/progress"
)

// Auditor receives every sweep that applied at least one fix.
type Auditor interface {
	Record(report *model.Report) error
}

// Engine runs sweeps against one store.
type Engine struct {
	store       store.Store
	registry    *schema.Registry
	checker     health.Checker
	logger      *logging.Logger
	metrics     *metrics.Registry
	auditor     Auditor
	now         func() time.Time
	capacity    int64
	warnRatio   float64
	historySize int
	phases      []Phase
	progress    progress.Callback
}

// Option configures an Engine.
type Option func(*Engine)

// WithChecker sets the service prober. Without one the service phase
// reports nothing.
func WithChecker(c health.Checker) Option { return func(e *Engine) { e.checker = c } }

func WithLogger(l *logging.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithMetrics(m *metrics.Registry) Option { return func(e *Engine) { e.metrics = m } }

func WithAuditor(a Auditor) Option { return func(e *Engine) { e.auditor = a } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithCapacity sets the storage quota and the usage ratio that triggers a
// warning.
func WithCapacity(bytes int64, warnRatio float64) Option {
	return func(e *Engine) {
		e.capacity = bytes
		e.warnRatio = warnRatio
	}
}

func WithHistorySize(n int) Option { return func(e *Engine) { e.historySize = n } }

// WithProgress reports each finished phase to cb.
func WithProgress(cb progress.Callback) Option { return func(e *Engine) { e.progress = cb } }

// WithPhases replaces DefaultPhases.
func WithPhases(phases []Phase) Option { return func(e *Engine) { e.phases = phases } }

// New creates an engine. A nil registry means schema.Default().
func New(s store.Store, reg *schema.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = schema.Default()
	}
	e := &Engine{
		store:       s,
		registry:    reg,
		logger:      logging.Global(),
		now:         time.Now,
		capacity:    DefaultCapacityBytes,
		warnRatio:   DefaultWarnRatio,
		historySize: history.DefaultLimit,
		phases:      DefaultPhases(),
		progress:    progress.Noop,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine repairs against.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// Run performs one sweep. Phase failures become error actions and never
// stop the sweep. The only error returned is E_SWEEP_CANCELLED, with the
// partial report: mutations of completed phases persist and no history
// record is written.
//
// The "Store healthy" info banner is prepended only when the sweep has no
// fixed, warning or error actions. A sweep whose only problems are phase
// failures therefore carries no banner.
func (e *Engine) Run(ctx context.Context) (*model.Report, error) {
	start := e.now()
	report := &model.Report{SweepID: uuid.NewString(), StartedAt: start}
	log := e.logger.WithFields(map[string]any{"sweep_id": report.SweepID})
	log.Info("sweep started", map[string]any{"phases": len(e.phases)})

	env := &Env{
		Store:         e.store,
		Registry:      e.registry,
		Checker:       e.checker,
		Logger:        log,
		Metrics:       e.metrics,
		CapacityBytes: e.capacity,
		WarnRatio:     e.warnRatio,
	}

	var actions []model.RepairAction
	for i, p := range e.phases {
		if err := ctx.Err(); err != nil {
			return e.cancelled(report, actions, env, log, err)
		}

		log.Debug("phase started", map[string]any{"phase": p.Name})
		got, err := e.runPhase(ctx, p, env)
		actions = append(actions, got...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.cancelled(report, actions, env, log, ctxErr)
			}
			log.ErrorErr("phase failed", errclass.ErrPhaseFailed.Wrap(err), map[string]any{"phase": p.Name})
			actions = append(actions, newAction(p.Name, p.Category, "failure", model.SeverityError,
				"Phase failed", fmt.Sprintf("%s: %v", p.Name, err)))
		}
		log.Debug("phase finished", map[string]any{"phase": p.Name, "actions": len(got)})
		e.progress(p.Name, i+1, len(e.phases))
	}

	counts := model.CountActions(actions)
	if counts.Fixed == 0 && counts.Warnings == 0 && counts.Errors == 0 {
		banner := newAction("sweep", model.CategoryIntegrity, "healthy", model.SeverityInfo,
			"Store healthy", "no repairs were needed")
		actions = append([]model.RepairAction{banner}, actions...)
	}

	e.finish(report, actions, env)
	e.record(report, log)

	c := report.Counts()
	log.Info("sweep finished", map[string]any{
		"score":       report.Record.Score,
		"fixed":       c.Fixed,
		"warnings":    c.Warnings,
		"errors":      c.Errors,
		"duration_ms": report.Duration.Milliseconds(),
	})
	return report, nil
}

func (e *Engine) runPhase(ctx context.Context, p Phase, env *Env) (actions []model.RepairAction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Run(ctx, env)
}

func (e *Engine) finish(report *model.Report, actions []model.RepairAction, env *Env) {
	assignIDs(actions)
	c := model.CountActions(actions)
	end := e.now()
	report.Actions = actions
	report.Storage = env.Storage
	report.Duration = end.Sub(report.StartedAt)
	report.Record = model.SweepRecord{
		ID:        report.SweepID,
		Timestamp: end,
		Fixed:     c.Fixed,
		Warnings:  c.Warnings,
		Score:     Score(actions),
	}
	for _, a := range actions {
		fields := map[string]any{"id": a.ID, "category": string(a.Category), "detail": a.Detail}
		switch a.Severity {
		case model.SeverityFixed:
			env.Logger.Info(a.Label, fields)
		case model.SeverityWarning:
			env.Logger.Warn(a.Label, fields)
		}
	}
}

// record persists the history and notifies the auditor and metrics.
// Failures here are logged; the sweep itself already completed.
func (e *Engine) record(report *model.Report, log *logging.Logger) {
	if _, err := history.Append(e.store, e.registry.HistoryKey, report.Record, e.historySize); err != nil {
		log.ErrorErr("history not recorded", err)
	}
	if err := history.SetLastSweep(e.store, e.registry.LastSweepKey, report.Record.Timestamp); err != nil {
		log.ErrorErr("last sweep time not recorded", err)
	}
	if e.auditor != nil && report.Record.Fixed > 0 {
		if err := e.auditor.Record(report); err != nil {
			log.ErrorErr("audit record failed", err)
		}
	}
	if e.metrics != nil {
		e.metrics.RecordSweep(report)
	}
}

func (e *Engine) cancelled(report *model.Report, actions []model.RepairAction, env *Env, log *logging.Logger, cause error) (*model.Report, error) {
	e.finish(report, actions, env)
	log.Warn("sweep cancelled", map[string]any{"actions": len(actions)})
	return report, errclass.ErrSweepCancelled.Wrap(cause)
}

// assignIDs suffixes repeated IDs with #2, #3, ... so every ID is unique
// within the sweep.
func assignIDs(actions []model.RepairAction) {
	seen := make(map[string]int, len(actions))
	for i := range actions {
		id := actions[i].ID
		seen[id]++
		if n := seen[id]; n > 1 {
			actions[i].ID = fmt.Sprintf("%s#%d", id, n)
		}
	}
}
