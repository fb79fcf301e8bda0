package sweep

import (
	"context"
	"fmt"

	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/internal/schema"
	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/pkg/logging"
	"github.com/studydesk/storedoctor/pkg/metrics"
	"github.com/studydesk/storedoctor/pkg/model"
)

// Phase names, in the order DefaultPhases runs them.
const (
	PhaseKeyMigration  = "key-migration"
	PhaseStructure     = "structure"
	PhaseStaleCleanup  = "stale-cleanup"
	PhaseConfig        = "config"
	PhaseDedup         = "dedup"
	PhaseServiceHealth = "service-health"
	PhaseOrphans       = "orphans"
	PhaseStorage       = "storage"
)

// Phase is one step of a sweep. Run may mutate the store and must report
// every mutation as a fixed action. A returned error, or a panic, becomes a
// single error action for the phase; actions returned alongside an error
// are kept.
type Phase struct {
	Name     string
	Category model.Category
	Run      func(ctx context.Context, env *Env) ([]model.RepairAction, error)
}

// DefaultPhases returns the sweep phases in execution order. Each phase sees
// the effects of the ones before it.
func DefaultPhases() []Phase {
	return []Phase{
		{Name: PhaseKeyMigration, Category: model.CategoryKeys, Run: migrateKeys},
		{Name: PhaseStructure, Category: model.CategoryStructure, Run: validateStructure},
		{Name: PhaseStaleCleanup, Category: model.CategoryStale, Run: cleanStaleKeys},
		{Name: PhaseConfig, Category: model.CategoryConfig, Run: repairConfig},
		{Name: PhaseDedup, Category: model.CategoryIntegrity, Run: eliminateDuplicates},
		{Name: PhaseServiceHealth, Category: model.CategoryConfig, Run: checkServices},
		{Name: PhaseOrphans, Category: model.CategoryOrphan, Run: removeOrphans},
		{Name: PhaseStorage, Category: model.CategoryIntegrity, Run: reportStorage},
	}
}

// PhasesExcept returns DefaultPhases without the named phases.
func PhasesExcept(names ...string) []Phase {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	var out []Phase
	for _, p := range DefaultPhases() {
		if !skip[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

// Env is what a phase may touch.
type Env struct {
	Store    store.Store
	Registry *schema.Registry
	Checker  health.Checker
	Logger   *logging.Logger
	Metrics  *metrics.Registry

	CapacityBytes int64
	WarnRatio     float64

	// Storage is filled in by the storage phase.
	Storage *model.StorageStats
}

func (env *Env) setOffline(service string, offline bool) {
	if env.Metrics != nil {
		env.Metrics.SetServiceOffline(service, offline)
	}
}

func newAction(phase string, cat model.Category, subject string, sev model.Severity, label, detail string) model.RepairAction {
	return model.RepairAction{
		ID:       fmt.Sprintf("%s:%s", phase, subject),
		Category: cat,
		Label:    label,
		Detail:   detail,
		Severity: sev,
	}
}
