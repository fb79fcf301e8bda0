package sweep_test

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/internal/sweep"
	"github.com/studydesk/storedoctor/pkg/logging"
	"github.com/studydesk/storedoctor/pkg/model"
)

func quietLogger() *logging.Logger {
	l := logging.NewLogger(logging.LevelError)
	l.SetOutput(io.Discard)
	return l
}

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func healthyChecker() health.Checker {
	return &health.Static{Default: health.Result{Outcome: health.OutcomeHealthy, StatusCode: 200}}
}

func newEngine(t *testing.T, seed map[string]string, opts ...sweep.Option) (*sweep.Engine, *store.Memory) {
	t.Helper()
	s := store.NewMemory(seed)
	base := []sweep.Option{
		sweep.WithLogger(quietLogger()),
		sweep.WithChecker(healthyChecker()),
		sweep.WithClock(newStepClock().Now),
	}
	return sweep.New(s, nil, append(base, opts...)...), s
}

func only(names ...string) []sweep.Phase {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []sweep.Phase
	for _, p := range sweep.DefaultPhases() {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

func actionsWith(r *model.Report, cat model.Category, sev model.Severity) []model.RepairAction {
	var out []model.RepairAction
	for _, a := range r.Actions {
		if a.Category == cat && a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

func mustGet(t *testing.T, s store.Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := s.Get(key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return v, ok
}
