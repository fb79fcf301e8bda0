package sweep_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/internal/sweep"
	"github.com/studydesk/storedoctor/pkg/model"
)

func ids(t *testing.T, raw string) []any {
	t.Helper()
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &recs))
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r["id"]
	}
	return out
}

func TestKeyMigration_Rename(t *testing.T) {
	engine, s := newEngine(t, map[string]string{"tasks": `[{"id":1},{"id":2}]`},
		sweep.WithPhases(only(sweep.PhaseKeyMigration)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, ok := mustGet(t, s, "studyhub-tasks")
	require.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0}, ids(t, v))
	_, ok = mustGet(t, s, "tasks")
	assert.False(t, ok)

	fixed := actionsWith(report, model.CategoryKeys, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Equal(t, "tasks", fixed[0].Before)
	assert.Equal(t, "studyhub-tasks", fixed[0].After)
}

func TestKeyMigration_MergeKeepsExistingThenUniqueLegacy(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"tasks":          `[{"id":1},{"id":2}]`,
		"studyhub-tasks": `[{"id":2},{"id":3}]`,
	}, sweep.WithPhases(only(sweep.PhaseKeyMigration)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-tasks")
	assert.Equal(t, []any{2.0, 3.0, 1.0}, ids(t, v))
	_, ok := mustGet(t, s, "tasks")
	assert.False(t, ok)

	fixed := actionsWith(report, model.CategoryKeys, model.SeverityFixed)
	require.Len(t, fixed, 2)
	assert.Contains(t, fixed[0].Detail, "1 unique item(s)")
	assert.Contains(t, fixed[1].Detail, "deleted")
}

func TestKeyMigration_MergeAppendsRecordsWithoutID(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"notes":          `[{"text":"a"},{"id":"n1"}]`,
		"studyhub-notes": `[{"id":"n1"}]`,
	}, sweep.WithPhases(only(sweep.PhaseKeyMigration)))

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-notes")
	assert.JSONEq(t, `[{"id":"n1"},{"text":"a"}]`, v)
}

func TestKeyMigration_NonArrayIsDiscardedWithWarning(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"mentor-config":          `{"mentorName":"Old"}`,
		"studyhub-mentor-config": `{"mentorName":"New"}`,
	}, sweep.WithPhases(only(sweep.PhaseKeyMigration)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-mentor-config")
	assert.Equal(t, `{"mentorName":"New"}`, v)
	_, ok := mustGet(t, s, "mentor-config")
	assert.False(t, ok)

	assert.Len(t, actionsWith(report, model.CategoryKeys, model.SeverityWarning), 1)
	assert.Len(t, actionsWith(report, model.CategoryKeys, model.SeverityFixed), 1)
}

func TestKeyMigration_NothingPresent(t *testing.T) {
	engine, _ := newEngine(t, nil, sweep.WithPhases(only(sweep.PhaseKeyMigration)))
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Record.Fixed)
}

func TestStructure_WrongShape(t *testing.T) {
	engine, s := newEngine(t, map[string]string{"studyhub-tasks": `"not an array"`})

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-tasks")
	assert.JSONEq(t, `[]`, v)
	fixed := actionsWith(report, model.CategoryStructure, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Contains(t, fixed[0].Detail, "expected array but found string")
}

func TestStructure_CorruptJSON(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"studyhub-tasks":    `{bad json`,
		"studyhub-settings": `[1,2]`,
		"studyhub-theme":    `light`,
	})

	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-tasks")
	assert.True(t, json.Valid([]byte(v)))
	assert.JSONEq(t, `[]`, v)
	v, _ = mustGet(t, s, "studyhub-settings")
	assert.JSONEq(t, `{}`, v)
	v, _ = mustGet(t, s, "studyhub-theme")
	assert.Equal(t, `"dark"`, v)
}

func TestStructure_PrimitivesOnlyNeedToParse(t *testing.T) {
	engine, _ := newEngine(t, map[string]string{
		"studyhub-theme":     `42`,
		"studyhub-onboarded": `"yes"`,
	}, sweep.WithPhases(only(sweep.PhaseStructure)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Record.Fixed)
}

func TestStaleCleanup(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"studyhub-gamification": `{}`,
		"studyhub-v1-cache":     `corrupt and stale`,
	}, sweep.WithPhases(only(sweep.PhaseStaleCleanup)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	n, _ := s.Len()
	assert.Equal(t, 2, n, "only bookkeeping keys remain")
	_, ok := mustGet(t, s, "studyhub-gamification")
	assert.False(t, ok)
	assert.Len(t, actionsWith(report, model.CategoryStale, model.SeverityFixed), 2)
}

func TestConfig_MentorFieldsRestored(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"studyhub-mentor-config": `{"mentorName":"Ada","dailyGoalMinutes":"lots","extra":12345678901234567890}`,
	}, sweep.WithPhases(only(sweep.PhaseConfig)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-mentor-config")
	assert.JSONEq(t, `{"mentorName":"Ada","dailyGoalMinutes":60,"tone":"encouraging","extra":12345678901234567890}`, v)

	fixed := actionsWith(report, model.CategoryConfig, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Contains(t, fixed[0].Detail, "dailyGoalMinutes, tone")
}

func TestConfig_MentorAbsentIsLeftAlone(t *testing.T) {
	engine, s := newEngine(t, nil, sweep.WithPhases(only(sweep.PhaseConfig)))
	_, err := engine.Run(context.Background())
	require.NoError(t, err)
	_, ok := mustGet(t, s, "studyhub-mentor-config")
	assert.False(t, ok)
}

func TestConfig_MentorValid(t *testing.T) {
	engine, _ := newEngine(t, map[string]string{
		"studyhub-mentor-config": `{"mentorName":"Ada","dailyGoalMinutes":30,"tone":"calm"}`,
	}, sweep.WithPhases(only(sweep.PhaseConfig)))
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Record.Fixed)
}

func TestConfig_BoundedSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		raw   string
		want  string
		fixed bool
	}{
		{"valid string", "studyhub-pomodoro-work", `"50"`, `"50"`, false},
		{"valid number", "studyhub-break-duration", `10`, `10`, false},
		{"lower bound", "studyhub-break-duration", `"1"`, `"1"`, false},
		{"upper bound", "studyhub-pomodoro-work", `"180"`, `"180"`, false},
		{"too large", "studyhub-pomodoro-work", `"181"`, `"25"`, true},
		{"zero", "studyhub-break-duration", `"0"`, `"5"`, true},
		{"not a number", "studyhub-break-duration", `"soon"`, `"5"`, true},
		{"fraction", "studyhub-pomodoro-work", `12.5`, `"25"`, true},
		{"huge number", "studyhub-pomodoro-work", `1e300`, `"25"`, true},
		{"huge negative string", "studyhub-break-duration", `"-99999999999999999999"`, `"5"`, true},
		{"corrupt", "studyhub-pomodoro-work", `{bad`, `"25"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, s := newEngine(t, map[string]string{tt.key: tt.raw},
				sweep.WithPhases(only(sweep.PhaseConfig)))
			report, err := engine.Run(context.Background())
			require.NoError(t, err)

			v, _ := mustGet(t, s, tt.key)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.fixed, report.Record.Fixed == 1)
		})
	}
}

func TestConfig_AbsentSettingsUntouched(t *testing.T) {
	engine, s := newEngine(t, nil, sweep.WithPhases(only(sweep.PhaseConfig)))
	_, err := engine.Run(context.Background())
	require.NoError(t, err)
	_, ok := mustGet(t, s, "studyhub-pomodoro-work")
	assert.False(t, ok)
}

func TestDedup_StableFirstWins(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"studyhub-flashcards": `[{"id":"x","q":"first"},{"q":"no id"},{"id":"y"},{"id":"x","q":"second"},{"q":"no id"}]`,
	}, sweep.WithPhases(only(sweep.PhaseDedup)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	v, _ := mustGet(t, s, "studyhub-flashcards")
	assert.JSONEq(t, `[{"id":"x","q":"first"},{"q":"no id"},{"id":"y"},{"q":"no id"}]`, v)

	fixed := actionsWith(report, model.CategoryIntegrity, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Contains(t, fixed[0].Detail, "1 duplicate record(s)")
}

func TestDedup_NumericAndStringIDsDiffer(t *testing.T) {
	tests := []struct {
		name string
		seed string
		want string
	}{
		{"number and string", `[{"id":1},{"id":"1"}]`, `[{"id":1},{"id":"1"}]`},
		{"equal numbers in different forms", `[{"id":1},{"id":1.0},{"id":1e0}]`, `[{"id":1}]`},
		{"number forms and string", `[{"id":"1"},{"id":1.0},{"id":1}]`, `[{"id":"1"},{"id":1.0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, s := newEngine(t, map[string]string{"studyhub-events": tt.seed},
				sweep.WithPhases(only(sweep.PhaseDedup)))

			_, err := engine.Run(context.Background())
			require.NoError(t, err)
			v, _ := mustGet(t, s, "studyhub-events")
			assert.JSONEq(t, tt.want, v)
		})
	}
}

func TestDedup_SkipsNonArrays(t *testing.T) {
	engine, s := newEngine(t, map[string]string{"studyhub-documents": `{"id":1}`},
		sweep.WithPhases(only(sweep.PhaseDedup)))
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Record.Fixed)
	v, _ := mustGet(t, s, "studyhub-documents")
	assert.Equal(t, `{"id":1}`, v)
}

func TestOrphans_Removed(t *testing.T) {
	engine, s := newEngine(t, map[string]string{
		"random-unrecognized-key": `1`,
		"studyhub-tasks":          `[]`,
		"studyhub-future-thing":   `{}`,
	})

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	_, ok := mustGet(t, s, "random-unrecognized-key")
	assert.False(t, ok)
	_, ok = mustGet(t, s, "studyhub-future-thing")
	assert.True(t, ok)

	fixed := actionsWith(report, model.CategoryOrphan, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Contains(t, fixed[0].Detail, "random-unrecognized-key")
}

func TestOrphans_PreviewTruncated(t *testing.T) {
	seed := map[string]string{}
	for i := 0; i < 9; i++ {
		seed[fmt.Sprintf("junk-%d", i)] = "x"
	}
	engine, s := newEngine(t, seed, sweep.WithPhases(only(sweep.PhaseOrphans)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	fixed := actionsWith(report, model.CategoryOrphan, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Contains(t, fixed[0].Detail, "junk-5 +3 more")
	assert.NotContains(t, fixed[0].Detail, "junk-6")
	n, _ := s.Len()
	assert.Equal(t, 2, n)
}

func TestOrphans_NoneFound(t *testing.T) {
	engine, _ := newEngine(t, map[string]string{"studyhub-tasks": `[]`},
		sweep.WithPhases(only(sweep.PhaseOrphans)))
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, actionsWith(report, model.CategoryOrphan, model.SeverityFixed))
}

func scripted(results ...health.Result) health.Checker {
	i := 0
	return health.CheckerFunc(func(_ context.Context, name string, _ []byte) health.Result {
		if name != "tutor" {
			return health.Result{Outcome: health.OutcomeHealthy, StatusCode: 200}
		}
		r := results[i]
		i++
		return r
	})
}

func TestServices_OfflineTransitions(t *testing.T) {
	checker := scripted(
		health.Result{Outcome: health.OutcomeDegraded, StatusCode: 402},
		health.Result{Outcome: health.OutcomeDegraded, StatusCode: 429},
		health.Result{Outcome: health.OutcomeHealthy, StatusCode: 200},
	)
	engine, s := newEngine(t, nil, sweep.WithChecker(checker),
		sweep.WithPhases(only(sweep.PhaseServiceHealth)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	v, ok := mustGet(t, s, "studyhub-tutor-offline")
	require.True(t, ok)
	assert.Equal(t, "true", v)
	fixed := model.Filter(report.Actions, model.SeverityFixed)
	require.Len(t, fixed, 1)
	assert.Contains(t, fixed[0].Detail, "HTTP 402")

	report, err = engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, model.Filter(report.Actions, model.SeverityFixed))
	v, _ = mustGet(t, s, "studyhub-tutor-offline")
	assert.Equal(t, "true", v)

	report, err = engine.Run(context.Background())
	require.NoError(t, err)
	_, ok = mustGet(t, s, "studyhub-tutor-offline")
	assert.False(t, ok)
	assert.Empty(t, model.Filter(report.Actions, model.SeverityFixed))
	var recovered []model.RepairAction
	for _, a := range report.Actions {
		if a.Label == "Service recovered" {
			recovered = append(recovered, a)
		}
	}
	require.Len(t, recovered, 1)
	assert.Equal(t, model.SeverityInfo, recovered[0].Severity)
}

func TestServices_TransportFailureSetsFlag(t *testing.T) {
	engine, s := newEngine(t, nil, sweep.WithChecker(health.Offline()),
		sweep.WithPhases(only(sweep.PhaseServiceHealth)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, model.Filter(report.Actions, model.SeverityFixed), 2)
	for _, flag := range []string{"studyhub-tutor-offline", "studyhub-sync-offline"} {
		v, _ := mustGet(t, s, flag)
		assert.Equal(t, "true", v)
	}
}

func TestServices_UnexpectedStatusWarns(t *testing.T) {
	checker := scripted(health.Result{Outcome: health.OutcomeUnexpected, StatusCode: 500})
	engine, s := newEngine(t, nil, sweep.WithChecker(checker),
		sweep.WithPhases(only(sweep.PhaseServiceHealth)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	warnings := model.Filter(report.Actions, model.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Detail, "HTTP 500")
	assert.Equal(t, 92, report.Record.Score)
	_, ok := mustGet(t, s, "studyhub-tutor-offline")
	assert.False(t, ok)
}

func TestServices_NoCheckerSkips(t *testing.T) {
	engine, _ := newEngine(t, nil, sweep.WithChecker(nil),
		sweep.WithPhases(only(sweep.PhaseServiceHealth)))
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Actions, 1)
	assert.Equal(t, "Store healthy", report.Actions[0].Label)
}

func TestStorage_CountsUTF16Bytes(t *testing.T) {
	engine, _ := newEngine(t, map[string]string{
		"ab":   "é",
		"cdef": "😀",
	}, sweep.WithPhases(only(sweep.PhaseStorage)))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Storage)

	// "ab"+"é" = 3 units, "cdef"+"😀" = 4+2 units.
	assert.Equal(t, int64(18), report.Storage.TotalBytes)
	assert.Equal(t, 2, report.Storage.KeyCount)
	assert.Equal(t, "cdef", report.Storage.LargestKey)
	assert.Equal(t, int64(12), report.Storage.LargestBytes)

	infos := actionsWith(report, model.CategoryIntegrity, model.SeverityInfo)
	require.Len(t, infos, 2)
	assert.Equal(t, "Storage usage", infos[1].Label)
}

func TestStorage_WarnsNearCapacity(t *testing.T) {
	engine, _ := newEngine(t, map[string]string{"k": "0123456789"},
		sweep.WithPhases(only(sweep.PhaseStorage)),
		sweep.WithCapacity(24, 0.8))

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	warnings := model.Filter(report.Actions, model.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, model.CategoryIntegrity, warnings[0].Category)
	assert.Equal(t, 92, report.Record.Score)
}

func TestPhasesExcept(t *testing.T) {
	phases := sweep.PhasesExcept(sweep.PhaseServiceHealth)
	assert.Len(t, phases, len(sweep.DefaultPhases())-1)
	for _, p := range phases {
		assert.NotEqual(t, sweep.PhaseServiceHealth, p.Name)
	}
}
