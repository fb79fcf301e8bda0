package sweep

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studydesk/storedoctor/pkg/jsonutil"
	"github.com/studydesk/storedoctor/pkg/model"
)

func migrateKeys(_ context.Context, env *Env) ([]model.RepairAction, error) {
	var actions []model.RepairAction
	for _, m := range env.Registry.Migrations {
		legacy, ok, err := env.Store.Get(m.Old)
		if err != nil {
			return actions, err
		}
		if !ok {
			continue
		}
		current, exists, err := env.Store.Get(m.New)
		if err != nil {
			return actions, err
		}

		if !exists {
			if err := env.Store.Set(m.New, legacy); err != nil {
				return actions, err
			}
			if err := env.Store.Delete(m.Old); err != nil {
				return actions, err
			}
			a := newAction(PhaseKeyMigration, model.CategoryKeys, m.Old, model.SeverityFixed,
				"Migrated legacy key", fmt.Sprintf("%s renamed to %s", m.Old, m.New))
			a.Before, a.After = m.Old, m.New
			actions = append(actions, a)
			continue
		}

		merged, added, ok := mergeRecords(current, legacy)
		switch {
		case !ok:
			// Non-array data under either key is dropped with the legacy key.
			actions = append(actions, newAction(PhaseKeyMigration, model.CategoryKeys, m.Old+"/merge", model.SeverityWarning,
				"Legacy data discarded",
				fmt.Sprintf("%s and %s are not both JSON arrays; %s is removed without merging", m.Old, m.New, m.Old)))
		case added == 0:
			actions = append(actions, newAction(PhaseKeyMigration, model.CategoryKeys, m.Old+"/merge", model.SeverityInfo,
				"Nothing to merge", fmt.Sprintf("every record in %s already exists in %s", m.Old, m.New)))
		default:
			if err := env.Store.Set(m.New, merged); err != nil {
				return actions, err
			}
			a := newAction(PhaseKeyMigration, model.CategoryKeys, m.Old+"/merge", model.SeverityFixed,
				"Merged legacy records", fmt.Sprintf("%d unique item(s) from %s merged into %s", added, m.Old, m.New))
			a.Before, a.After = m.Old, m.New
			actions = append(actions, a)
		}

		if err := env.Store.Delete(m.Old); err != nil {
			return actions, err
		}
		a := newAction(PhaseKeyMigration, model.CategoryKeys, m.Old, model.SeverityFixed,
			"Removed legacy key", fmt.Sprintf("%s deleted after migration to %s", m.Old, m.New))
		a.Before, a.After = m.Old, m.New
		actions = append(actions, a)
	}
	return actions, nil
}

// mergeRecords appends to current every legacy element whose id is not
// already present in current. Elements without an id are always appended.
// ok is false unless both values are JSON arrays.
func mergeRecords(current, legacy string) (merged string, added int, ok bool) {
	dst, ok := jsonutil.SplitArray(current)
	if !ok {
		return "", 0, false
	}
	src, ok := jsonutil.SplitArray(legacy)
	if !ok {
		return "", 0, false
	}

	have := make(map[string]bool, len(dst))
	for _, elem := range dst {
		if id, ok := jsonutil.RecordID(elem); ok {
			have[id] = true
		}
	}

	out := make([]json.RawMessage, 0, len(dst)+len(src))
	out = append(out, dst...)
	for _, elem := range src {
		if id, ok := jsonutil.RecordID(elem); ok && have[id] {
			continue
		}
		out = append(out, elem)
		added++
	}

	merged, err := jsonutil.JoinArray(out)
	if err != nil {
		return "", 0, false
	}
	return merged, added, true
}
