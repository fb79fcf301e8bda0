package sweep

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studydesk/storedoctor/pkg/jsonutil"
	"github.com/studydesk/storedoctor/pkg/model"
)

func eliminateDuplicates(_ context.Context, env *Env) ([]model.RepairAction, error) {
	var actions []model.RepairAction
	for _, key := range env.Registry.RecordArrays {
		raw, ok, err := env.Store.Get(key)
		if err != nil {
			return actions, err
		}
		if !ok {
			continue
		}
		elems, isArray := jsonutil.SplitArray(raw)
		if !isArray {
			continue
		}

		kept, removed := dedupeRecords(elems)
		if removed == 0 {
			continue
		}
		out, err := jsonutil.JoinArray(kept)
		if err != nil {
			return actions, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := env.Store.Set(key, out); err != nil {
			return actions, err
		}
		actions = append(actions, newAction(PhaseDedup, model.CategoryIntegrity, key, model.SeverityFixed,
			"Removed duplicate records", fmt.Sprintf("%d duplicate record(s) dropped from %s", removed, key)))
	}
	return actions, nil
}

// dedupeRecords keeps the first record for each id, in order. Records
// without an id are never duplicates.
func dedupeRecords(elems []json.RawMessage) ([]json.RawMessage, int) {
	seen := make(map[string]bool, len(elems))
	kept := make([]json.RawMessage, 0, len(elems))
	for _, elem := range elems {
		if id, ok := jsonutil.RecordID(elem); ok {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		kept = append(kept, elem)
	}
	return kept, len(elems) - len(kept)
}
