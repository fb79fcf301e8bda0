package sweep

import (
	"context"
	"fmt"
	"strings"

	"github.com/studydesk/storedoctor/pkg/model"
)

// orphanPreview is how many removed keys are named in the action detail.
const orphanPreview = 6

func removeOrphans(_ context.Context, env *Env) ([]model.RepairAction, error) {
	keys, err := env.Store.Keys()
	if err != nil {
		return nil, err
	}

	var removed []string
	var delErr error
	for _, key := range keys {
		if env.Registry.IsRecognized(key) {
			continue
		}
		if err := env.Store.Delete(key); err != nil {
			delErr = err
			break
		}
		removed = append(removed, key)
	}
	if len(removed) == 0 {
		return nil, delErr
	}

	a := newAction(PhaseOrphans, model.CategoryOrphan, "keys", model.SeverityFixed,
		"Removed orphan keys",
		fmt.Sprintf("%d unrecognized key(s) removed: %s", len(removed), previewList(removed, orphanPreview)))
	return []model.RepairAction{a}, delErr
}

func previewList(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(items[:limit], ", "), len(items)-limit)
}
