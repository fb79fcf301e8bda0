package sweep

import (
	"context"
	"fmt"

	"github.com/studydesk/storedoctor/pkg/model"
)

func cleanStaleKeys(_ context.Context, env *Env) ([]model.RepairAction, error) {
	var actions []model.RepairAction
	for _, key := range env.Registry.StaleKeys {
		_, ok, err := env.Store.Get(key)
		if err != nil {
			return actions, err
		}
		if !ok {
			continue
		}
		if err := env.Store.Delete(key); err != nil {
			return actions, err
		}
		actions = append(actions, newAction(PhaseStaleCleanup, model.CategoryStale, key, model.SeverityFixed,
			"Removed retired key", fmt.Sprintf("%s belongs to a removed feature", key)))
	}
	return actions, nil
}
