package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/studydesk/storedoctor/internal/schema"
	"github.com/studydesk/storedoctor/pkg/model"
)

func validateStructure(_ context.Context, env *Env) ([]model.RepairAction, error) {
	var actions []model.RepairAction
	for _, key := range env.Registry.KnownKeys() {
		spec := env.Registry.Known[key]
		raw, ok, err := env.Store.Get(key)
		if err != nil {
			return actions, err
		}
		if !ok {
			continue
		}

		_, checkErr := spec.Kind.Check(raw)
		if checkErr == nil {
			continue
		}

		var detail, label string
		var mismatch *schema.MismatchError
		switch {
		case errors.Is(checkErr, schema.ErrUnparseable):
			label = "Repaired corrupted value"
			detail = fmt.Sprintf("%s held malformed JSON and was reset to %s", key, spec.Default)
		case errors.As(checkErr, &mismatch):
			label = "Repaired value shape"
			detail = fmt.Sprintf("%s expected %s but found %s; reset to %s", key, mismatch.Expected, mismatch.Actual, spec.Default)
		default:
			return actions, fmt.Errorf("check %s: %w", key, checkErr)
		}

		if err := env.Store.Set(key, spec.Default); err != nil {
			return actions, err
		}
		actions = append(actions, newAction(PhaseStructure, model.CategoryStructure, key, model.SeverityFixed, label, detail))
	}
	return actions, nil
}
