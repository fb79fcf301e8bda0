package sweep

import (
	"context"
	"fmt"

	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/pkg/model"
)

const offlineValue = "true"

// checkServices probes each service and keeps its offline flag in step with
// the result. A recovered service has its flag cleared, which is reported as
// info since it restores normal operation.
func checkServices(ctx context.Context, env *Env) ([]model.RepairAction, error) {
	if env.Checker == nil {
		return nil, nil
	}

	var actions []model.RepairAction
	for _, svc := range env.Registry.Services {
		if err := ctx.Err(); err != nil {
			return actions, err
		}
		flag, _, err := env.Store.Get(svc.OfflineFlag)
		if err != nil {
			return actions, err
		}
		offline := flag == offlineValue

		res := env.Checker.Check(ctx, svc.Name, svc.Payload)
		if err := ctx.Err(); err != nil {
			return actions, err
		}
		env.Logger.Debug("service probed", map[string]any{
			"service": svc.Name,
			"outcome": res.Outcome.String(),
			"status":  res.StatusCode,
		})

		switch res.Outcome {
		case health.OutcomeHealthy:
			if offline {
				if err := env.Store.Delete(svc.OfflineFlag); err != nil {
					return actions, err
				}
				actions = append(actions, newAction(PhaseServiceHealth, model.CategoryConfig, svc.Name, model.SeverityInfo,
					"Service recovered", fmt.Sprintf("%s answered %s; offline mode cleared", svc.Name, res.Describe())))
			} else {
				actions = append(actions, newAction(PhaseServiceHealth, model.CategoryConfig, svc.Name, model.SeverityInfo,
					"Service reachable", fmt.Sprintf("%s answered %s", svc.Name, res.Describe())))
			}
			env.setOffline(svc.Name, false)

		case health.OutcomeDegraded:
			if !offline {
				if err := env.Store.Set(svc.OfflineFlag, offlineValue); err != nil {
					return actions, err
				}
				actions = append(actions, newAction(PhaseServiceHealth, model.CategoryConfig, svc.Name, model.SeverityFixed,
					"Enabled offline mode", fmt.Sprintf("%s unavailable (%s); %s set", svc.Name, res.Describe(), svc.OfflineFlag)))
			} else {
				actions = append(actions, newAction(PhaseServiceHealth, model.CategoryConfig, svc.Name, model.SeverityInfo,
					"Offline mode confirmed", fmt.Sprintf("%s still unavailable (%s)", svc.Name, res.Describe())))
			}
			env.setOffline(svc.Name, true)

		default:
			actions = append(actions, newAction(PhaseServiceHealth, model.CategoryConfig, svc.Name, model.SeverityWarning,
				"Unexpected service response", fmt.Sprintf("%s answered %s; needs investigation", svc.Name, res.Describe())))
			env.setOffline(svc.Name, offline)
		}
	}
	return actions, nil
}
