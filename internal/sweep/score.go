package sweep

import "github.com/studydesk/storedoctor/pkg/model"

// Score is max(0, 100 - 15*errors - 8*warnings). Fixed and info actions
// never lower it.
func Score(actions []model.RepairAction) int {
	c := model.CountActions(actions)
	score := 100 - 15*c.Errors - 8*c.Warnings
	if score < 0 {
		return 0
	}
	return score
}
