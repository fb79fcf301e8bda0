package model

// RepairAction is one observation or repair performed during a sweep.
type RepairAction struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
	Before   string   `json:"before,omitempty"`
	After    string   `json:"after,omitempty"`
}

// Counts tallies actions by severity.
type Counts struct {
	Info     int `json:"info"`
	Fixed    int `json:"fixed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// CountActions returns per-severity totals for actions.
func CountActions(actions []RepairAction) Counts {
	var c Counts
	for _, a := range actions {
		switch a.Severity {
		case SeverityInfo:
			c.Info++
		case SeverityFixed:
			c.Fixed++
		case SeverityWarning:
			c.Warnings++
		case SeverityError:
			c.Errors++
		}
	}
	return c
}

// Filter returns the actions with the given severity, preserving order.
func Filter(actions []RepairAction, sev Severity) []RepairAction {
	var out []RepairAction
	for _, a := range actions {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}
