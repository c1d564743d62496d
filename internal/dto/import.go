package dto

import (
	"fmt"
	"time"
)

// Outcome kinds for a processed import row
const (
	ImportOutcomeCreated = "created"
	ImportOutcomeUpdated = "updated"
	ImportOutcomeFailed  = "failed"
)

// ImportOutcome is the result of processing a single CSV row
type ImportOutcome struct {
	Line     int       `json:"line"`
	Kind     string    `json:"kind"`
	Name     string    `json:"name,omitempty"`
	StartsAt time.Time `json:"starts_at,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// String renders the outcome as a human-readable report line
func (o ImportOutcome) String() string {
	switch o.Kind {
	case ImportOutcomeCreated:
		return fmt.Sprintf("Created %q @ %s", o.Name, o.StartsAt.Format(time.RFC3339))
	case ImportOutcomeUpdated:
		return fmt.Sprintf("Updated %q @ %s", o.Name, o.StartsAt.Format(time.RFC3339))
	default:
		return fmt.Sprintf("Failed line %d: %s", o.Line, o.Error)
	}
}

// ImportReport is the full result of an import batch: one outcome per row
// in file order, plus summary counts. AmbiguousKeys counts rows that failed
// because the natural key matched more than one stored record; these signal
// store corruption rather than bad input and are reported separately.
type ImportReport struct {
	Outcomes      []ImportOutcome `json:"outcomes"`
	Created       int             `json:"created"`
	Updated       int             `json:"updated"`
	Failed        int             `json:"failed"`
	AmbiguousKeys int             `json:"ambiguous_keys"`
}

// Add appends an outcome and updates the counts
func (r *ImportReport) Add(outcome ImportOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	switch outcome.Kind {
	case ImportOutcomeCreated:
		r.Created++
	case ImportOutcomeUpdated:
		r.Updated++
	case ImportOutcomeFailed:
		r.Failed++
	}
}

// Lines renders the ordered human-readable report
func (r *ImportReport) Lines() []string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		lines = append(lines, o.String())
	}
	return lines
}
