package release

import "github.com/deixis/publish/internal/report"

// State is a point reached by a run. Runs move forward through the states
// in order; the only branch is the choice made after validation.
type State string

const (
	StateStart               State = "start"
	StateRequirementsChecked State = "requirements-checked"
	StateCleaned             State = "cleaned"
	StateTested              State = "tested"
	StateBuilt               State = "built"
	StateValidated           State = "validated"
	StateTestUploaded        State = "test-uploaded"
	StateUploadDecision      State = "upload-decision"
	StateUploaded            State = "uploaded"
	StateCancelled           State = "cancelled"
	StateExit                State = "exit"
	StateDone                State = "done"
)

// Outcome describes a finished or aborted run.
type Outcome struct {
	RunResult *report.RunResult
	Mode      Mode
	State     State   // last state reached
	Path      []State // every state reached, in order
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Path = append(o.Path, s)
	o.RunResult.State = string(s)
}

// Reached reports whether the run passed through s.
func (o *Outcome) Reached(s State) bool {
	for _, p := range o.Path {
		if p == s {
			return true
		}
	}
	return false
}
