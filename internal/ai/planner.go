package ai

import "context"

// Action is the file operation recommended by the model.
type Action string

const (
	ActionMoveFile Action = "MOVE_FILE"
	ActionSkip     Action = "SKIP"
)

// Destination is one of the two triage folders. There is no third one.
type Destination string

const (
	DestinationInterview Destination = "Interview_Candidates"
	DestinationRejected  Destination = "Rejected_Candidates"
)

// Opposite returns the other triage folder. Used when a human overrides
// the recommended destination.
func (d Destination) Opposite() Destination {
	if d == DestinationInterview {
		return DestinationRejected
	}
	return DestinationInterview
}

// Command is the executable part of a decision.
type Command struct {
	Action            Action      `json:"action"`
	DestinationFolder Destination `json:"destination_folder"`
}

// Decision is the structured verdict for a single resume.
// When Action is SKIP no move happens and DestinationFolder is kept
// only for logging.
type Decision struct {
	MatchScore     float64 `json:"match_score"`
	ThoughtProcess string  `json:"thought_process"`
	Command        Command `json:"command"`
}

// Outcome classifies a planning attempt. Callers branch on the outcome
// instead of catching error classes.
type Outcome int

const (
	// OutcomeSuccess means the model produced a valid decision.
	OutcomeSuccess Outcome = iota
	// OutcomeRecovered means the model response was unusable and a
	// fallback SKIP decision was substituted. The run continues.
	OutcomeRecovered
	// OutcomeFatal means the run must stop: authentication failure or
	// transient retries exhausted.
	OutcomeFatal
)

// PlanResult carries the decision or the reason there is none.
type PlanResult struct {
	Outcome  Outcome
	Decision *Decision
	Err      error
}

// Fatal reports whether the result must terminate the whole run.
func (r *PlanResult) Fatal() bool {
	return r != nil && r.Outcome == OutcomeFatal
}

// FallbackDecision builds the SKIP decision substituted when a model
// response cannot be used for the file.
func FallbackDecision(cause string) *Decision {
	return &Decision{
		MatchScore:     0,
		ThoughtProcess: "Automatic fallback: " + cause,
		Command: Command{
			Action:            ActionSkip,
			DestinationFolder: DestinationRejected,
		},
	}
}

// Planner produces a triage decision for one resume.
type Planner interface {
	Plan(ctx context.Context, resumeText, jobDescription, filename string) *PlanResult
}

// FatalError marks remote failures that must stop the run instead of
// degrading to a fallback decision.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *FatalError) Unwrap() error { return e.Err }
