package gate

import (
	"fmt"

	"github.com/triagekit/resume-triage/internal/ai"
)

// Resolution is the human's answer to a proposed action.
type Resolution int

const (
	// ResolutionApprove keeps the recommended destination.
	ResolutionApprove Resolution = iota
	// ResolutionOverride flips to the opposite destination.
	ResolutionOverride
	// ResolutionStop terminates the run before executing the action.
	ResolutionStop
)

// Request is what the gate presents to the human.
type Request struct {
	File        string
	Score       float64
	Reason      string
	Destination ai.Destination
}

// Gate resolves a proposed move to approve or override. Implementations
// block until an answer is obtained; there is no timeout.
type Gate interface {
	Authorize(req *Request) (Resolution, error)
	// Continue asks whether to proceed to the next file.
	Continue(processed, total int) (bool, error)
}

// FinalDestination applies the resolution rule: approve keeps the
// recommendation, override picks the only other folder.
func FinalDestination(res Resolution, recommended ai.Destination) ai.Destination {
	if res == ResolutionOverride {
		return recommended.Opposite()
	}
	return recommended
}

// OverrideReason is the audit annotation recorded instead of the model
// rationale when the human overrides.
func OverrideReason(recommended, final ai.Destination) string {
	return fmt.Sprintf("USER OVERRIDE: Agent recommended %s, but user manually moved to %s.", recommended, final)
}
