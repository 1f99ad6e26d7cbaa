package gate

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

const (
	promptYes      = "Yes"
	promptOverride = "No, move to the other folder"
	promptStop     = "Stop the run"
)

// ConsoleGate blocks on promptui selects in the terminal. When
// AutoApprove is set every proposal is approved and the run never
// pauses between files.
type ConsoleGate struct {
	AutoApprove bool

	// runSelect is replaced in tests.
	runSelect func(label string, items []string) (string, error)
}

// NewConsole creates the terminal-backed gate.
func NewConsole(autoApprove bool) *ConsoleGate {
	return &ConsoleGate{
		AutoApprove: autoApprove,
		runSelect: func(label string, items []string) (string, error) {
			prompt := promptui.Select{Label: label, Items: items}
			_, answer, err := prompt.Run()
			return answer, err
		},
	}
}

// Authorize renders the proposal and waits for a binary answer.
func (g *ConsoleGate) Authorize(req *Request) (Resolution, error) {
	if g.AutoApprove {
		return ResolutionApprove, nil
	}

	fmt.Printf("\nAgent Request\n")
	fmt.Printf("  File:   %s\n", req.File)
	fmt.Printf("  Score:  %.0f/100\n", req.Score)
	fmt.Printf("  Reason: %s\n", req.Reason)
	fmt.Printf("  Action: move to %s\n\n", req.Destination)

	answer, err := g.runSelect("Authorize this action?", []string{promptYes, promptOverride, promptStop})
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return ResolutionStop, nil
		}
		return ResolutionStop, fmt.Errorf("authorization prompt: %w", err)
	}

	switch answer {
	case promptYes:
		return ResolutionApprove, nil
	case promptOverride:
		return ResolutionOverride, nil
	default:
		return ResolutionStop, nil
	}
}

// Continue asks whether to process the next file.
func (g *ConsoleGate) Continue(processed, total int) (bool, error) {
	if g.AutoApprove {
		return true, nil
	}

	label := fmt.Sprintf("Continue processing the next resume? (%d/%d processed)", processed, total)
	answer, err := g.runSelect(label, []string{promptYes, "No"})
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, fmt.Errorf("continue prompt: %w", err)
	}

	return answer == promptYes, nil
}
