package triage

import (
	"context"
	"fmt"

	"github.com/triagekit/resume-triage/internal/ai"
	"github.com/triagekit/resume-triage/internal/executor"
	"github.com/triagekit/resume-triage/internal/gate"

	"go.uber.org/zap"
)

// Deps aggregates the collaborators of one triage run.
type Deps struct {
	Planner  ai.Planner
	Gate     gate.Gate
	Executor *executor.Executor
	Logger   *zap.Logger
}

// Summary counts the terminal states of a finished run.
type Summary struct {
	Processed int
	Moved     int
	Skipped   int
	Failed    int
	Stopped   bool
}

// Session processes one directory of resumes sequentially. Each file
// goes through plan, authorize and execute; no step of the next file
// starts before the previous file reaches a terminal state.
type Session struct {
	source *Source
	deps   Deps
}

// NewSession creates a Session over the given source.
func NewSession(source *Source, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Session{source: source, deps: deps}
}

// Run executes the triage loop. It returns an error only for fatal
// conditions (auth failure, retry exhaustion); per-file failures are
// reported and the loop continues.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	files, err := s.source.List()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	total := len(files)

	s.deps.Logger.Info("starting triage", zap.Int("resumes", total))

	for i, filename := range files {
		if err := ctx.Err(); err != nil {
			summary.Stopped = true
			return summary, nil
		}

		stop, err := s.process(ctx, filename, summary)
		if err != nil {
			return summary, err
		}

		summary.Processed++

		if stop {
			summary.Stopped = true
			s.deps.Logger.Info("stopping at user request",
				zap.Int("processed", summary.Processed),
				zap.Int("total", total),
			)
			return summary, nil
		}

		if i < total-1 {
			proceed, err := s.deps.Gate.Continue(summary.Processed, total)
			if err != nil {
				return summary, fmt.Errorf("continue prompt: %w", err)
			}
			if !proceed {
				summary.Stopped = true
				s.deps.Logger.Info("stopping at user request",
					zap.Int("processed", summary.Processed),
					zap.Int("total", total),
				)
				return summary, nil
			}
		}
	}

	s.deps.Logger.Info("triage finished",
		zap.Int("processed", summary.Processed),
		zap.Int("moved", summary.Moved),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// process takes one file to a terminal state. The returned bool
// requests a cooperative stop of the whole run.
func (s *Session) process(ctx context.Context, filename string, summary *Summary) (bool, error) {
	resume, err := s.source.Read(filename)
	if err != nil {
		s.deps.Logger.Error("unreadable resume, leaving in place",
			zap.String("file", filename),
			zap.Error(err),
		)
		summary.Failed++
		return false, nil
	}

	s.deps.Logger.Info("analyzing resume", zap.String("file", filename))

	result := s.deps.Planner.Plan(ctx, resume, s.source.JobDescription, filename)
	if result.Fatal() {
		return false, fmt.Errorf("planning %s: %w", filename, result.Err)
	}

	decision := result.Decision

	if decision.Command.Action == ai.ActionSkip {
		if err := s.deps.Executor.Skip(filename, decision.ThoughtProcess); err != nil {
			s.deps.Logger.Warn("skip not audited", zap.String("file", filename), zap.Error(err))
		}
		summary.Skipped++
		return false, nil
	}

	recommended := decision.Command.DestinationFolder
	resolution, err := s.deps.Gate.Authorize(&gate.Request{
		File:        filename,
		Score:       decision.MatchScore,
		Reason:      decision.ThoughtProcess,
		Destination: recommended,
	})
	if err != nil {
		return false, fmt.Errorf("authorizing %s: %w", filename, err)
	}

	if resolution == gate.ResolutionStop {
		return true, nil
	}

	final := gate.FinalDestination(resolution, recommended)
	reason := decision.ThoughtProcess
	if resolution == gate.ResolutionOverride {
		reason = gate.OverrideReason(recommended, final)
		s.deps.Logger.Info("user override",
			zap.String("file", filename),
			zap.String("recommended", string(recommended)),
			zap.String("final", string(final)),
		)
	}

	if err := s.deps.Executor.Execute(filename, s.source.Dir, final, reason); err != nil {
		// Reported and audited by the executor; the file is terminal.
		summary.Failed++
		return false, nil
	}

	summary.Moved++
	return false, nil
}
