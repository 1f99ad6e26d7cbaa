package triage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/triagekit/resume-triage/internal/ai"
	"github.com/triagekit/resume-triage/internal/audit"
	"github.com/triagekit/resume-triage/internal/executor"
	"github.com/triagekit/resume-triage/internal/gate"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlanner struct {
	results map[string]*ai.PlanResult
	planned []string
}

func (f *fakePlanner) Plan(_ context.Context, _, _, filename string) *ai.PlanResult {
	f.planned = append(f.planned, filename)
	if result, ok := f.results[filename]; ok {
		return result
	}
	return &ai.PlanResult{Outcome: ai.OutcomeSuccess, Decision: moveDecision(50, ai.DestinationRejected)}
}

func moveDecision(score float64, dest ai.Destination) *ai.Decision {
	return &ai.Decision{
		MatchScore:     score,
		ThoughtProcess: "rationale",
		Command:        ai.Command{Action: ai.ActionMoveFile, DestinationFolder: dest},
	}
}

type fakeGate struct {
	resolutions []gate.Resolution
	continues   []bool
	authorized  []*gate.Request
}

func (f *fakeGate) Authorize(req *gate.Request) (gate.Resolution, error) {
	f.authorized = append(f.authorized, req)
	if len(f.resolutions) == 0 {
		return gate.ResolutionApprove, nil
	}
	res := f.resolutions[0]
	f.resolutions = f.resolutions[1:]
	return res, nil
}

func (f *fakeGate) Continue(_, _ int) (bool, error) {
	if len(f.continues) == 0 {
		return true, nil
	}
	proceed := f.continues[0]
	f.continues = f.continues[1:]
	return proceed, nil
}

func newTestSession(t *testing.T, files map[string]string, planner ai.Planner, g gate.Gate) (*Session, *audit.Log, string) {
	t.Helper()
	dir, jdPath := writeSource(t, files)

	source, err := NewSource(dir, jdPath)
	require.NoError(t, err)

	log := audit.NewLog(filepath.Join(filepath.Dir(dir), "logs", "agent_audit.log"), "test-run")

	session := NewSession(source, Deps{
		Planner:  planner,
		Gate:     g,
		Executor: executor.New(log, zap.NewNop()),
		Logger:   zap.NewNop(),
	})

	return session, log, dir
}

func TestSessionApproveMovesToRecommended(t *testing.T) {
	planner := &fakePlanner{results: map[string]*ai.PlanResult{
		"jane.txt": {Outcome: ai.OutcomeSuccess, Decision: moveDecision(85, ai.DestinationInterview)},
	}}
	g := &fakeGate{resolutions: []gate.Resolution{gate.ResolutionApprove}}

	session, log, dir := newTestSession(t, map[string]string{"jane.txt": "resume"}, planner, g)

	summary, err := session.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Moved)

	require.FileExists(t, filepath.Join(filepath.Dir(dir), "Interview_Candidates", "jane.txt"))

	records, err := log.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "MOVE_FILE", records[0].Action)
	require.Equal(t, "Interview_Candidates", records[0].Destination)

	require.Len(t, g.authorized, 1)
	require.Equal(t, 85.0, g.authorized[0].Score)
}

func TestSessionOverrideMovesToOppositeFolder(t *testing.T) {
	planner := &fakePlanner{results: map[string]*ai.PlanResult{
		"john.txt": {Outcome: ai.OutcomeSuccess, Decision: moveDecision(40, ai.DestinationRejected)},
	}}
	g := &fakeGate{resolutions: []gate.Resolution{gate.ResolutionOverride}}

	session, log, dir := newTestSession(t, map[string]string{"john.txt": "resume"}, planner, g)

	_, err := session.Run(context.Background())
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(filepath.Dir(dir), "Interview_Candidates", "john.txt"))
	require.NoFileExists(t, filepath.Join(dir, "john.txt"))

	records, err := log.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Interview_Candidates", records[0].Destination)
	require.Contains(t, records[0].Reason, "USER OVERRIDE")
}

func TestSessionSkipLeavesFileAndContinues(t *testing.T) {
	planner := &fakePlanner{results: map[string]*ai.PlanResult{
		"bad.txt": {
			Outcome:  ai.OutcomeRecovered,
			Decision: ai.FallbackDecision("unusable model response"),
		},
		"good.txt": {Outcome: ai.OutcomeSuccess, Decision: moveDecision(90, ai.DestinationInterview)},
	}}
	g := &fakeGate{}

	session, log, dir := newTestSession(t, map[string]string{"bad.txt": "x", "good.txt": "y"}, planner, g)

	summary, err := session.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 1, summary.Moved)

	// Skipped file stays in the source directory; the gate is bypassed.
	require.FileExists(t, filepath.Join(dir, "bad.txt"))
	require.Len(t, g.authorized, 1)

	records, err := log.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "SKIP", records[0].Action)
	require.Equal(t, audit.DestinationNone, records[0].Destination)
}

func TestSessionFatalPlanAbortsRun(t *testing.T) {
	planner := &fakePlanner{results: map[string]*ai.PlanResult{
		"a.txt": {Outcome: ai.OutcomeFatal, Err: &ai.FatalError{Reason: "gemini still failing after 3 attempts"}},
	}}

	session, log, dir := newTestSession(t, map[string]string{"a.txt": "x", "b.txt": "y"}, planner, &fakeGate{})

	_, err := session.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "gemini still failing")

	// Nothing moved, nothing audited, the second file never planned.
	require.FileExists(t, filepath.Join(dir, "a.txt"))
	require.FileExists(t, filepath.Join(dir, "b.txt"))
	require.Equal(t, []string{"a.txt"}, planner.planned)

	records, readErr := log.Records()
	require.NoError(t, readErr)
	require.Empty(t, records)
}

func TestSessionStopsBetweenFiles(t *testing.T) {
	planner := &fakePlanner{}
	g := &fakeGate{continues: []bool{false}}

	session, _, _ := newTestSession(t, map[string]string{"a.txt": "x", "b.txt": "y"}, planner, g)

	summary, err := session.Run(context.Background())
	require.NoError(t, err)
	require.True(t, summary.Stopped)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, []string{"a.txt"}, planner.planned)
}

func TestSessionStopResolutionLeavesFile(t *testing.T) {
	planner := &fakePlanner{results: map[string]*ai.PlanResult{
		"a.txt": {Outcome: ai.OutcomeSuccess, Decision: moveDecision(85, ai.DestinationInterview)},
	}}
	g := &fakeGate{resolutions: []gate.Resolution{gate.ResolutionStop}}

	session, log, dir := newTestSession(t, map[string]string{"a.txt": "x", "b.txt": "y"}, planner, g)

	summary, err := session.Run(context.Background())
	require.NoError(t, err)
	require.True(t, summary.Stopped)

	require.FileExists(t, filepath.Join(dir, "a.txt"))

	records, readErr := log.Records()
	require.NoError(t, readErr)
	require.Empty(t, records)
}

func TestSessionMoveFailureContinues(t *testing.T) {
	planner := &fakePlanner{results: map[string]*ai.PlanResult{
		"blocked.txt": {Outcome: ai.OutcomeSuccess, Decision: moveDecision(90, ai.DestinationInterview)},
		"ok.txt":      {Outcome: ai.OutcomeSuccess, Decision: moveDecision(20, ai.DestinationRejected)},
	}}
	g := &fakeGate{}

	session, log, dir := newTestSession(t, map[string]string{"blocked.txt": "x", "ok.txt": "y"}, planner, g)

	// A plain file where the destination directory should go makes the
	// first move fail while the second destination stays usable.
	blocker := filepath.Join(filepath.Dir(dir), "Interview_Candidates")
	require.NoError(t, os.WriteFile(blocker, []byte(""), 0o644))

	summary, err := session.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Moved)

	// The failed move stays in the source directory and is audited.
	require.FileExists(t, filepath.Join(dir, "blocked.txt"))

	records, readErr := log.Records()
	require.NoError(t, readErr)
	require.Len(t, records, 2)
	require.Equal(t, executor.ActionMoveFailed, records[0].Action)
	require.Equal(t, "blocked.txt", records[0].File)
	require.Equal(t, "MOVE_FILE", records[1].Action)
	require.Equal(t, "ok.txt", records[1].File)
}
