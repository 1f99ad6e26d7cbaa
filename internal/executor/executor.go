package executor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/triagekit/resume-triage/internal/ai"
	"github.com/triagekit/resume-triage/internal/audit"

	"go.uber.org/zap"
)

// ActionMoveFailed is the audit action recorded when a move could not
// be completed. The run continues past such files.
const ActionMoveFailed = "MOVE_FAILED"

// Executor moves resume files into their destination folder and writes
// the audit trail.
type Executor struct {
	log    *audit.Log
	logger *zap.Logger
}

// New creates an Executor appending to the given audit log.
func New(log *audit.Log, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{log: log, logger: logger}
}

// Execute moves sourceDir/filename into the destination folder, which
// is created on demand as a sibling of sourceDir. On success one
// MOVE_FILE audit record is appended; on failure the error is reported,
// a MOVE_FAILED record is appended and the error returned.
func (e *Executor) Execute(filename, sourceDir string, destination ai.Destination, reason string) error {
	sourcePath := filepath.Join(sourceDir, filename)
	destDir := filepath.Join(filepath.Dir(filepath.Clean(sourceDir)), string(destination))
	destPath := filepath.Join(destDir, filename)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return e.failed(filename, destination, fmt.Errorf("create destination directory: %w", err))
	}

	if err := os.Rename(sourcePath, destPath); err != nil {
		return e.failed(filename, destination, fmt.Errorf("move file: %w", err))
	}

	e.logger.Info("file moved",
		zap.String("file", filename),
		zap.String("destination", string(destination)),
	)

	if err := e.log.Append(audit.Record{
		File:        filename,
		Action:      string(ai.ActionMoveFile),
		Destination: string(destination),
		Reason:      reason,
	}); err != nil {
		return fmt.Errorf("audit move: %w", err)
	}

	return nil
}

// Skip records an explicit SKIP without touching the file.
func (e *Executor) Skip(filename, reason string) error {
	e.logger.Info("file skipped", zap.String("file", filename))

	if err := e.log.Append(audit.Record{
		File:        filename,
		Action:      string(ai.ActionSkip),
		Destination: audit.DestinationNone,
		Reason:      reason,
	}); err != nil {
		return fmt.Errorf("audit skip: %w", err)
	}

	return nil
}

func (e *Executor) failed(filename string, destination ai.Destination, cause error) error {
	e.logger.Error("move failed",
		zap.String("file", filename),
		zap.String("destination", string(destination)),
		zap.Error(cause),
	)

	if err := e.log.Append(audit.Record{
		File:        filename,
		Action:      ActionMoveFailed,
		Destination: string(destination),
		Reason:      cause.Error(),
	}); err != nil {
		e.logger.Warn("audit append failed", zap.Error(err))
	}

	return cause
}
