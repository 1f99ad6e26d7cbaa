package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultPath is the audit log location used when none is configured.
const DefaultPath = "logs/agent_audit.log"

// DestinationNone is recorded when no folder applies (skips).
const DestinationNone = "N/A"

// Record is one audit log line. The format is newline-delimited JSON;
// readers must ignore unknown fields so new ones can be added.
type Record struct {
	Timestamp   string `json:"timestamp"`
	File        string `json:"file"`
	Action      string `json:"action"`
	Destination string `json:"destination"`
	Reason      string `json:"reason"`
	RunID       string `json:"run_id,omitempty"`
}

// Log appends records to an append-only NDJSON file. The file is opened
// and closed per write; each record is a single atomic append.
type Log struct {
	path  string
	runID string
	now   func() time.Time
}

// NewLog creates an audit log writing to path. runID is stamped on
// every record and may be empty.
func NewLog(path, runID string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path, runID: runID, now: time.Now}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append writes one record, filling in the timestamp and run id.
func (l *Log) Append(rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = l.now().Format(time.RFC3339)
	}
	if rec.Destination == "" {
		rec.Destination = DestinationNone
	}
	rec.RunID = l.runID

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit log directory: %w", err)
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}

	return nil
}

// Records reads every record back from the log file. A missing file
// yields an empty slice.
func (l *Log) Records() ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse audit record: %w", err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return records, nil
}
