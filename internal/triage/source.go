package triage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source is the validated pair of triage inputs: a directory of resume
// text files and the job description they are scored against.
type Source struct {
	Dir            string
	JobDescription string
}

// NewSource validates both paths and reads the job description. Invalid
// configuration is detected here, before any processing begins.
func NewSource(dir, jobDescriptionPath string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("resume directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resume source %q is not a directory", dir)
	}

	data, err := os.ReadFile(jobDescriptionPath)
	if err != nil {
		return nil, fmt.Errorf("job description %q: %w", jobDescriptionPath, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("job description %q is empty", jobDescriptionPath)
	}

	return &Source{Dir: dir, JobDescription: string(data)}, nil
}

// List returns the resume filenames, sorted so processing order does
// not depend on platform directory enumeration.
func (s *Source) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list resume directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

// Read returns the plaintext content of one resume file.
func (s *Source) Read(filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, filename))
	if err != nil {
		return "", fmt.Errorf("read resume %q: %w", filename, err)
	}
	return string(data), nil
}
