package triage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "inbox")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	jdPath := filepath.Join(base, "job_description.txt")
	require.NoError(t, os.WriteFile(jdPath, []byte("Senior Backend Engineer, Go, 5+ years"), 0o644))

	return dir, jdPath
}

func TestSourceListSortedTxtOnly(t *testing.T) {
	dir, jdPath := writeSource(t, map[string]string{
		"zoe.txt":    "z",
		"adam.txt":   "a",
		"notes.md":   "ignored",
		"mixed.TXT":  "case insensitive extension",
		"binary.pdf": "ignored",
	})

	source, err := NewSource(dir, jdPath)
	require.NoError(t, err)

	files, err := source.List()
	require.NoError(t, err)
	require.Equal(t, []string{"adam.txt", "mixed.TXT", "zoe.txt"}, files)
}

func TestSourceRead(t *testing.T) {
	dir, jdPath := writeSource(t, map[string]string{"adam.txt": "resume body"})

	source, err := NewSource(dir, jdPath)
	require.NoError(t, err)
	require.Equal(t, "Senior Backend Engineer, Go, 5+ years", source.JobDescription)

	content, err := source.Read("adam.txt")
	require.NoError(t, err)
	require.Equal(t, "resume body", content)
}

func TestSourceValidation(t *testing.T) {
	dir, jdPath := writeSource(t, nil)

	_, err := NewSource(filepath.Join(dir, "missing"), jdPath)
	require.Error(t, err)

	_, err = NewSource(dir, filepath.Join(dir, "missing.txt"))
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	_, err = NewSource(dir, empty)
	require.Error(t, err)
}
