package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceExtHelpers(t *testing.T) {
	assert.True(t, HasSourceExt("main.roc"))
	assert.False(t, HasSourceExt("main.go"))
	assert.Equal(t, "main", TrimSourceExt("main.roc"))
	assert.Equal(t, "main.go", TrimSourceExt("main.go"))
}

func TestLoadReplFileMissingGivesDefaults(t *testing.T) {
	rf, err := LoadReplFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultReplFile(), rf)
}

func TestLoadReplFileParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompt: \"> \"\nno_color: true\n"), 0o644))

	rf, err := LoadReplFile(path)
	require.NoError(t, err)
	assert.Equal(t, "> ", rf.Prompt)
	assert.True(t, rf.NoColor)
	assert.False(t, rf.NoHeader)
}

func TestLoadReplFileBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- this\n- is a sequence, not a mapping\n"), 0o644))

	_, err := LoadReplFile(path)
	assert.Error(t, err)
}
