package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRemove(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "run", "server0.pid"))

	require.NoError(t, p.Write())

	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, p.Remove())
	_, err = p.Read()
	assert.Error(t, err)
}

func TestRemoveMissingIsNoError(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "server0.pid"))
	assert.NoError(t, p.Remove())
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

	_, err := New(path).Read()
	assert.Error(t, err)
}
