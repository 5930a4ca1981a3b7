package endpoint

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	path := ResolvePath("/tmp/pomidoro", "alice", 0)
	assert.Equal(t, filepath.Join("/tmp/pomidoro", "alice", "server0.sock"), path)

	// Deterministic and pure: same inputs, same path.
	assert.Equal(t, path, ResolvePath("/tmp/pomidoro", "alice", 0))

	assert.Equal(t,
		filepath.Join("/tmp/pomidoro", "bob", "server3.sock"),
		ResolvePath("/tmp/pomidoro", "bob", 3))
}

func TestPidPath(t *testing.T) {
	assert.Equal(t, "/tmp/p/alice/server0.pid", PidPath("/tmp/p/alice/server0.sock"))
}

func TestProbeAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	assert.Equal(t, StatusAbsent, Probe(path))
}

func TestProbeStaleNonSocketFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0644))
	assert.Equal(t, StatusStale, Probe(path))
}

func TestProbeStaleDeadSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	leaveStaleSocket(t, path)
	assert.Equal(t, StatusStale, Probe(path))
}

func TestProbeLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer listener.Close()

	go acceptAndClose(listener)

	assert.Equal(t, StatusLive, Probe(path))
}

func TestBindCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alice", "server0.sock")

	listener, err := Bind(path)
	require.NoError(t, err)
	defer listener.Close()

	assert.Equal(t, StatusLive, probeWith(t, listener, path))
}

func TestBindRemovesStaleEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	leaveStaleSocket(t, path)

	listener, err := Bind(path)
	require.NoError(t, err)
	defer listener.Close()
}

func TestBindRefusesLiveEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	listener, err := Bind(path)
	require.NoError(t, err)
	defer listener.Close()

	go acceptAndClose(listener)

	_, err = Bind(path)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestConnectUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")

	_, err := Connect(path, ProbeTimeout)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestRemoveMissingIsNoError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server0.sock")
	assert.NoError(t, Remove(path))
}

// leaveStaleSocket binds a socket and closes it without unlinking, simulating
// the residue of a crashed server.
func leaveStaleSocket(t *testing.T, path string) {
	t.Helper()
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, listener.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "stale socket file should remain")
}

// acceptAndClose accepts probe connections until the listener closes.
func acceptAndClose(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}
}

func probeWith(t *testing.T, listener net.Listener, path string) Status {
	t.Helper()
	go acceptAndClose(listener)
	return Probe(path)
}
