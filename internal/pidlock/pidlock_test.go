// ABOUTME: Tests for PID file acquisition and release.
// ABOUTME: Covers fresh acquire, stale file takeover, and ownership checks on release.

package pidlock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_WritesOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.pid")
	require.NoError(t, Acquire(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "relay.pid")
	require.NoError(t, Acquire(path))
	assert.FileExists(t, path)
}

func TestAcquire_OverwritesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.pid")
	// A PID that cannot belong to a live process.
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	require.NoError(t, Acquire(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))
}

func TestAcquire_ToleratesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))
	require.NoError(t, Acquire(path))
}

func TestRelease_RemovesOwnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.pid")
	require.NoError(t, Acquire(path))

	Release(path)
	assert.NoFileExists(t, path)
}

func TestRelease_LeavesForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.pid")
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))

	Release(path)
	assert.FileExists(t, path)
}

func TestRelease_MissingFileIsNoop(t *testing.T) {
	Release(filepath.Join(t.TempDir(), "absent.pid"))
}
