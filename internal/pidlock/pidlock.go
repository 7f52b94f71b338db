// ABOUTME: PID file handling so only one relay instance polls per bot token.
// ABOUTME: A stale instance found in the PID file is killed before the new one takes over.

// Package pidlock enforces a single running relay instance. Telegram allows
// one long-poll session per token, so starting a second copy silently steals
// the stream from the first. The lock makes the takeover explicit.
package pidlock

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Acquire writes the current process ID to path. If the file already names a
// live process, that process is sent SIGTERM, then SIGKILL if it lingers,
// before the file is overwritten. Errors reading or killing are logged and
// tolerated; the new instance always wins.
func Acquire(path string) error {
	logger := slog.Default().With("component", "pidlock")

	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid > 0 && pid != os.Getpid() {
			if alive(pid) {
				logger.Warn("previous instance still running, terminating it", "pid", pid)
				terminate(pid)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating pid file directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

// Release removes the PID file if it still belongs to this process.
func Release(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid != os.Getpid() {
		return
	}
	os.Remove(path)
}

// alive reports whether pid names a running process we can signal.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// terminate asks pid to exit, escalating to SIGKILL after a grace period.
func terminate(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return
	}
	for i := 0; i < 10; i++ {
		time.Sleep(100 * time.Millisecond)
		if !alive(pid) {
			return
		}
	}
	proc.Kill()
}
