package loop

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// WritePID records the current process id, refusing when a live daemon
// already owns the file. A stale file from a dead process is replaced.
func WritePID(path string) error {
	if pid, ok := ReadPID(path); ok {
		if processAlive(pid) {
			return fmt.Errorf("loop: daemon already running (pid %d)", pid)
		}
		_ = os.Remove(path)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("loop: create pid dir: %w", err)
		}
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("loop: write pid file: %w", err)
	}
	return nil
}

// ReadPID returns the pid recorded in path, if the file exists and parses.
func ReadPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// RemovePID deletes the pid file. Missing files are fine.
func RemovePID(path string) {
	_ = os.Remove(path)
}

// DaemonStatus reports whether a daemon recorded in the pid file is alive.
func DaemonStatus(path string) (pid int, running bool) {
	pid, ok := ReadPID(path)
	if !ok {
		return 0, false
	}
	return pid, processAlive(pid)
}

// StopDaemon sends SIGTERM to the daemon recorded in the pid file.
func StopDaemon(path string) error {
	pid, ok := ReadPID(path)
	if !ok {
		return fmt.Errorf("loop: no daemon pid file at %s", path)
	}
	if !processAlive(pid) {
		_ = os.Remove(path)
		return fmt.Errorf("loop: daemon pid %d is not running", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("loop: signal pid %d: %w", pid, err)
	}
	return nil
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
