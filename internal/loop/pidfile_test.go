package loop

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "foreman.pid")

	if _, ok := ReadPID(path); ok {
		t.Fatal("read succeeded on missing file")
	}

	if err := WritePID(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, ok := ReadPID(path)
	if !ok || pid != os.Getpid() {
		t.Fatalf("read = %d/%t, want own pid", pid, ok)
	}

	// Our own pid is alive, so a second daemon must be refused.
	if err := WritePID(path); err == nil {
		t.Fatal("second write succeeded while daemon alive")
	}

	gotPID, running := DaemonStatus(path)
	if !running || gotPID != os.Getpid() {
		t.Errorf("status = %d/%t", gotPID, running)
	}

	RemovePID(path)
	if _, ok := ReadPID(path); ok {
		t.Fatal("pid file survived removal")
	}
}

func TestWritePIDReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreman.pid")

	// An absurdly high pid that cannot be a live process.
	if err := os.WriteFile(path, []byte("99999999\n"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}
	if err := WritePID(path); err != nil {
		t.Fatalf("write over stale file: %v", err)
	}
	pid, _ := ReadPID(path)
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want own", pid)
	}
}

func TestReadPIDGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreman.pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := ReadPID(path); ok {
		t.Error("garbage parsed as pid")
	}
}

func TestStopDaemonWithoutPIDFile(t *testing.T) {
	if err := StopDaemon(filepath.Join(t.TempDir(), "missing.pid")); err == nil {
		t.Error("stop succeeded without a pid file")
	}
}
