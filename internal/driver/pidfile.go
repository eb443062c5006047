package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func pidFilePath(walkDir string) string {
	return filepath.Join(walkDir, ".walk", "driver.pid")
}

// AcquirePIDFile refuses to start if another driver is live for this walk
// (spec §4.6 "Startup"), otherwise writes the current process's PID.
func AcquirePIDFile(walkDir string) error {
	path := pidFilePath(walkDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating .walk directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil {
			if isProcessRunning(pid) {
				return fmt.Errorf("another driver is live for this walk (pid %d)", pid)
			}
		}
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// ReleasePIDFile removes the PID file on clean exit (spec §5).
func ReleasePIDFile(walkDir string) {
	_ = os.Remove(pidFilePath(walkDir))
}

// isProcessRunning reports whether pid names a live process, using a
// signal-0 probe (no actual signal delivered).
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}
