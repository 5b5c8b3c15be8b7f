package pack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/shippo/internal/logger"
)

// markerFilename is the pid file guarding a bundle directory while a
// packaging run writes into it.
const markerFilename = ".shippo-pack.pid"

// ErrPackagingInProgress means another live process holds the bundle directory.
var ErrPackagingInProgress = errors.New("another packaging run is in progress")

// acquireRunMarker claims the bundle directory for this process. A marker
// left by a process that no longer exists is treated as stale and removed.
// The returned release function removes the marker.
func acquireRunMarker(ctx context.Context, bundleDir string) (func(), error) {
	markerPath := filepath.Join(bundleDir, markerFilename)

	if contents, err := os.ReadFile(filepath.Clean(markerPath)); err == nil {
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(contents)))
		if convErr == nil && pid != os.Getpid() {
			if process, _ := ps.FindProcess(pid); process != nil {
				return nil, fmt.Errorf("%w: pid %d", ErrPackagingInProgress, pid)
			}
		}

		logger.DebugKV(ctx, "Removing stale packaging marker", "path", markerPath)

		if removeErr := os.Remove(markerPath); removeErr != nil {
			return nil, fmt.Errorf("remove stale marker: %w", removeErr)
		}
	}

	pidLine := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(markerPath, []byte(pidLine), 0o600); err != nil {
		return nil, fmt.Errorf("write packaging marker: %w", err)
	}

	release := func() {
		if err := os.Remove(markerPath); err != nil && !os.IsNotExist(err) {
			logger.WarnKV(ctx, "Failed to remove packaging marker",
				"path", markerPath,
				"error", err)
		}
	}

	return release, nil
}
