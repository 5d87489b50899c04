// Package workspace prepares the on-disk layout a job needs before its
// subprocess starts writing into it.
package workspace

import (
	"context"
	"fmt"
	"os"

	"github.com/prepflight/prepflight/internal/ctxlog"
)

// EnsureDirs creates every path (including missing ancestors) that does not
// already exist. It is idempotent: a second call with the same paths is a
// no-op. A path that exists but is not a directory is an error, as is any
// permission failure.
func EnsureDirs(ctx context.Context, paths ...string) error {
	logger := ctxlog.FromContext(ctx)

	for _, path := range paths {
		if path == "" {
			return fmt.Errorf("workspace: empty path in directory set")
		}

		info, err := os.Stat(path)
		switch {
		case err == nil && info.IsDir():
			logger.Debug("Directory already present.", "path", path)
			continue
		case err == nil:
			return fmt.Errorf("workspace: %s exists and is not a directory", path)
		case !os.IsNotExist(err):
			return fmt.Errorf("workspace: stat %s: %w", path, err)
		}

		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("workspace: create %s: %w", path, err)
		}
		logger.Debug("Directory created.", "path", path)
	}

	return nil
}
