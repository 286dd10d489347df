package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DumpArtifacts writes the current page markup and a screenshot into dir
// for postmortem after a place-level failure. Best-effort: each artifact is
// attempted independently and the first write error is returned for
// logging, never for control flow.
func DumpArtifacts(ctx context.Context, drv Driver, dir, placeName string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "browser: create artifacts dir %s", dir)
	}

	stamp := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	log := zap.L().With(
		zap.String("component", "browser.artifacts"),
		zap.String("place", placeName),
		zap.String("stamp", stamp),
	)

	var firstErr error

	if html, err := drv.PageSource(ctx); err != nil {
		firstErr = err
		log.Warn("could not capture page source", zap.Error(err))
	} else {
		path := filepath.Join(dir, "error-"+stamp+".html")
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Warn("could not write page source", zap.Error(err))
		} else {
			log.Info("wrote error page source", zap.String("path", path))
		}
	}

	if png, err := drv.Screenshot(ctx); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		log.Warn("could not capture screenshot", zap.Error(err))
	} else {
		path := filepath.Join(dir, "error-"+stamp+".png")
		if err := os.WriteFile(path, png, 0o644); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Warn("could not write screenshot", zap.Error(err))
		} else {
			log.Info("wrote error screenshot", zap.String("path", path))
		}
	}

	return firstErr
}
