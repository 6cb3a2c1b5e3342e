package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
)

// Artifact is what gets captured when a refresh yields nothing usable
type Artifact struct {
	Source     string
	RunID      string
	Reason     string
	HTML       string
	Screenshot []byte
}

// Recorder writes artifacts to a local directory and optionally mirrors them
// to remote storage. Upload failures are logged, never returned.
type Recorder struct {
	dir      string
	uploader Uploader
	logger   logging.Logger
}

func NewRecorder(dir string, uploader Uploader, logger logging.Logger) *Recorder {
	return &Recorder{
		dir:      dir,
		uploader: uploader,
		logger:   logger.WithField("component", "diagnostics"),
	}
}

// New builds the recorder configured by cfg, or nil when artifacts are off
func New(cfg *config.Config, logger logging.Logger) (*Recorder, error) {
	if !cfg.Scraper.DebugArtifacts {
		return nil, nil
	}

	var uploader Uploader
	if cfg.Scraper.UploadArtifacts {
		spaces, err := NewSpacesUploader(cfg.DigitalOcean.Spaces, logger)
		if err != nil {
			return nil, err
		}
		uploader = spaces
	}
	return NewRecorder(cfg.Scraper.ArtifactsDir, uploader, logger), nil
}

// Capture persists the artifact and returns the written locations
func (r *Recorder) Capture(ctx context.Context, a Artifact) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}

	base := a.Source + "-" + a.RunID
	var (
		written []string
		errs    []error
	)
	save := func(ext, contentType string, data []byte) {
		if len(data) == 0 {
			return
		}
		name := filepath.Join(r.dir, base+ext)
		if err := os.WriteFile(name, data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", name, err))
			return
		}
		written = append(written, name)

		if r.uploader == nil {
			return
		}
		key := path.Join("debug", a.Source, base+ext)
		url, err := r.uploader.Upload(ctx, key, data, contentType)
		if err != nil {
			r.logger.Warn("Artifact upload failed", map[string]interface{}{
				"source": a.Source,
				"key":    key,
				"error":  err.Error(),
			})
			return
		}
		written = append(written, url)
	}

	save(".html", "text/html; charset=utf-8", []byte(a.HTML))
	save(".png", "image/png", a.Screenshot)

	r.logger.Info("Diagnostic artifacts captured", map[string]interface{}{
		"source": a.Source,
		"run_id": a.RunID,
		"reason": a.Reason,
		"files":  written,
	})
	return written, errors.Join(errs...)
}
