package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidgate/yt-api/pkg/backend"
	"github.com/vidgate/yt-api/pkg/dispatch"
	"github.com/vidgate/yt-api/pkg/models"
	"github.com/vidgate/yt-api/pkg/rotation"
)

// Stages a download job can fail in. The caller needs to tell an upstream
// extraction fault apart from a local transcode fault.
const (
	StageExtract     = "extract"
	StagePostprocess = "postprocess"
)

// DownloadError reports which stage of a job failed. Partially written
// output is left on disk.
type DownloadError struct {
	Stage string
	Err   error
}

func (e *DownloadError) Error() string { return e.Stage + " failed: " + e.Err.Error() }
func (e *DownloadError) Unwrap() error { return e.Err }

// Pipeline materializes download jobs: format selection, extraction into
// the output directory, optional transcode, final path.
type Pipeline struct {
	Extractor  backend.ExtractionBackend
	Transcoder backend.TranscodeBackend
	Rotator    *rotation.Rotator
	Dispatcher *dispatch.Dispatcher
	OutputDir  string
}

// Execute runs a job to completion and returns the final file path. The
// whole job (download plus post-processing) occupies one dispatcher slot
// with no deadline beyond ctx; downloads are expected to run long.
func (p *Pipeline) Execute(ctx context.Context, job models.DownloadJob) (string, error) {
	formatSel := job.FormatID
	if formatSel == "" {
		if job.AudioOnly {
			formatSel = "bestaudio"
		} else {
			formatSel = "best"
		}
	}

	name := sanitizeName(job.Title)
	if name == "" {
		name = uuid.NewString()
	}

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return "", &DownloadError{Stage: StageExtract, Err: fmt.Errorf("create output dir: %w", err)}
	}

	template := filepath.Join(p.OutputDir, name+".%(ext)s")
	profile := p.Rotator.Next()

	slog.Info("Starting download job", "job", job.ID, "format", formatSel, "out", template)

	path, err := dispatch.Run(ctx, p.Dispatcher, -1, func(ctx context.Context) (string, error) {
		raw, derr := p.Extractor.Download(ctx, job.Link, formatSel, template, profile)
		if derr != nil {
			return "", &DownloadError{Stage: StageExtract, Err: derr}
		}

		switch {
		case job.AudioOnly:
			out, terr := p.Transcoder.ExtractAudio(ctx, raw)
			if terr != nil {
				return "", &DownloadError{Stage: StagePostprocess, Err: terr}
			}
			return out, nil
		case job.VideoMP4:
			if strings.EqualFold(filepath.Ext(raw), ".mp4") {
				return raw, nil
			}
			out, terr := p.Transcoder.RemuxMP4(ctx, raw)
			if terr != nil {
				return "", &DownloadError{Stage: StagePostprocess, Err: terr}
			}
			return out, nil
		default:
			return raw, nil
		}
	})
	if err != nil {
		return "", unwrapJobError(err)
	}

	slog.Info("Download job complete", "job", job.ID, "path", path)
	return path, nil
}

// unwrapJobError strips the dispatcher's backend wrapper when the op
// already produced a stage-typed error.
func unwrapJobError(err error) error {
	var de *DownloadError
	if errors.As(err, &de) {
		return de
	}
	return err
}

// sanitizeName strips path separators, template characters and glob
// metacharacters from a caller-supplied title. Output names must stay
// literal so the written file can be located by its template.
func sanitizeName(title string) string {
	title = strings.TrimSpace(title)
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", "..", "_", "%", "_",
		"*", "_", "?", "_", "[", "_", "]", "_",
	)
	return replacer.Replace(title)
}
