package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vidgate/yt-api/pkg/auth"
	"github.com/vidgate/yt-api/pkg/models"
	"github.com/vidgate/yt-api/pkg/pipeline"
	"github.com/vidgate/yt-api/pkg/ratelimit"
	"github.com/vidgate/yt-api/pkg/resolver"
)

// Service bundles the gateway core: admission control plus the resolver and
// download pipeline the HTTP surface dispatches into. All state is owned
// here and injected explicitly; nothing is process-global.
type Service struct {
	Keyring   *auth.Keyring
	Limiter   *ratelimit.Limiter
	Resolver  *resolver.Resolver
	Pipeline  *pipeline.Pipeline
	OutputDir string
	FileTTL   time.Duration
}

// StartBackground launches the limiter janitor. It returns immediately;
// everything stops when ctx is cancelled.
func (s *Service) StartBackground(ctx context.Context) {
	s.Limiter.StartJanitor(ctx, 2*time.Minute)
}

// NewJob builds a download job with a collision-resistant ID.
func (s *Service) NewJob(link, formatID, title string, audio, video bool) models.DownloadJob {
	return models.DownloadJob{
		ID:        uuid.NewString(),
		Link:      link,
		FormatID:  formatID,
		Title:     title,
		AudioOnly: audio,
		VideoMP4:  video,
	}
}
