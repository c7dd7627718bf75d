package gateway

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vidgate/yt-api/pkg/auth"
	"github.com/vidgate/yt-api/pkg/backend/ytdlp"
	"github.com/vidgate/yt-api/pkg/backend/ytweb"
	"github.com/vidgate/yt-api/pkg/client"
	"github.com/vidgate/yt-api/pkg/config"
	"github.com/vidgate/yt-api/pkg/dispatch"
	"github.com/vidgate/yt-api/pkg/ffmpeg"
	"github.com/vidgate/yt-api/pkg/logger"
	"github.com/vidgate/yt-api/pkg/pipeline"
	"github.com/vidgate/yt-api/pkg/ratelimit"
	"github.com/vidgate/yt-api/pkg/resolver"
	"github.com/vidgate/yt-api/pkg/rotation"
)

// New wires a ready-to-serve Service from the startup configuration.
func New(cfg *config.Config) (*Service, error) {
	// Setup the logger (globally)
	logger.SetupGlobal(cfg.Debug, cfg.LogJSON)
	cfg.Defaults()

	absOutDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output dir: %w", err)
	}
	if err := os.MkdirAll(absOutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	httpClient, err := client.New(client.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to init http client: %w", err)
	}

	// Checking and downloading FFmpeg
	realFFmpegPath, err := ffmpeg.EnsureBinary(httpClient, cfg.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg check failed: %w", err)
	}

	profiles := make([]rotation.Profile, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		profiles = append(profiles, rotation.Profile{
			Proxy:            p.Proxy,
			UserAgent:        p.UserAgent,
			SocketTimeoutSec: p.SocketTimeoutSec,
			ExtraOptions:     p.ExtraOptions,
		})
	}
	rotator := rotation.New(profiles)
	slog.Info("Backend profile pool ready", "profiles", rotator.Size())

	dispatcher := dispatch.New(cfg.Workers, time.Duration(cfg.ProbeTimeoutSec)*time.Second)

	limiter := ratelimit.New(
		cfg.RateLimit.Limit,
		time.Duration(cfg.RateLimit.WindowSec)*time.Second,
		ratelimit.WithGlobalRPS(cfg.RateLimit.GlobalRPS, cfg.RateLimit.GlobalBurst),
	)

	searcher := &ytweb.Client{
		HTTP:      httpClient,
		UserAgent: rotation.DefaultProfile.UserAgent,
	}
	extractor := &ytdlp.Backend{Binary: cfg.YtdlpPath}
	transcoder := &ffmpeg.Transcoder{BinaryPath: realFFmpegPath}

	res := &resolver.Resolver{
		Searcher:   searcher,
		Extractor:  extractor,
		Rotator:    rotator,
		Dispatcher: dispatcher,
	}

	pipe := &pipeline.Pipeline{
		Extractor:  extractor,
		Transcoder: transcoder,
		Rotator:    rotator,
		Dispatcher: dispatcher,
		OutputDir:  absOutDir,
	}

	return &Service{
		Keyring:   auth.NewKeyring(cfg.APIKeys),
		Limiter:   limiter,
		Resolver:  res,
		Pipeline:  pipe,
		OutputDir: absOutDir,
		FileTTL:   time.Duration(cfg.FileTTLMin) * time.Minute,
	}, nil
}
