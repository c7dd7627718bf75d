package resolver

import (
	"context"
	"log/slog"

	"github.com/vidgate/yt-api/pkg/backend"
	"github.com/vidgate/yt-api/pkg/dispatch"
	"github.com/vidgate/yt-api/pkg/models"
	"github.com/vidgate/yt-api/pkg/rotation"
	"github.com/vidgate/yt-api/pkg/utils"
)

// SearchCap bounds every search response.
const SearchCap = 10

// Resolver answers metadata, search, format-listing and stream-URL requests
// by pushing blocking backend probes through the dispatcher.
type Resolver struct {
	Searcher   backend.SearchBackend
	Extractor  backend.ExtractionBackend
	Rotator    *rotation.Rotator
	Dispatcher *dispatch.Dispatcher
}

func summarize(info backend.VideoInfo) models.VideoSummary {
	return models.VideoSummary{
		ID:        info.ID,
		Title:     info.Title,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
		Link:      info.Link,
	}
}

// Search returns at most SearchCap summaries. A backend fault surfaces as a
// typed error, never as an empty result set.
func (r *Resolver) Search(ctx context.Context, query string) ([]models.VideoSummary, error) {
	infos, err := dispatch.Run(ctx, r.Dispatcher, 0, func(ctx context.Context) ([]backend.VideoInfo, error) {
		return r.Searcher.Search(ctx, query, SearchCap)
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.VideoSummary, 0, len(infos))
	for _, info := range infos {
		if len(out) == SearchCap {
			break
		}
		out = append(out, summarize(info))
	}
	return out, nil
}

// Details resolves a link or query to its first match. Zero results is not
// a fault: (nil, nil) means not found.
func (r *Resolver) Details(ctx context.Context, ref string) (*models.VideoSummary, error) {
	infos, err := dispatch.Run(ctx, r.Dispatcher, 0, func(ctx context.Context) ([]backend.VideoInfo, error) {
		return r.Searcher.Search(ctx, ref, 1)
	})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, nil
	}
	s := summarize(infos[0])
	return &s, nil
}

// ListFormats runs a full extraction and drops entries without a directly
// usable URL. Backend order is preserved.
func (r *Resolver) ListFormats(ctx context.Context, ref string) ([]models.FormatDescriptor, error) {
	profile := r.Rotator.Next()

	info, err := dispatch.Run(ctx, r.Dispatcher, 0, func(ctx context.Context) (*backend.VideoInfo, error) {
		return r.Extractor.Extract(ctx, ref, profile)
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.FormatDescriptor, 0, len(info.Formats))
	for _, f := range info.Formats {
		if f.URL == "" {
			continue
		}
		out = append(out, models.FormatDescriptor{
			FormatID: f.FormatID,
			Format:   f.Format,
			Ext:      f.Ext,
			Note:     f.Note,
			Filesize: f.Filesize,
			HasVideo: f.HasVideo,
			HasAudio: f.HasAudio,
			URL:      f.URL,
		})
	}
	return out, nil
}

// Playlist lists video IDs through the extractor's structured flat-playlist
// capability.
func (r *Resolver) Playlist(ctx context.Context, playlistID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	profile := r.Rotator.Next()
	link := utils.PlaylistURL(playlistID)

	return dispatch.Run(ctx, r.Dispatcher, 0, func(ctx context.Context) ([]string, error) {
		return r.Extractor.Playlist(ctx, link, limit, profile)
	})
}

// ResolveStreamURL extracts through the rotated profile and picks the first
// format carrying the wanted track kind. Backend-declared order is
// authoritative; no quality heuristic. Empty string means no match.
func (r *Resolver) ResolveStreamURL(ctx context.Context, ref string, wantVideo bool) (string, error) {
	profile := r.Rotator.Next()
	slog.Debug("Resolving stream", "ref", ref, "video", wantVideo, "proxy", profile.Proxy)

	info, err := dispatch.Run(ctx, r.Dispatcher, 0, func(ctx context.Context) (*backend.VideoInfo, error) {
		return r.Extractor.Extract(ctx, ref, profile)
	})
	if err != nil {
		return "", err
	}

	for _, f := range info.Formats {
		if f.URL == "" {
			continue
		}
		if wantVideo && f.HasVideo {
			return f.URL, nil
		}
		if !wantVideo && f.HasAudio {
			return f.URL, nil
		}
	}
	return "", nil
}
