package backend

import (
	"context"
	"net/http"

	"github.com/vidgate/yt-api/pkg/rotation"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// VideoInfo is the raw result of one extraction call: metadata plus the
// backend-ordered format list. Order is authoritative; callers must not
// re-sort.
type VideoInfo struct {
	ID        string
	Title     string
	Duration  string
	Thumbnail string
	Link      string
	Formats   []Format
}

// Format mirrors one entry of the backend's format list. URL is empty for
// entries the backend could not resolve to a direct link.
type Format struct {
	FormatID string
	Format   string
	Ext      string
	Note     string
	Filesize int64
	HasVideo bool
	HasAudio bool
	URL      string
}

// SearchBackend answers free-text queries against the video index.
type SearchBackend interface {
	Search(ctx context.Context, query string, limit int) ([]VideoInfo, error)
}

// ExtractionBackend wraps the slow, failure-prone extraction engine. All
// calls block; the dispatcher is responsible for offloading them.
type ExtractionBackend interface {
	// Extract probes a reference (URL or query) and returns metadata plus
	// the full format list, without downloading anything.
	Extract(ctx context.Context, ref string, profile rotation.Profile) (*VideoInfo, error)
	// Playlist lists video IDs of a playlist, capped at limit.
	Playlist(ctx context.Context, playlistID string, limit int, profile rotation.Profile) ([]string, error)
	// Download materializes the reference under the given format selector
	// into destPath (extension chosen by the backend) and returns the path
	// actually written.
	Download(ctx context.Context, ref, formatSel, destPath string, profile rotation.Profile) (string, error)
}

// TranscodeBackend post-processes a materialized file.
type TranscodeBackend interface {
	// ExtractAudio converts src to mp3 at the configured quality target and
	// returns the output path.
	ExtractAudio(ctx context.Context, src string) (string, error)
	// RemuxMP4 normalizes the container of src to mp4 and returns the
	// output path.
	RemuxMP4(ctx context.Context, src string) (string, error)
}
