package models

// VideoSummary is the search/details result shape returned to API clients.
type VideoSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Thumbnail string `json:"thumbnail"`
	Link      string `json:"link"`
}

// FormatDescriptor is one candidate encoding for a media reference.
// Only entries with a resolvable URL reach API clients.
type FormatDescriptor struct {
	FormatID string `json:"format_id"`
	Format   string `json:"format"`
	Ext      string `json:"ext"`
	Note     string `json:"note,omitempty"`
	Filesize int64  `json:"filesize,omitempty"`
	HasVideo bool   `json:"has_video"`
	HasAudio bool   `json:"has_audio"`
	URL      string `json:"-"`
}

// DownloadJob describes one download request. Jobs are consumed
// synchronously and never persisted across requests.
type DownloadJob struct {
	ID        string
	Link      string
	FormatID  string
	AudioOnly bool
	VideoMP4  bool
	Title     string
}

// StreamResponse is the /stream body. URL is null when no matching
// track exists.
type StreamResponse struct {
	StreamURL *string `json:"stream_url"`
}

// DownloadResponse is the /download success body.
type DownloadResponse struct {
	FilePath string `json:"file_path"`
}

// StatusResponse is the unauthenticated root body.
type StatusResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
}

// ErrorResponse is the JSON error envelope for all non-200 responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
