package utils

import (
	"regexp"
	"strings"
)

var (
	videoIDRe    = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube|youtu|youtube-nocookie)\.(?:com|be)/(?:watch\?v=|embed/|v/|.+\?v=|shorts/)?([^&=%\?]{11})`)
	bareIDRe     = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	playlistIDRe = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
)

// ExtractVideoID pulls the 11-character video ID out of any recognized
// YouTube URL shape, or accepts a bare ID as-is.
func ExtractVideoID(input string) string {
	matches := videoIDRe.FindStringSubmatch(input)
	if len(matches) >= 2 {
		return matches[1]
	}

	if len(input) == 11 && bareIDRe.MatchString(input) {
		return input
	}

	return ""
}

// ExtractPlaylistID accepts either a playlist URL or a bare playlist ID.
func ExtractPlaylistID(input string) string {
	matches := playlistIDRe.FindStringSubmatch(input)
	if len(matches) >= 2 {
		return matches[1]
	}
	if input != "" && !strings.ContainsAny(input, "/?&=") {
		return input
	}
	return ""
}

// WatchURL builds the canonical watch link for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// PlaylistURL builds the canonical playlist link for a playlist ID.
func PlaylistURL(playlistID string) string {
	return "https://youtube.com/playlist?list=" + playlistID
}
