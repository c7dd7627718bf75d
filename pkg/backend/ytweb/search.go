package ytweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vidgate/yt-api/pkg/backend"
	"github.com/vidgate/yt-api/pkg/utils"
)

// Client is a SearchBackend scraping the public results page. No API key
// needed; the impersonating HTTP client keeps the page variant stable.
type Client struct {
	HTTP      backend.HTTPClient
	UserAgent string
}

const resultsURL = "https://www.youtube.com/results?search_query="

func (c *Client) Search(ctx context.Context, query string, limit int) ([]backend.VideoInfo, error) {
	if limit <= 0 {
		limit = 10
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultsURL+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			slog.Warn("Failed to close response body", "err", cerr)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("search read failed: %w", err)
	}

	results := parseVideoRenderers(string(page), limit)
	if len(results) == 0 {
		// A direct link searched verbatim often yields no renderer blocks;
		// oEmbed still resolves it.
		if vid := utils.ExtractVideoID(query); vid != "" {
			if info, oerr := c.lookupOembed(ctx, vid); oerr == nil {
				return []backend.VideoInfo{*info}, nil
			}
		}
	}
	return results, nil
}

// videoRenderer is the fragment of ytInitialData we care about.
type videoRenderer struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"title"`
	LengthText struct {
		SimpleText string `json:"simpleText"`
	} `json:"lengthText"`
	Thumbnail struct {
		Thumbnails []struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"thumbnail"`
}

// parseVideoRenderers walks the page for "videoRenderer" objects and decodes
// each brace-matched fragment. Page order is preserved.
func parseVideoRenderers(page string, limit int) []backend.VideoInfo {
	const marker = `"videoRenderer":`

	var out []backend.VideoInfo
	seen := make(map[string]bool)

	for idx := strings.Index(page, marker); idx >= 0 && len(out) < limit; idx = strings.Index(page, marker) {
		page = page[idx+len(marker):]

		frag, rest := braceFragment(page)
		page = rest
		if frag == "" {
			continue
		}

		var r videoRenderer
		if err := json.Unmarshal([]byte(frag), &r); err != nil || r.VideoID == "" {
			continue
		}
		if seen[r.VideoID] {
			continue
		}
		seen[r.VideoID] = true

		info := backend.VideoInfo{
			ID:       r.VideoID,
			Duration: r.LengthText.SimpleText,
			Link:     utils.WatchURL(r.VideoID),
		}
		if len(r.Title.Runs) > 0 {
			info.Title = r.Title.Runs[0].Text
		}
		if len(r.Thumbnail.Thumbnails) > 0 {
			// strip sizing params, same thumbnail either way
			info.Thumbnail = strings.SplitN(r.Thumbnail.Thumbnails[0].URL, "?", 2)[0]
		}
		out = append(out, info)
	}
	return out
}

// braceFragment returns the balanced {...} prefix of s and the remainder
// after it. String literals are skipped so embedded braces don't unbalance
// the count.
func braceFragment(s string) (string, string) {
	if len(s) == 0 || s[0] != '{' {
		return "", s
	}
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[:i+1], s[i+1:]
				}
			}
		}
	}
	return "", s
}

// lookupOembed resolves a single video through the official embed endpoint.
func (c *Client) lookupOembed(ctx context.Context, videoID string) (*backend.VideoInfo, error) {
	oembedURL := fmt.Sprintf("https://www.youtube.com/oembed?url=%s&format=json", url.QueryEscape(utils.WatchURL(videoID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			slog.Warn("Failed to close response body", "err", cerr)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed status %d", resp.StatusCode)
	}

	var data struct {
		Title        string `json:"title"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	return &backend.VideoInfo{
		ID:        videoID,
		Title:     data.Title,
		Thumbnail: data.ThumbnailURL,
		Link:      utils.WatchURL(videoID),
	}, nil
}
