package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vidgate/yt-api/pkg/backend"
	"github.com/vidgate/yt-api/pkg/rotation"
)

// Backend drives the yt-dlp binary. Every call asks for machine-readable
// JSON (-J); plain stdout is never string-parsed.
type Backend struct {
	// Binary is the yt-dlp executable (defaults to "yt-dlp" on PATH).
	Binary string
}

func (b *Backend) binary() string {
	if b.Binary == "" {
		return "yt-dlp"
	}
	return b.Binary
}

// profileArgs translates a rotation profile into extractor flags.
func profileArgs(p rotation.Profile) []string {
	var args []string
	if p.Proxy != "" {
		args = append(args, "--proxy", p.Proxy)
	}
	if p.UserAgent != "" {
		args = append(args, "--user-agent", p.UserAgent)
	}
	if p.SocketTimeoutSec > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(p.SocketTimeoutSec))
	}
	for k, v := range p.ExtraOptions {
		flag := "--" + strings.ReplaceAll(k, "_", "-")
		if v == "" {
			args = append(args, flag)
		} else {
			args = append(args, flag, v)
		}
	}
	return args
}

func (b *Backend) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.binary(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("yt-dlp: %s", msg)
	}
	return stdout.Bytes(), nil
}

// infoDump is the subset of yt-dlp's -J output the gateway consumes.
type infoDump struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	DurationString string `json:"duration_string"`
	Thumbnail      string `json:"thumbnail"`
	WebpageURL     string `json:"webpage_url"`
	Formats        []struct {
		FormatID   string  `json:"format_id"`
		Format     string  `json:"format"`
		Ext        string  `json:"ext"`
		FormatNote string  `json:"format_note"`
		Filesize   float64 `json:"filesize"`
		VCodec     string  `json:"vcodec"`
		ACodec     string  `json:"acodec"`
		URL        string  `json:"url"`
	} `json:"formats"`
	Entries []struct {
		ID string `json:"id"`
	} `json:"entries"`
}

func (b *Backend) Extract(ctx context.Context, ref string, profile rotation.Profile) (*backend.VideoInfo, error) {
	args := []string{"-J", "--no-warnings", "--quiet"}
	args = append(args, profileArgs(profile)...)
	args = append(args, ref)

	out, err := b.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return decodeInfo(out)
}

func decodeInfo(out []byte) (*backend.VideoInfo, error) {
	var dump infoDump
	if err := json.Unmarshal(out, &dump); err != nil {
		return nil, fmt.Errorf("yt-dlp info decode: %w", err)
	}

	info := &backend.VideoInfo{
		ID:        dump.ID,
		Title:     dump.Title,
		Duration:  dump.DurationString,
		Thumbnail: dump.Thumbnail,
		Link:      dump.WebpageURL,
		Formats:   make([]backend.Format, 0, len(dump.Formats)),
	}
	for _, f := range dump.Formats {
		info.Formats = append(info.Formats, backend.Format{
			FormatID: f.FormatID,
			Format:   f.Format,
			Ext:      f.Ext,
			Note:     f.FormatNote,
			Filesize: int64(f.Filesize),
			HasVideo: f.VCodec != "" && f.VCodec != "none",
			HasAudio: f.ACodec != "" && f.ACodec != "none",
			URL:      f.URL,
		})
	}
	return info, nil
}

func (b *Backend) Playlist(ctx context.Context, playlistURL string, limit int, profile rotation.Profile) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	args := []string{"-J", "--flat-playlist", "--no-warnings", "--quiet", "--playlist-end", strconv.Itoa(limit)}
	args = append(args, profileArgs(profile)...)
	args = append(args, playlistURL)

	out, err := b.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var dump infoDump
	if err := json.Unmarshal(out, &dump); err != nil {
		return nil, fmt.Errorf("yt-dlp playlist decode: %w", err)
	}

	ids := make([]string, 0, len(dump.Entries))
	for _, e := range dump.Entries {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

// Download materializes ref under formatSel. destTemplate carries a
// "%(ext)s" placeholder the extractor fills in; the written file is located
// afterwards by matching the template against the output directory.
func (b *Backend) Download(ctx context.Context, ref, formatSel, destTemplate string, profile rotation.Profile) (string, error) {
	args := []string{
		"-f", formatSel,
		"-o", destTemplate,
		"--no-warnings", "--quiet",
		"--geo-bypass",
	}
	args = append(args, profileArgs(profile)...)
	args = append(args, ref)

	if _, err := b.run(ctx, args); err != nil {
		return "", err
	}

	path, err := locateOutput(destTemplate)
	if err != nil {
		return "", fmt.Errorf("yt-dlp produced no output for %q: %w", ref, err)
	}
	return path, nil
}

const extPlaceholder = "%(ext)s"

// locateOutput finds the file written for an output template. The name
// around the "%(ext)s" placeholder is compared literally, so titles with
// glob metacharacters ("Song [Official Video]") resolve correctly.
func locateOutput(destTemplate string) (string, error) {
	dir, base := filepath.Split(destTemplate)
	if dir == "" {
		dir = "."
	}

	idx := strings.Index(base, extPlaceholder)
	if idx < 0 {
		if _, err := os.Stat(destTemplate); err != nil {
			return "", err
		}
		return destTemplate, nil
	}
	prefix, suffix := base[:idx], base[idx+len(extPlaceholder):]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) > len(prefix)+len(suffix) &&
			strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("no file matches template %q", destTemplate)
}
