package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Transcoder implements the post-processing backend on top of an ffmpeg
// binary.
type Transcoder struct {
	BinaryPath string
}

// ExtractAudio converts src to mp3 at ~192kbps and returns the mp3 path.
// The source file is left in place.
func (t *Transcoder) ExtractAudio(ctx context.Context, src string) (string, error) {
	out := replaceExt(src, "mp3")

	cmd := exec.CommandContext(
		ctx,
		t.BinaryPath,
		"-hide_banner",
		"-i", src,
		"-vn",
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		"-map_metadata", "-1",
		"-y",
		out,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg error: %s, output: %s", err, string(output))
	}
	return out, nil
}

// RemuxMP4 normalizes the container to mp4 without re-encoding and returns
// the mp4 path.
func (t *Transcoder) RemuxMP4(ctx context.Context, src string) (string, error) {
	out := replaceExt(src, "mp4")
	if out == src {
		out = replaceExt(src, "remux.mp4")
	}

	cmd := exec.CommandContext(
		ctx,
		t.BinaryPath,
		"-hide_banner",
		"-i", src,
		"-c", "copy",
		"-sn", "-dn",
		"-map_metadata", "-1",
		"-map_chapters", "-1",
		"-movflags", "faststart",
		"-y",
		out,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg error: %s, output: %s", err, string(output))
	}
	return out, nil
}

func replaceExt(path, ext string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndexAny(path, "/\\") {
		return path[:i+1] + ext
	}
	return path + "." + ext
}
