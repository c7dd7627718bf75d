package ffmpeg

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/vidgate/yt-api/pkg/backend"
)

// Prebuilt minimal ffmpeg binaries, used when no working install is found.
const (
	urlNanoLinux   = "https://github.com/imbecility/yt-gateway/releases/download/ffmpeg_git-2025-12-18-78c75d5/ffmpeg_nano"
	urlNanoWindows = "https://github.com/imbecility/yt-gateway/releases/download/ffmpeg_git-2025-12-18-78c75d5/ffmpeg_nano.exe"
)

// EnsureBinary returns a working ffmpeg path, downloading a minimal build
// into the working directory when the requested one is missing or broken.
func EnsureBinary(client backend.HTTPClient, requestedPath string) (string, error) {
	if isWorking(requestedPath) {
		slog.Debug("FFmpeg found and working", "path", requestedPath)
		return requestedPath, nil
	}

	slog.Warn("FFmpeg not found or invalid, falling back to bundled build", "path", requestedPath)

	var downloadURL, fileName string
	switch runtime.GOOS {
	case "windows":
		downloadURL, fileName = urlNanoWindows, "ffmpeg_nano.exe"
	case "linux", "darwin":
		downloadURL, fileName = urlNanoLinux, "ffmpeg_nano"
	default:
		return "", fmt.Errorf("auto-download not supported for OS: %s", runtime.GOOS)
	}

	cwd, _ := os.Getwd()
	localPath := filepath.Join(cwd, fileName)

	if _, err := os.Stat(localPath); err == nil {
		if isWorking(localPath) {
			slog.Info("Found local ffmpeg build", "path", localPath)
			return localPath, nil
		}
		if rerr := os.Remove(localPath); rerr != nil {
			slog.Warn("Failed to remove broken ffmpeg binary", "path", localPath, "err", rerr)
		}
	}

	slog.Info("Downloading ffmpeg", "url", downloadURL)
	if err := fetchBinary(client, downloadURL, localPath); err != nil {
		return "", fmt.Errorf("failed to download ffmpeg: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(localPath, 0755); err != nil {
			return "", fmt.Errorf("failed to chmod ffmpeg: %w", err)
		}
	}

	if !isWorking(localPath) {
		return "", fmt.Errorf("downloaded ffmpeg is not working")
	}

	slog.Info("FFmpeg installed", "path", localPath)
	return localPath, nil
}

func isWorking(path string) bool {
	return exec.Command(path, "-version").Run() == nil
}

func fetchBinary(client backend.HTTPClient, url, dest string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			slog.Warn("Failed to close response body", "err", cerr)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func(out *os.File) {
		if cerr := out.Close(); cerr != nil {
			slog.Warn("Failed to close file", "err", cerr)
		}
	}(out)

	_, err = io.Copy(out, resp.Body)
	return err
}
