package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vidgate/yt-api/pkg/backend"
	"github.com/vidgate/yt-api/pkg/dispatch"
	"github.com/vidgate/yt-api/pkg/models"
	"github.com/vidgate/yt-api/pkg/rotation"
)

// fakeExtractor materializes a tiny file where the template points, using a
// fixed raw extension.
type fakeExtractor struct {
	ext     string
	err     error
	mu      sync.Mutex
	formats []string
}

func (f *fakeExtractor) Extract(context.Context, string, rotation.Profile) (*backend.VideoInfo, error) {
	return nil, errors.New("not used")
}

func (f *fakeExtractor) Playlist(context.Context, string, int, rotation.Profile) ([]string, error) {
	return nil, errors.New("not used")
}

func (f *fakeExtractor) Download(_ context.Context, _ string, formatSel, destTemplate string, _ rotation.Profile) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.formats = append(f.formats, formatSel)
	f.mu.Unlock()

	path := strings.Replace(destTemplate, "%(ext)s", f.ext, 1)
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, src string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := strings.TrimSuffix(src, filepath.Ext(src)) + ".mp3"
	return out, os.Rename(src, out)
}

func (f *fakeTranscoder) RemuxMP4(_ context.Context, src string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := strings.TrimSuffix(src, filepath.Ext(src)) + ".mp4"
	return out, os.Rename(src, out)
}

func newPipeline(t *testing.T, ex backend.ExtractionBackend, tc backend.TranscodeBackend) *Pipeline {
	t.Helper()
	return &Pipeline{
		Extractor:  ex,
		Transcoder: tc,
		Rotator:    rotation.New(nil),
		Dispatcher: dispatch.New(4, time.Second),
		OutputDir:  t.TempDir(),
	}
}

func TestConcurrentJobsGetDistinctPaths(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{ext: "webm"}, &fakeTranscoder{})

	var wg sync.WaitGroup
	paths := make([]string, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = p.Execute(context.Background(), models.DownloadJob{Link: "https://youtu.be/x"})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("job %d failed: %v", i, err)
		}
	}
	if paths[0] == paths[1] {
		t.Fatalf("generated filenames collided: %q", paths[0])
	}
}

func TestAudioJobEndsInMP3(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{ext: "webm"}, &fakeTranscoder{})

	path, err := p.Execute(context.Background(), models.DownloadJob{Link: "l", AudioOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(path) != ".mp3" {
		t.Fatalf("expected .mp3 output, got %q", path)
	}
	if _, serr := os.Stat(path); serr != nil {
		t.Fatalf("output file missing: %v", serr)
	}
}

func TestVideoJobEndsInMP4(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{ext: "mkv"}, &fakeTranscoder{})

	path, err := p.Execute(context.Background(), models.DownloadJob{Link: "l", VideoMP4: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Fatalf("expected .mp4 output, got %q", path)
	}
}

func TestFormatSelection(t *testing.T) {
	ex := &fakeExtractor{ext: "mp4"}
	p := newPipeline(t, ex, &fakeTranscoder{})

	jobs := []models.DownloadJob{
		{Link: "l", FormatID: "137"},
		{Link: "l", AudioOnly: true},
		{Link: "l"},
	}
	want := []string{"137", "bestaudio", "best"}

	for _, j := range jobs {
		if _, err := p.Execute(context.Background(), j); err != nil {
			t.Fatalf("job failed: %v", err)
		}
	}
	for i, sel := range want {
		if ex.formats[i] != sel {
			t.Fatalf("job %d used format %q, want %q", i, ex.formats[i], sel)
		}
	}
}

func TestTitleNamesTheOutput(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{ext: "mp4"}, &fakeTranscoder{})

	path, err := p.Execute(context.Background(), models.DownloadJob{Link: "l", Title: "my clip"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "my clip.mp4" {
		t.Fatalf("expected title-based filename, got %q", filepath.Base(path))
	}
}

func TestTitleGlobMetacharactersAreSanitized(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{ext: "mp4"}, &fakeTranscoder{})

	path, err := p.Execute(context.Background(), models.DownloadJob{Link: "l", Title: "Song [Official Video] *HD*?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := filepath.Base(path); got != "Song _Official Video_ _HD__.mp4" {
		t.Fatalf("metacharacters survived into filename: %q", got)
	}
}

func TestExtractionFaultIsStageTyped(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{err: errors.New("403 from upstream")}, &fakeTranscoder{})

	_, err := p.Execute(context.Background(), models.DownloadJob{Link: "l"})
	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DownloadError, got %T: %v", err, err)
	}
	if de.Stage != StageExtract {
		t.Fatalf("expected stage %q, got %q", StageExtract, de.Stage)
	}
}

func TestTranscodeFaultIsStageTyped(t *testing.T) {
	p := newPipeline(t, &fakeExtractor{ext: "webm"}, &fakeTranscoder{err: errors.New("codec missing")})

	_, err := p.Execute(context.Background(), models.DownloadJob{Link: "l", AudioOnly: true})
	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DownloadError, got %T: %v", err, err)
	}
	if de.Stage != StagePostprocess {
		t.Fatalf("expected stage %q, got %q", StagePostprocess, de.Stage)
	}
}
