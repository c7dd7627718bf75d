package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vidgate/yt-api/pkg/backend"
	"github.com/vidgate/yt-api/pkg/dispatch"
	"github.com/vidgate/yt-api/pkg/rotation"
)

type fakeSearcher struct {
	results []backend.VideoInfo
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, limit int) ([]backend.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

type fakeExtractor struct {
	info *backend.VideoInfo
	ids  []string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, string, rotation.Profile) (*backend.VideoInfo, error) {
	return f.info, f.err
}

func (f *fakeExtractor) Playlist(context.Context, string, int, rotation.Profile) ([]string, error) {
	return f.ids, f.err
}

func (f *fakeExtractor) Download(context.Context, string, string, string, rotation.Profile) (string, error) {
	return "", errors.New("not used")
}

func newResolver(s backend.SearchBackend, e backend.ExtractionBackend) *Resolver {
	return &Resolver{
		Searcher:   s,
		Extractor:  e,
		Rotator:    rotation.New(nil),
		Dispatcher: dispatch.New(4, time.Second),
	}
}

func TestSearchCapsResults(t *testing.T) {
	var results []backend.VideoInfo
	for i := 0; i < 15; i++ {
		results = append(results, backend.VideoInfo{ID: fmt.Sprintf("vid%02d", i)})
	}
	r := newResolver(&fakeSearcher{results: results}, &fakeExtractor{})

	got, err := r.Search(context.Background(), "long tail query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != SearchCap {
		t.Fatalf("expected %d results, got %d", SearchCap, len(got))
	}
	if got[0].ID != "vid00" {
		t.Fatalf("order not preserved, first = %q", got[0].ID)
	}
}

func TestSearchBackendFaultIsTyped(t *testing.T) {
	r := newResolver(&fakeSearcher{err: errors.New("index down")}, &fakeExtractor{})

	_, err := r.Search(context.Background(), "anything")
	var be *dispatch.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BackendError, got %T: %v", err, err)
	}
}

func TestSearchNoResultsIsNotAnError(t *testing.T) {
	r := newResolver(&fakeSearcher{}, &fakeExtractor{})

	got, err := r.Search(context.Background(), "nothing matches")
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestDetailsFirstResultAndNotFound(t *testing.T) {
	r := newResolver(&fakeSearcher{results: []backend.VideoInfo{
		{ID: "first", Title: "First"},
		{ID: "second", Title: "Second"},
	}}, &fakeExtractor{})

	got, err := r.Details(context.Background(), "https://youtu.be/first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != "first" {
		t.Fatalf("expected first result, got %+v", got)
	}

	empty := newResolver(&fakeSearcher{}, &fakeExtractor{})
	got, err = empty.Details(context.Background(), "https://youtu.be/ghost")
	if err != nil {
		t.Fatalf("not found must not be an error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil summary, got %+v", got)
	}
}

func TestListFormatsDropsEntriesWithoutURL(t *testing.T) {
	info := &backend.VideoInfo{Formats: []backend.Format{
		{FormatID: "18", URL: "https://cdn/18"},
		{FormatID: "22", URL: ""},
		{FormatID: "137", URL: "https://cdn/137"},
	}}
	r := newResolver(&fakeSearcher{}, &fakeExtractor{info: info})

	got, err := r.ListFormats(context.Background(), "link")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 URL-bearing formats, got %d", len(got))
	}
	if got[0].FormatID != "18" || got[1].FormatID != "137" {
		t.Fatalf("backend order not preserved: %+v", got)
	}
}

func TestResolveStreamURLTrackSelection(t *testing.T) {
	info := &backend.VideoInfo{Formats: []backend.Format{
		{FormatID: "A", HasVideo: true, HasAudio: false, URL: "https://cdn/a"},
		{FormatID: "B", HasVideo: false, HasAudio: true, URL: "https://cdn/b"},
		{FormatID: "C", HasVideo: true, HasAudio: true, URL: "https://cdn/c"},
	}}
	r := newResolver(&fakeSearcher{}, &fakeExtractor{info: info})

	url, err := r.ResolveStreamURL(context.Background(), "ref", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn/a" {
		t.Fatalf("wantVideo should pick the first video track, got %q", url)
	}

	url, err = r.ResolveStreamURL(context.Background(), "ref", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn/b" {
		t.Fatalf("audio request should pick the first audio track, got %q", url)
	}
}

func TestResolveStreamURLNoMatch(t *testing.T) {
	info := &backend.VideoInfo{Formats: []backend.Format{
		{FormatID: "A", HasVideo: true, URL: "https://cdn/a"},
	}}
	r := newResolver(&fakeSearcher{}, &fakeExtractor{info: info})

	url, err := r.ResolveStreamURL(context.Background(), "ref", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "" {
		t.Fatalf("expected empty url for missing audio track, got %q", url)
	}
}

func TestPlaylistPassesThrough(t *testing.T) {
	r := newResolver(&fakeSearcher{}, &fakeExtractor{ids: []string{"a", "b", "c"}})

	ids, err := r.Playlist(context.Background(), "PLxyz", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" {
		t.Fatalf("unexpected playlist ids: %v", ids)
	}
}
