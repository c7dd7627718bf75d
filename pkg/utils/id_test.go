package utils

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"not a video", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractVideoID(c.in); got != c.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractPlaylistID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://youtube.com/playlist?list=PLabc_123-xyz", "PLabc_123-xyz"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc", "PLabc"},
		{"PLabc_123-xyz", "PLabc_123-xyz"},
		{"https://youtube.com/playlist", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractPlaylistID(c.in); got != c.want {
			t.Errorf("ExtractPlaylistID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
