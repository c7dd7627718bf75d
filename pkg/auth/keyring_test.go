package auth

import "testing"

func TestAuthorize(t *testing.T) {
	k := NewKeyring([]string{"abc123", "secret-2", ""})

	cases := []struct {
		key  string
		want bool
	}{
		{"abc123", true},
		{"secret-2", true},
		{"", false},
		{"ABC123", false},
		{"abc123 ", false},
		{"unknown", false},
	}

	for _, c := range cases {
		if got := k.Authorize(c.key); got != c.want {
			t.Errorf("Authorize(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestEmptyKeyringRejectsEverything(t *testing.T) {
	k := NewKeyring(nil)
	if k.Authorize("anything") {
		t.Fatal("empty keyring must reject all keys")
	}
}
