package authflow

import (
	"strings"
	"testing"
)

func TestAvatarURLSeedIsStable(t *testing.T) {
	url := AvatarURL(DefaultAvatarURLTemplate, 3)
	if !strings.HasSuffix(url, "seed=avatar3") {
		t.Fatalf("expected URL ending in seed=avatar3, got %q", url)
	}

	// Stored and recomputed URLs must agree; the constructor is the only
	// source of either.
	if again := AvatarURL(DefaultAvatarURLTemplate, 3); again != url {
		t.Fatalf("expected identical URL on recompute, got %q and %q", url, again)
	}
}

func TestAvatarURLEmptyTemplateUsesDefault(t *testing.T) {
	if got, want := AvatarURL("", 7), AvatarURL(DefaultAvatarURLTemplate, 7); got != want {
		t.Fatalf("expected default template, got %q", got)
	}
}

func TestAvatarURLCustomTemplate(t *testing.T) {
	got := AvatarURL("https://img.example.com/a?seed=avatar%d", 12)
	if got != "https://img.example.com/a?seed=avatar12" {
		t.Fatalf("unexpected URL %q", got)
	}
}

func TestAvatarIDValidBounds(t *testing.T) {
	tests := []struct {
		id    int
		maxID int
		want  bool
	}{
		{id: 0, maxID: 12, want: false},
		{id: 1, maxID: 12, want: true},
		{id: 12, maxID: 12, want: true},
		{id: 13, maxID: 12, want: false},
		{id: -3, maxID: 12, want: false},
	}

	for _, tc := range tests {
		if got := avatarIDValid(tc.id, tc.maxID); got != tc.want {
			t.Errorf("avatarIDValid(%d, %d) = %v, want %v", tc.id, tc.maxID, got, tc.want)
		}
	}
}
