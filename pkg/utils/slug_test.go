package utils

import "testing"

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"My Landing Page":         "my-landing-page",
		"  Café -- Déjà Vu!  ":    "cafe-deja-vu",
		"Привет мир":              "privet-mir",
		"Straße":                  "strasse",
		"Website Export 2024-3-1": "website-export-2024-3-1",
		"***":                     "",
	}

	for input, want := range cases {
		if got := GenerateSlug(input); got != want {
			t.Fatalf("GenerateSlug(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSlugOrDefault(t *testing.T) {
	if got := SlugOrDefault("!!!", "website-export"); got != "website-export" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := SlugOrDefault("Home", "website-export"); got != "home" {
		t.Fatalf("expected slug, got %q", got)
	}
}
