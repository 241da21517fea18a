package exchange

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"page-composer-backend/internal/document"
	"page-composer-backend/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func page() []models.Section {
	return []models.Section{
		{ID: "hero-1", Type: models.SectionHero, Props: models.HeroProps{Title: "Hi"}, Order: 0},
		{ID: "content-1", Type: models.SectionContent, Props: models.ContentProps{Title: "About"}, Order: 1},
	}
}

func TestExportFillsDefaults(t *testing.T) {
	doc := Export(page(), Metadata{}, fixedNow)

	if doc.Metadata.Name != "Website Export 2024-03-01" {
		t.Fatalf("unexpected default name %q", doc.Metadata.Name)
	}
	if doc.Metadata.Description != "Exported website configuration" || doc.Metadata.Author != "Website Builder User" {
		t.Fatalf("unexpected defaults %+v", doc.Metadata)
	}
	if !reflect.DeepEqual(doc.Metadata.Tags, []string{"website", "builder"}) {
		t.Fatalf("unexpected tags %v", doc.Metadata.Tags)
	}
	if doc.Metadata.Version != "1.0.0" || !doc.Metadata.CreatedAt.Equal(fixedNow) || !doc.Metadata.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected version or timestamps %+v", doc.Metadata)
	}
}

func TestExportOverridesWinAndSectionsAreCopied(t *testing.T) {
	sections := page()
	created := fixedNow.Add(-48 * time.Hour)

	doc := Export(sections, Metadata{Name: "My <b>Site</b>", Tags: []string{"landing"}, CreatedAt: created, URL: "https://example.com"}, fixedNow)

	if doc.Metadata.Name != "My Site" {
		t.Fatalf("expected sanitised override, got %q", doc.Metadata.Name)
	}
	if !reflect.DeepEqual(doc.Metadata.Tags, []string{"landing"}) || doc.Metadata.URL != "https://example.com" {
		t.Fatalf("overrides not applied: %+v", doc.Metadata)
	}
	if !doc.Metadata.CreatedAt.Equal(created) || !doc.Metadata.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timestamps %+v", doc.Metadata)
	}

	doc.Sections[0].ID = "changed"
	if sections[0].ID != "hero-1" {
		t.Fatalf("export aliased the live sections")
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		want   string
	}{
		{"My Landing Page!", FormatJSON, "my-landing-page-2024-03-01.json"},
		{"Café Menu", FormatYAML, "cafe-menu-2024-03-01.yaml"},
		{"???", FormatJSON, "website-export-2024-03-01.json"},
	}
	for _, tc := range cases {
		if got := Filename(Metadata{Name: tc.name}, fixedNow, tc.format); got != tc.want {
			t.Fatalf("Filename(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEncodeDecodeJSONAndYAML(t *testing.T) {
	doc := Export(page(), Metadata{Name: "Round Trip"}, fixedNow)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			encoded, err := Encode(doc, format)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := Decode(encoded, format)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !document.Equal(decoded.Sections, doc.Sections) {
				t.Fatalf("sections differ after round trip: %+v", decoded.Sections)
			}
			if decoded.Metadata.Name != "Round Trip" || !decoded.Metadata.CreatedAt.Equal(fixedNow) {
				t.Fatalf("metadata differs after round trip: %+v", decoded.Metadata)
			}
		})
	}
}

func TestValidateRejectsNonArraySections(t *testing.T) {
	result := ParseAndValidate([]byte(`{"sections":"not-an-array","metadata":{"name":"x","version":"1.0.0"}}`), FormatJSON)

	if result.IsValid || result.Data != nil {
		t.Fatalf("expected invalid result, got %+v", result)
	}
	if !contains(result.Errors, "Missing or invalid sections field") {
		t.Fatalf("expected sections error, got %v", result.Errors)
	}
}

func TestValidateReportsEverySectionProblem(t *testing.T) {
	input := `{
		"metadata": {"version": "1.0.0"},
		"sections": [
			{"id": "a", "type": "hero", "props": {}, "order": 0},
			{"type": "hero", "props": {}, "order": 1},
			{"id": "c", "type": "carousel", "props": {}, "order": 2},
			{"id": "d", "type": "content", "props": "x", "order": "3"},
			42
		]
	}`

	result := ParseAndValidate([]byte(input), FormatJSON)

	want := []string{
		"Section 2: Missing or invalid id",
		`Section 3: Unknown section type "carousel"`,
		"Section 4: Missing or invalid props",
		"Section 4: Missing or invalid order",
		"Section 5: Invalid section format",
	}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Fatalf("unexpected errors:\n%v\nwant\n%v", result.Errors, want)
	}
	if !contains(result.Warnings, "Missing or invalid metadata name") {
		t.Fatalf("expected missing name warning, got %v", result.Warnings)
	}
}

func TestValidateVersionMismatchIsWarningOnly(t *testing.T) {
	input := `{"version":"0.9.0","metadata":{"name":"Old"},"sections":[{"id":"a","type":"footer","props":{"copyright":"(c)"},"order":0}]}`

	result := ParseAndValidate([]byte(input), FormatJSON)

	if !result.IsValid {
		t.Fatalf("expected valid result, got errors %v", result.Errors)
	}
	if !contains(result.Warnings, "Version mismatch: expected 1.0.0, got 0.9.0") {
		t.Fatalf("expected version warning, got %v", result.Warnings)
	}
	footer, ok := result.Data.Sections[0].Props.(models.FooterProps)
	if !ok || footer.Copyright != "(c)" {
		t.Fatalf("props not decoded into the footer variant: %#v", result.Data.Sections[0].Props)
	}
}

func TestValidateWarnsAboutMissingMetadataVersion(t *testing.T) {
	input := `{"version":"1.0.0","metadata":{"name":"Page"},"sections":[{"id":"a","type":" Hero ","props":{"title":"Hi"},"order":0}]}`

	result := ParseAndValidate([]byte(input), FormatJSON)

	if !result.IsValid {
		t.Fatalf("expected valid result, got errors %v", result.Errors)
	}
	if !contains(result.Warnings, "Missing builder version in metadata") {
		t.Fatalf("expected missing builder version warning, got %v", result.Warnings)
	}
	if contains(result.Warnings, "Version mismatch: expected 1.0.0, got 1.0.0") {
		t.Fatalf("matching top-level version must not warn: %v", result.Warnings)
	}
	if got := result.Data.Sections[0].Type; got != models.SectionHero {
		t.Fatalf("expected normalised hero type, got %q", got)
	}
	if _, ok := result.Data.Sections[0].Props.(models.HeroProps); !ok {
		t.Fatalf("props not decoded into the hero variant: %#v", result.Data.Sections[0].Props)
	}
}

func TestValidateRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[]`, `"text"`, `null`} {
		result := ParseAndValidate([]byte(input), FormatJSON)
		if result.IsValid {
			t.Fatalf("expected %s to be invalid", input)
		}
	}

	result := ParseAndValidate([]byte(`{not json`), FormatJSON)
	if result.IsValid || len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "invalid JSON") {
		t.Fatalf("expected a parse error, got %+v", result)
	}
}

func TestDecodeWrapsInvalidDocument(t *testing.T) {
	_, err := Decode([]byte(`{"sections":[]}`), FormatJSON)
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestMergeAppendIssuesFreshIDs(t *testing.T) {
	existing := page()
	imported := []models.Section{
		{ID: "hero-1", Type: models.SectionHero, Props: models.HeroProps{Title: "Imported"}, Order: 5},
		{ID: "footer-9", Type: models.SectionFooter, Props: models.FooterProps{}, Order: 6},
	}

	merged, err := Merge(imported, existing, Options{MergeMode: MergeAppend}, document.NewSequenceGenerator(1))
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	want := []string{"hero-1", "content-1", "hero#1", "footer#2"}
	if !reflect.DeepEqual(document.IDs(merged), want) {
		t.Fatalf("expected %v, got %v", want, document.IDs(merged))
	}
	if !document.HasContiguousOrder(merged) {
		t.Fatalf("order not renumbered: %+v", merged)
	}
	if imported[0].ID != "hero-1" || imported[0].Order != 5 {
		t.Fatalf("imported sections were mutated")
	}
}

func TestMergeModes(t *testing.T) {
	imported := []models.Section{{ID: "x", Type: models.SectionContent, Props: models.ContentProps{}}}

	cases := []struct {
		name string
		opts Options
		want []string
	}{
		{"replace", Options{MergeMode: MergeReplace, PreserveIDs: true}, []string{"x"}},
		{"replace existing wins", Options{MergeMode: MergeAppend, ReplaceExisting: true, PreserveIDs: true}, []string{"x"}},
		{"prepend", Options{MergeMode: MergePrepend, PreserveIDs: true}, []string{"x", "hero-1", "content-1"}},
		{"append", Options{MergeMode: MergeAppend, PreserveIDs: true}, []string{"hero-1", "content-1", "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			merged, err := Merge(imported, page(), tc.opts, document.NewSequenceGenerator(1))
			if err != nil {
				t.Fatalf("merge: %v", err)
			}
			if !reflect.DeepEqual(document.IDs(merged), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, document.IDs(merged))
			}
			if !document.HasContiguousOrder(merged) {
				t.Fatalf("order not contiguous")
			}
		})
	}
}

func TestMergePreserveIDsReissuesCollisions(t *testing.T) {
	imported := []models.Section{
		{ID: "content-1", Type: models.SectionContent, Props: models.ContentProps{}},
		{ID: "new", Type: models.SectionContent, Props: models.ContentProps{}},
		{ID: "new", Type: models.SectionContent, Props: models.ContentProps{}},
	}

	merged, err := Merge(imported, page(), Options{MergeMode: MergeAppend, PreserveIDs: true}, document.NewSequenceGenerator(1))
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	want := []string{"hero-1", "content-1", "content#1", "new", "content#2"}
	if !reflect.DeepEqual(document.IDs(merged), want) {
		t.Fatalf("expected %v, got %v", want, document.IDs(merged))
	}
}

func TestMergeRejectsUnknownMode(t *testing.T) {
	_, err := Merge(nil, page(), Options{MergeMode: "interleave"}, document.NewSequenceGenerator(1))
	if err == nil {
		t.Fatalf("expected invalid options error")
	}
}

func TestPickersAndDownloaders(t *testing.T) {
	ctx := context.Background()

	if _, err := (StaticPicker{}).Pick(ctx); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled from empty picker, got %v", err)
	}
	if _, err := (PathPicker{}).Pick(ctx); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled from empty path, got %v", err)
	}

	dir := t.TempDir()
	downloader := DirDownloader{Dir: filepath.Join(dir, "exports")}
	if err := downloader.Download(ctx, "../escape.json", []byte("{}")); err != nil {
		t.Fatalf("download: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "exports", "escape.json")); err != nil {
		t.Fatalf("expected file inside the export dir: %v", err)
	}

	file, err := PathPicker{Path: filepath.Join(dir, "exports", "escape.json")}.Pick(ctx)
	if err != nil || file.Name != "escape.json" || string(file.Data) != "{}" {
		t.Fatalf("unexpected picked file %+v, %v", file, err)
	}

	memory := &MemoryDownloader{}
	if err := memory.Download(ctx, "a.json", []byte("data")); err != nil {
		t.Fatalf("download: %v", err)
	}
	if name, data := memory.Last(); name != "a.json" || string(data) != "data" {
		t.Fatalf("unexpected last download %q %q", name, data)
	}
}

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
