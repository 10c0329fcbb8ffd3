package rebuild

import (
	"strings"
	"testing"
)

func TestSplitPages_roundTrip(t *testing.T) {
	cases := []struct {
		name    string
		content string
		pages   int
	}{
		{"single page", "only page", 1},
		{"two pages", "A\x0CB", 2},
		{"empty content", "", 1},
		{"trailing marker keeps empty page", "A\x0C", 2},
		{"three pages", "first\x0Csecond\x0Cthird", 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pages := SplitPages(tc.content)
			if len(pages) != tc.pages {
				t.Fatalf("expected %d pages, got %d", tc.pages, len(pages))
			}
			// Page numbers are zero-based and dense.
			parts := make([]string, len(pages))
			for i, p := range pages {
				if p.Page != i {
					t.Fatalf("page %d numbered %d", i, p.Page)
				}
				parts[i] = p.Content
			}
			// Joining with the marker reproduces the stored content.
			if joined := strings.Join(parts, PageEndMarker); joined != tc.content {
				t.Fatalf("round trip mismatch: %q != %q", joined, tc.content)
			}
		})
	}
}

func TestIsTextExtractable(t *testing.T) {
	extractable := []string{
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
		"text/plain",
		"text/markdown",
		"TEXT/PLAIN",
		"text/plain; charset=utf-8",
		"message/rfc822",
	}
	for _, mime := range extractable {
		if !IsTextExtractable(mime) {
			t.Errorf("expected %q to be text extractable", mime)
		}
	}

	opaque := []string{
		"image/png",
		"application/zip",
		"application/octet-stream",
		"video/mp4",
		"",
	}
	for _, mime := range opaque {
		if IsTextExtractable(mime) {
			t.Errorf("expected %q not to be text extractable", mime)
		}
	}
}
