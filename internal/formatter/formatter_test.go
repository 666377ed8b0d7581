package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
	th "github.com/desertthunder/muziek/internal/testing"
)

func fixture() (*models.Playlist, []models.PlaylistEntry) {
	p := &models.Playlist{
		ID:          "PLtest123",
		Title:       "Test Playlist",
		Description: "A test playlist",
		Owner:       "someone",
	}
	entries := []models.PlaylistEntry{
		{ID: "I1", VideoID: "dQw4w9WgXcQ", Title: "Song One"},
		{ID: "I2", VideoID: "f1N5lZw7e78", Title: "Song [Two], live"},
	}
	return p, entries
}

func TestExporters(t *testing.T) {
	p, entries := fixture()

	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(entries)
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.HasPrefix(output, "Position,Video ID,Title,URL\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,dQw4w9WgXcQ,Song One,https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
			t.Errorf("CSV missing first entry, got: %s", output)
		}
		if !strings.Contains(output, `2,f1N5lZw7e78,"Song [Two], live",`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
	})

	t.Run("ToMarkdown", func(t *testing.T) {
		data, err := ToMarkdown(p, entries)
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}

		output := string(data)

		for _, want := range []string{
			"# [Test Playlist](https://www.youtube.com/playlist?list=PLtest123)",
			"**Description**: A test playlist",
			"**Owner**: someone",
			"**Entries**: 2",
			"## Entries",
			"1. [Song One](https://www.youtube.com/watch?v=dQw4w9WgXcQ)",
			`2. [Song \[Two\], live](https://www.youtube.com/watch?v=f1N5lZw7e78)`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ToText", func(t *testing.T) {
		data, err := ToText(p, entries)
		if err != nil {
			t.Fatalf("ToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Playlist: Test Playlist") {
			t.Errorf("Text missing playlist title")
		}
		if !strings.Contains(output, "Description: A test playlist") {
			t.Errorf("Text missing description")
		}
		if !strings.Contains(output, "Entries: 2") {
			t.Errorf("Text missing entry count")
		}
		if !strings.Contains(output, "1. Song One <https://www.youtube.com/watch?v=dQw4w9WgXcQ>") {
			t.Errorf("Text missing first entry, got: %s", output)
		}
	})

	t.Run("ToText without entries", func(t *testing.T) {
		data, err := ToText(&models.Playlist{ID: "PL0", Title: "Empty"}, nil)
		if err != nil {
			t.Fatalf("ToText failed: %v", err)
		}
		if strings.Contains(string(data), "Description:") {
			t.Errorf("Text should omit an empty description")
		}
		if !strings.Contains(string(data), "Entries: 0") {
			t.Errorf("Text missing entry count")
		}
	})

	t.Run("PlaylistsToJSON", func(t *testing.T) {
		data, err := PlaylistsToJSON([]*models.Playlist{p})
		if err != nil {
			t.Fatalf("PlaylistsToJSON failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, `"id": "PLtest123"`) {
			t.Errorf("JSON missing id field, got: %s", output)
		}
		if !strings.Contains(output, `"title": "Test Playlist"`) {
			t.Errorf("JSON missing title field")
		}

		empty, err := PlaylistsToJSON(nil)
		if err != nil {
			t.Fatalf("PlaylistsToJSON failed: %v", err)
		}
		if string(empty) != "[]\n" {
			t.Errorf("expected empty array, got %q", empty)
		}
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "md": FormatMarkdown, "markdown": FormatMarkdown, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWriteExport(t *testing.T) {
	p, entries := fixture()

	t.Run("WithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteExport(FormatCSV, p, entries, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "PLtest123.csv" {
			t.Errorf("Expected 'PLtest123.csv', got '%s'", path)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "dQw4w9WgXcQ") {
			t.Errorf("CSV missing entry data")
		}
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.md")

		got, err := WriteExport(FormatMarkdown, p, entries, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("Expected '%s', got '%s'", path, got)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, "# [Test Playlist]") {
			t.Errorf("Markdown file missing title")
		}
	})

	t.Run("InvalidDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.txt")
		if _, err := WriteExport(FormatText, p, entries, path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
