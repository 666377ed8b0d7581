// package formatter renders playlists and their entries (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat accepts a format name, ignoring case. "md" is short for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want text, markdown or csv)", shared.ErrInvalidArgument, s)
}

// Extension is the file extension used for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "txt"
	}
}

// Render converts a playlist and its entries to f.
func Render(f Format, p *models.Playlist, entries []models.PlaylistEntry) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return ToMarkdown(p, entries)
	case FormatCSV:
		return ToCSV(entries)
	case FormatText:
		return ToText(p, entries)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
}

// ToCSV converts entries to CSV format with columns: Position, Video ID, Title, URL
func ToCSV(entries []models.PlaylistEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Video ID", "Title", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, e := range entries {
		record := []string{strconv.Itoa(i + 1), e.VideoID, e.Title, e.PlayableURL()}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a playlist to Markdown with a linked list of entries
func ToMarkdown(p *models.Playlist, entries []models.PlaylistEntry) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# [%s](%s)\n\n", p.Title, p.URL())

	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}
	if p.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", p.Owner)
	}
	fmt.Fprintf(&buf, "**Entries**: %d\n\n", len(entries))

	buf.WriteString("## Entries\n\n")
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. [%s](%s)\n", i+1, escapeMarkdown(e.Title), e.PlayableURL())
	}

	return buf.Bytes(), nil
}

// ToText converts a playlist to plain text format
func ToText(p *models.Playlist, entries []models.PlaylistEntry) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "URL: %s\n", p.URL())
	fmt.Fprintf(&buf, "Entries: %d\n\n", len(entries))

	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s <%s>\n", i+1, e.Title, e.PlayableURL())
	}

	return buf.Bytes(), nil
}

// PlaylistsToJSON renders playlist metadata (without entries) as indented JSON
func PlaylistsToJSON(playlists []*models.Playlist) ([]byte, error) {
	if playlists == nil {
		playlists = []*models.Playlist{}
	}

	data, err := json.MarshalIndent(playlists, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlists: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport renders a playlist to f and writes it to path.
//
// Defaults to {playlist.ID}.{ext} as the filename.
func WriteExport(f Format, p *models.Playlist, entries []models.PlaylistEntry, path string) (string, error) {
	if path == "" {
		path = p.ID + "." + f.Extension()
	}

	data, err := Render(f, p, entries)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

var markdownEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
