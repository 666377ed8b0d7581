package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/muziek/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = entryItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist *models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	if i.playlist.Description != "" {
		return i.playlist.Description
	}
	return i.playlist.URL()
}

// entryItem wraps [models.PlaylistEntry] to implement [list.Item].
type entryItem struct {
	entry models.PlaylistEntry
}

func (i entryItem) FilterValue() string { return i.entry.Title }
func (i entryItem) Title() string {
	if i.entry.Title == "" {
		return i.entry.VideoID
	}
	return i.entry.Title
}
func (i entryItem) Description() string { return i.entry.PlayableURL() }
