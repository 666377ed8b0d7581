package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/muziek/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgEntriesFetched
	MsgPlaylistCreated
	MsgSongAdded
	MsgOpened
)

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []*models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlists, err: err}
}

// entriesFetchedMsg is the constructor for [MsgEntriesFetched]
func entriesFetchedMsg(p *models.Playlist, err error) Msg {
	return Msg{kind: MsgEntriesFetched, data: p, err: err}
}

// playlistCreatedMsg is the constructor for [MsgPlaylistCreated]
func playlistCreatedMsg(p *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistCreated, data: p, err: err}
}

// songAddedMsg is the constructor for [MsgSongAdded]
func songAddedMsg(entry models.PlaylistEntry, err error) Msg {
	return Msg{kind: MsgSongAdded, data: entry, err: err}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(url string, err error) Msg {
	return Msg{kind: MsgOpened, data: url, err: err}
}
