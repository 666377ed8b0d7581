package models

import "net/url"

const watchURL = "https://www.youtube.com/watch"

// PlaylistEntry is one video in a playlist.
type PlaylistEntry struct {
	ID      string `json:"id,omitempty"` // playlist item id
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

// NewPlaylistEntry validates videoID and builds an entry.
func NewPlaylistEntry(id, videoID, title string) (PlaylistEntry, error) {
	if !videoIDPattern.MatchString(videoID) {
		return PlaylistEntry{}, &ValidationError{Field: "video id", Value: videoID}
	}
	return PlaylistEntry{ID: id, VideoID: videoID, Title: title}, nil
}

// PlayableURL is the watch page for the entry's video.
func (e PlaylistEntry) PlayableURL() string {
	return watchURL + "?" + url.Values{"v": {e.VideoID}}.Encode()
}

// Playlist is a remote playlist.
//
// Entries are fetched lazily and cached for the lifetime of the value.
type Playlist struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Privacy     string `json:"privacy"`

	entries []PlaylistEntry
	loaded  bool
}

// URL is the public page of the playlist.
func (p *Playlist) URL() string {
	return "https://www.youtube.com/playlist?" + url.Values{"list": {p.ID}}.Encode()
}

// Entries returns the cached entries and whether they have been fetched.
func (p *Playlist) Entries() ([]PlaylistEntry, bool) {
	return p.entries, p.loaded
}

// SetEntries caches a fully fetched entry list.
func (p *Playlist) SetEntries(entries []PlaylistEntry) {
	p.entries = entries
	p.loaded = true
}

// AppendEntry adds e to the cached entries. It does nothing until entries are loaded.
func (p *Playlist) AppendEntry(e PlaylistEntry) {
	if p.loaded {
		p.entries = append(p.entries, e)
	}
}

// InvalidateEntries drops the cached entries so the next read refetches them.
func (p *Playlist) InvalidateEntries() {
	p.entries = nil
	p.loaded = false
}
