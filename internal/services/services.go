// package services defines the interfaces the front ends use to reach the YouTube Data API
package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/muziek/internal/models"
)

// Authorizer supplies request headers carrying a valid credential, obtaining or renewing it first when needed.
type Authorizer interface {
	Headers(ctx context.Context) (http.Header, error)
}

// PlaylistService is the remote playlist catalog of the authenticated account.
type PlaylistService interface {
	// Playlists returns every playlist of the account. The collection is fetched once and cached.
	Playlists(ctx context.Context) ([]*models.Playlist, error)

	// GetPlaylist finds a playlist by case-insensitive exact title.
	GetPlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// Entries returns the entries of p, fetching them on first use.
	Entries(ctx context.Context, p *models.Playlist) ([]models.PlaylistEntry, error)

	// CreatePlaylist creates a playlist and adds it to the cached collection.
	CreatePlaylist(ctx context.Context, title, description string, private bool) (*models.Playlist, error)

	// AddSong inserts a video, given by watch URL or bare identifier, at the end of p.
	AddSong(ctx context.Context, p *models.Playlist, ref, note string) (models.PlaylistEntry, error)

	// Invalidate drops every cached playlist and entry.
	Invalidate()

	// Name returns the name of the service (e.g., "YouTube")
	Name() string
}
