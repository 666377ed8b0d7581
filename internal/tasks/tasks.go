package tasks

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/muziek/internal/formatter"
	"github.com/desertthunder/muziek/internal/services"
	"github.com/desertthunder/muziek/internal/shared"
)

// BackupOpts contains configuration for a playlist backup.
type BackupOpts struct {
	Format     formatter.Format // file format for each playlist (default: text)
	OutputDir  string           // target directory (default: youtube_backup_{epoch})
	NumWorkers int              // concurrent file writers (default: 4, max: 8)
	Titles     []string         // playlists to include, all when empty
}

// BackupResult summarizes a backup run. It is also written as the manifest.
type BackupResult struct {
	TotalPlaylists    int              `json:"total_playlists"`
	SuccessfulExports int              `json:"successful_exports"`
	FailedExports     int              `json:"failed_exports"`
	Format            formatter.Format `json:"format"`
	OutputDirectory   string           `json:"output_directory"`
	ManifestPath      string           `json:"-"`
	Results           []PlaylistResult `json:"results"`
}

// PlaylistResult is the outcome of backing up one playlist.
type PlaylistResult struct {
	PlaylistID string `json:"playlist_id,omitempty"`
	Title      string `json:"title"`
	Entries    int    `json:"entries"`
	File       string `json:"file,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"error,omitempty"`
	Error      error  `json:"-"`

	index int
}

// Exporter writes playlists of a [services.PlaylistService] to disk.
//
// Remote calls are made one at a time from a single goroutine; only rendering and file writes run on the worker pool.
type Exporter struct {
	svc    services.PlaylistService
	logger *log.Logger
}

// NewExporter creates an [Exporter] over svc.
func NewExporter(svc services.PlaylistService, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{svc: svc, logger: shared.WithLogger(logger, "component", "backup")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
