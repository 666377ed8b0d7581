package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/muziek/internal/formatter"
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
)

const manifestName = "manifest.json"

// selection is a playlist picked for backup, or a requested title that matched none.
type selection struct {
	index    int
	title    string
	playlist *models.Playlist
}

type backupJob struct {
	index    int
	playlist *models.Playlist
	entries  []models.PlaylistEntry
}

// Backup writes every selected playlist to its own file in opts.OutputDir and finishes with a manifest.
//
// A playlist that cannot be fetched or written is recorded as failed; the others still complete.
// Titles that match no playlist are recorded as failures with [shared.ErrPlaylistNotFound].
// Results follow the order of opts.Titles, or library order when no titles are given.
func (e *Exporter) Backup(ctx context.Context, prog chan<- ProgressUpdate, opts BackupOpts) (*BackupResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("youtube_backup_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	e.sendProgress(prog, fetchingPlaylistsUpdate())
	all, err := e.svc.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	selected, missing := selectPlaylists(all, opts.Titles)
	total := len(selected) + len(missing)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BackupResult{
		TotalPlaylists:  total,
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistResult, 0, total),
	}

	for i, m := range missing {
		err := fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, m.title)
		result.Results = append(result.Results, PlaylistResult{Title: m.title, Error: err, Message: err.Error(), index: m.index})
		result.FailedExports++
		e.sendProgress(prog, exportFailedUpdate(i+1, total, m.title, err))
	}

	jobs := make(chan backupJob, len(selected))
	results := make(chan PlaylistResult, len(selected))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.backupWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, s := range selected {
			if ctx.Err() != nil {
				return
			}

			p := s.playlist
			e.sendProgress(prog, fetchingEntriesUpdate(i+1, len(selected), p.Title))
			entries, err := e.svc.Entries(ctx, p)
			if err != nil {
				e.logger.Warn("failed to fetch entries", "playlist", p.ID, "error", err)
				results <- failed(s.index, p, fmt.Errorf("failed to fetch entries: %w", err))
				continue
			}

			jobs <- backupJob{index: s.index, playlist: p, entries: entries}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := len(missing)
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, total, res.Title, res.Entries))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, total, res.Title, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	slices.SortFunc(result.Results, func(a, b PlaylistResult) int { return a.index - b.index })

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("backup completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("backup finished", "dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// backupWorker renders and writes playlists from the jobs channel.
func (e *Exporter) backupWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan backupJob,
	results chan<- PlaylistResult,
	opts BackupOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- e.writePlaylist(job, opts)
	}
}

// writePlaylist writes a single playlist to {OutputDir}/{ID}.{ext}.
func (e *Exporter) writePlaylist(j backupJob, opts BackupOpts) PlaylistResult {
	path := filepath.Join(opts.OutputDir, j.playlist.ID+"."+opts.Format.Extension())

	written, err := formatter.WriteExport(opts.Format, j.playlist, j.entries, path)
	if err != nil {
		return failed(j.index, j.playlist, fmt.Errorf("%s export failed: %w", opts.Format, err))
	}

	return PlaylistResult{
		PlaylistID: j.playlist.ID,
		Title:      j.playlist.Title,
		Entries:    len(j.entries),
		File:       written,
		Success:    true,
		index:      j.index,
	}
}

func failed(index int, p *models.Playlist, err error) PlaylistResult {
	return PlaylistResult{
		PlaylistID: p.ID,
		Title:      p.Title,
		Error:      err,
		Message:    err.Error(),
		index:      index,
	}
}

// selectPlaylists resolves titles case-insensitively, indexing each by its position in the request.
// A playlist named twice is backed up once. With no titles every playlist is kept in library order.
func selectPlaylists(all []*models.Playlist, titles []string) (selected, missing []selection) {
	if len(titles) == 0 {
		for i, p := range all {
			selected = append(selected, selection{index: i, title: p.Title, playlist: p})
		}
		return selected, nil
	}

	for i, title := range titles {
		idx := slices.IndexFunc(all, func(p *models.Playlist) bool { return strings.EqualFold(p.Title, title) })
		if idx < 0 {
			missing = append(missing, selection{index: i, title: title})
			continue
		}
		p := all[idx]
		if slices.ContainsFunc(selected, func(s selection) bool { return s.playlist == p }) {
			continue
		}
		selected = append(selected, selection{index: i, title: title, playlist: p})
	}
	return selected, missing
}

func writeManifest(result *BackupResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
