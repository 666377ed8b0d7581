package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/muziek/internal/formatter"
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
	th "github.com/desertthunder/muziek/internal/testing"
)

// flakyEntries fails entry fetches for selected playlist IDs.
type flakyEntries struct {
	*th.MockPlaylistService
	fail map[string]error
}

func (f *flakyEntries) Entries(ctx context.Context, p *models.Playlist) ([]models.PlaylistEntry, error) {
	if err, ok := f.fail[p.ID]; ok {
		return nil, err
	}
	return f.MockPlaylistService.Entries(ctx, p)
}

func newLibrary(n int) *th.MockPlaylistService {
	svc := &th.MockPlaylistService{Songs: map[string][]models.PlaylistEntry{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("PL%d", i)
		svc.Items = append(svc.Items, &models.Playlist{ID: id, Title: fmt.Sprintf("Playlist %d", i)})
		for j := 1; j <= i; j++ {
			svc.Songs[id] = append(svc.Songs[id], models.PlaylistEntry{
				ID:      fmt.Sprintf("%s-I%d", id, j),
				VideoID: fmt.Sprintf("vid%08d", i*100+j),
				Title:   fmt.Sprintf("Song %d.%d", i, j),
			})
		}
	}
	return svc
}

func quietLogger() *bytes.Buffer { return &bytes.Buffer{} }

func readManifest(t *testing.T, path string) BackupResult {
	t.Helper()

	var manifest BackupResult
	if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &manifest); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return manifest
}

func TestBackup_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name      string
		format    formatter.Format
		count     int
		workers   int
		wantFile  string
		wantInRow string
	}{
		{name: "single playlist as text", format: formatter.FormatText, count: 1, workers: 1, wantFile: "PL1.txt", wantInRow: "1. Song 1.1"},
		{name: "several playlists as csv", format: formatter.FormatCSV, count: 3, workers: 2, wantFile: "PL3.csv", wantInRow: "3,vid00000303,Song 3.3"},
		{name: "markdown with more workers than playlists", format: formatter.FormatMarkdown, count: 2, workers: 6, wantFile: "PL2.md", wantInRow: "# [Playlist 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			e := NewExporter(newLibrary(tt.count), shared.NewLogger(quietLogger()))

			result, err := e.Backup(context.Background(), nil, BackupOpts{Format: tt.format, OutputDir: dir, NumWorkers: tt.workers})
			if err != nil {
				t.Fatalf("Backup failed: %v", err)
			}

			if result.TotalPlaylists != tt.count || result.SuccessfulExports != tt.count || result.FailedExports != 0 {
				t.Errorf("unexpected counts: %+v", result)
			}
			for i, res := range result.Results {
				if want := fmt.Sprintf("PL%d", i+1); res.PlaylistID != want {
					t.Errorf("result %d: expected %s, got %s", i, want, res.PlaylistID)
				}
				if res.Entries != i+1 {
					t.Errorf("result %d: expected %d entries, got %d", i, i+1, res.Entries)
				}
			}

			path := filepath.Join(dir, tt.wantFile)
			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, tt.wantInRow) {
				t.Errorf("expected %q in %s, got %s", tt.wantInRow, tt.wantFile, content)
			}

			if result.ManifestPath != filepath.Join(dir, "manifest.json") {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}
			manifest := readManifest(t, result.ManifestPath)
			if manifest.SuccessfulExports != tt.count || manifest.Format != tt.format {
				t.Errorf("unexpected manifest: %+v", manifest)
			}
		})
	}
}

func TestBackup_PartialFailures(t *testing.T) {
	svc := &flakyEntries{
		MockPlaylistService: newLibrary(3),
		fail:                map[string]error{"PL2": shared.ErrAPIRequest},
	}
	dir := t.TempDir()
	e := NewExporter(svc, shared.NewLogger(quietLogger()))

	result, err := e.Backup(context.Background(), nil, BackupOpts{OutputDir: dir})
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if result.SuccessfulExports != 2 || result.FailedExports != 1 {
		t.Fatalf("expected 2 ok and 1 failed, got %+v", result)
	}

	res := result.Results[1]
	if res.PlaylistID != "PL2" || res.Success {
		t.Errorf("expected PL2 to fail, got %+v", res)
	}
	if !errors.Is(res.Error, shared.ErrAPIRequest) {
		t.Errorf("expected ErrAPIRequest, got %v", res.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "PL2.txt")); !os.IsNotExist(err) {
		t.Error("expected no file for the failed playlist")
	}

	manifest := readManifest(t, result.ManifestPath)
	if !strings.Contains(manifest.Results[1].Message, "failed to fetch entries") {
		t.Errorf("expected error message in manifest, got %+v", manifest.Results[1])
	}
}

func TestBackup_SelectedTitles(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(newLibrary(3), shared.NewLogger(quietLogger()))

	result, err := e.Backup(context.Background(), nil, BackupOpts{
		OutputDir: dir,
		Titles:    []string{"playlist 3", "Nope", "PLAYLIST 1"},
	})
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if result.TotalPlaylists != 3 || result.SuccessfulExports != 2 || result.FailedExports != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Results[0].PlaylistID != "PL3" || result.Results[2].PlaylistID != "PL1" {
		t.Errorf("expected requested order, got %+v", result.Results)
	}
	if res := result.Results[1]; res.Title != "Nope" || !errors.Is(res.Error, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound in the slot of the unknown title, got %+v", res)
	}

	manifest := readManifest(t, result.ManifestPath)
	titles := []string{manifest.Results[0].Title, manifest.Results[1].Title, manifest.Results[2].Title}
	if !slices.Equal(titles, []string{"Playlist 3", "Nope", "Playlist 1"}) {
		t.Errorf("expected manifest in requested order, got %v", titles)
	}
	if _, err := os.Stat(filepath.Join(dir, "PL2.txt")); !os.IsNotExist(err) {
		t.Error("expected unselected playlist to be skipped")
	}
}

func TestBackup_RepeatedTitles(t *testing.T) {
	e := NewExporter(newLibrary(2), shared.NewLogger(quietLogger()))

	result, err := e.Backup(context.Background(), nil, BackupOpts{
		OutputDir: t.TempDir(),
		Titles:    []string{"Missing", "Playlist 2", "playlist 2", "Playlist 1"},
	})
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if result.TotalPlaylists != 3 || result.SuccessfulExports != 2 {
		t.Fatalf("expected the repeated title to be backed up once, got %+v", result)
	}
	var ids []string
	for _, res := range result.Results {
		ids = append(ids, res.PlaylistID)
	}
	if !slices.Equal(ids, []string{"", "PL2", "PL1"}) {
		t.Errorf("expected requested order, got %v", ids)
	}
}

func TestBackup_ServiceError(t *testing.T) {
	svc := &th.MockPlaylistService{Err: shared.ErrRefreshFailed}
	e := NewExporter(svc, shared.NewLogger(quietLogger()))

	_, err := e.Backup(context.Background(), nil, BackupOpts{OutputDir: t.TempDir()})
	if !errors.Is(err, shared.ErrRefreshFailed) {
		t.Errorf("expected ErrRefreshFailed, got %v", err)
	}
}

func TestBackup_NilService(t *testing.T) {
	e := NewExporter(nil, nil)

	_, err := e.Backup(context.Background(), nil, BackupOpts{})
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestBackup_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExporter(newLibrary(5), shared.NewLogger(quietLogger()))
	dir := t.TempDir()

	_, err := e.Backup(ctx, nil, BackupOpts{OutputDir: dir})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); !os.IsNotExist(err) {
		t.Error("expected no manifest for a cancelled backup")
	}
}

func TestBackup_DefaultOptions(t *testing.T) {
	tempDir := t.TempDir()
	originalDir := th.MustGetwd(t)
	th.MustChdir(t, tempDir)
	defer th.MustChdir(t, originalDir)

	e := NewExporter(newLibrary(1), shared.NewLogger(quietLogger()))
	result, err := e.Backup(context.Background(), nil, BackupOpts{})
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if !strings.HasPrefix(result.OutputDirectory, "youtube_backup_") {
		t.Errorf("expected default directory, got %s", result.OutputDirectory)
	}
	if result.Format != formatter.FormatText {
		t.Errorf("expected text format by default, got %s", result.Format)
	}
	th.AssertFileExists(t, filepath.Join(result.OutputDirectory, "PL1.txt"))
}

func TestBackup_InvalidOutputDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	e := NewExporter(newLibrary(1), shared.NewLogger(quietLogger()))
	_, err := e.Backup(context.Background(), nil, BackupOpts{OutputDir: filepath.Join(file, "sub")})
	if err == nil || !strings.Contains(err.Error(), "failed to create output directory") {
		t.Errorf("expected directory error, got %v", err)
	}
}

func TestBackup_ProgressUpdates(t *testing.T) {
	prog := make(chan ProgressUpdate, 100)
	e := NewExporter(newLibrary(2), shared.NewLogger(quietLogger()))

	if _, err := e.Backup(context.Background(), prog, BackupOpts{OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	close(prog)

	phases := map[Phase]int{}
	for u := range prog {
		phases[u.Phase]++
		if u.Message == "" {
			t.Errorf("update without message: %+v", u)
		}
	}

	if phases[FetchPlaylists] != 1 || phases[FetchEntries] != 2 || phases[ExportPlaylist] != 2 {
		t.Errorf("unexpected phase counts: %v", phases)
	}
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	e := NewExporter(nil, nil)
	prog := make(chan ProgressUpdate) // unbuffered, never read

	e.sendProgress(prog, fetchingPlaylistsUpdate())
	e.sendProgress(nil, fetchingPlaylistsUpdate())
}

func TestPhase_String(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylists: "fetch_playlists",
		FetchEntries:   "fetch_entries",
		ExportPlaylist: "export_playlist",
		Phase(99):      "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
