package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/muziek/internal/formatter"
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/server"
	"github.com/desertthunder/muziek/internal/shared"
	"github.com/desertthunder/muziek/internal/tasks"
	"github.com/urfave/cli/v3"
)

// YouTubeAuth runs the consent flow and exchanges the resulting code for tokens.
func (r *Runner) YouTubeAuth(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	modify := cmd.Bool("modify") || r.config.YouTube.RequestModify
	r.logger.Info("requesting youtube access", "modify", modify)

	if err := tokens.PromptAccess(ctx, modify); err != nil {
		return err
	}
	// A new code leaves no access token, so this performs the exchange.
	if _, err := tokens.Headers(ctx); err != nil {
		return err
	}

	tok := tokens.Token()
	r.writePlain("✓ Authorization complete\n")
	r.writePlain("Read access: %v\n", tok.CanRead())
	r.writePlain("Write access: %v\n", tok.CanWrite())
	r.writePlain("Expires at: %s\n", tok.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// tokenStatus is the JSON form of the credential state. It never carries token values.
type tokenStatus struct {
	Consented    bool       `json:"consented"`
	Scopes       []string   `json:"scopes"`
	CanRead      bool       `json:"can_read"`
	CanWrite     bool       `json:"can_write"`
	RefreshToken bool       `json:"has_refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Expired      bool       `json:"expired"`
	NeedsRefresh bool       `json:"needs_refresh"`
}

// YouTubeStatus prints what is known about the stored credential without contacting YouTube.
func (r *Runner) YouTubeStatus(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	tok := tokens.Token()
	now := time.Now()

	if cmd.Bool("json") {
		status := tokenStatus{
			Consented:    !tok.NeedsPrompt(),
			Scopes:       tok.Scopes,
			CanRead:      tok.CanRead(),
			CanWrite:     tok.CanWrite(),
			RefreshToken: tok.RefreshToken != "",
			Expired:      tok.Expired(now),
			NeedsRefresh: tok.NeedsRefresh(now),
		}
		if !tok.ExpiresAt.IsZero() {
			status.ExpiresAt = &tok.ExpiresAt
		}
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlainHeader("YouTube credentials")
	if tok.NeedsPrompt() {
		r.writePlain("No consent on record. Run 'muziek youtube auth' to grant access.\n")
		return nil
	}

	r.writePlain("Scopes: %s\n", strings.Join(tok.Scopes, ", "))
	r.writePlain("Read access: %v\n", tok.CanRead())
	r.writePlain("Write access: %v\n", tok.CanWrite())
	r.writePlain("Refresh token: %v\n", tok.RefreshToken != "")
	if !tok.ExpiresAt.IsZero() {
		r.writePlain("Expires at: %s\n", tok.ExpiresAt.Local().Format(time.RFC1123))
		r.writePlain("Expired: %v\n", tok.Expired(now))
	}
	r.writePlain("Needs refresh: %v\n", tok.NeedsRefresh(now))
	return nil
}

// YouTubePlaylists lists the playlists owned by the authorized account.
func (r *Runner) YouTubePlaylists(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.playlists()
	if err != nil {
		return err
	}
	if cmd.Bool("refresh") {
		svc.Invalidate()
	}

	playlists, err := svc.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		data, err := formatter.PlaylistsToJSON(playlists)
		if err != nil {
			return err
		}
		return r.write(data)
	}

	r.writePlain("Found %d playlists\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Title)
		r.writePlain("   ID: %s\n", p.ID)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
	}
	return nil
}

// YouTubeShow prints or exports the entries of a playlist looked up by title.
func (r *Runner) YouTubeShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("playlist")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.playlists()
	if err != nil {
		return err
	}

	p, err := svc.GetPlaylist(ctx, name)
	if err != nil {
		return err
	}

	entries, err := svc.Entries(ctx, p)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" || cmd.Bool("export") {
		path, err := formatter.WriteExport(format, p, entries, output)
		if err != nil {
			return err
		}
		r.logger.Info("playlist exported", "id", p.ID, "path", path)
		r.writePlain("✓ Exported %d entries to %s\n", len(entries), path)
		return nil
	}

	data, err := formatter.Render(format, p, entries)
	if err != nil {
		return err
	}
	return r.write(data)
}

// YouTubeCreate creates a playlist, asking for write consent first when needed.
func (r *Runner) YouTubeCreate(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: playlist title is required", shared.ErrMissingArgument)
	}

	if err := r.requireWrite(ctx); err != nil {
		return err
	}

	svc, err := r.playlists()
	if err != nil {
		return err
	}

	private := cmd.Bool("private")
	r.logger.Info("creating playlist", "title", title, "private", private)

	p, err := svc.CreatePlaylist(ctx, title, cmd.String("description"), private)
	if err != nil {
		return err
	}

	r.writePlain("✓ Playlist created successfully\n")
	r.writePlain("Title: %s\n", p.Title)
	r.writePlain("ID: %s\n", p.ID)
	r.writePlain("Visibility: %s\n", p.Privacy)
	r.writePlain("URL: %s\n", p.URL())
	return nil
}

// YouTubeAdd appends each referenced video to the named playlist.
//
// A bad reference does not stop the remaining songs from being added; all failures are reported together.
func (r *Runner) YouTubeAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: expected a playlist and at least one song", shared.ErrMissingArgument)
	}
	name, refs := args[0], args[1:]

	if err := r.requireWrite(ctx); err != nil {
		return err
	}

	svc, err := r.playlists()
	if err != nil {
		return err
	}

	p, err := svc.GetPlaylist(ctx, name)
	if err != nil {
		return err
	}

	// Appending updates the cached entries only when they are already loaded.
	if _, err := svc.Entries(ctx, p); err != nil {
		return err
	}

	note := cmd.String("note")
	var errs []error
	added := 0
	for _, ref := range refs {
		entry, err := svc.AddSong(ctx, p, ref, note)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
			if isInputError(err) {
				r.logger.Warn("skipping invalid song reference", "ref", ref, "error", err)
				continue
			}

			r.logger.Error("failed to add song", "ref", ref, "error", err)
			if isAuthError(err) {
				break
			}
			continue
		}

		added++
		r.writePlain("✓ Added %s\n", formatEntry(entry))
	}

	entries, _ := p.Entries()
	r.writePlain("\n%d of %d songs added to %q, now %d entries\n", added, len(refs), p.Title, len(entries))
	return errors.Join(errs...)
}

// YouTubeBackup writes playlists to files with a manifest, printing progress as it goes.
func (r *Runner) YouTubeBackup(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.playlists()
	if err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.writePlain("%s\n", update.Message)
		}
	}()

	exporter := tasks.NewExporter(svc, r.logger)
	result, err := exporter.Backup(ctx, prog, tasks.BackupOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		Titles:     cmd.Args().Slice(),
	})
	close(prog)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n✓ Backed up %d of %d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d playlists could not be backed up, see %s", result.FailedExports, result.ManifestPath)
	}
	return nil
}

// YouTubeStop terminates a callback listener bound by another muziek process.
func (r *Runner) YouTubeStop(ctx context.Context, cmd *cli.Command) error {
	addr, err := r.config.YouTube.CallbackAddr()
	if err != nil {
		return err
	}

	if err := server.StopListener(ctx, r.httpClient, addr); err != nil {
		return err
	}

	r.writePlain("✓ Listener on %s stopped\n", addr)
	return nil
}

func formatEntry(e models.PlaylistEntry) string {
	if e.Title == "" {
		return e.VideoID
	}
	return fmt.Sprintf("%s (%s)", e.Title, e.VideoID)
}
