package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/muziek/internal/shared"
	"github.com/desertthunder/muziek/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath, err := xdg.StateFile(filepath.Join("muziek", "tui.log"))
	if err != nil {
		return fmt.Errorf("failed to resolve log path: %w", err)
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	// Consent and the first exchange happen before the alternate screen takes over the terminal.
	if _, err := tokens.Headers(ctx); err != nil {
		return err
	}

	svc, err := r.playlists()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, svc, ui.Options{CanWrite: tokens.CanWrite(), Browser: r.browser})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
