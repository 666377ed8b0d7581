package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/repositories"
	"github.com/desertthunder/muziek/internal/services"
	"github.com/desertthunder/muziek/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The settings store, token manager and YouTube client are built on first use so commands that
// need none of them (setup, stop) never open the database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	browser    shared.BrowserOpener
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	store   models.SettingsStore
	tokens  *services.TokenManager
	youtube services.PlaylistService
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      models.SettingsStore
	YouTube    services.PlaylistService
	Browser    shared.BrowserOpener
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Browser == nil {
		opts.Browser = shared.SystemBrowser{}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		youtube:    opts.YouTube,
		browser:    opts.Browser,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){setupCommand, youtubeCommand, tuiCommand} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before resolves the configuration file and log level ahead of every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	if r.config != nil {
		return ctx, nil
	}

	path, err := shared.FindConfigFile(r.configPath)
	if err != nil {
		r.logger.Debug("no config file found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}

	r.logger.Debug("loaded config", "path", path)
	r.config = config
	return ctx, nil
}

// After releases the database handle, if one was opened.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}

	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) settings() (models.SettingsStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	var db *sql.DB
	if backend := r.config.Settings.Backend; backend == "" || backend == "sqlite" {
		var err error
		if db, err = shared.OpenDatabase(r.config); err != nil {
			return nil, err
		}
		r.db = db
	}

	store, err := repositories.OpenSettings(r.config.Settings, db)
	if err != nil {
		return nil, err
	}

	r.store = store
	return store, nil
}

func (r *Runner) tokenManager() (*services.TokenManager, error) {
	if r.tokens != nil {
		return r.tokens, nil
	}

	store, err := r.settings()
	if err != nil {
		return nil, err
	}

	tokens, err := services.NewTokenManager(services.TokenManagerOpts{
		Config:     r.config.YouTube,
		Prefix:     r.config.Settings.Prefix,
		Store:      store,
		Browser:    r.browser,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.tokens = tokens
	return tokens, nil
}

func (r *Runner) playlists() (services.PlaylistService, error) {
	if r.youtube != nil {
		return r.youtube, nil
	}

	tokens, err := r.tokenManager()
	if err != nil {
		return nil, err
	}

	yt, err := services.NewYouTubeService(services.YouTubeOpts{
		BaseURL:           r.config.YouTube.APIURL,
		Auth:              tokens,
		HTTPClient:        r.httpClient,
		PageSize:          r.config.YouTube.PageSize,
		RequestsPerSecond: r.config.YouTube.RequestsPerSecond,
		Logger:            r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.youtube = yt
	return yt, nil
}

// requireWrite makes sure the token carries the modify scope before a mutating call.
//
// Without any consent on record, the prompt asks for it directly.
func (r *Runner) requireWrite(ctx context.Context) error {
	tokens, err := r.tokenManager()
	if err != nil {
		return err
	}

	if tokens.NeedsPrompt() {
		return tokens.PromptAccess(ctx, true)
	}
	if !tokens.CanWrite() {
		return fmt.Errorf("%w: playlist changes need the modify scope", shared.ErrInsufficientScope)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.write(append(output, '\n'))
}

func (r *Runner) write(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	return r.write([]byte(fmt.Sprintf(format, args...)))
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// isInputError reports whether err was caused by the arguments rather than the platform.
func isInputError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, shared.ErrMissingArgument) ||
		errors.Is(err, shared.ErrInvalidArgument)
}

// isAuthError reports whether err will recur for every further request with the same credentials.
func isAuthError(err error) bool {
	return errors.Is(err, shared.ErrInsufficientScope) ||
		errors.Is(err, shared.ErrAuthorizationAborted) ||
		errors.Is(err, shared.ErrRefreshFailed)
}
