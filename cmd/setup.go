package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/muziek/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter config when none exists and initializes the settings database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = cmd.String("config")
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}

		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		r.config = config
		r.logger.Info("config file created", "path", configPath)
	}

	if backend := r.config.Settings.Backend; backend != "" && backend != "sqlite" {
		r.logger.Info("settings are kept outside the database", "backend", backend)
	}

	path, err := r.config.DatabasePath()
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", path)
	db, err := shared.OpenDatabase(r.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Database: %s\n", path)
	r.writePlain("\nNext steps:\n")
	r.writePlain("1. Set youtube.client_id and youtube.client_secret in %s\n", configPath)
	r.writePlain("2. Run 'muziek youtube auth' to grant read access (add --modify to edit playlists)\n")
	r.writePlain("3. Run 'muziek youtube playlists' to test the connection\n")
	return nil
}
