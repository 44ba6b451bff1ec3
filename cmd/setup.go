package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"spotidedup/internal/repositories"
	"spotidedup/internal/shared"
)

// SetupDatabase initializes the database and runs migrations, creating a
// config file from the embedded template when none exists.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.openDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// AuthToken stores the durable refresh token so future runs can mint user
// access tokens without a new consent flow.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	token := cmd.String("refresh")
	if token == "" {
		return fmt.Errorf("%w: refresh token", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	if err := repositories.NewTokenRepository(db).SaveRefreshToken(ctx, token); err != nil {
		return err
	}

	r.writePlain("Refresh token stored\n")
	return nil
}
