package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

// loadOrCreateConfig reads the config at path, creating it from the bundled template when missing.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	var config *shared.Config
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", path)
			if config, err = shared.LoadConfig(path); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	config.ApplyEnv()
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	if !config.HasSpotifyCredentials() {
		r.writePlain("! Spotify credentials missing: imports and expand edits are disabled\n")
	}
	if !config.HasOpenAICredentials() {
		r.writePlain("! OpenAI credentials missing: free-text edits are disabled\n")
	}
	return nil
}

// SetupMigrations prints the state of every migration, optionally rolling back the latest one first.
func (r *Runner) SetupMigrations(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		confirmed := cmd.Bool("yes")
		if !confirmed && r.interactive() {
			err := huh.NewConfirm().
				Title("Roll back the most recent migration?").
				Description("Tables created by that migration are dropped with their data.").
				Value(&confirmed).
				Run()
			if err != nil {
				return err
			}
		}
		if !confirmed {
			return fmt.Errorf("%w: rollback needs --yes or an interactive confirmation", shared.ErrInvalidArgument)
		}
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.logger.Info("rolled back latest migration", "path", config.Database.Path)
	}

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.output)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Version", "Name", "Applied", "At"})
	for _, s := range states {
		at := "-"
		if s.Applied {
			at = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{s.Version, s.Name, s.Applied, at})
	}
	t.Render()
	return nil
}
