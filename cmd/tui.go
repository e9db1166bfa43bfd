package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILogPath = "./tmp/plx-tui.log"

// TUI launches the interactive terminal UI for playlist editing.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	prefs, err := loadPreferences(cmd.String("prefs"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = defaultTUILogPath
	}
	fileLogger, closer, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine, err := r.Engine()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, prefs)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
