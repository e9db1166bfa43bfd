package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/editor"
	"github.com/desertthunder/plx/internal/repositories"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	completer  services.Completer
	logger     *log.Logger
	output     io.Writer

	db     *sql.DB
	ownsDB bool
	engine *tasks.EditEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB is optional; when nil the configured database is opened and migrated on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Completer  services.Completer
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		completer:  opts.Completer,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, editCommand, historyCommand, searchCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and anything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Engine returns the edit engine, opening the database on first use.
func (r *Runner) Engine() (*tasks.EditEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	if r.db == nil {
		r.logger.Debug("opening database", "path", r.config.Database.Path)
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		r.db, r.ownsDB = db, true
	}

	r.engine = newEngine(r.db, r.config, r.catalog, r.completer, r.logger)
	return r.engine, nil
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db, r.engine, r.ownsDB = nil, nil, false
	return err
}

// newEngine wires the repositories, the editor and its collaborators into an [tasks.EditEngine].
//
// Without a completer free-text edits fail classification; structured commands still work.
func newEngine(db *sql.DB, cfg *shared.Config, catalog services.Catalog, completer services.Completer, logger *log.Logger) *tasks.EditEngine {
	opts := editor.EditorOpts{
		Logger:      logger,
		SearchLimit: cfg.Editor.SearchLimit,
		ExpandBy:    cfg.Editor.DefaultExpandBy,
	}
	if catalog != nil {
		opts.Catalog = catalog
	}
	if completer != nil {
		opts.Classifier = editor.WithTimeout(editor.NewLLMClassifier(completer), cfg.Editor.ClassifyTimeoutDuration())
		opts.Suggester = editor.NewCompleterSuggester(completer)
	}

	return tasks.NewEditEngine(tasks.EngineOpts{
		Editor:    editor.NewPlaylistEditor(opts),
		Playlists: repositories.NewPlaylistRepository(db),
		Tracks:    repositories.NewTrackRepository(db),
		Edits:     repositories.NewEditRepository(db),
		Catalog:   catalog,
		Logger:    logger,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
