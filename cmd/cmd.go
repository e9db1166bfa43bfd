// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand handles database setup and migration maintenance.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "migrations",
				Usage: "Show migration status",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration first",
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the rollback confirmation prompt",
					},
				},
				Action: r.SetupMigrations,
			},
		},
	}
}

// playlistCommand manages stored playlists.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Import, list and export stored playlists",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Aliases:   []string{"import-many"},
				Usage:     "Import catalog playlists by ID",
				ArgsUsage: "<catalog-id>...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent imports when several IDs are given (max 10)",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Catalog requests per second",
						Value: 5,
					},
				},
				Action: r.PlaylistImport,
			},
			{
				Name:  "list",
				Usage: "List stored playlists",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Only playlists whose name contains this text",
					},
				}, outputFlags()...),
				Action: r.PlaylistList,
			},
			{
				Name:      "tracks",
				Usage:     "Show a stored playlist's tracks in order",
				ArgsUsage: "<playlist-id>",
				Flags:     outputFlags(),
				Action:    r.PlaylistTracks,
			},
			{
				Name:      "export",
				Usage:     "Export stored playlists to files",
				ArgsUsage: "<playlist-id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: plx_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent exports (max 10)",
						Value: 5,
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// editCommand applies one edit to a stored playlist.
func editCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a stored playlist with a natural-language or structured command",
		ArgsUsage: "[command text]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Stored playlist ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Structured command type (filter, sort, transform, expand, refine, theme)",
			},
			&cli.StringFlag{
				Name:  "action",
				Usage: "Structured command action, e.g. sort_by_energy",
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "Structured command parameter as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "prefs",
				Usage: "Path to a JSON file of user preferences",
			},
		}, outputFlags()...),
		Action: r.Edit,
	}
}

// historyCommand lists a playlist's applied edits.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the edits applied to a stored playlist, newest first",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Stored playlist ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of edits to show (0 for all)",
				Value: 20,
			},
		}, outputFlags()...),
		Action: r.History,
	}
}

// searchCommand queries the catalog directly.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog for tracks",
		ArgsUsage: "<query>",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return",
				Value: 10,
			},
		}, outputFlags()...),
		Action: r.Search,
	}
}

// serveCommand starts the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist edit HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist editing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist editing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "prefs",
				Usage: "Path to a JSON file of user preferences",
			},
		},
		Action: r.TUI,
	}
}
