// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// checkCommand scans a playlist and prints or exports its duplicate groups.
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Scan a playlist and print/export duplicates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Playlist URL or ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "tol-secs",
				Usage: "Duration tolerance in whole seconds",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Keep re-release markers so variants stay distinct",
			},
			&cli.StringFlag{
				Name:  "json",
				Usage: "Write a JSON report to this path",
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Write a CSV report to this path",
			},
		},
		Action: r.Check,
	}
}

// deleteCommand removes duplicates, keeping one track per group.
func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Remove duplicates (requires user token)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Playlist URL or ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "tol-secs",
				Usage: "Duration tolerance in whole seconds",
				Value: 2,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Keep re-release markers so variants stay distinct",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Do not prompt for confirmation",
			},
		},
		Action: r.Delete,
	}
}

// authCommand manages the durable user credential.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "Store the durable refresh token used for playlist writes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "refresh",
						Usage:    "Refresh token obtained from the Spotify consent flow",
						Required: true,
					},
				},
				Action: r.AuthToken,
			},
		},
	}
}

// setupCommand handles database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// historyCommand lists recent scans recorded for a playlist.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent duplicate scans for a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Playlist URL or ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of rows to show",
				Value: 10,
			},
		},
		Action: r.History,
	}
}
