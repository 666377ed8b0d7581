// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes a starter config and prepares the settings database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file and initialize the settings database",
		Action: r.Setup,
	}
}

// youtubeCommand handles YouTube playlist operations
func youtubeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "youtube",
		Aliases: []string{"yt"},
		Usage:   "YouTube playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "auth",
				Usage: "Grant access to your YouTube account in the browser",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "modify",
						Usage: "Also request permission to create and edit playlists",
					},
				},
				Action: r.YouTubeAuth,
			},
			{
				Name:  "status",
				Usage: "Show the stored credential state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.YouTubeStatus,
			},
			{
				Name:  "playlists",
				Usage: "List your playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Ignore cached results",
					},
				},
				Action: r.YouTubePlaylists,
			},
			{
				Name:      "show",
				Usage:     "Show the songs of a playlist",
				ArgsUsage: "<playlist>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, markdown, csv)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Write to {playlist id}.{ext} when no --output is given",
					},
				},
				Action: r.YouTubeShow,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				ArgsUsage: "<title>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "title"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "private",
						Usage: "Create the playlist as private",
						Value: true,
					},
				},
				Action: r.YouTubeCreate,
			},
			{
				Name:      "add",
				Usage:     "Add one or more songs to a playlist",
				ArgsUsage: "<playlist> <video url or id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "note",
						Usage: "Note to attach to each added song",
					},
				},
				Action: r.YouTubeAdd,
			},
			{
				Name:      "backup",
				Usage:     "Write every playlist (or the named ones) to a directory",
				ArgsUsage: "[playlist]...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "File format (text, markdown, csv)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: youtube_backup_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent file writers",
						Value: 4,
					},
				},
				Action: r.YouTubeBackup,
			},
			{
				Name:   "stop",
				Usage:  "Stop a callback listener left waiting by another process",
				Action: r.YouTubeStop,
			},
		},
	}
}

// tuiCommand launches the interactive playlist browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse playlists interactively",
		Action: r.TUI,
	}
}
