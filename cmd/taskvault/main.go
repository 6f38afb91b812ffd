// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "taskvault",
		Usage: "Inspect and maintain taskvault stores",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{"TASKVAULT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a default configuration file",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the configuration",
						Value:   "taskvault.yaml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print entity counts per project",
				Action: statsCommand,
			},
			{
				Name:   "export-history",
				Usage:  "Write a partition's document change log as JSON",
				Action: exportHistoryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "partition",
						Aliases:  []string{"p"},
						Usage:    "Project or user ID; use _global for projects and users",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Output directory",
						Value: ".",
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "Only export changes at or below this document path, e.g. collections/tasks",
					},
				},
			},
			{
				Name:   "resolve",
				Usage:  "Find the project holding a tag or assignee relation",
				Action: resolveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "relation",
						Usage: "Relation kind (tag, assignment)",
						Value: "tag",
					},
					&cli.StringFlag{
						Name:     "child",
						Usage:    "Tag or user ID to look up",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "hint",
						Usage: "Known project ID; skips the scan",
					},
				},
			},
			{
				Name:   "reconcile",
				Usage:  "Copy entities from one backend to the other",
				Action: reconcileCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Source backend (document, relational)",
						Value: "document",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Target backend (document, relational)",
						Value: "relational",
					},
					&cli.StringSliceFlag{
						Name:  "type",
						Usage: "Entity collections to copy (default: all)",
					},
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Delete target entities missing from the source",
					},
					&cli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "Keep going after a write fails",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per write",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 100 * time.Millisecond,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
