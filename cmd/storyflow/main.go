// Command storyflow plays, inspects and validates story graph documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/storyflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func NewApp() *cli.Command {
	return &cli.Command{
		Name:                  "storyflow",
		Usage:                 "Play and inspect story graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "save-store-url",
				Usage:   "Save store URL (file://path, redis://..., postgres://...)",
				Value:   "file://./saves",
				Sources: cli.EnvVars("SAVE_STORE_URL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			NewPlayCommand(),
			NewLinearizeCommand(),
			NewValidateCommand(),
			NewSavesCommand(),
		},
	}
}

func main() {
	err := NewApp().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
