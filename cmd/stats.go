package cmd

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/formatter"
	"github.com/alexSpace56/data-navigator/internal/storage"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display vector index statistics",
		Description: `Show the backend, the number of indexed documents per object type and when the index was last built.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd, nil)
			if err != nil {
				return err
			}

			index, err := a.openIndex(ctx)
			if err != nil {
				return err
			}
			defer index.Close()

			return runStats(ctx, os.Stdout, index)
		},
	}
}

func runStats(ctx context.Context, w io.Writer, index storage.Index) error {
	stats, err := index.Stats(ctx)
	if err != nil {
		return err
	}

	return formatter.NewFormatter().WriteStats(w, stats)
}
