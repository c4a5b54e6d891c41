package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/chat"
	"github.com/alexSpace56/data-navigator/internal/describe"
	"github.com/alexSpace56/data-navigator/internal/formatter"
	"github.com/alexSpace56/data-navigator/internal/indexer"
	"github.com/alexSpace56/data-navigator/internal/schema"
	"github.com/alexSpace56/data-navigator/internal/server"
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Describe the source schema and write it to the vector index",
		Description: `Read every table, column, procedure and trigger of DATABASE_URL, describe them and
store the embedded descriptions. By default documents are upserted by id; --clear
replaces the whole collection in one step. --dry-run prints the descriptions without
embedding or writing anything.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clear", Usage: "Replace the whole index instead of upserting"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the documents that would be indexed"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd, nil)
			if err != nil {
				return err
			}

			if cmd.Bool("dry-run") {
				source, err := a.openSource(ctx)
				if err != nil {
					return err
				}
				defer source.Close()

				return runDryRun(ctx, os.Stdout, source, describe.New(a.vocab))
			}

			provider, err := a.provider()
			if err != nil {
				return err
			}

			index, err := a.openIndex(ctx)
			if err != nil {
				return err
			}
			defer index.Close()

			return runIndex(ctx, os.Stdout, a.indexer(provider, index),
				indexer.Options{Clear: cmd.Bool("clear")}, chat.NewTerminalSpinner(os.Stderr))
		},
	}
}

func runIndex(
	ctx context.Context,
	w io.Writer,
	ix server.Indexer,
	opts indexer.Options,
	newSpinner func(string) chat.Spinner,
) error {
	sp := newSpinner("Indexing schema...")
	sp.Start()
	report, err := ix.Index(ctx, opts)
	sp.Stop()

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, formatter.NewFormatter().FormatReport(report))

	return err
}

// runDryRun lists documents without embedding them
func runDryRun(ctx context.Context, w io.Writer, source schema.Source, describer *describe.Describer) error {
	docs, err := indexer.New(source, describer, nil, nil).Documents(ctx)
	if err != nil {
		return err
	}

	tp := tableprinter.New(w, false, 0)
	for _, d := range docs {
		tp.AddField(d.ID)
		tp.AddField(d.Metadata.Type)
		tp.AddField(d.Text)
		tp.EndRow()
	}

	if err := tp.Render(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%d documents\n", len(docs))

	return err
}
