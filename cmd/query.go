package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/answer"
	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/formatter"
	"github.com/alexSpace56/data-navigator/internal/query"
)

func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Answer a question against the local index",
		ArgsUsage: "<question>",
		Description: `Embed the question, find the closest schema descriptions and compose an answer.

Examples:
  data-navigator query "where is the well repair status stored"
  data-navigator query --limit 10 --format long "repair duration"
  data-navigator query --type column --llm "which fields are mandatory"`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: int64(query.DefaultLimit), Usage: "Maximum number of matches"},
			&cli.BoolFlag{Name: "llm", Usage: "Compose the answer with the configured language model"},
			&cli.StringFlag{Name: "format", Value: string(formatter.FormatTable), Usage: "Match output: table, short or long"},
			&cli.StringFlag{Name: "type", Usage: "Comma-separated object types to keep (table, column, procedure, trigger)"},
			&cli.FloatFlag{Name: "min-score", Usage: "Drop matches scoring below this similarity"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return errors.New(errors.ErrTypeValidation, "a question is required").
					WithSuggestion(`Run: data-navigator query "where is the repair status"`)
			}

			extra := map[string]interface{}{}
			if cmd.Bool("llm") {
				extra["llm"] = true
			}

			a, err := loadApp(cmd, extra)
			if err != nil {
				return err
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

			composer, err := a.composer()
			if err != nil {
				return err
			}

			opts := query.SearchOptions{
				Limit:    int(cmd.Int("limit")),
				MinScore: cmd.Float("min-score"),
				Types:    splitList(cmd.String("type")),
			}

			return runQuery(ctx, os.Stdout, query.NewSearchEngine(provider, index), composer,
				question, opts, formatter.OutputFormat(cmd.String("format")))
		},
	}
}

func runQuery(
	ctx context.Context,
	w io.Writer,
	engine query.Engine,
	composer answer.Composer,
	question string,
	opts query.SearchOptions,
	format formatter.OutputFormat,
) error {
	result, err := engine.Search(ctx, question, opts)
	if err != nil {
		return err
	}

	reply, err := composer.Compose(ctx, question, result.Matches)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, reply.Text); err != nil {
		return err
	}

	if result.Empty() {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	return formatter.NewFormatter().WriteMatches(w, result.Matches, format)
}

func splitList(value string) []string {
	var out []string

	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
