package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set at build time
var Version = "dev"

// NewRootCommand assembles the CLI
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "data-navigator",
		Usage:   "Ask questions about a database schema in natural language",
		Version: Version,
		Description: `data-navigator reads the tables, columns, procedures and triggers of a live
database, describes each of them in plain language and stores the descriptions in a
vector index. Questions are answered by semantic search over that index, either from
the command line, over HTTP, or in an interactive chat.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", Usage: "Database whose schema is indexed (overrides DATABASE_URL)"},
			&cli.StringFlag{Name: "index-backend", Usage: "Vector index backend: memory, duckdb or pgvector"},
			&cli.StringFlag{Name: "index-path", Usage: "DuckDB index file"},
			&cli.StringFlag{Name: "embedding-provider", Usage: "Embedding provider: local, openai or hash"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn or error"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log at debug level"},
			&cli.BoolFlag{Name: "debug", Usage: "Include error detail in API responses"},
		},
		Commands: []*cli.Command{
			ServeCommand(),
			IndexCommand(),
			QueryCommand(),
			ChatCommand(),
			StatsCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the CLI with the process arguments
func Execute(ctx context.Context) error {
	return NewRootCommand().Run(ctx, os.Args)
}
