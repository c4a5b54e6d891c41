package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/config"
	"github.com/alexSpace56/data-navigator/internal/query"
	"github.com/alexSpace56/data-navigator/internal/server"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Description: `Serve POST /api/query, POST /api/index and GET /api/stats. The source database
is only contacted when an index run is requested.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default :8001)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			extra := map[string]interface{}{}
			if cmd.IsSet("addr") {
				extra["addr"] = cmd.String("addr")
			}

			a, err := loadApp(cmd, extra)
			if err != nil {
				return err
			}

			return runServe(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
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

	srv := server.New(server.Config{
		RequestTimeout: config.Duration(a.cfg.Server.RequestTimeout, 0),
		DefaultLimit:   a.cfg.Server.DefaultLimit,
		Debug:          a.cfg.Debug.Enabled,
		Version:        Version,
	}, server.Dependencies{
		Engine:   query.NewSearchEngine(provider, index),
		Composer: composer,
		Indexer:  a.indexer(provider, index),
		Index:    index,
	})

	return srv.Run(ctx, a.cfg.Server.Addr)
}
