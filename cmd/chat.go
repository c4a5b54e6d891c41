package cmd

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/chat"
	"github.com/alexSpace56/data-navigator/internal/config"
)

func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:        "chat",
		Usage:       "Chat with a running data-navigator API",
		Description: `Open an interactive session against RAG_API_URL. Type /help inside the session for commands.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Usage: "API base URL (overrides RAG_API_URL)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			extra := map[string]interface{}{}
			if cmd.IsSet("api-url") {
				extra["api-url"] = cmd.String("api-url")
			}

			a, err := loadApp(cmd, extra)
			if err != nil {
				return err
			}

			// reindexing may take as long as the server allows, plus transfer time
			reindexTimeout := config.Duration(a.cfg.Server.RequestTimeout, 120*time.Second) + 30*time.Second

			client := chat.NewClient(
				a.cfg.Client.APIURL,
				config.Duration(a.cfg.Client.Timeout, chat.DefaultTimeout),
				chat.WithReindexTimeout(reindexTimeout),
			)
			session := chat.NewSession(client, os.Stdout, chat.WithSpinner(chat.NewTerminalSpinner(os.Stderr)))

			return session.Run(ctx, os.Stdin)
		},
	}
}
