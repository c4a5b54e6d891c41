package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/alexSpace56/data-navigator/internal/config"
	"github.com/alexSpace56/data-navigator/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the configuration merged from the config file, environment variables and flags. Credentials are masked.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd, nil)
			if err != nil {
				return err
			}

			return runConfig(os.Stdout, a.cfg)
		},
	}
}

func runConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode configuration")
	}

	_, err = fmt.Fprintf(w, "Active configuration:\n%s\n", data)

	return err
}
