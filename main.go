package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexSpace56/data-navigator/cmd"
	"github.com/alexSpace56/data-navigator/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var structErr *errors.Error
		if errors.As(err, &structErr) {
			for _, s := range structErr.Suggestions {
				fmt.Fprintf(os.Stderr, "  - %s\n", s)
			}
		}

		stop()
		os.Exit(1)
	}
}
