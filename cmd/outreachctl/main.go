package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/iudanet/outreach/internal/admin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := admin.NewRootCommand(admin.Options{
		Getenv:   os.Getenv,
		Prompter: admin.NewStdioPrompter(os.Stdin, os.Stderr),
	})
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
