package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nanopg/nanopg/cmd/nanopg/internal/cmdapi"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()
	if err := cmdapi.Root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
