// Command docdistill extracts knowledge graphs and summaries from documents with a
// language model.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"doc-distill/internal/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ui.NewPrinter(os.Stderr, false).Error("%v", err)
		stop()
		os.Exit(1)
	}
}
