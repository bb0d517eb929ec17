package main

import (
	"context"

	"github.com/spf13/cobra"

	"doc-distill/internal/app"
	"doc-distill/internal/config"
	"doc-distill/internal/ui"
)

type buildFunc func(ctx context.Context, cfg config.Config, need app.Need) (*app.Deps, error)

// cli holds state shared by subcommands. cfg is filled in by the root pre-run hook.
type cli struct {
	build   buildFunc
	cfg     config.Config
	printer *ui.Printer

	provider    string
	model       string
	outDir      string
	concurrency int
	logLevel    string
	quiet       bool
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(app.Build)
}

func newRootCmdWith(build buildFunc) *cobra.Command {
	c := &cli{build: build}
	root := &cobra.Command{
		Use:   "docdistill",
		Short: "Distill documents into knowledge graphs and summaries",
		Long: `docdistill sends a PDF or text document to a language model and writes
either knowledge-graph triples (JSON plus a rendered PNG) or a chunked summary (PDF).

Settings come from the environment (and a .env file); flags override them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.provider, "provider", "", "LLM provider: ollama, openai or anthropic (env LLM_PROVIDER)")
	pf.StringVarP(&c.model, "model", "m", "", "model name (env LLM_MODEL)")
	pf.StringVarP(&c.outDir, "out", "o", "", "output directory (env OUTPUT_DIR)")
	pf.IntVarP(&c.concurrency, "concurrency", "j", 0, "parallel model calls (env CONCURRENCY)")
	pf.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.BoolVarP(&c.quiet, "quiet", "q", false, "only print errors")

	root.AddCommand(
		c.newGraphCmd(),
		c.newSummarizeCmd(),
		c.newRunsCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads env configuration and applies any flags the user set.
func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLMProvider = c.provider
	}
	if flags.Changed("model") {
		cfg.LLMModel = c.model
	}
	if flags.Changed("out") {
		cfg.OutputDir = c.outDir
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = c.concurrency
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg
	c.printer = ui.NewPrinter(cmd.OutOrStdout(), c.quiet)
	return nil
}
