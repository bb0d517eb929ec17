package main

import (
	"context"

	"github.com/spf13/cobra"

	"doc-distill/internal/app"
	"doc-distill/internal/pipeline"
)

func (c *cli) newSummarizeCmd() *cobra.Command {
	var (
		pdfPath   string
		chunkSize int
		overlap   int
	)
	cmd := &cobra.Command{
		Use:     "summarize <document>",
		Aliases: []string{"summary"},
		Short:   "Summarize a document chunk by chunk into a PDF",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("pdf") {
				c.cfg.SummaryPDF = pdfPath
			}
			if flags.Changed("chunk-size") {
				c.cfg.ChunkSize = chunkSize
			}
			if flags.Changed("overlap") {
				c.cfg.ChunkOverlap = overlap
			}
			return c.runSummarize(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "summary.pdf", "summary PDF; a bare file name is placed in the output directory (env SUMMARY_PDF)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 4000, "maximum characters per chunk (env CHUNK_SIZE)")
	cmd.Flags().IntVar(&overlap, "overlap", 400, "characters shared by consecutive chunks (env CHUNK_OVERLAP)")
	return cmd
}

func (c *cli) runSummarize(ctx context.Context, path string) error {
	deps, err := c.build(ctx, c.cfg, app.NeedModel)
	if err != nil {
		return err
	}
	defer deps.Close(context.WithoutCancel(ctx))

	p := pipeline.NewSummaryPipeline(deps.PipelineDeps(c.printer), app.PipelineOptions(c.cfg))
	res, err := p.Run(ctx, path)
	if err != nil {
		return err
	}
	c.printer.Success("Summarized %d chunk(s)", res.Chunks)
	c.printer.Detail("summary: %s", res.PDFPath)
	return nil
}
