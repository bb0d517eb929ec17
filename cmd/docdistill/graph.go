package main

import (
	"context"

	"github.com/spf13/cobra"

	"doc-distill/internal/app"
	"doc-distill/internal/pipeline"
)

func (c *cli) newGraphCmd() *cobra.Command {
	var (
		chunked bool
		limit   int
		display bool
	)
	cmd := &cobra.Command{
		Use:   "graph <document>",
		Short: "Extract knowledge graph triples from a document",
		Long: `Asks the model for (subject, predicate, object) triples and writes
knowledge_graph.json and knowledge_graph.png to the output directory.

By default only the first --limit characters are sent in a single prompt.
With --chunked every chunk of the document is sent and the triples are
aggregated in document order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("chunked") {
				c.cfg.GraphChunked = chunked
			}
			if flags.Changed("limit") {
				c.cfg.GraphInputLimit = limit
			}
			if flags.Changed("display") {
				c.cfg.DisplayGraph = display
			}
			return c.runGraph(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&chunked, "chunked", false, "extract from every chunk instead of the leading text only (env GRAPH_CHUNKED)")
	cmd.Flags().IntVar(&limit, "limit", 5000, "characters per extraction prompt (env GRAPH_INPUT_LIMIT)")
	cmd.Flags().BoolVar(&display, "display", false, "open the rendered graph when done (env DISPLAY_GRAPH)")
	return cmd
}

func (c *cli) runGraph(ctx context.Context, path string) error {
	deps, err := c.build(ctx, c.cfg, app.NeedModel)
	if err != nil {
		return err
	}
	defer deps.Close(context.WithoutCancel(ctx))

	p := pipeline.NewGraphPipeline(deps.PipelineDeps(c.printer), app.PipelineOptions(c.cfg))
	res, err := p.Run(ctx, path)
	if err != nil {
		return err
	}

	if res.MalformedChunks > 0 {
		c.printer.Warn("%d of %d chunk(s) returned output that was not a triple list", res.MalformedChunks, res.Chunks)
	}
	c.printer.Success("Extracted %d triple(s), %d entities", len(res.Triples), len(res.Graph.Nodes))
	c.printer.Detail("triples: %s", res.JSONPath)
	c.printer.Detail("graph:   %s", res.ImagePath)
	return nil
}
