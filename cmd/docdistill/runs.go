package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"doc-distill/internal/app"
)

func (c *cli) newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs recorded in the run store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.listRuns(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func (c *cli) listRuns(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()
	deps, err := c.build(ctx, c.cfg, 0)
	if err != nil {
		return err
	}
	defer deps.Close(context.WithoutCancel(ctx))
	if deps.Store == nil {
		return errors.New("no run store configured; set STORE_PROVIDER=sqlite or postgres")
	}

	runs, err := deps.Store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPIPELINE\tSTATUS\tCHUNKS\tTRIPLES\tSOURCE\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID.String()[:8], r.Pipeline, r.Status, r.Chunks, r.Triples, r.Source,
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
