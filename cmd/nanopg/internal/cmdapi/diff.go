package cmdapi

import (
	"fmt"

	"github.com/nanopg/nanopg/sql/diff"
	"github.com/nanopg/nanopg/sql/pgwire"
	"github.com/nanopg/nanopg/sql/sqltmpl"
	"github.com/nanopg/nanopg/sql/sync"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Print the SQL plan that sync would apply, without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdDiffRun(cmd)
		},
	}
}

func cmdDiffRun(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := connectDevPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close(ctx)

	sources, err := readSources(cfg)
	if err != nil {
		return err
	}
	plan, err := sync.Compute(ctx, pool, sources)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range plan.Warnings {
		fmt.Fprintln(out, "warning:", w.String())
	}
	for _, c := range plan.Changes {
		if c.Action == diff.ActionNoop {
			continue
		}
		fmt.Fprintf(out, "-- %s %s (%s)\n", c.Action, c.ID, c.Reason)
		for _, stmt := range c.SQL {
			sql, _, err := sqltmpl.Render(stmt, sqltmpl.Options{Escaper: pgwire.Escaper(), Reindent: true})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, sql+";")
		}
	}
	return nil
}
