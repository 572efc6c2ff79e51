package cmdapi

import (
	"fmt"

	"github.com/nanopg/nanopg/sql/migrate"
	"github.com/nanopg/nanopg/sql/sync"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Diff the managed schema against the dev database and apply the changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdSyncRun(cmd, concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum number of statements to apply in parallel")
	return cmd
}

func cmdSyncRun(cmd *cobra.Command, concurrency int) error {
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

	conn, err := pool.Checkout(ctx, nil)
	if err != nil {
		return err
	}
	defer pool.Return(conn)

	// A Pool is only wired in at concurrency > 1: below that, every
	// apply is serialized anyway and the single checked-out Conn above
	// already covers it, so there's no independent-statement race to
	// guard against.
	drv := &migrate.Driver{Conn: conn, Concurrency: concurrency}
	if concurrency > 1 {
		drv.Pool = pool
	}
	results, err := sync.Apply(ctx, drv, cfg, plan)
	if err != nil {
		return err
	}
	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", r.ID, r.Error)
			continue
		}
		fmt.Fprintf(out, "%s: applied\n", r.ID)
	}
	if failed > 0 {
		return fmt.Errorf("cmdapi: %d statement(s) failed to apply", failed)
	}
	return nil
}
