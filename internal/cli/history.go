package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		kind  string
		from  int64
		to    int64
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the append-only event log",
		Long: `Query history records, optionally filtered by tick range and event
kind. Records are returned in append order (seq ascending), which is the
authoritative ordering of everything that happened in the run.

Examples:
  factorytwin history
  factorytwin history --kind SALE_EXECUTED
  factorytwin history --from 0 --to 24 --limit 50 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				filter := store.HistoryFilter{
					Kind:  sim.EventKind(kind),
					Limit: limit,
				}
				if cmd.Flags().Changed("from") {
					t := sim.Tick(from)
					filter.FromTick = &t
				}
				if cmd.Flags().Changed("to") {
					t := sim.Tick(to)
					filter.ToTick = &t
				}

				records, err := eng.QueryHistory(ctx, filter)
				if err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(records)
				}
				var b strings.Builder
				for _, rec := range records {
					payload, _ := sim.MarshalCanonical(rec.Payload)
					fmt.Fprintf(&b, "%6d  tick %-5d %-17s %s\n", rec.Seq, rec.Tick, rec.Kind, payload)
				}
				if b.Len() == 0 {
					return f.Success("No matching history records")
				}
				return f.Success(strings.TrimRight(b.String(), "\n"))
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by event kind")
	cmd.Flags().Int64Var(&from, "from", 0, "start tick (inclusive)")
	cmd.Flags().Int64Var(&to, "to", 0, "end tick (inclusive)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records (0 = unlimited)")
	return cmd
}
