package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
	"github.com/fennward/factorytwin/internal/sim"
)

// NewFinancialsCommand creates the financials command.
func NewFinancialsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		from int64
		to   int64
	)

	cmd := &cobra.Command{
		Use:   "financials",
		Short: "Summarize revenue, cost and net over a tick range",
		Long: `Aggregate the plant's finances from the history log.

Revenue counts executed sales; cost counts material spend at job
admission plus machine repairs. Cash balance and the debt warning
reflect the current state. With no range given, the summary covers the
whole run so far.

Examples:
  factorytwin financials
  factorytwin financials --from 0 --to 24 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				end := sim.Tick(to)
				if !cmd.Flags().Changed("to") {
					end = eng.GetStatus().SimTime
				}
				summary, err := eng.GetFinancialSummary(ctx, sim.Tick(from), end)
				if err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(summary)
				}
				out := fmt.Sprintf("Ticks %d-%d | revenue %.2f | cost %.2f | net %.2f | cash %.2f",
					summary.FromTick, summary.ToTick, summary.Revenue, summary.Cost, summary.Net, summary.CashBalance)
				if summary.InDebt {
					out += " (IN DEBT)"
				}
				return f.Success(out)
			})
		},
	}

	cmd.Flags().Int64Var(&from, "from", 0, "start tick (inclusive)")
	cmd.Flags().Int64Var(&to, "to", 0, "end tick (inclusive, defaults to current tick)")
	return cmd
}
