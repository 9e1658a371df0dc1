package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
)

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	var elapsed int

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the simulation clock",
		Long: `Advance the simulation by the given number of ticks.

Running jobs produce according to machine capacity, busy machines may
fault, and a periodic snapshot is written when due. Time only moves when
this command (or the caller driving the engine) says so - the engine has
no background scheduler.

Examples:
  factorytwin tick
  factorytwin tick --n 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				if err := eng.Tick(ctx, elapsed); err != nil {
					return renderDomainError(f, err)
				}
				state := eng.GetStatus()
				if rootOpts.Format == "json" {
					return f.Success(state)
				}
				return f.Success(fmt.Sprintf("Tick %d | cash %.2f | raw %d | finished %d | active jobs %d",
					state.SimTime, state.CashBalance, state.RawMaterialStock,
					state.FinishedGoodsStock, state.ActiveJobs()))
			})
		},
	}

	cmd.Flags().IntVar(&elapsed, "n", 1, "number of ticks to advance")
	return cmd
}

// NewSellCommand creates the sell command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell finished goods at current market conditions",
		Long: `Sell finished goods against the current market snapshot.

Quantity is capped by market demand; unsold goods remain in stock for a
later attempt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				res, err := eng.Sell(ctx)
				if err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(res)
				}
				if res.Quantity == 0 {
					return f.Success("Nothing sold: no stock or no demand")
				}
				return f.Success(fmt.Sprintf("Sold %d units at %.2f, revenue %.2f",
					res.Quantity, res.UnitPrice, res.Revenue))
			})
		},
	}
	return cmd
}
