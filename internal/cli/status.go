package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current factory state",
		Long: `Show a read-only snapshot of the factory: clock, shift, cash, stock
levels, machines and jobs.

Examples:
  factorytwin status
  factorytwin status --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				state := eng.GetStatus()
				if rootOpts.Format == "json" {
					return f.Success(state)
				}

				var b strings.Builder
				fmt.Fprintf(&b, "Tick: %d | Shift: %s | Cash: %.2f", state.SimTime, state.Shift, state.CashBalance)
				if state.InDebt() {
					b.WriteString(" (IN DEBT)")
				}
				fmt.Fprintf(&b, "\nRaw material: %d | Finished goods: %d | Active jobs: %d\n",
					state.RawMaterialStock, state.FinishedGoodsStock, state.ActiveJobs())
				for _, m := range state.Machines {
					fmt.Fprintf(&b, "  machine %d: %s (capacity %d/tick)", m.ID, m.Status, m.CapacityPerTick)
					if m.JobID != nil {
						fmt.Fprintf(&b, " job %d", *m.JobID)
					}
					b.WriteByte('\n')
				}
				return f.Success(strings.TrimRight(b.String(), "\n"))
			})
		},
	}
	return cmd
}
