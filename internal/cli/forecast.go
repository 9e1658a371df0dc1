package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
)

// NewForecastCommand creates the forecast command.
func NewForecastCommand(rootOpts *RootOptions) *cobra.Command {
	var horizon int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast demand and price for upcoming ticks",
		Long: `Generate market snapshots for the next ticks.

The forecast is deterministic for a given noise seed, so repeated calls
at the same tick return identical numbers. Each query is recorded in the
history log.

Examples:
  factorytwin forecast
  factorytwin forecast --horizon 12 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				snapshots, err := eng.GetForecast(ctx, horizon)
				if err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(snapshots)
				}
				var b strings.Builder
				for _, s := range snapshots {
					fmt.Fprintf(&b, "tick %d: demand %d, price %.2f\n", s.Time, s.DemandUnits, s.UnitPrice)
				}
				return f.Success(strings.TrimRight(b.String(), "\n"))
			})
		},
	}

	cmd.Flags().IntVar(&horizon, "horizon", 5, "number of ticks to forecast")
	return cmd
}
