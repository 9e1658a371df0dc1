package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
	"github.com/fennward/factorytwin/internal/sim"
)

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <machine-id>",
		Short: "Repair a broken machine",
		Long: `Repair a Broken or Maintenance machine, returning it to Idle. The
repair cost is debited from the cash balance; the repair is refused if the
plant cannot cover it.

Examples:
  factorytwin repair 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			machineID, err := strconv.Atoi(args[0])
			if err != nil {
				return renderDomainError(f, sim.NewInvalidArgument(
					fmt.Sprintf("machine id must be an integer, got %q", args[0])))
			}
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				if err := eng.RepairMachine(ctx, machineID); err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(map[string]any{"machine_id": machineID, "repaired": true})
				}
				return f.Success(fmt.Sprintf("Machine %d repaired", machineID))
			})
		},
	}
}

// NewShiftCommand creates the shift command.
func NewShiftCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shift <DAY|NIGHT>",
		Short: "Change the active shift",
		Long: `Switch the plant between the DAY and NIGHT shifts. The night crew
runs machines harder, which doubles the per-tick fault probability.

Examples:
  factorytwin shift NIGHT`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			shift := sim.Shift(strings.ToUpper(args[0]))
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				if err := eng.ChangeShift(ctx, shift); err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(map[string]any{"shift": string(shift)})
				}
				return f.Success(fmt.Sprintf("Shift set to %s", shift))
			})
		},
	}
}

// NewIssueCommand creates the issue command.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <category> <description>",
		Short: "Log an operator-reported issue",
		Long: `Record an operator-reported issue in the history log. The issue
does not change the plant state; it exists so the run's audit trail carries
human observations alongside the machine events.

Examples:
  factorytwin issue quality "batch 14 shows surface defects"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				if err := eng.LogIssue(ctx, args[0], args[1]); err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(map[string]any{"category": args[0], "logged": true})
				}
				return f.Success(fmt.Sprintf("Issue logged under %q", args[0]))
			})
		},
	}
}
