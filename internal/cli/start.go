package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
	"github.com/fennward/factorytwin/internal/sim"
)

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <units>",
		Short: "Start a production job",
		Long: `Start a production job for the given number of units.

Admission reserves raw material, allocates an idle machine and debits the
material cost. If stock or machines are unavailable the job is rejected
and nothing changes.

Examples:
  factorytwin start 10
  factorytwin start 10 --db ./factory.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := strconv.Atoi(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid units %q", args[0]), err)
			}
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				job, err := eng.StartJob(ctx, units)
				if err != nil {
					return renderDomainError(f, err)
				}
				if rootOpts.Format == "json" {
					return f.Success(job)
				}
				return f.Success(fmt.Sprintf("Job %d started: %d units on machine %d, material cost %.2f",
					job.ID, job.RequestedUnits, *job.MachineID, job.MaterialCost))
			})
		},
	}
	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Long: `Cancel a job. The machine and any unconsumed material reservation are
released; material cost already spent is not refunded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid job id %q", args[0]), err)
			}
			f := formatter(rootOpts, cmd)
			return withEngine(rootOpts, cmd, func(ctx context.Context, eng *engine.Engine) error {
				if err := eng.CancelJob(ctx, sim.JobID(id)); err != nil {
					return renderDomainError(f, err)
				}
				return f.Success(fmt.Sprintf("Job %d cancelled", id))
			})
		},
	}
	return cmd
}
