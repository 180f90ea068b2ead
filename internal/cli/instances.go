package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/preslavrachev/cloudkit/adapters/memory"
	"github.com/preslavrachev/cloudkit/infrastructure"
)

// InstancesOptions holds flags for the instances command.
type InstancesOptions struct {
	*RootOptions
	Count   int
	Stop    int
	Timeout time.Duration
}

// NewInstancesCommand creates the instances command.
func NewInstancesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InstancesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Launch demo instances on the in-memory backend and list them",
		Long: `Launch instances on the in-memory backend, wait for them to run and
print the resulting instance collection.

Example:
  cloudkit instances --count 5 --stop 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstances(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 3, "number of instances to launch")
	cmd.Flags().IntVar(&opts.Stop, "stop", 0, "number of launched instances to stop again")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "how long to wait for status changes")

	return cmd
}

func runInstances(opts *InstancesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Count < 1 {
		return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("--count must be positive, got %d", opts.Count))
	}
	if opts.Stop < 0 || opts.Stop > opts.Count {
		return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("--stop must be between 0 and %d", opts.Count))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	backend := memory.New()
	if err := launchInstances(ctx, backend, opts.Count, opts.Stop); err != nil {
		return WrapExitError(ExitFailure, "launching instances failed", err)
	}

	list, err := backend.ListInstances(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "listing instances failed", err)
	}
	return formatter.Table(instanceTable(list))
}

func launchInstances(ctx context.Context, backend infrastructure.Adapter, count, stop int) error {
	for n := range count {
		inst, err := backend.CreateInstance(ctx, fmt.Sprintf("demo-%d", n+1), infrastructure.Descriptor{
			infrastructure.AttrImageID: "ubuntu-24.04",
			infrastructure.AttrCPU:     2,
			infrastructure.AttrRAM:     4096,
		})
		if err != nil {
			return err
		}
		if err := inst.Wait(ctx, infrastructure.StatusRunning, 10*time.Millisecond); err != nil {
			return err
		}
		if n < stop {
			if err := inst.Stop(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// instanceTable walks the list with its shared cursor
func instanceTable(list *infrastructure.InstanceList) ([]string, [][]any) {
	header := []string{"id", "name", "status", "zone", "image"}
	rows := make([][]any, 0, list.Len())
	for list.Rewind(); list.Valid(); list.Next() {
		inst := list.Current()
		rows = append(rows, []any{inst.ID(), inst.Name(), inst.Status(), inst.Zone(), inst.ImageID()})
	}
	return header, rows
}
