package cli

import (
	"github.com/spf13/cobra"
)

// NewCollectionsCommand creates the collections command.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "collections",
		Short:         "List the collections of the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollections(rootOpts, cmd)
		},
	}
}

func runCollections(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	log := opts.logger()
	defer log.Sync()

	db, adapter, err := openSQL(opts, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "database unavailable", err)
	}
	defer db.Close()

	names, err := adapter.ListCollections(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "listing collections failed", err)
	}

	rows := make([][]any, len(names))
	for i, name := range names {
		rows[i] = []any{name}
	}
	return formatter.Table([]string{"collection"}, rows)
}
