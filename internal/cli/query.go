package cli

import (
	"github.com/spf13/cobra"

	"github.com/preslavrachev/cloudkit/document"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	File  string
	Count bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [collection]",
		Short: "Run a query file against the database",
		Long: `Build a query from a YAML file and run it against the SQLite database.

The collection argument is used when the file has no from clause. Queries
without a limit get the configured page size.

Example:
  cloudkit query -f active-users.yaml
  cloudkit query -f recent.yaml users --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := ""
			if len(args) == 1 {
				collection = args[0]
			}
			return runQuery(opts, collection, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to the YAML query file (required)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matches instead of the documents")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runQuery(opts *QueryOptions, collection string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	log := opts.logger()
	defer log.Sync()

	qf, err := LoadQueryFile(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query file", err)
	}
	if qf.Native == nil && !opts.Count && !qf.HasLimit() {
		qf.Limit = opts.pageSize()
	}
	q, err := qf.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	db, adapter, err := openSQL(opts.RootOptions, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "database unavailable", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if opts.Count {
		n, err := adapter.Count(ctx, collection, q)
		if err != nil {
			return WrapExitError(ExitFailure, "count failed", err)
		}
		return formatter.Success(map[string]int64{"count": n})
	}

	docs, err := adapter.Query(ctx, collection, q)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}
	return printDocuments(formatter, docs)
}

func printDocuments(formatter *OutputFormatter, docs []document.Document) error {
	if formatter.Format == "json" {
		rows := make([]map[string]any, len(docs))
		for i, doc := range docs {
			rows[i] = doc.Fields
		}
		return formatter.Success(rows)
	}
	return formatter.Documents(docs)
}
