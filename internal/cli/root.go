package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/preslavrachev/cloudkit/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Strict   bool

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cloudkit CLI.
func NewRootCommand() *cobra.Command {
	cfg := config.LoadConfig()
	opts := &RootOptions{cfg: cfg}

	cmd := &cobra.Command{
		Use:   "cloudkit",
		Short: "cloudkit - portable queries and instance collections",
		Long:  "Build backend-neutral document queries and inspect compute instances from the command line.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.DebugEnabled, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DatabasePath, "path to SQLite database")
	cmd.PersistentFlags().BoolVar(&opts.Strict, "strict", cfg.StrictClauses, "reject clauses the backend does not understand")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewInstancesCommand(opts))

	return cmd
}

// logger returns a development logger in verbose mode and a no-op
// logger otherwise
func (o *RootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	o.cfg.Log(log)
	return log
}

// pageSize is the limit applied to queries that do not set one
func (o *RootOptions) pageSize() int {
	return o.cfg.PageSize
}
