// Package cli implements the packwrap command line tool.
package cli

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/pkg/logger"
)

type options struct {
	verbose bool
	log     *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{log: zap.NewNop()}

	root := &cobra.Command{
		Use:          "packwrap",
		Short:        "Packaging shop tools",
		Long:         "packwrap parses customer order messages and manages sealed courier credentials",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewConsole(opts.verbose)
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newVaultCmd(opts))
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

// readInput joins args, falling back to the whole of stdin.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
