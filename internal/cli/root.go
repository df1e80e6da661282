// Package cli implements the manifest-validator command line tool.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ErrValidationFailed is returned by validate when any manifest has errors or
// could not be read
var ErrValidationFailed = errors.New("one or more manifests failed validation")

// NewRootCmd creates the manifest-validator command tree
func NewRootCmd() *cobra.Command {
	var logLevel string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "manifest-validator",
		Short: "Validate Firefox OS web app manifests",
		Long: `manifest-validator checks Open Web App manifests against the marketplace rules.
It reports every structural error, semantic error and advisory warning found,
and can print or export the rule tables it applies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", logLevel)
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})

			if noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newPermissionsCmd())
	cmd.AddCommand(newRulesCmd())

	return cmd
}

// Execute runs the command line and returns the process exit code
func Execute(args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidationFailed):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
}
