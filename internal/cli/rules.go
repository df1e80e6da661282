package cli

import (
	"fmt"

	"github.com/mozilla/firefox-app-validator-manifest/internal/loader"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and export the rule documents",
	}

	cmd.AddCommand(newRulesExportCmd())
	cmd.AddCommand(newRulesShowCmd())
	return cmd
}

func newRulesExportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "export DIR",
		Short: "Write the built-in rule documents to DIR",
		Long: `Write the built-in rule documents to DIR so they can be edited and loaded
back with --rules-dir or RULES_DIR. Existing files are kept unless --force is set.

Examples:
  manifest-validator rules export ./rules
  manifest-validator validate --rules-dir ./rules app/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := ruleset.EmbeddedDocuments()
			if err != nil {
				return err
			}

			written, err := loader.NewOverrideManager(args[0]).Export(docs, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range written {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func newRulesShowCmd() *cobra.Command {
	var rulesDir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the policy tables in force",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := ruleset.Load(rulesDir)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(rules.Summary())
			if err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&rulesDir, "rules-dir", "", "Directory with rule document overrides")
	return cmd
}
