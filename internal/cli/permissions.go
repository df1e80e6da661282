package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type permissionsOptions struct {
	appType  string
	rulesDir string
	json     bool
}

// permissionEntry is one row of the permission table
type permissionEntry struct {
	Name        string   `json:"name"`
	AccessModes []string `json:"access_modes,omitempty"`
}

func newPermissionsCmd() *cobra.Command {
	o := &permissionsOptions{}

	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Print the permissions each app type may request",
		Long: `Print the permissions each app type may request, with the access modes of
access-controlled permissions.

Examples:
  # Permissions a privileged app may request
  manifest-validator permissions --type privileged`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.appType, "type", "t", "", "App type: web, privileged or certified (default all)")
	f.StringVar(&o.rulesDir, "rules-dir", "", "Directory with rule document overrides")
	f.BoolVarP(&o.json, "json", "j", false, "Output in JSON format")

	return cmd
}

func (o *permissionsOptions) run(out io.Writer) error {
	rules, err := ruleset.Load(o.rulesDir)
	if err != nil {
		return err
	}

	types := rules.AppTypes()
	if o.appType != "" {
		if _, ok := rules.AllowedPermissions(o.appType); !ok {
			return fmt.Errorf("unknown app type %q (known: %s)", o.appType, strings.Join(types, ", "))
		}
		types = []string{o.appType}
	}

	table := make(map[string][]permissionEntry, len(types))
	for _, t := range types {
		names, _ := rules.AllowedPermissions(t)
		entries := make([]permissionEntry, 0, len(names))
		for _, name := range names {
			entries = append(entries, permissionEntry{Name: name, AccessModes: rules.AccessModes(name)})
		}
		table[t] = entries
	}

	if o.json {
		data, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode permissions: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	for i, t := range types {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%d)\n", t, len(table[t]))
		for _, e := range table[t] {
			if len(e.AccessModes) > 0 {
				fmt.Fprintf(out, "  %s [%s]\n", e.Name, strings.Join(e.AccessModes, ", "))
			} else {
				fmt.Fprintf(out, "  %s\n", e.Name)
			}
		}
	}
	return nil
}
