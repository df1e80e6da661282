package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/mozilla/firefox-app-validator-manifest/internal/cache"
	"github.com/mozilla/firefox-app-validator-manifest/internal/domain"
	"github.com/mozilla/firefox-app-validator-manifest/internal/loader"
	"github.com/mozilla/firefox-app-validator-manifest/internal/ruleset"
	"github.com/mozilla/firefox-app-validator-manifest/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type validateOptions struct {
	listed   bool
	packaged bool
	rulesDir string
	format   string
	output   string
	maxSize  int64
}

func newValidateCmd() *cobra.Command {
	o := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Validate manifest files",
		Long: `Validate manifest files. Each path may be a manifest file or a directory, which is
searched for manifest.webapp, manifest.json and *.webapp files. With no path the
current directory is searched.

The command exits with status 1 when any manifest has errors.

Examples:
  # Validate every manifest below the current directory
  manifest-validator validate

  # Validate a listed, packaged app and write a YAML report
  manifest-validator validate --listed --packaged -o report.yaml app/manifest.webapp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.listed, "listed", false, "Apply the marketplace listing requirements")
	f.BoolVar(&o.packaged, "packaged", false, "Validate as a packaged app")
	f.StringVar(&o.rulesDir, "rules-dir", "", "Directory with rule document overrides")
	f.StringVarP(&o.format, "format", "f", "text", "Output format: text, json or yaml")
	f.StringVarP(&o.output, "output", "o", "", "Write the report to a .json, .yaml or .yml file")
	f.Int64Var(&o.maxSize, "max-size", loader.DefaultMaxManifestSize, "Largest manifest file accepted, in bytes")

	return cmd
}

func (o *validateOptions) run(cmd *cobra.Command, args []string) error {
	switch o.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}

	if len(args) == 0 {
		args = []string{"."}
	}

	rules, err := ruleset.Load(o.rulesDir)
	if err != nil {
		return err
	}

	svc := service.New(rules, cache.NewLRUCache(cache.DefaultMaxSize))
	opts := domain.Options{Listed: o.listed, Packaged: o.packaged}

	reports, err := validateFiles(cmd.Context(), svc, loader.NewFileManifestLoader(o.maxSize), args, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.output != "" {
		if err := loader.NewWriter().WriteReports(reports, o.output); err != nil {
			return err
		}
		printSummary(out, reports)
		fmt.Fprintf(out, "Report written to %s\n", o.output)
	} else if o.format == "text" {
		printReports(out, reports)
	} else {
		data, err := loader.EncodeReports(reports, o.format)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	}

	for _, r := range reports {
		if !r.Valid {
			return ErrValidationFailed
		}
	}
	return nil
}

// validateFiles validates every manifest found under paths and returns one
// report per file, in path order
func validateFiles(ctx context.Context, svc *service.Service, l loader.ManifestLoader, paths []string, opts domain.Options) ([]loader.FileReport, error) {
	manifests, loadErrors, err := l.LoadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	reports := make([]loader.FileReport, 0, len(manifests)+len(loadErrors))
	for _, m := range manifests {
		outcome, err := svc.Validate(ctx, m.Content, opts)
		if err != nil {
			return nil, err
		}
		reports = append(reports, loader.NewFileReport(m, outcome.Result))
	}
	for _, loadErr := range loadErrors {
		reports = append(reports, loader.NewLoadErrorReport(loadErr))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Path < reports[j].Path
	})
	return reports, nil
}

var (
	passLabel    = color.New(color.FgGreen, color.Bold)
	failLabel    = color.New(color.FgRed, color.Bold)
	errorLabel   = color.New(color.FgRed)
	warningLabel = color.New(color.FgYellow)
)

func printReports(w io.Writer, reports []loader.FileReport) {
	for _, r := range reports {
		switch {
		case r.LoadError != "":
			failLabel.Fprint(w, "FAIL ")
			fmt.Fprintf(w, "%s: %s\n", r.Path, r.LoadError)
			continue
		case r.Valid:
			passLabel.Fprint(w, "PASS ")
		default:
			failLabel.Fprint(w, "FAIL ")
		}

		fmt.Fprintf(w, "%s (%s, %s)\n", r.Path, plural(len(r.Errors), "error"), plural(len(r.Warnings), "warning"))

		for _, d := range r.Diagnostics {
			label := warningLabel
			if d.Severity == domain.SeverityError {
				label = errorLabel
			}
			label.Fprintf(w, "    %-8s", d.Severity)
			fmt.Fprintf(w, "%s: %s", d.Key, d.Message)
			if d.Code == domain.CodeInvalidJSON && r.SyntaxLine > 0 {
				fmt.Fprintf(w, " (line %d)", r.SyntaxLine)
			}
			fmt.Fprintln(w)
		}
	}

	printSummary(w, reports)
}

func printSummary(w io.Writer, reports []loader.FileReport) {
	valid := 0
	for _, r := range reports {
		if r.Valid {
			valid++
		}
	}
	fmt.Fprintf(w, "%s checked: %d valid, %d invalid\n", plural(len(reports), "manifest"), valid, len(reports)-valid)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
