package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/build"
	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/pipeline"
)

func generateCmd() *cobra.Command {
	var (
		output string
		clean  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate registry items and the index",
		Long: `Generate one registry item per scene plus the index, without
validating first.

Every scene source is read before anything is written; if any source
is missing, no artifact is written.

Examples:
  scenes generate
  scenes generate --output=dist/r
  scenes generate --clean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), output, clean)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from scenes.json)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove previously generated artifacts first")

	return cmd
}

func runGenerate(ctx context.Context, output string, clean bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Paths.Output = output
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if clean {
		if err := cleanOutput(cfg); err != nil {
			return err
		}
	}

	p, err := pipeline.New(cfg, pipeline.Options{OnProgress: func(step string) { info("%s", step) }})
	if err != nil {
		return err
	}
	m, err := p.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Generating registry...")
	fmt.Fprintln(stdout)
	result, err := p.Generate(ctx, m)
	if err != nil {
		reportPartial(err)
		return err
	}

	printResult(cfg, result)
	return nil
}

func buildCmd() *cobra.Command {
	var (
		force bool
		clean bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Validate, then generate the registry",
		Long: `Validate the registry and generate artifacts when validation
passes.

Existing artifacts are about to be replaced, so they are not checked.
With --force, artifacts are generated even when validation fails; the
command still exits with status 1.

Examples:
  scenes build
  scenes build --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), force, clean)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Generate even when validation fails")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove previously generated artifacts first")

	return cmd
}

func runBuild(ctx context.Context, force, clean bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if clean {
		if err := cleanOutput(cfg); err != nil {
			return err
		}
	}

	p, err := pipeline.New(cfg, pipeline.Options{OnProgress: func(step string) { info("%s", step) }})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Validating registry...")
	fmt.Fprintln(stdout)
	out, err := p.Run(ctx, force)
	if out != nil && out.Report != nil {
		if len(out.Report.Findings) > 0 {
			printGroups(out.Report)
			fmt.Fprintln(stdout)
		}
		info("%s", out.Report.Summary())
		fmt.Fprintln(stdout)
	}
	if err != nil {
		reportPartial(err)
		return err
	}

	if out.Skipped {
		errorMsg("Generation skipped; fix the errors above or rerun with --force")
		return out.Report.Err()
	}

	printResult(cfg, out.Result)
	return out.Report.Err()
}

func cleanOutput(cfg *config.Config) error {
	info("Cleaning output directory...")
	n, err := build.New(cfg, build.Options{}).Clean()
	if err != nil {
		return err
	}
	info("Removed %d artifact(s)", n)
	return nil
}

func reportPartial(err error) {
	var we *build.WriteError
	if stderrors.As(err, &we) && len(we.Written) > 0 {
		warn("%d artifact(s) were written before %s failed:", len(we.Written), we.Failed)
		for _, name := range we.Written {
			info("  %s", name)
		}
	}
}

func printResult(cfg *config.Config, result *build.Result) {
	fmt.Fprintln(stdout)
	success("Generated %d registry item(s) in %s", result.Items, result.Duration.Round(time.Millisecond))
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  Output:")
	fmt.Fprintf(stdout, "    %s/\n", cfg.OutputPath())
	for _, a := range result.Written {
		fmt.Fprintf(stdout, "    ├── %-28s (%s)\n", a.Name+".json", formatBytes(a.Size))
	}
	if result.Index != nil {
		fmt.Fprintf(stdout, "    └── %-28s (%s)\n", "index.json", formatBytes(result.Index.Size))
	}
	fmt.Fprintln(stdout)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
