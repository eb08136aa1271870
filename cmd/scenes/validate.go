package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/check"
	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/pipeline"
	"github.com/scenes-dev/scenes/internal/scene"
)

func validateCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the whole registry",
		Long: `Validate every scene in the manifest.

Checks, in order:
  • every declared scene has a source file
  • every scene file has a manifest record
  • generated registry items agree with the manifest
  • UI component imports match registryDependencies
  • package imports match dependencies
  • scenes do not import from other scenes
  • declared dependencies are known to the vocabulary

Exits with status 1 when any check reports an error.

Examples:
  scenes validate
  scenes validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print findings as JSON lines")

	return cmd
}

func runValidate(ctx context.Context, jsonOut bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, pipeline.Options{})
	if err != nil {
		return err
	}

	m, err := p.Load(ctx)
	if err != nil {
		return err
	}
	report, err := p.Check(ctx, m)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
		return report.Err()
	}

	fmt.Fprintln(stdout, "Validating registry...")
	fmt.Fprintln(stdout)
	info("Found %d scene(s) in %s", len(m.Records), cfg.ManifestPath())
	fmt.Fprintln(stdout)
	printGroups(report)
	fmt.Fprintln(stdout)
	info("%s", report.Summary())
	return report.Err()
}

func validateSceneCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate-scene <scene-id>",
		Short: "Validate a single scene",
		Long: `Validate one scene against its manifest record.

Runs every per-scene check; the orphan check only makes sense for the
whole registry and is skipped.

Examples:
  scenes validate-scene pricing-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateScene(cmd.Context(), args[0], jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print findings as JSON lines")

	return cmd
}

func runValidateScene(ctx context.Context, id string, jsonOut bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, pipeline.Options{})
	if err != nil {
		return err
	}

	m, err := p.Load(ctx)
	if err != nil {
		return err
	}
	report, err := p.CheckScene(ctx, m, id)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
		return report.Err()
	}

	rec, _ := m.Find(id)
	layout := cfg.Layout()

	fmt.Fprintf(stdout, "Validating scene %q...\n\n", id)
	info("Source file: %s", layout.SourcePath(rec))
	info("Registry JSON: %s/%s", cfg.OutputPath(), scene.ArtifactName(id))
	fmt.Fprintln(stdout)
	printGroups(report)
	fmt.Fprintln(stdout)
	info("Result: %d error(s), %d warning(s)", report.Errors(), report.Warnings())
	if report.HasErrors() {
		return report.Err()
	}
	info("Scene is valid.")
	return nil
}

// printGroups prints each phase heading followed by its findings.
func printGroups(report *check.Report) {
	groups := report.ByPhase()
	for i, g := range groups {
		info("[%d/%d] %s...", i+1, len(groups), g.Phase.Title())
		for _, f := range g.Findings {
			line := f.String()
			if f.Severity == check.SeverityError {
				line = errors.Red(line)
			} else {
				line = errors.Yellow(line)
			}
			fmt.Fprintf(stdout, "    %s\n", line)
		}
	}
}

type jsonSummary struct {
	Summary  string `json:"summary"`
	Scenes   int    `json:"scenes"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
}

// printJSON prints one JSON object per finding, then a summary object.
func printJSON(report *check.Report) error {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	for _, f := range report.Findings {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return enc.Encode(jsonSummary{
		Summary:  report.Summary(),
		Scenes:   report.Scenes,
		Errors:   report.Errors(),
		Warnings: report.Warnings(),
	})
}
