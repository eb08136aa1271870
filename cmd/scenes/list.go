package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/manifest"
	"github.com/scenes-dev/scenes/internal/pipeline"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
)

func listCmd() *cobra.Command {
	var (
		remote bool
		url    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenes by category",
		Long: `List the scenes declared in the manifest, grouped by category.

With --remote, list the items of the published registry index instead.

Examples:
  scenes list
  scenes list --remote
  scenes list --remote --url=https://example.com/r/index.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote || url != "" {
				return runListRemote(cmd.Context(), url)
			}
			return runList(cmd.Context())
		},
	}

	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "List the published registry")
	cmd.Flags().StringVar(&url, "url", "", "Index URL (default <registry.homepage>/r/index.json)")

	return cmd
}

func runList(ctx context.Context) error {
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

	fmt.Fprintln(stdout, "  Scenes:")
	fmt.Fprintln(stdout)

	cats := listCategories(m)
	for _, cat := range cats {
		records := m.InCategory(cat.ID)
		label := cat.Label
		if label == "" {
			label = cat.ID
		}
		fmt.Fprintf(stdout, "  %s (%d)\n", label, len(records))
		for _, r := range records {
			printRecord(r)
		}
		fmt.Fprintln(stdout)
	}

	info("%d scene(s) in %d categor%s", len(m.Records), len(cats), plural(len(cats), "y", "ies"))
	return nil
}

// listCategories returns the manifest categories by sort order. Categories
// used by records but not declared are appended.
func listCategories(m *manifest.Manifest) []scene.Category {
	cats := append([]scene.Category(nil), m.Categories...)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Sort < cats[j].Sort })

	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		seen[c.ID] = true
	}
	for _, id := range scene.Categories(m.Records) {
		if !seen[id] {
			cats = append(cats, scene.Category{ID: id})
		}
	}
	return cats
}

func printRecord(r scene.Record) {
	name := r.DisplayName
	if name == "" {
		name = r.ID
	}
	fmt.Fprintf(stdout, "    %-20s %s\n", r.ID, name)
	if len(r.RegistryDependencies) > 0 {
		fmt.Fprintf(stdout, "    %-20s ui: %s\n", "", strings.Join(r.RegistryDependencies, ", "))
	}
	if len(r.Dependencies) > 0 {
		fmt.Fprintf(stdout, "    %-20s packages: %s\n", "", strings.Join(r.Dependencies, ", "))
	}
}

func runListRemote(ctx context.Context, url string) error {
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url = strings.TrimSuffix(cfg.Registry.Homepage, "/") + "/r/" + registry.IndexName
	}

	fmt.Fprintf(stdout, "  Fetching %s...\n\n", url)

	idx, err := registry.NewClient().FetchIndex(ctx, url)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "  %s (%s)\n\n", idx.Name, idx.Homepage)
	for _, item := range idx.Items {
		title := item.Title
		if title == "" {
			title = item.Name
		}
		fmt.Fprintf(stdout, "    %-20s %-14s %s\n", item.Name, strings.Join(item.Categories, ","), title)
	}
	fmt.Fprintln(stdout)
	info("%d published item(s)", len(idx.Items))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
