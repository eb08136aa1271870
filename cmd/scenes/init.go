package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/errors"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default scenes.json",
		Long: `Write scenes.json with the default paths and registry settings
into the project directory.

Examples:
  scenes init
  scenes init -C ./site --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing scenes.json")

	return cmd
}

func runInit(force bool) error {
	dir := projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}

	if config.Exists(dir) && !force {
		return errors.New("S020").
			WithFile(filepath.Join(dir, config.ConfigFileName)).
			WithDetail(config.ConfigFileName + " already exists").
			WithSuggestion("Rerun with --force to overwrite it")
	}

	cfg := config.New()
	cfg.Name = filepath.Base(dir)
	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("Created %s", path)
	if _, err := os.Stat(cfg.Abs(cfg.ManifestPath())); os.IsNotExist(err) {
		warn("Manifest %s does not exist yet", cfg.ManifestPath())
	}
	return nil
}
