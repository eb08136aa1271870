package dev

import (
	"path/filepath"
	"strings"

	"github.com/scenes-dev/scenes/internal/config"
)

// CollectWatchPaths returns the absolute paths a dev server watches: the
// manifest, the scene source tree and the vocabulary override when set.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := []string{
		cfg.Abs(cfg.ManifestPath()),
		cfg.Abs(cfg.ScenesPath()),
	}
	if v := cfg.VocabularyPath(); v != "" {
		paths = append(paths, cfg.Abs(v))
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}

// Classifier returns a change classifier for root-relative paths in the
// project described by cfg.
func Classifier(cfg *config.Config) func(rel string) ChangeType {
	manifestPath := cfg.ManifestPath()
	vocabPath := cfg.VocabularyPath()
	scenesDir := cfg.ScenesPath() + "/"
	ext := cfg.Paths.Extension

	return func(rel string) ChangeType {
		switch {
		case rel == manifestPath:
			return ChangeManifest
		case vocabPath != "" && rel == vocabPath:
			return ChangeVocabulary
		case strings.HasPrefix(rel, scenesDir) && strings.HasSuffix(rel, ext):
			return ChangeScene
		default:
			return ChangeOther
		}
	}
}
