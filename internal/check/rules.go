package check

import (
	"fmt"
	"path"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/scenes-dev/scenes/internal/imports"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
)

// sceneFindings collects the findings of one scene.
type sceneFindings struct {
	id       string
	file     string
	findings []Finding
}

func (s *sceneFindings) add(sev Severity, phase Phase, code, format string, args ...any) {
	s.findings = append(s.findings, Finding{
		Severity: sev,
		Phase:    phase,
		Code:     code,
		Scene:    s.id,
		File:     s.file,
		Message:  fmt.Sprintf(format, args...),
	})
}

// checkUIImports compares UI imports with registryDependencies.
func checkUIImports(s *sceneFindings, rec scene.Record, f imports.Finding, uiPrefix string) {
	declared := toSet(rec.RegistryDependencies)
	used := toSet(f.UI)

	for _, name := range f.UI {
		if !declared[name] {
			s.add(SeverityError, PhaseUIImports, "S003",
				"%s: imports %s%s but %q is not in registryDependencies", rec.ID, uiPrefix, name, name)
		}
	}
	for _, name := range rec.RegistryDependencies {
		if !used[name] {
			s.add(SeverityWarning, PhaseUIImports, "S004",
				"%s: registryDependency %q is declared but never imported", rec.ID, name)
		}
	}
}

// checkPackages compares external package imports with dependencies.
func checkPackages(s *sceneFindings, rec scene.Record, f imports.Finding) {
	declared := toSet(rec.Dependencies)
	used := toSet(f.Packages)

	for _, pkg := range f.Packages {
		if !declared[pkg] {
			s.add(SeverityError, PhasePackages, "S003",
				"%s: imports %q but it's not in dependencies", rec.ID, pkg)
		}
	}
	for _, pkg := range rec.Dependencies {
		if !used[pkg] {
			s.add(SeverityWarning, PhasePackages, "S004",
				"%s: dependency %q is declared but never imported", rec.ID, pkg)
		}
	}
}

// checkIsolation reports local imports that reach into another scene's
// directory. Alias imports are matched against the scene namespace; relative
// imports are resolved against the scene's own directory.
func checkIsolation(s *sceneFindings, rec scene.Record, f imports.Finding, layout scene.Layout, aliasPrefix string) {
	ownDir := layout.CategoryDir(rec.Category)
	ownAlias := aliasPrefix + ownDir

	for _, spec := range f.Local {
		if strings.HasPrefix(spec, ".") {
			resolved := path.Join(ownDir, spec)
			if within(resolved, path.Clean(layout.ScenesDir)) && !within(resolved, ownDir) {
				s.add(SeverityError, PhaseIsolation, "S008",
					"%s: cross-scene import detected: %q", rec.ID, spec)
			}
			continue
		}
		if strings.Contains(spec, "/scenes/") && spec != ownAlias && !strings.HasPrefix(spec, ownAlias+"/") {
			s.add(SeverityError, PhaseIsolation, "S008",
				"%s: cross-scene import detected: %q", rec.ID, spec)
		}
	}
}

// checkVocabulary warns about declared names the vocabulary does not know.
func checkVocabulary(s *sceneFindings, rec scene.Record, vocab *registry.Vocabulary) {
	for _, dep := range rec.RegistryDependencies {
		if !vocab.HasComponent(dep) {
			s.add(SeverityWarning, PhaseVocabulary, "S004",
				"%s: registryDependency %q is not a known UI component", rec.ID, dep)
		}
	}
	for _, dep := range rec.Dependencies {
		if !vocab.HasPackage(dep) {
			s.add(SeverityWarning, PhaseVocabulary, "S004",
				"%s: dependency %q is not in the known packages list", rec.ID, dep)
		}
	}
}

// checkItem compares a generated item with the record it was generated from.
// content is the current source text, or empty when the source is missing.
func checkItem(s *sceneFindings, rec scene.Record, item *registry.Item, installPath, content string) {
	if item.Name != rec.ID {
		s.add(SeverityError, PhaseArtifacts, "S007",
			"registry item name mismatch for %q: expected %q, got %q", rec.ID, rec.ID, item.Name)
	}
	if len(item.Files) == 0 {
		s.add(SeverityError, PhaseArtifacts, "S007",
			"registry item for %q has no files", rec.ID)
		return
	}

	file := item.Files[0]
	if file.Path != installPath {
		s.add(SeverityError, PhaseArtifacts, "S007",
			"registry item install path mismatch for %q: expected %q, got %q", rec.ID, installPath, file.Path)
	}
	if content != "" && file.Content != content {
		added, removed := lineDelta(file.Content, content)
		s.add(SeverityWarning, PhaseArtifacts, "S004",
			"registry item for %q is stale (+%d -%d lines); regenerate the registry", rec.ID, added, removed)
	}
}

// lineDelta counts the lines added and removed going from old to cur.
func lineDelta(old, cur string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, cur)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	return added, removed
}

func countLines(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
