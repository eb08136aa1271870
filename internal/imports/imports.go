// Package imports classifies the import declarations of a scene source file.
//
// The scanner is lexical: it finds `import <bindings> from "<specifier>"`
// declarations with a pattern and looks only at the specifier. It does not
// parse TypeScript, so imports inside comments or template strings are
// reported like any other.
package imports

import (
	"regexp"
	"sort"
	"strings"
)

var importPattern = regexp.MustCompile(`import\s+(?:[\s\S]*?)\s+from\s+["']([^"']+)["']`)

// Classifier sorts import specifiers into UI components, external packages,
// and local modules.
type Classifier struct {
	// UIPrefix marks shared UI components, e.g. "@/components/ui/".
	UIPrefix string

	// AliasPrefix marks project-internal modules, e.g. "@/".
	AliasPrefix string

	// Runtime lists framework packages that are never reported.
	Runtime []string
}

// Finding is the classification of one file. Every set is sorted and free of
// duplicates.
type Finding struct {
	// UI holds component names with UIPrefix stripped.
	UI []string `json:"ui"`

	// Packages holds external package names, truncated to the package root.
	Packages []string `json:"packages"`

	// Local holds relative and alias specifiers verbatim.
	Local []string `json:"local"`
}

// Default returns the classifier for the conventional gallery layout.
func Default() *Classifier {
	return &Classifier{
		UIPrefix:    "@/components/ui/",
		AliasPrefix: "@/",
		Runtime:     []string{"react", "react-dom", "next"},
	}
}

// Specifiers returns every import specifier in src, in order of appearance.
func Specifiers(src string) []string {
	matches := importPattern.FindAllStringSubmatch(src, -1)
	specs := make([]string, 0, len(matches))
	for _, m := range matches {
		specs = append(specs, m[1])
	}
	return specs
}

// Classify scans src and buckets every import specifier.
// A file without imports yields three empty sets.
func (c *Classifier) Classify(src string) Finding {
	ui := make(map[string]bool)
	pkgs := make(map[string]bool)
	local := make(map[string]bool)

	for _, spec := range Specifiers(src) {
		switch {
		case c.UIPrefix != "" && strings.HasPrefix(spec, c.UIPrefix):
			ui[strings.TrimPrefix(spec, c.UIPrefix)] = true
		case strings.HasPrefix(spec, ".") || (c.AliasPrefix != "" && strings.HasPrefix(spec, c.AliasPrefix)):
			local[spec] = true
		default:
			name := PackageName(spec)
			if !c.IsRuntime(name) {
				pkgs[name] = true
			}
		}
	}

	return Finding{
		UI:       sortedKeys(ui),
		Packages: sortedKeys(pkgs),
		Local:    sortedKeys(local),
	}
}

// IsRuntime reports whether pkg is a framework runtime package.
func (c *Classifier) IsRuntime(pkg string) bool {
	for _, r := range c.Runtime {
		if pkg == r {
			return true
		}
	}
	return false
}

// PackageName truncates a bare specifier to its package:
// "@scope/pkg/sub/path" becomes "@scope/pkg" and "pkg/sub" becomes "pkg".
func PackageName(spec string) string {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// Empty reports whether the file had no classified imports.
func (f Finding) Empty() bool {
	return len(f.UI) == 0 && len(f.Packages) == 0 && len(f.Local) == 0
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
