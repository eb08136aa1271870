// Package scene defines the scene metadata records shared by the registry
// pipeline and the path conventions derived from them.
//
// A scene's source location and its install location in a consumer project are
// never stored; both are derived from the record's category and id by a
// Layout, so the convention lives in exactly one place.
package scene

import (
	"path"
	"sort"
)

// Record is one distributable scene as declared in the manifest.
type Record struct {
	// ID is the unique slug identifying the scene.
	ID string `json:"id"`

	// Category groups scenes for navigation.
	Category string `json:"category"`

	// DisplayName is the human-facing title.
	DisplayName string `json:"name,omitempty"`

	// Description is the human-facing summary.
	Description string `json:"description,omitempty"`

	// Tags are free-form search keywords.
	Tags []string `json:"tags,omitempty"`

	// RegistryDependencies are the shared UI components the scene uses.
	RegistryDependencies []string `json:"registryDependencies"`

	// Dependencies are the external packages the scene uses.
	Dependencies []string `json:"dependencies"`
}

// Category is a navigation group declared in the manifest.
type Category struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Sort        int    `json:"sort"`
}

// Layout holds the path conventions for scene sources and installs.
type Layout struct {
	// ScenesDir is the project-relative directory holding category folders.
	ScenesDir string

	// Extension is the source file extension, including the dot.
	Extension string

	// InstallPrefix is the consumer-relative directory scenes install into.
	InstallPrefix string
}

// DefaultLayout returns the conventional gallery layout.
func DefaultLayout() Layout {
	return Layout{
		ScenesDir:     "content/scenes",
		Extension:     ".tsx",
		InstallPrefix: "components/scenes",
	}
}

// FileName returns <id><ext>.
func (l Layout) FileName(r Record) string {
	return r.ID + l.Extension
}

// CategoryDir returns the directory holding a category's scene sources.
func (l Layout) CategoryDir(category string) string {
	return path.Join(l.ScenesDir, category)
}

// SourcePath returns <scenesDir>/<category>/<id><ext>.
func (l Layout) SourcePath(r Record) string {
	return path.Join(l.ScenesDir, r.Category, l.FileName(r))
}

// InstallPath returns <installPrefix>/<category>/<id><ext>.
func (l Layout) InstallPath(r Record) string {
	return path.Join(l.InstallPrefix, r.Category, l.FileName(r))
}

// ArtifactName returns the file name of a scene's registry item.
func ArtifactName(id string) string {
	return id + ".json"
}

// IDs returns the ids of records in order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// Find returns the record with the given id.
func Find(records []Record, id string) (Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Categories returns the sorted distinct category ids used by records.
func Categories(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	sort.Strings(out)
	return out
}
