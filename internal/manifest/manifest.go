// Package manifest extracts scene metadata from the gallery manifest.
//
// The manifest is a TypeScript module that cannot be evaluated outside the web
// toolchain: each scene carries a dynamic import() expression. Instead of
// executing it, the extractor treats the manifest as a fixed-shape micro-format
// and recovers records with anchored patterns:
//
//	{
//	  id: "<id>",
//	  category: "<category>",
//	  ...any fields...
//	  registryDependencies: [ "<name>", ... ],
//	  ...any fields...
//	  dependencies: [ "<package>", ... ],
//	  ...
//	}
//
// id must be immediately followed by category. Anything that does not fit the
// shape is skipped silently; callers treat zero records as format drift.
package manifest

import (
	"io/fs"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/scene"
)

var (
	recordPattern = regexp.MustCompile(
		`\{\s*id:\s*"([^"]+)",\s*category:\s*"([^"]+)"([\s\S]*?)registryDependencies:\s*\[([^\]]*)\][\s\S]*?dependencies:\s*\[([^\]]*)\]`)

	categoryPattern = regexp.MustCompile(
		`\{\s*id:\s*"([^"]+)",\s*label:\s*"([^"]*)"([\s\S]*?)sort:\s*(-?\d+)`)

	namePattern        = regexp.MustCompile(`\bname:\s*"([^"]*)"`)
	descriptionPattern = regexp.MustCompile(`\bdescription:\s*"([^"]*)"`)
	tagsPattern        = regexp.MustCompile(`\btags:\s*\[([^\]]*)\]`)
)

// Manifest is the parsed content of the manifest file.
type Manifest struct {
	// Path is the project-relative file the manifest was read from.
	Path string

	Records    []scene.Record
	Categories []scene.Category
}

// Extract returns the scene records found in src, in order of appearance.
// It never fails; a manifest that drifted from the expected shape yields an
// empty slice.
func Extract(src string) []scene.Record {
	matches := recordPattern.FindAllStringSubmatch(src, -1)
	records := make([]scene.Record, 0, len(matches))
	for _, m := range matches {
		middle := m[3]
		records = append(records, scene.Record{
			ID:                   m[1],
			Category:             m[2],
			DisplayName:          firstGroup(namePattern, middle),
			Description:          firstGroup(descriptionPattern, middle),
			Tags:                 splitList(firstGroup(tagsPattern, middle)),
			RegistryDependencies: splitList(m[4]),
			Dependencies:         splitList(m[5]),
		})
	}
	return records
}

// ExtractCategories returns the category blocks found in src.
// A category block is an object whose id is immediately followed by label.
func ExtractCategories(src string) []scene.Category {
	matches := categoryPattern.FindAllStringSubmatch(src, -1)
	cats := make([]scene.Category, 0, len(matches))
	for _, m := range matches {
		// Out of range values come back clamped to the int bounds.
		order, err := strconv.Atoi(m[4])
		if err != nil {
			slog.Warn("category sort out of range", "category", m[1], "sort", m[4], "using", order)
		}
		cats = append(cats, scene.Category{
			ID:          m[1],
			Label:       m[2],
			Description: firstGroup(descriptionPattern, m[3]),
			Sort:        order,
		})
	}
	return cats
}

// Parse extracts records and categories from src.
// Zero records is reported as format drift (S001).
func Parse(src string) (*Manifest, error) {
	m := &Manifest{
		Records:    Extract(src),
		Categories: ExtractCategories(src),
	}
	if len(m.Records) == 0 {
		return nil, errors.New("S001").
			WithDetail("0 scene records extracted").
			WithSuggestion("Every scene block must start with id: \"...\", category: \"...\" and declare registryDependencies and dependencies arrays")
	}
	return m, nil
}

// Load reads and parses the manifest at path within fsys.
func Load(fsys fs.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.New("S009").WithFile(path).Wrap(err)
	}

	m, err := Parse(string(data))
	if err != nil {
		return nil, errors.FromError(err, "S001").WithFile(path)
	}
	m.Path = path
	return m, nil
}

// IDs returns the record ids in manifest order.
func (m *Manifest) IDs() []string {
	return scene.IDs(m.Records)
}

// Find returns the record with the given id.
func (m *Manifest) Find(id string) (scene.Record, bool) {
	return scene.Find(m.Records, id)
}

// CategoryIDs returns the declared category ids. When the manifest declares no
// category blocks, the categories used by records are returned instead.
func (m *Manifest) CategoryIDs() []string {
	if len(m.Categories) == 0 {
		return scene.Categories(m.Records)
	}
	ids := make([]string, len(m.Categories))
	for i, c := range m.Categories {
		ids[i] = c.ID
	}
	return ids
}

// InCategory returns the records belonging to category, in manifest order.
func (m *Manifest) InCategory(category string) []scene.Record {
	var out []scene.Record
	for _, r := range m.Records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// splitList turns the inside of an array literal into its string elements.
// Tokens are trimmed and unquoted; empty tokens are dropped.
func splitList(raw string) []string {
	out := []string{}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		tok = strings.Trim(tok, `"'`)
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
