package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/scene"
)

const (
	// ItemSchemaURL is the JSON schema of a single registry item.
	ItemSchemaURL = "https://ui.shadcn.com/schema/registry-item.json"

	// IndexSchemaURL is the JSON schema of the registry index.
	IndexSchemaURL = "https://ui.shadcn.com/schema/registry.json"

	// TypeBlock is the item type of a scene.
	TypeBlock = "registry:block"

	// TypeComponent is the file type of a scene source.
	TypeComponent = "registry:component"

	// IndexName is the file name of the aggregate index.
	IndexName = "index.json"
)

// Item is one installable registry unit.
type Item struct {
	Schema               string   `json:"$schema"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	RegistryDependencies []string `json:"registryDependencies"`
	Dependencies         []string `json:"dependencies"`
	Files                []File   `json:"files"`
	Categories           []string `json:"categories"`
}

// File is a source file embedded in an item.
type File struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Index aggregates every item of a registry.
type Index struct {
	Schema   string `json:"$schema"`
	Name     string `json:"name"`
	Homepage string `json:"homepage"`
	Items    []Item `json:"items"`
}

// NewItem builds the item for r with its source content embedded verbatim.
func NewItem(r scene.Record, layout scene.Layout, content string) Item {
	return Item{
		Schema:               ItemSchemaURL,
		Name:                 r.ID,
		Type:                 TypeBlock,
		Title:                r.DisplayName,
		Description:          r.Description,
		RegistryDependencies: nonNil(r.RegistryDependencies),
		Dependencies:         nonNil(r.Dependencies),
		Files: []File{{
			Path:    layout.InstallPath(r),
			Type:    TypeComponent,
			Content: content,
		}},
		Categories: []string{r.Category},
	}
}

// NewIndex aggregates items under the given registry name and homepage.
func NewIndex(name, homepage string, items []Item) Index {
	if items == nil {
		items = []Item{}
	}
	return Index{
		Schema:   IndexSchemaURL,
		Name:     name,
		Homepage: homepage,
		Items:    items,
	}
}

// Encode returns the canonical artifact encoding of v.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReadItem decodes the item artifact at path within fsys.
func ReadItem(fsys fs.FS, path string) (*Item, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &item, nil
}

// ReadIndex decodes the index artifact at path within fsys.
func ReadIndex(fsys fs.FS, path string) (*Index, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &idx, nil
}

// Client fetches a published registry.
type Client struct {
	http *http.Client
}

// NewClient creates a Client with a 30 second timeout.
func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchIndex downloads and decodes the index published at url.
func (c *Client) FetchIndex(ctx context.Context, url string) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New("S042").Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.New("S042").
			WithDetail("Could not connect to registry: " + err.Error()).
			WithSuggestion("Check registry.homepage in scenes.json and your network connection")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("S042").
			WithDetailf("%s returned status %d", url, resp.StatusCode)
	}

	var idx Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return nil, errors.New("S042").
			WithDetail("Invalid registry index: " + err.Error())
	}
	return &idx, nil
}

// Names returns the item names of the index in order.
func (idx *Index) Names() []string {
	names := make([]string, len(idx.Items))
	for i, item := range idx.Items {
		names[i] = item.Name
	}
	return names
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
