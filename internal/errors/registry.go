package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://scenes.so/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Manifest and check findings (S001-S009)
	// ============================================

	"S001": {
		Category: CategoryManifest,
		Message:  "Manifest format drift",
		Detail:   "No scene records matched the expected manifest shape. The manifest almost certainly changed format; an empty manifest is not a valid registry.",
		DocURL:   docBase + "S001",
	},
	"S002": {
		Category: CategoryCheck,
		Message:  "Missing scene source",
		Detail:   "A scene is declared in the manifest but its source file does not exist at the conventional path.",
		DocURL:   docBase + "S002",
	},
	"S003": {
		Category: CategoryCheck,
		Message:  "Undeclared dependency",
		Detail:   "The scene imports something its metadata does not declare. Consumers who install only the declared dependencies will get a broken scene.",
		DocURL:   docBase + "S003",
	},
	"S004": {
		Category: CategoryCheck,
		Message:  "Metadata drift",
		Detail:   "Declared metadata does not match what the source uses or what the vocabulary knows about.",
		DocURL:   docBase + "S004",
	},
	"S005": {
		Category: CategoryBuild,
		Message:  "Scene source unreadable",
		Detail:   "A scene's source file could not be read, so no artifact was written for any scene.",
		DocURL:   docBase + "S005",
	},
	"S006": {
		Category: CategoryBuild,
		Message:  "Artifact write failed",
		Detail:   "Writing a registry artifact failed. Remaining artifacts were not written; artifacts written earlier are intact.",
		DocURL:   docBase + "S006",
	},
	"S007": {
		Category: CategoryCheck,
		Message:  "Artifact mismatch",
		Detail:   "A generated registry artifact disagrees with the manifest. Regenerate the registry.",
		DocURL:   docBase + "S007",
	},
	"S008": {
		Category: CategoryCheck,
		Message:  "Cross-scene import",
		Detail:   "A scene imports a module from another scene's directory. Scenes must be installable on their own.",
		DocURL:   docBase + "S008",
	},
	"S009": {
		Category: CategoryManifest,
		Message:  "Manifest unreadable",
		Detail:   "The manifest file could not be read. Check paths.manifest in scenes.json.",
		DocURL:   docBase + "S009",
	},

	// ============================================
	// CLI Errors (S010-S019)
	// ============================================

	"S010": {
		Category: CategoryCLI,
		Message:  "Unknown scene",
		Detail:   "The requested scene id is not declared in the manifest.",
		DocURL:   docBase + "S010",
	},
	"S011": {
		Category: CategoryCLI,
		Message:  "Validation failed",
		Detail:   "The registry has error-severity findings.",
		DocURL:   docBase + "S011",
	},
	"S012": {
		Category: CategoryManifest,
		Message:  "Invalid scene record",
		Detail:   "A manifest record reuses another record's id or names a category the manifest does not declare.",
		DocURL:   docBase + "S012",
	},

	// ============================================
	// Config Errors (S020-S039)
	// ============================================

	"S020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "scenes.json could not be parsed.",
		DocURL:   docBase + "S020",
	},
	"S021": {
		Category: CategoryConfig,
		Message:  "Manifest not found",
		Detail:   "The manifest file configured in scenes.json does not exist.",
		DocURL:   docBase + "S021",
	},
	"S022": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or malformed.",
		DocURL:   docBase + "S022",
	},
	"S030": {
		Category: CategoryConfig,
		Message:  "Invalid vocabulary file",
		Detail:   "The vocabulary file could not be parsed as YAML.",
		DocURL:   docBase + "S030",
	},

	// ============================================
	// Publish Errors (S040-S049)
	// ============================================

	"S040": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "Uploading registry artifacts failed.",
		DocURL:   docBase + "S040",
	},
	"S041": {
		Category: CategoryPublish,
		Message:  "Dev server failed",
		Detail:   "The local registry server stopped unexpectedly.",
		DocURL:   docBase + "S041",
	},
	"S042": {
		Category: CategoryPublish,
		Message:  "Remote registry unavailable",
		Detail:   "The published registry index could not be fetched or decoded.",
		DocURL:   docBase + "S042",
	},
}

// Register adds or replaces an error template.
func Register(code string, template Template) {
	registry[code] = template
}

// GetTemplate returns the template for a code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// GetAllCodes returns all registered codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
