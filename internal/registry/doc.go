// Package registry defines the registry artifact schema shared with the
// component installer, and the vocabulary of known UI components and packages.
//
// # Artifacts
//
// Every scene is published as a registry item:
//
//	{
//	  "$schema": "https://ui.shadcn.com/schema/registry-item.json",
//	  "name": "dashboard-01",
//	  "type": "registry:block",
//	  "title": "SaaS Dashboard",
//	  "description": "...",
//	  "registryDependencies": ["button", "card"],
//	  "dependencies": ["lucide-react"],
//	  "files": [
//	    {
//	      "path": "components/scenes/dashboard/dashboard-01.tsx",
//	      "type": "registry:component",
//	      "content": "..."
//	    }
//	  ],
//	  "categories": ["dashboard"]
//	}
//
// and all items are aggregated into index.json. Both are encoded by Encode:
// two-space indentation, no HTML escaping, a trailing newline, and field
// order fixed by the struct definitions, so identical inputs always produce
// identical bytes.
//
// # Vocabulary
//
// The vocabulary lists the UI components and external packages scenes are
// expected to use. A default is embedded in the binary; projects can replace
// either list with a YAML file:
//
//	components:
//	  - button
//	  - card
//	packages:
//	  - lucide-react
package registry
