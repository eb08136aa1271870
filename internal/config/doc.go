// Package config provides configuration loading for scenes projects.
//
// The configuration is stored in scenes.json at the project root. Every key
// has a default, so a project without scenes.json is valid: the working
// directory becomes the root and the defaults describe the conventional
// gallery layout. Any key may be overridden from the environment with the
// SCENES_ prefix, dots replaced by underscores (SCENES_PATHS_OUTPUT).
//
// # Configuration File Structure
//
//	{
//	  "paths": {
//	    "manifest": "content/scenes.ts",
//	    "scenes": "content/scenes",
//	    "output": "public/r",
//	    "extension": ".tsx"
//	  },
//	  "registry": {
//	    "name": "scenes",
//	    "homepage": "https://scenes.so",
//	    "installPrefix": "components/scenes"
//	  },
//	  "imports": {
//	    "uiPrefix": "@/components/ui/",
//	    "aliasPrefix": "@/",
//	    "runtime": ["react", "react-dom", "next"]
//	  },
//	  "vocabulary": "registry/vocabulary.yaml",
//	  "dev": { "host": "localhost", "port": 3100, "debounce": "150ms" },
//	  "publish": { "bucket": "scenes-registry", "prefix": "r/", "region": "us-east-1" }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println("Manifest:", cfg.ManifestPath())
package config
