// Package build generates the registry artifacts for a set of scenes.
//
// For every scene it reads the full source text, embeds it verbatim in a
// registry item, and writes <output>/<id>.json. It then writes
// <output>/index.json aggregating every item.
//
// # Usage
//
//	builder := build.New(cfg, build.Options{
//	    OnProgress: func(step string) { fmt.Println(step) },
//	})
//	result, err := builder.Build(ctx, m.Records)
//	if err != nil {
//	    var werr *build.WriteError
//	    if errors.As(err, &werr) {
//	        fmt.Println("written before the failure:", werr.Written)
//	    }
//	    return err
//	}
//	fmt.Printf("Generated %d items in %s\n", result.Items, result.Duration)
//
// # Guarantees
//
//   - Every source is read before anything is written. A missing or
//     unreadable source aborts the run with S005 and leaves the output
//     directory untouched.
//   - Each file is written to a temporary file in the output directory and
//     renamed into place, so a reader never sees a partial artifact.
//   - The first failed write stops the run. Artifacts written before it are
//     intact, and the returned *WriteError lists them.
//   - Identical inputs produce byte-identical artifacts.
//
// # Output Structure
//
//	public/r/
//	├── dashboard-01.json
//	├── auth-01.json
//	└── index.json
package build
