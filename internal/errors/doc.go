// Package errors provides coded, structured errors for the scenes toolchain.
//
// Every failure the registry pipeline can report has a stable code that maps
// to a category, a short message, a longer explanation, and a documentation
// link. Codes are grouped by the stage that raises them:
//
//   - manifest (S001, S009, S012): the manifest is unreadable, drifted, or inconsistent
//   - check (S002-S008): findings recorded by the consistency checker
//   - build (S005-S006): reading sources and writing artifacts
//   - cli (S010-S019): command usage errors such as unknown scene ids
//   - config (S020-S039): scenes.json and vocabulary files
//   - publish (S040-S049): uploading and serving artifacts
//
// # Usage
//
//	err := errors.New("S001").
//	    WithFile("content/scenes.ts").
//	    WithSuggestion("Check that every scene block starts with id and category")
//
//	errors.PrintError(err)
//	// ERROR S001: Manifest format drift
//	//
//	//   content/scenes.ts
//	//
//	//   No scene records matched the expected manifest shape. ...
//	//
//	//   Hint: Check that every scene block starts with id and category
package errors
