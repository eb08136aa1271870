// Package check reconciles declared scene metadata with what scene sources
// actually import and with the files present on disk.
//
// Checks are grouped in phases and reported in this order:
//
//	sources     source file exists, ids unique, category declared   (error)
//	orphans     source files nobody declared                         (warning)
//	artifacts   generated items agree with the manifest              (error; stale content warns)
//	ui-imports  UI imports vs registryDependencies                   (undeclared error, unused warning)
//	packages    package imports vs dependencies                      (undeclared error, unused warning)
//	isolation   imports reaching into another scene's directory      (error)
//	vocabulary  declared names known to the vocabulary               (warning)
//
// Every check runs regardless of earlier failures. The artifacts phase runs
// only when the output directory exists. A run only reads; it never writes.
package check
