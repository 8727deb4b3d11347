// Package changelog maintains the project's markdown changelog file.
//
// Release notes are prepended below the document title so the newest release
// is always first. The file is created with a title when it does not exist.
// Updating is idempotent: a release whose heading is already present is not
// written twice.
package changelog
