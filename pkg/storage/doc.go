// Package storage writes downloaded Fantia files below the output directory.
//
// All writes go through an afero.Fs so tests can run against an in-memory
// filesystem. Files are streamed to a ".part" sibling and renamed into place,
// so an interrupted download never leaves a truncated file under its final
// name. The Manager also holds the exclusion list: file names that are
// skipped instead of downloaded.
package storage
