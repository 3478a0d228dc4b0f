// Package batch runs incremental downloads over the fan club list.
//
// For every entry of the progress record the runner lists the posts newer
// than the entry's cursor, downloads them oldest first and advances the
// cursor after each success. The first failing post stops that fan club;
// the run continues with the next one. When the loop finishes the updated
// progress record and the completion log are written. A cancelled context
// aborts the run with ErrInterrupted and writes neither file.
package batch
