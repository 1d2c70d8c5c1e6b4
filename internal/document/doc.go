// Package document models the files a batch run picks up from the input
// folder: a one-shot directory snapshot plus lazy access to each file's bytes.
package document
