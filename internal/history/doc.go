// Package history keeps a SQLite ledger of batch runs and per-document
// outcomes under the state directory.
//
// The ledger backs `shipconf history` and is written on a best-effort basis by
// the importer: a failing write is logged and never changes a batch result.
package history
