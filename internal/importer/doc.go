// Package importer drives a batch pass over the input folder.
//
// A run takes the run lock, logs in, snapshots the input folder and handles
// each document in turn: resolve the shipment identifier, PUT the bytes as a
// PackingSlip attachment, then archive. Resolution and upload failures are
// captured per document and routed to the problem folder so the batch keeps
// going. An archival failure or an interrupt stops the batch; logout is still
// attempted on a detached context. Every run is summarized for the CLI and,
// when enabled, recorded in the history ledger and metrics textfile.
package importer
