// Package services defines shared utilities consumed by the import pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, document names, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that let the batch driver
//     and the diagnostic writer classify failures (resolution, transport, auth,
//     archival) without string matching.
//
// Integrations with the order-management API and the imaging tools live in the
// subpackages and return errors tagged with these markers.
package services
