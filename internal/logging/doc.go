// Package logging assembles the slog loggers used by shipconf.
//
// Console output uses a compact human-readable handler; a JSON copy of every
// record can be fanned out to the log file under the configured log directory.
// Context helpers tag log lines with the run, file and stage currently being
// processed so per-document failures can be traced back to a batch.
package logging
