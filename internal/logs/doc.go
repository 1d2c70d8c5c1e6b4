// Package logs reads back the JSON run log written next to the console output.
//
// Tail prints the most recent entries, optionally filtered to one run or a
// minimum level, and can keep following the file as a batch writes to it.
// Entries are rendered in the same layout as the console logger.
package logs
