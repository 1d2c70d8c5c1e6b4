// Package fileutil moves documents between folders that may live on different
// filesystems, such as a network share for the input folder and local disk for
// the archive.
package fileutil
