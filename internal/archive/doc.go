// Package archive moves processed documents out of the input folder.
//
// Successful documents go to the output folder, failed ones to the problem
// folder together with a <name>-error.txt diagnostic. Existing files are never
// replaced: a taken name gets a MMDDYYYYhhmmss timestamp inserted before the
// extension. Every error returned here is tagged services.ErrArchival.
package archive
