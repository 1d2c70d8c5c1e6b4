// Package imagemagick renders scanned PDFs into a single composite image by
// shelling out to the ImageMagick `magick` binary (which in turn relies on
// Ghostscript for PDF input).
//
// Every page is rendered at the configured density and stacked vertically with
// `-append`, so a barcode decoder can read the whole document in one pass.
package imagemagick
