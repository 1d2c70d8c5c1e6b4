// Package zbar decodes barcodes from raster images through the zbarimg CLI.
//
// Results are returned in the decoder's own order; callers that pick a symbol
// by position rely on that order being preserved.
package zbar
