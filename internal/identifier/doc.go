// Package identifier resolves the shipment identifier a scanned document
// belongs to.
//
// Barcode documents (PDF by default) are rendered into one composite image and
// decoded in thorough mode; the second symbol is the shipment number, the
// first being the customer number printed on the same form. Every other file
// type is resolved from its file name.
package identifier
