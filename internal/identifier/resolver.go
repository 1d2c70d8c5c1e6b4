package identifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shipconf/internal/config"
	"shipconf/internal/document"
	"shipconf/internal/logging"
	"shipconf/internal/services"
	"shipconf/internal/services/imagemagick"
	"shipconf/internal/services/zbar"
)

var (
	// ErrNoBarcode reports a barcode document with fewer than two symbols.
	ErrNoBarcode = errors.New("no barcode")
	// ErrEmptyIdentifier reports a barcode or file name that yielded no text.
	ErrEmptyIdentifier = errors.New("empty shipment identifier")
)

// Source records which branch produced an identifier.
type Source string

const (
	SourceBarcode  Source = "barcode"
	SourceFileName Source = "filename"
)

// shipmentBarcodeIndex is the position of the shipment number among the decoded
// symbols; the first symbol is the customer number.
const shipmentBarcodeIndex = 1

const compositeImageName = "composite.png"

// Resolution is the outcome of resolving one document.
type Resolution struct {
	ShipmentID string
	Source     Source
	// Symbols holds every decoded barcode for barcode documents.
	Symbols []string
}

// Resolver derives shipment identifiers from documents.
type Resolver struct {
	rasterizer   imagemagick.Rasterizer
	decoder      zbar.Decoder
	isBarcodeDoc func(ext string) bool
	logger       *slog.Logger
}

// NewResolver wires a resolver from configuration and the two imaging collaborators.
func NewResolver(cfg *config.Config, rasterizer imagemagick.Rasterizer, decoder zbar.Decoder, logger *slog.Logger) *Resolver {
	r := &Resolver{
		rasterizer: rasterizer,
		decoder:    decoder,
		logger:     logging.NewComponentLogger(logger, "identifier"),
	}
	if cfg != nil {
		r.isBarcodeDoc = cfg.IsBarcodeDocument
	} else {
		r.isBarcodeDoc = func(ext string) bool { return strings.EqualFold(ext, ".pdf") }
	}
	return r
}

// NewFromConfig builds a resolver backed by the ImageMagick and zbarimg CLIs.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("identifier: config required")
	}
	env := cfg.ToolEnv()
	magick, err := imagemagick.New(cfg.Tools.Magick, cfg.Decode.Density, imagemagick.WithEnv(env))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolve", "imagemagick", "", err)
	}
	decoder, err := zbar.New(cfg.Tools.Zbarimg, zbar.WithEnv(env))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolve", "zbarimg", "", err)
	}
	return NewResolver(cfg, magick, decoder, logger), nil
}

// Resolve returns the shipment identifier for doc. Barcode documents are
// rasterized and decoded; every other file falls back to its file name.
func (r *Resolver) Resolve(ctx context.Context, doc document.Document) (Resolution, error) {
	if !r.isBarcodeDoc(doc.Ext) {
		id, err := FromFileName(doc.Name)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{ShipmentID: id, Source: SourceFileName}, nil
	}

	symbols, err := r.decodeDocument(ctx, doc)
	if err != nil {
		return Resolution{}, err
	}
	id, err := SelectShipmentBarcode(symbols)
	if err != nil {
		return Resolution{Symbols: symbols}, err
	}
	logging.WithContext(ctx, r.logger).Debug("barcodes decoded",
		logging.Int("symbol_count", len(symbols)),
		logging.String(logging.FieldShipmentID, id),
	)
	return Resolution{ShipmentID: id, Source: SourceBarcode, Symbols: symbols}, nil
}

func (r *Resolver) decodeDocument(ctx context.Context, doc document.Document) ([]string, error) {
	if r.rasterizer == nil || r.decoder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolve", "barcode", "imaging tools not configured", nil)
	}
	workDir, err := os.MkdirTemp("", "shipconf-decode-*")
	if err != nil {
		return nil, services.Wrap(services.ErrResolution, "resolve", "workspace", "", err)
	}
	defer os.RemoveAll(workDir)

	composite := filepath.Join(workDir, compositeImageName)
	if err := r.rasterizer.Rasterize(ctx, doc.Path, composite); err != nil {
		return nil, services.Wrap(services.ErrResolution, "resolve", "rasterize", "", err)
	}
	symbols, err := r.decoder.Decode(ctx, composite, zbar.ModeThorough)
	if err != nil {
		return nil, services.Wrap(services.ErrResolution, "resolve", "decode", "", err)
	}
	return symbols, nil
}

// SelectShipmentBarcode picks the shipment identifier from decoded symbols in
// reading order.
func SelectShipmentBarcode(symbols []string) (string, error) {
	if len(symbols) <= shipmentBarcodeIndex {
		return "", services.Wrap(services.ErrResolution, "resolve", "barcode",
			fmt.Sprintf("found %d symbol(s)", len(symbols)), ErrNoBarcode)
	}
	id := strings.TrimSpace(symbols[shipmentBarcodeIndex])
	if id == "" {
		return "", services.Wrap(services.ErrResolution, "resolve", "barcode", "", ErrEmptyIdentifier)
	}
	return id, nil
}

// FromFileName derives an identifier from a scanner file name by keeping the
// text before the first ".", then before the first space, then before the
// first "-".
func FromFileName(name string) (string, error) {
	id := name
	for _, sep := range []string{".", " ", "-"} {
		id, _, _ = strings.Cut(id, sep)
	}
	if id == "" {
		return "", services.Wrap(services.ErrResolution, "resolve", "filename", fmt.Sprintf("%q", name), ErrEmptyIdentifier)
	}
	return id, nil
}
