package zbar

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"
)

// Symbol is one decoded barcode as reported by `zbarimg --xml`.
type Symbol struct {
	Type string
	Data string
	// Bounds covers the polygon zbar reported. It is empty when the zbar
	// build does not emit polygons.
	Bounds image.Rectangle
	// Seq is the position of the symbol in zbarimg's output.
	Seq int
}

type xmlBarcodes struct {
	XMLName xml.Name    `xml:"barcodes"`
	Sources []xmlSource `xml:"source"`
}

type xmlSource struct {
	Indexes []xmlIndex `xml:"index"`
}

type xmlIndex struct {
	Symbols []xmlSymbol `xml:"symbol"`
}

type xmlSymbol struct {
	Type    string `xml:"type,attr"`
	Polygon struct {
		Points string `xml:"points,attr"`
	} `xml:"polygon"`
	Data struct {
		Format string `xml:"format,attr"`
		Text   string `xml:",chardata"`
	} `xml:"data"`
}

// ParseXML decodes `zbarimg --xml` output. Symbol payloads are kept whole,
// including embedded line feeds.
func ParseXML(output []byte) ([]Symbol, error) {
	if strings.TrimSpace(string(output)) == "" {
		return []Symbol{}, nil
	}
	var doc xmlBarcodes
	if err := xml.Unmarshal(output, &doc); err != nil {
		return nil, fmt.Errorf("parse zbarimg xml: %w", err)
	}
	symbols := []Symbol{}
	for _, src := range doc.Sources {
		for _, idx := range src.Indexes {
			for _, raw := range idx.Symbols {
				data := raw.Data.Text
				if raw.Data.Format == "base64" {
					decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
					if err != nil {
						return nil, fmt.Errorf("decode %s symbol payload: %w", raw.Type, err)
					}
					data = string(decoded)
				}
				bounds, err := parsePolygon(raw.Polygon.Points)
				if err != nil {
					return nil, fmt.Errorf("parse %s symbol polygon: %w", raw.Type, err)
				}
				symbols = append(symbols, Symbol{
					Type:   raw.Type,
					Data:   data,
					Bounds: bounds,
					Seq:    len(symbols),
				})
			}
		}
	}
	return symbols, nil
}

// parsePolygon reads zbar's "+x,+y +x,+y ..." point list into a bounding box.
func parsePolygon(points string) (image.Rectangle, error) {
	var bounds image.Rectangle
	for i, field := range strings.Fields(points) {
		xs, ys, ok := strings.Cut(field, ",")
		if !ok {
			return image.Rectangle{}, fmt.Errorf("malformed point %q", field)
		}
		x, err := strconv.Atoi(xs)
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("malformed point %q: %w", field, err)
		}
		y, err := strconv.Atoi(ys)
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("malformed point %q: %w", field, err)
		}
		pt := image.Rect(x, y, x+1, y+1)
		if i == 0 {
			bounds = pt
			continue
		}
		bounds = bounds.Union(pt)
	}
	return bounds, nil
}

// ReadingOrder arranges symbols in rows from top to bottom and, within a
// row, left to right. Symbols whose vertical extents overlap share a row.
//
// When any symbol lacks a polygon the order falls back to the reverse of
// zbarimg's output, since zbar prepends each newly detected symbol and scans
// the image from the top.
func ReadingOrder(symbols []Symbol) []Symbol {
	ordered := append([]Symbol(nil), symbols...)
	for _, sym := range ordered {
		if sym.Bounds.Empty() {
			sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq > ordered[j].Seq })
			return ordered
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Bounds.Min.Y != ordered[j].Bounds.Min.Y {
			return ordered[i].Bounds.Min.Y < ordered[j].Bounds.Min.Y
		}
		return ordered[i].Bounds.Min.X < ordered[j].Bounds.Min.X
	})
	for start := 0; start < len(ordered); {
		end := start + 1
		rowBottom := ordered[start].Bounds.Max.Y
		for end < len(ordered) && ordered[end].Bounds.Min.Y < rowBottom {
			rowBottom = max(rowBottom, ordered[end].Bounds.Max.Y)
			end++
		}
		row := ordered[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].Bounds.Min.X < row[j].Bounds.Min.X })
		start = end
	}
	return ordered
}
