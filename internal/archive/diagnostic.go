package archive

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"shipconf/internal/services"
)

// Diagnostic describes why a document was moved to the problem folder.
type Diagnostic struct {
	Err        error
	RunID      string
	File       string
	Source     string
	ShipmentID string
	Stage      string
	Time       time.Time
}

// Render formats the diagnostic as the body of an -error.txt file.
func (d Diagnostic) Render() []byte {
	var buf bytes.Buffer
	line := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&buf, "%-9s %s\n", key+":", value)
		}
	}

	line("time", d.Time.Format(time.RFC3339))
	line("run", d.RunID)
	line("file", d.File)
	line("source", d.Source)
	line("shipment", d.ShipmentID)
	line("stage", d.Stage)

	if d.Err == nil {
		line("kind", "unknown")
		line("error", "unspecified failure")
		return buf.Bytes()
	}
	line("kind", services.Kind(d.Err))
	line("error", d.Err.Error())

	chain := services.Chain(d.Err)
	if len(chain) > 1 {
		buf.WriteString("causes:\n")
		for _, cause := range chain[1:] {
			fmt.Fprintf(&buf, "  - %s\n", cause)
		}
	}
	return buf.Bytes()
}
