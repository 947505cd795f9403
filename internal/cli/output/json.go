package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes indented JSON.
type JSONFormatter struct {
	// Compact disables indentation.
	Compact bool
}

// Format encodes data as JSON followed by a newline.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if t, ok := asTable(data); ok {
		data = t.Records()
	}
	enc := json.NewEncoder(w)
	if !f.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}
