package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// writeJSONLine writes v as the single result line of a command.
func writeJSONLine(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}
