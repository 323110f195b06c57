package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// writeJSON encodes v as indented JSON followed by a newline. Commands pass
// cmd.OutOrStdout() so tests can capture it.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
