package main

import (
	"bytes"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, map[string]int{"rows": 6}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if got, want := buf.String(), "{\n  \"rows\": 6\n}\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if err := writeJSON(&buf, func() {}); err == nil {
		t.Fatal("expected error for a value json cannot encode")
	}
}
