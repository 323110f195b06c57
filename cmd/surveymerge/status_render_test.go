package main

import "testing"

func TestRenderStatusLine(t *testing.T) {
	tests := []struct {
		name     string
		kind     statusKind
		message  string
		colorize bool
		want     string
	}{
		{"ok", statusOK, "2.0 KiB", false, "  Member export:       [OK] 2.0 KiB"},
		{"no message", statusWarn, "", false, "  Member export:       [WARN]"},
		{"colored", statusError, "missing", true, ansiRed + "  Member export:       [ERROR] missing" + ansiReset},
		{"unknown kind", statusKind(42), "x", false, "  Member export:       [INFO] x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderStatusLine("Member export", tt.kind, tt.message, tt.colorize)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
