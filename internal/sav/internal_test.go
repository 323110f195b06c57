package sav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"slices"
	"testing"
)

func TestShortNameBase(t *testing.T) {
	cases := map[string]string{
		"Q1":                "Q1",
		"ClubAddressRegion": "CLUBADDR",
		"1st_choice":        "V1ST_CHO",
		"Q.1":               "Q.1",
		"élan":              "LAN",
		"":                  "V",
		"???":               "V",
		"#Q1":               "V#Q1",
		"$sys":              "V$SYS",
		"@mark":             "@MARK",
		"Q#1":               "Q#1",
	}
	for long, want := range cases {
		if got := shortNameBase(long); got != want {
			t.Fatalf("shortNameBase(%q) = %q, want %q", long, got, want)
		}
	}
}

func TestNameSetClaimsUniqueNames(t *testing.T) {
	names := make(nameSet)
	got := []string{
		names.claim("CLUBADDR"),
		names.claim("CLUBADDR"),
		names.claim("CLUBADDR"),
		names.claim("A"),
		names.segmentName("COMMENT", 1),
		names.segmentName("COMMENT", 1),
	}
	want := []string{"CLUBADDR", "CLUBAD_1", "CLUBAD_2", "A", "COMME1", "COMME1_1"}
	if !slices.Equal(got, want) {
		t.Fatalf("claimed %v, want %v", got, want)
	}
}

func TestSegmentWidths(t *testing.T) {
	cases := []struct {
		width int
		want  []int
	}{
		{1, []int{1}},
		{255, []int{255}},
		{256, []int{255, 4}},
		{300, []int{255, 48}},
		{504, []int{255, 252}},
		{505, []int{255, 255, 1}},
	}
	for _, tc := range cases {
		got := segmentWidths(tc.width)
		if !slices.Equal(got, tc.want) {
			t.Fatalf("segmentWidths(%d) = %v, want %v", tc.width, got, tc.want)
		}
		used := 0
		for i := range got {
			used += segmentUsed(tc.width, i, len(got))
		}
		if used != tc.width {
			t.Fatalf("segments of %d carry %d bytes", tc.width, used)
		}
	}
}

func TestBytecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newBytecodeWriter(&buf, compressionBias)
	numbers := []float64{1, -99, 151, 152, 0.5, sysmis, -100, 42}
	for _, n := range numbers {
		w.number(n)
	}
	w.chunk([]byte("        "))
	w.chunk([]byte("abcdefgh"))
	if err := w.close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
	if buf.Len()%elementSize != 0 {
		t.Fatalf("output length %d is not a multiple of %d", buf.Len(), elementSize)
	}

	r := newBytecodeReader(&buf, binary.LittleEndian, compressionBias)
	elem := make([]byte, elementSize)
	for i, want := range numbers {
		if err := r.next(elem); err != nil {
			t.Fatalf("element %d: %v", i, err)
		}
		if got := math.Float64frombits(binary.LittleEndian.Uint64(elem)); got != want {
			t.Fatalf("element %d = %v, want %v", i, got, want)
		}
	}
	for _, want := range []string{"        ", "abcdefgh"} {
		if err := r.next(elem); err != nil {
			t.Fatalf("string element: %v", err)
		}
		if string(elem) != want {
			t.Fatalf("string element = %q, want %q", elem, want)
		}
	}
	if err := r.next(elem); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after padding, got %v", err)
	}
}

func TestBytecodeReaderStopsAtEOFOp(t *testing.T) {
	block := []byte{101, opEOF, 102, 0, 0, 0, 0, 0}
	r := newBytecodeReader(bytes.NewReader(block), binary.LittleEndian, compressionBias)
	elem := make([]byte, elementSize)
	if err := r.next(elem); err != nil {
		t.Fatalf("first element: %v", err)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(elem)); got != 1 {
		t.Fatalf("first element = %v, want 1", got)
	}
	if err := r.next(elem); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end-of-data op, got %v", err)
	}
}

func TestCodePageName(t *testing.T) {
	cases := map[int]string{
		65001: "UTF-8",
		1252:  "windows-1252",
		28591: "ISO-8859-1",
		0:     "",
	}
	for cp, want := range cases {
		if got := codePageName(cp); got != want {
			t.Fatalf("codePageName(%d) = %q, want %q", cp, got, want)
		}
	}
}

func TestTextDecoderLegacyCodePage(t *testing.T) {
	dec := newTextDecoder("", 1252)
	if got := dec.value([]byte{'c', 'a', 'f', 0xe9}); got != "café" {
		t.Fatalf("windows-1252 decode = %q", got)
	}
	sniff := newTextDecoder("", 0)
	if got := sniff.value([]byte("café")); got != "café" {
		t.Fatalf("utf-8 passthrough = %q", got)
	}
	if got := sniff.value([]byte{'c', 'a', 'f', 0xe9}); got != "café" {
		t.Fatalf("fallback decode = %q", got)
	}
	named := newTextDecoder("windows-1252\x00", 65001)
	if got := named.value([]byte{0xe9}); got != "é" {
		t.Fatalf("named encoding decode = %q", got)
	}
}
