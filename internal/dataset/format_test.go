package dataset_test

import (
	"testing"

	"surveymerge/internal/dataset"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		tag     string
		want    string
		numeric bool
		wantErr bool
	}{
		{tag: "F8.0", want: "F8.0", numeric: true},
		{tag: "f8", want: "F8.0", numeric: true},
		{tag: "A200", want: "A200"},
		{tag: " a16000 ", want: "A16000"},
		{tag: "DOLLAR12.0", want: "DOLLAR12.0", numeric: true},
		{tag: "DATETIME11", want: "DATETIME11", numeric: true},
		{tag: "DATETIME23.2", want: "DATETIME23.2", numeric: true},
		{tag: "", wantErr: true},
		{tag: "F", wantErr: true},
		{tag: "8.2", wantErr: true},
		{tag: "unknown", wantErr: true},
		{tag: "XYZ8", wantErr: true},
		{tag: "F8.x", wantErr: true},
	}
	for _, tc := range cases {
		got, err := dataset.ParseFormat(tc.tag)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseFormat(%q): expected error, got %v", tc.tag, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", tc.tag, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseFormat(%q) = %s, want %s", tc.tag, got, tc.want)
		}
		if got.IsNumeric() != tc.numeric || got.IsString() == tc.numeric {
			t.Fatalf("ParseFormat(%q): numeric=%v string=%v", tc.tag, got.IsNumeric(), got.IsString())
		}
	}
}

func TestParseMeasure(t *testing.T) {
	for input, want := range map[string]dataset.Measure{
		"nominal": dataset.MeasureNominal,
		"Ordinal": dataset.MeasureOrdinal,
		" SCALE ": dataset.MeasureScale,
	} {
		got, err := dataset.ParseMeasure(input)
		if err != nil || got != want {
			t.Fatalf("ParseMeasure(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := dataset.ParseMeasure("interval"); err == nil {
		t.Fatal("expected error for unknown measure")
	}
}

func TestValueBlank(t *testing.T) {
	cases := []struct {
		name  string
		value dataset.Value
		blank bool
	}{
		{"missing", dataset.Missing(), true},
		{"empty text", dataset.Text(""), true},
		{"whitespace", dataset.Text(" \t "), true},
		{"sentinel text", dataset.Text(" N/A "), true},
		{"text", dataset.Text("no"), false},
		{"zero", dataset.Number(0), false},
		{"sentinel number", dataset.Number(-99), true},
	}
	for _, tc := range cases {
		if got := tc.value.IsBlank([]string{"N/A", "-99"}); got != tc.blank {
			t.Fatalf("%s: IsBlank = %v, want %v", tc.name, got, tc.blank)
		}
	}
}
