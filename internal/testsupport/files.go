package testsupport

import (
	"fmt"
	"slices"
	"testing"

	"surveymerge/internal/dataset"
	"surveymerge/internal/sav"
)

// Answer columns of NewExport, by position, end exclusive.
const (
	AnswerStart = 17
	AnswerEnd   = 22
)

// ExportColumns is the column layout NewExport produces: survey-platform
// bookkeeping first, then the Q1..Q4 ratings and the Q5_TEXT comment.
var ExportColumns = []string{
	"StartDate", "EndDate", "Status", "IPAddress", "Progress", "Duration__in_seconds_",
	"Finished", "RecordedDate", "ResponseId", "RecipientLastName", "RecipientFirstName",
	"RecipientEmail", "ExternalReference", "LocationLatitude", "LocationLongitude",
	"DistributionChannel", "UserLanguage",
	"Q1", "Q2", "Q3", "Q4", "Q5_TEXT",
}

var ratingLabels = []dataset.ValueLabel{
	{Value: dataset.Number(1), Label: "Very dissatisfied"},
	{Value: dataset.Number(2), Label: "Dissatisfied"},
	{Value: dataset.Number(3), Label: "Neutral"},
	{Value: dataset.Number(4), Label: "Satisfied"},
	{Value: dataset.Number(5), Label: "Very satisfied"},
}

// NewExport builds a survey export with rows responses whose ResponseId
// values start with prefix. Rows listed in blank have every answer missing
// or empty and are the ones row filtering should drop.
func NewExport(t testing.TB, prefix string, rows int, blank ...int) *dataset.Dataset {
	t.Helper()

	ds := dataset.New()
	add := func(name string, kind dataset.Kind, values []dataset.Value, attrs *dataset.Attributes) {
		if err := ds.AddColumn(&dataset.Column{Name: name, Kind: kind, Values: values}, attrs); err != nil {
			t.Fatalf("add fixture column %s: %v", name, err)
		}
	}
	text := func(fn func(i int) string) []dataset.Value {
		values := make([]dataset.Value, rows)
		for i := range values {
			values[i] = dataset.Text(fn(i))
		}
		return values
	}
	number := func(fn func(i int) (float64, bool)) []dataset.Value {
		values := make([]dataset.Value, rows)
		for i := range values {
			if f, ok := fn(i); ok {
				values[i] = dataset.Number(f)
			}
		}
		return values
	}
	stringAttrs := func(label string, width int) *dataset.Attributes {
		return &dataset.Attributes{
			Label:   label,
			Format:  dataset.Ptr(dataset.Format{Type: "A", Width: width}),
			Measure: dataset.Ptr(dataset.MeasureNominal),
		}
	}
	numericAttrs := func(label, format string, measure dataset.Measure) *dataset.Attributes {
		return &dataset.Attributes{
			Label:   label,
			Format:  dataset.Ptr(dataset.MustParseFormat(format)),
			Measure: dataset.Ptr(measure),
		}
	}
	isBlank := func(i int) bool { return slices.Contains(blank, i) }
	timestamp := func(i int) string { return fmt.Sprintf("2025-01-%02d 10:%02d:00", i%28+1, i%60) }

	add("StartDate", dataset.KindString, text(timestamp), stringAttrs("Start Date", 19))
	add("EndDate", dataset.KindString, text(timestamp), stringAttrs("End Date", 19))
	status := numericAttrs("Response Type", "F1.0", dataset.MeasureNominal)
	status.ValueLabels = []dataset.ValueLabel{{Value: dataset.Number(0), Label: "IP Address"}, {Value: dataset.Number(1), Label: "Survey Preview"}}
	add("Status", dataset.KindNumeric, number(func(int) (float64, bool) { return 0, true }), status)
	add("IPAddress", dataset.KindString, text(func(i int) string { return fmt.Sprintf("10.0.0.%d", i+1) }), stringAttrs("IP Address", 15))
	add("Progress", dataset.KindNumeric, number(func(int) (float64, bool) { return 100, true }), numericAttrs("Progress", "F3.0", dataset.MeasureScale))
	add("Duration__in_seconds_", dataset.KindNumeric, number(func(i int) (float64, bool) { return float64(120 + i), true }),
		numericAttrs("Duration (in seconds)", "F6.0", dataset.MeasureScale))
	finished := numericAttrs("Finished", "F1.0", dataset.MeasureNominal)
	finished.ValueLabels = []dataset.ValueLabel{{Value: dataset.Number(0), Label: "False"}, {Value: dataset.Number(1), Label: "True"}}
	add("Finished", dataset.KindNumeric, number(func(int) (float64, bool) { return 1, true }), finished)
	add("RecordedDate", dataset.KindString, text(timestamp), stringAttrs("Recorded Date", 19))
	add("ResponseId", dataset.KindString, text(func(i int) string { return fmt.Sprintf("%s_%03d", prefix, i+1) }), stringAttrs("Response ID", 17))
	for _, name := range []string{"RecipientLastName", "RecipientFirstName", "RecipientEmail", "ExternalReference"} {
		add(name, dataset.KindString, text(func(int) string { return "" }), stringAttrs(name, 20))
	}
	add("LocationLatitude", dataset.KindString, text(func(int) string { return "39.7817" }), stringAttrs("Location Latitude", 12))
	add("LocationLongitude", dataset.KindString, text(func(int) string { return "-89.6501" }), stringAttrs("Location Longitude", 12))
	add("DistributionChannel", dataset.KindString, text(func(int) string { return "anonymous" }), stringAttrs("Distribution Channel", 12))
	add("UserLanguage", dataset.KindString, text(func(int) string { return "EN" }), stringAttrs("User Language", 4))

	for q := 1; q <= 4; q++ {
		attrs := numericAttrs(fmt.Sprintf("Rating %d", q), "F8.2", dataset.MeasureOrdinal)
		attrs.ValueLabels = slices.Clone(ratingLabels)
		attrs.DisplayWidth = dataset.Ptr(10)
		add(fmt.Sprintf("Q%d", q), dataset.KindNumeric, number(func(i int) (float64, bool) {
			if isBlank(i) || (q == 2 && i%2 == 1) {
				return 0, false
			}
			return float64((i+q)%5 + 1), true
		}), attrs)
	}
	add("Q5_TEXT", dataset.KindString, text(func(i int) string {
		if isBlank(i) || i%3 == 0 {
			return ""
		}
		return fmt.Sprintf("comment %d", i+1)
	}), stringAttrs("Comments", 200))

	return ds
}

// WriteExport writes ds as an uncompressed system file at path.
func WriteExport(t testing.TB, path string, ds *dataset.Dataset) {
	t.Helper()
	if _, err := sav.WriteFile(path, ds, sav.WriteOptions{Product: "fixture"}); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

// ReadExport reads a system file written by a test.
func ReadExport(t testing.TB, path string) *dataset.Dataset {
	t.Helper()
	ds, _, err := sav.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return ds
}
