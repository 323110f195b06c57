package dataset_test

import (
	"errors"
	"slices"
	"testing"

	"surveymerge/internal/dataset"
)

func textColumn(name string, values ...string) *dataset.Column {
	col := &dataset.Column{Name: name, Kind: dataset.KindString}
	for _, v := range values {
		col.Values = append(col.Values, dataset.Text(v))
	}
	return col
}

func numberColumn(name string, values ...float64) *dataset.Column {
	col := &dataset.Column{Name: name, Kind: dataset.KindNumeric}
	for _, v := range values {
		col.Values = append(col.Values, dataset.Number(v))
	}
	return col
}

func mustAdd(t *testing.T, ds *dataset.Dataset, col *dataset.Column, attrs *dataset.Attributes) {
	t.Helper()
	if err := ds.AddColumn(col, attrs); err != nil {
		t.Fatalf("AddColumn(%s): %v", col.Name, err)
	}
}

// sample builds columns A..E with labels, widths, measures and formats set.
func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	mustAdd(t, ds, textColumn("A", "a1", "a2", "a3"), &dataset.Attributes{
		Label:        "Alpha",
		DisplayWidth: dataset.Ptr(10),
		Measure:      dataset.Ptr(dataset.MeasureNominal),
		Format:       dataset.Ptr(dataset.MustParseFormat("A20")),
		StorageWidth: dataset.Ptr(20),
	})
	mustAdd(t, ds, numberColumn("B", 1, 2, 3), &dataset.Attributes{
		Label:       "Bravo",
		ValueLabels: []dataset.ValueLabel{{Value: dataset.Number(1), Label: "One"}},
		Measure:     dataset.Ptr(dataset.MeasureOrdinal),
		Format:      dataset.Ptr(dataset.MustParseFormat("F3.0")),
	})
	mustAdd(t, ds, numberColumn("C", 4, 5, 6), &dataset.Attributes{Label: "Charlie", Format: dataset.Ptr(dataset.MustParseFormat("DOLLAR12.0"))})
	mustAdd(t, ds, textColumn("D", "x", "y", "z"), &dataset.Attributes{Label: "Delta", Format: dataset.Ptr(dataset.MustParseFormat("A8"))})
	mustAdd(t, ds, numberColumn("E", 7, 8, 9), nil)
	return ds
}

func TestEndToEndFilterDeleteAdd(t *testing.T) {
	ds := dataset.New()
	mustAdd(t, ds, textColumn("A", "x", " ", "z"), &dataset.Attributes{Label: "A"})
	b := &dataset.Column{Name: "B", Kind: dataset.KindNumeric, Values: []dataset.Value{dataset.Number(1), dataset.Missing(), dataset.Missing()}}
	mustAdd(t, ds, b, &dataset.Attributes{Label: "B"})
	mustAdd(t, ds, textColumn("C", "c1", "c2", "c3"), &dataset.Attributes{Label: "C"})

	retained := ds.FilterMissingRows(dataset.ColumnRange{Start: 0, End: 2}, nil)
	if retained != 2 {
		t.Fatalf("expected 2 retained rows, got %d", retained)
	}
	if v, _ := ds.Table.Value(1, "A"); v.String() != "z" {
		t.Fatalf("expected third row to shift up, got %q", v.String())
	}

	report := ds.DeleteColumns([]string{"C"})
	if !slices.Equal(report.Deleted, []string{"C"}) || len(report.Missing) != 0 {
		t.Fatalf("unexpected delete report: %+v", report)
	}
	if got := ds.Columns(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("unexpected columns after delete: %v", got)
	}

	err := ds.AddColumns([]dataset.NewColumn{{
		Name:   "D",
		Kind:   dataset.KindNumeric,
		Values: []dataset.Value{dataset.Number(1), dataset.Number(1)},
		Label:  "D",
	}})
	if err != nil {
		t.Fatalf("AddColumns: %v", err)
	}
	if got := ds.Columns(); !slices.Equal(got, []string{"A", "B", "D"}) {
		t.Fatalf("unexpected columns after add: %v", got)
	}
	if attrs := ds.Attrs("D"); attrs == nil || attrs.Label != "D" {
		t.Fatalf("expected label D, got %+v", attrs)
	}
	if !ds.InSync() {
		t.Fatal("expected metadata in sync")
	}
}

func TestFilterMissingRows(t *testing.T) {
	cases := []struct {
		name      string
		rng       dataset.ColumnRange
		sentinels []string
		want      int
	}{
		{name: "whole table", rng: dataset.ColumnRange{Start: 0, End: 10}, want: 3},
		{name: "blank text column only", rng: dataset.ColumnRange{Start: 1, End: 2}, want: 1},
		{name: "sentinel counts as blank", rng: dataset.ColumnRange{Start: 2, End: 3}, sentinels: []string{"-99"}, want: 1},
		{name: "two checked columns", rng: dataset.ColumnRange{Start: 1, End: 3}, want: 2},
		{name: "end clamped", rng: dataset.ColumnRange{Start: 2, End: 99}, want: 2},
		{name: "empty range keeps nothing", rng: dataset.ColumnRange{Start: 2, End: 2}, want: 0},
		{name: "negative bounds", rng: dataset.ColumnRange{Start: -5, End: -1}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := dataset.New()
			mustAdd(t, ds, textColumn("id", "r1", "r2", "r3"), nil)
			mustAdd(t, ds, textColumn("q1", "yes", "", "  "), nil)
			q2 := &dataset.Column{Name: "q2", Kind: dataset.KindNumeric, Values: []dataset.Value{dataset.Number(-99), dataset.Number(4), dataset.Missing()}}
			mustAdd(t, ds, q2, nil)

			before := ds.Table.NumRows()
			got := ds.FilterMissingRows(tc.rng, tc.sentinels)
			if got != tc.want {
				t.Fatalf("retained = %d, want %d", got, tc.want)
			}
			if got > before || ds.Table.NumRows() != got {
				t.Fatalf("row count %d inconsistent with retained %d", ds.Table.NumRows(), got)
			}
			for _, name := range ds.Columns() {
				col, _ := ds.Table.Column(name)
				if len(col.Values) != got {
					t.Fatalf("column %s has %d values, want %d", name, len(col.Values), got)
				}
			}
		})
	}
}

func TestFilterMissingRowsEmptyTable(t *testing.T) {
	ds := dataset.New()
	if got := ds.FilterMissingRows(dataset.ColumnRange{Start: 0, End: 3}, nil); got != 0 {
		t.Fatalf("expected 0 retained rows, got %d", got)
	}
}

func TestDeleteColumnsKeepsSurvivorsUntouched(t *testing.T) {
	ds := sample(t)
	before := ds.Clone()

	report := ds.DeleteColumns([]string{"C", "Nope", "A"})
	if !slices.Equal(report.Deleted, []string{"A", "C"}) {
		t.Fatalf("unexpected deleted list: %v", report.Deleted)
	}
	if !slices.Equal(report.Missing, []string{"Nope"}) {
		t.Fatalf("unexpected missing list: %v", report.Missing)
	}
	if got := ds.Columns(); !slices.Equal(got, []string{"B", "D", "E"}) {
		t.Fatalf("unexpected remaining columns: %v", got)
	}
	if !slices.Equal(ds.Meta.Names(), ds.Columns()) {
		t.Fatalf("metadata names %v do not match columns %v", ds.Meta.Names(), ds.Columns())
	}
	for _, name := range ds.Columns() {
		got, want := ds.Attrs(name), before.Attrs(name)
		if (got == nil) != (want == nil) {
			t.Fatalf("record presence changed for %s", name)
		}
		if got != nil && got.Label != want.Label {
			t.Fatalf("label changed for %s: %q -> %q", name, want.Label, got.Label)
		}
	}
	if b := ds.Attrs("B"); len(b.ValueLabels) != 1 || *b.Measure != dataset.MeasureOrdinal {
		t.Fatalf("B attributes changed: %+v", b)
	}
}

func TestRenameColumn(t *testing.T) {
	ds := sample(t)
	rows, cols := ds.Table.NumRows(), ds.Table.NumColumns()

	ok, err := ds.RenameColumn("Missing", "Other")
	if err != nil || ok {
		t.Fatalf("expected silent no-op, got ok=%v err=%v", ok, err)
	}

	ok, err = ds.RenameColumn("B", "Bee")
	if err != nil || !ok {
		t.Fatalf("rename failed: ok=%v err=%v", ok, err)
	}
	if ds.Table.NumRows() != rows || ds.Table.NumColumns() != cols {
		t.Fatal("rename changed table shape")
	}
	if got := ds.Columns(); !slices.Equal(got, []string{"A", "Bee", "C", "D", "E"}) {
		t.Fatalf("unexpected columns: %v", got)
	}
	if ds.Meta.Has("B") || !ds.Meta.Has("Bee") {
		t.Fatal("metadata not rekeyed")
	}
	if attrs := ds.Attrs("Bee"); attrs.Label != "Bravo" || len(attrs.ValueLabels) != 1 {
		t.Fatalf("record not preserved: %+v", attrs)
	}

	ds.Attrs("D").Label = "D"
	if _, err := ds.RenameColumn("D", "Dee"); err != nil {
		t.Fatalf("rename D: %v", err)
	}
	if got := ds.Attrs("Dee").Label; got != "Dee" {
		t.Fatalf("expected label to follow rename, got %q", got)
	}

	if _, err := ds.RenameColumn("A", "C"); !errors.Is(err, dataset.ErrValidation) {
		t.Fatalf("expected validation error on collision, got %v", err)
	}
}

func TestAddColumns(t *testing.T) {
	ds := sample(t)

	err := ds.AddColumns([]dataset.NewColumn{
		{Name: "Survey", Kind: dataset.KindString, Fill: dataset.Text("annual"), Format: dataset.Ptr(dataset.MustParseFormat("A200")), Measure: dataset.Ptr(dataset.MeasureNominal), DisplayWidth: dataset.Ptr(15)},
		{Name: "Fee", Kind: dataset.KindNumeric, Format: dataset.Ptr(dataset.MustParseFormat("DOLLAR12.0"))},
	})
	if err != nil {
		t.Fatalf("AddColumns: %v", err)
	}
	survey, _ := ds.Table.Column("Survey")
	for i, v := range survey.Values {
		if s, _ := v.Str(); s != "annual" {
			t.Fatalf("row %d not broadcast: %v", i, v)
		}
	}
	fee, _ := ds.Table.Column("Fee")
	for i, v := range fee.Values {
		if !v.IsMissing() {
			t.Fatalf("row %d expected missing fee, got %v", i, v)
		}
	}
	if attrs := ds.Attrs("Fee"); attrs.Label != "Fee" || attrs.Format.String() != "DOLLAR12.0" {
		t.Fatalf("unexpected Fee attributes: %+v", attrs)
	}

	err = ds.AddColumns([]dataset.NewColumn{{Name: "Short", Kind: dataset.KindNumeric, Values: []dataset.Value{dataset.Number(1)}}})
	var verr *dataset.ValidationError
	if !errors.As(err, &verr) || verr.Column != "Short" {
		t.Fatalf("expected ValidationError for Short, got %v", err)
	}
	if ds.Table.Has("Short") || ds.Meta.Has("Short") {
		t.Fatal("failed add must not mutate the dataset")
	}

	err = ds.AddColumns([]dataset.NewColumn{{Name: "B", Kind: dataset.KindNumeric, Fill: dataset.Number(0), Label: "Replaced"}})
	if err != nil {
		t.Fatalf("overwrite existing: %v", err)
	}
	if v, _ := ds.Table.Value(0, "B"); v.String() != "0" {
		t.Fatalf("expected B overwritten, got %v", v)
	}
	if ds.Attrs("B").Label != "Bravo" {
		t.Fatal("expected metadata of existing column untouched")
	}
	if !ds.InSync() {
		t.Fatal("expected metadata in sync")
	}
}

func TestReorderIsPermutation(t *testing.T) {
	orders := [][]string{
		nil,
		{"E", "A"},
		{"Zed", "D", "D", "B", "Other"},
		{"E", "D", "C", "B", "A"},
	}
	for _, order := range orders {
		ds := sample(t)
		before := ds.Columns()
		skipped := ds.Reorder(order)
		after := ds.Columns()

		if len(after) != len(before) {
			t.Fatalf("order %v: column count changed %d -> %d", order, len(before), len(after))
		}
		if !slices.Equal(slices.Sorted(slices.Values(after)), slices.Sorted(slices.Values(before))) {
			t.Fatalf("order %v: not a permutation: %v", order, after)
		}
		if !slices.Equal(ds.Meta.Names(), after) {
			t.Fatalf("order %v: metadata order %v, table order %v", order, ds.Meta.Names(), after)
		}
		for _, name := range skipped {
			if slices.Contains(before, name) {
				t.Fatalf("order %v: existing column %s reported as skipped", order, name)
			}
		}
	}

	ds := sample(t)
	skipped := ds.Reorder([]string{"Zed", "D", "B"})
	if got := ds.Columns(); !slices.Equal(got, []string{"D", "B", "A", "C", "E"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if !slices.Equal(skipped, []string{"Zed"}) {
		t.Fatalf("unexpected skipped: %v", skipped)
	}
	if v, _ := ds.Table.Value(2, "D"); v.String() != "z" {
		t.Fatalf("values did not move with column: %v", v)
	}
}

func TestNormalizeStorage(t *testing.T) {
	ds := sample(t)
	report := ds.NormalizeStorage(1)

	if !slices.Equal(report.Numeric, []string{"B"}) {
		t.Fatalf("numeric = %v", report.Numeric)
	}
	if !slices.Equal(report.String, []string{"D"}) {
		t.Fatalf("string = %v", report.String)
	}
	if !slices.Equal(report.Unchanged, []string{"C"}) {
		t.Fatalf("unchanged = %v", report.Unchanged)
	}
	if !slices.Equal(report.Untyped, []string{"E"}) {
		t.Fatalf("untyped = %v", report.Untyped)
	}
	if got := ds.Attrs("A").Format.String(); got != "A20" {
		t.Fatalf("column before start changed: %s", got)
	}
	b := ds.Attrs("B")
	if b.Format.String() != "F8.0" || *b.StorageWidth != 8 {
		t.Fatalf("unexpected B: %s/%d", b.Format, *b.StorageWidth)
	}
	d := ds.Attrs("D")
	if d.Format.String() != "A16000" || *d.StorageWidth != 16000 {
		t.Fatalf("unexpected D: %s/%d", d.Format, *d.StorageWidth)
	}
	if got := ds.Attrs("C").Format.String(); got != "DOLLAR12.0" {
		t.Fatalf("unknown family changed: %s", got)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	ds := sample(t)
	ds.Table.Drop("B")
	if err := ds.Table.SetColumn(numberColumn("X", 1, 1, 1)); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if ds.InSync() {
		t.Fatal("expected drift before sync")
	}

	ds.Sync()
	first := ds.Meta.Names()
	firstAttrs := ds.Attrs("A")
	ds.Sync()

	if !slices.Equal(first, ds.Meta.Names()) {
		t.Fatalf("second sync changed names: %v -> %v", first, ds.Meta.Names())
	}
	if !slices.Equal(first, []string{"A", "C", "D", "E", "X"}) {
		t.Fatalf("unexpected names after sync: %v", first)
	}
	if ds.Attrs("A") != firstAttrs || firstAttrs.Label != "Alpha" {
		t.Fatal("sync must keep retained records")
	}
	if attrs, tracked := ds.Meta.Get("X"); !tracked || attrs != nil {
		t.Fatalf("expected X tracked without attributes, got %+v tracked=%v", attrs, tracked)
	}
}

func TestFillDefaultLabels(t *testing.T) {
	ds := sample(t)
	ds.Attrs("C").Label = ""
	if filled := ds.FillDefaultLabels(); filled != 2 {
		t.Fatalf("expected 2 labels filled, got %d", filled)
	}
	if ds.Attrs("C").Label != "C" || ds.Attrs("E").Label != "E" {
		t.Fatal("expected default labels")
	}
}

func TestMerge(t *testing.T) {
	primary := dataset.New()
	mustAdd(t, primary, textColumn("id", "m1", "m2"), &dataset.Attributes{Label: "Member"})
	mustAdd(t, primary, numberColumn("score", 1, 2), nil)

	secondary := dataset.New()
	mustAdd(t, secondary, numberColumn("score", 3), nil)
	mustAdd(t, secondary, textColumn("id", "s1"), &dataset.Attributes{Label: "Spouse"})

	merged, err := dataset.Merge(primary, secondary)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Table.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", merged.Table.NumRows())
	}
	ids, _ := merged.Table.Column("id")
	var got []string
	for _, v := range ids.Values {
		got = append(got, v.String())
	}
	if !slices.Equal(got, []string{"m1", "m2", "s1"}) {
		t.Fatalf("unexpected row order: %v", got)
	}
	if merged.Attrs("id").Label != "Member" {
		t.Fatal("expected metadata from primary")
	}
	if primary.Table.NumRows() != 2 {
		t.Fatal("merge must not modify its inputs")
	}

	extra := secondary.Clone()
	mustAdd(t, extra, numberColumn("more", 0), nil)
	if _, err := dataset.Merge(primary, extra); !errors.Is(err, dataset.ErrValidation) {
		t.Fatalf("expected validation error for mismatched columns, got %v", err)
	}

	kinds := dataset.New()
	mustAdd(t, kinds, textColumn("id", "s1"), nil)
	mustAdd(t, kinds, textColumn("score", "3"), nil)
	if _, err := dataset.Merge(primary, kinds); !errors.Is(err, dataset.ErrValidation) {
		t.Fatalf("expected validation error for mismatched kinds, got %v", err)
	}
}

func TestMergeWidensStringColumns(t *testing.T) {
	primary := dataset.New()
	mustAdd(t, primary, textColumn("ip", "10.0.0.1"), &dataset.Attributes{
		Label:        "IP",
		StorageWidth: dataset.Ptr(8),
		Format:       dataset.Ptr(dataset.MustParseFormat("A8")),
	})
	mustAdd(t, primary, textColumn("note", "long member note"), &dataset.Attributes{
		StorageWidth: dataset.Ptr(40),
		Format:       dataset.Ptr(dataset.MustParseFormat("A40")),
	})
	mustAdd(t, primary, numberColumn("score", 1), &dataset.Attributes{Format: dataset.Ptr(dataset.MustParseFormat("F8.2"))})

	secondary := dataset.New()
	mustAdd(t, secondary, textColumn("ip", "2001:db8::ff00:42:8329"), &dataset.Attributes{
		StorageWidth: dataset.Ptr(39),
		Format:       dataset.Ptr(dataset.MustParseFormat("A39")),
	})
	mustAdd(t, secondary, textColumn("note", "short"), &dataset.Attributes{Format: dataset.Ptr(dataset.MustParseFormat("A10"))})
	mustAdd(t, secondary, numberColumn("score", 2), &dataset.Attributes{Format: dataset.Ptr(dataset.MustParseFormat("F12.4"))})

	merged, err := dataset.Merge(primary, secondary)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	ip := merged.Attrs("ip")
	if ip.StorageWidth == nil || *ip.StorageWidth != 39 || ip.Format.String() != "A39" {
		t.Fatalf("ip not widened: storage %v format %v", ip.StorageWidth, ip.Format)
	}
	if ip.Label != "IP" {
		t.Fatalf("ip label = %q, want primary label", ip.Label)
	}
	note := merged.Attrs("note")
	if *note.StorageWidth != 40 || note.Format.String() != "A40" {
		t.Fatalf("note must keep the wider primary width, got storage %v format %v", *note.StorageWidth, note.Format)
	}
	if f := merged.Attrs("score").Format.String(); f != "F8.2" {
		t.Fatalf("numeric format = %s, want primary F8.2", f)
	}
	if w := *primary.Attrs("ip").StorageWidth; w != 8 || primary.Attrs("ip").Format.String() != "A8" {
		t.Fatal("merge must not modify primary metadata")
	}
}
