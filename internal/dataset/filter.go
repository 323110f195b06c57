package dataset

// ColumnRange selects columns by position, half-open: [Start, End).
type ColumnRange struct {
	Start int
	End   int
}

// clamp bounds the range to n columns the way a slice expression would.
func (r ColumnRange) clamp(n int) (int, int) {
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if end < 0 {
		end = 0
	}
	if start > end {
		start = end
	}
	return start, end
}

// Names returns the column names the range covers in t.
func (r ColumnRange) Names(t *Table) []string {
	start, end := r.clamp(t.NumColumns())
	names := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		names = append(names, t.ColumnAt(i).Name)
	}
	return names
}

// FilterMissingRows drops every row whose values in rng are all blank
// (missing, whitespace-only text, or a sentinel) and returns the number of
// rows kept. A row survives iff at least one checked value is non-blank, so
// an empty range keeps nothing.
func (d *Dataset) FilterMissingRows(rng ColumnRange, sentinels []string) int {
	start, end := rng.clamp(d.Table.NumColumns())
	checked := make([]*Column, 0, end-start)
	for i := start; i < end; i++ {
		checked = append(checked, d.Table.ColumnAt(i))
	}
	return d.Table.KeepRows(func(row int) bool {
		for _, col := range checked {
			if !col.Values[row].IsBlank(sentinels) {
				return true
			}
		}
		return false
	})
}
