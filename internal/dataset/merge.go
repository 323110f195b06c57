package dataset

// Merge stacks secondary's rows under primary's and returns a new dataset.
// Metadata comes from primary, except that string widths grow to the wider
// of the two sides so no secondary value is cut on write. Both sides must have the same column names
// and kinds; secondary's columns are matched by name, so their order may
// differ. Neither input is modified.
func Merge(primary, secondary *Dataset) (*Dataset, error) {
	if primary == nil || secondary == nil {
		return nil, validationf("merge", "", "both datasets are required")
	}
	for _, name := range primary.Table.Names() {
		if !secondary.Table.Has(name) {
			return nil, validationf("merge", name, "missing from secondary dataset")
		}
	}
	for _, name := range secondary.Table.Names() {
		if !primary.Table.Has(name) {
			return nil, validationf("merge", name, "missing from primary dataset")
		}
	}
	out := primary.Clone()
	if err := out.Table.Append(secondary.Table); err != nil {
		return nil, err
	}
	out.Sync()
	widenStrings(out, secondary)
	return out, nil
}

func widenStrings(out, secondary *Dataset) {
	for _, name := range out.Table.Names() {
		col, _ := out.Table.Column(name)
		attrs := out.Attrs(name)
		if col.Kind != KindString || attrs == nil {
			continue
		}
		other := declaredWidth(secondary.Attrs(name))
		if attrs.StorageWidth != nil && other > *attrs.StorageWidth {
			attrs.StorageWidth = Ptr(other)
		}
		if attrs.Format != nil && attrs.Format.IsString() && other > attrs.Format.Width {
			widened := *attrs.Format
			widened.Width = other
			attrs.Format = &widened
		}
	}
}

// declaredWidth is the byte width a record declares for a string column, or
// zero when it declares none.
func declaredWidth(attrs *Attributes) int {
	if attrs == nil {
		return 0
	}
	width := 0
	if attrs.StorageWidth != nil {
		width = *attrs.StorageWidth
	}
	if attrs.Format != nil && attrs.Format.IsString() {
		width = max(width, attrs.Format.Width)
	}
	return width
}
