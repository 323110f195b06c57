package dataset

// Sync rebuilds Metadata to track exactly the table's columns in table
// order. Records of surviving columns are kept, stale records are dropped,
// and columns without a record stay without one. Running it twice is the
// same as running it once.
func (d *Dataset) Sync() {
	d.Meta.restrict(d.Table.Names())
}

// FillDefaultLabels gives every column lacking a label its own name as label,
// creating a record where none exists.
func (d *Dataset) FillDefaultLabels() int {
	filled := 0
	for _, name := range d.Table.Names() {
		attrs, _ := d.Meta.Get(name)
		if attrs == nil {
			d.Meta.Set(name, &Attributes{Label: name})
			filled++
			continue
		}
		if attrs.Label == "" {
			attrs.Label = name
			filled++
		}
	}
	return filled
}
