package dataset

import "fmt"

// DeleteReport lists what DeleteColumns removed and what it could not find.
type DeleteReport struct {
	Deleted []string
	Missing []string
}

// DeleteColumns removes the named columns from the table and metadata.
// Names that do not exist are reported, not treated as errors.
func (d *Dataset) DeleteColumns(names []string) DeleteReport {
	var report DeleteReport
	present := make([]string, 0, len(names))
	for _, name := range names {
		if d.Table.Has(name) {
			present = append(present, name)
		} else {
			report.Missing = append(report.Missing, name)
		}
	}
	report.Deleted = d.Table.Drop(present...)
	for _, name := range report.Deleted {
		d.Meta.Delete(name)
	}
	return report
}

// RenameColumn renames oldName to newName in the table and metadata. It
// returns false without error when oldName does not exist. A label that
// simply repeated the old name follows the rename.
func (d *Dataset) RenameColumn(oldName, newName string) (bool, error) {
	if !d.Table.Has(oldName) {
		return false, nil
	}
	if newName == "" {
		return false, validationf("rename", oldName, "new name is empty")
	}
	if err := d.Table.Rename(oldName, newName); err != nil {
		return false, err
	}
	if !d.Meta.Rename(oldName, newName) {
		d.Meta.Set(newName, nil)
	}
	if attrs, _ := d.Meta.Get(newName); attrs != nil && attrs.Label == oldName {
		attrs.Label = newName
	}
	return true, nil
}

// NewColumn describes a column to append. Values, when non-nil, must hold
// one entry per row; otherwise Fill is broadcast to every row.
type NewColumn struct {
	Name         string
	Kind         Kind
	Values       []Value
	Fill         Value
	Label        string
	ValueLabels  []ValueLabel
	DisplayWidth *int
	Measure      *Measure
	Format       *Format
}

func (nc NewColumn) values(rows int) []Value {
	if nc.Values != nil {
		return append([]Value(nil), nc.Values...)
	}
	out := make([]Value, rows)
	for i := range out {
		out[i] = nc.Fill
	}
	return out
}

func (nc NewColumn) attributes() *Attributes {
	label := nc.Label
	if label == "" {
		label = nc.Name
	}
	attrs := &Attributes{
		Label:        label,
		DisplayWidth: clonePtr(nc.DisplayWidth),
		Measure:      clonePtr(nc.Measure),
		Format:       clonePtr(nc.Format),
	}
	if nc.ValueLabels != nil {
		attrs.ValueLabels = append([]ValueLabel(nil), nc.ValueLabels...)
	}
	return attrs
}

// AddColumns appends each column in order and registers its metadata. For
// a name that already exists only the data is replaced; its metadata record
// is left as it was. All columns are validated before anything changes.
func (d *Dataset) AddColumns(cols []NewColumn) error {
	rows := d.Table.NumRows()
	seen := make(map[string]struct{}, len(cols))
	for _, nc := range cols {
		if nc.Name == "" {
			return validationf("add columns", "", "column name is required")
		}
		if _, dup := seen[nc.Name]; dup {
			return validationf("add columns", nc.Name, "listed twice")
		}
		seen[nc.Name] = struct{}{}
		if nc.Values != nil && len(nc.Values) != rows {
			return validationf("add columns", nc.Name, "has %d values, table has %d rows", len(nc.Values), rows)
		}
		if nc.Values == nil && !nc.Fill.Fits(nc.Kind) {
			return validationf("add columns", nc.Name, "fill value does not fit a %s column", nc.Kind)
		}
		for i, v := range nc.Values {
			if !v.Fits(nc.Kind) {
				return validationf("add columns", nc.Name, "row %d does not fit a %s column", i, nc.Kind)
			}
		}
		if nc.Format != nil && nc.Format.IsString() != (nc.Kind == KindString) {
			return validationf("add columns", nc.Name, "format %s does not match a %s column", nc.Format, nc.Kind)
		}
	}
	for _, nc := range cols {
		existed := d.Table.Has(nc.Name)
		if err := d.Table.SetColumn(&Column{Name: nc.Name, Kind: nc.Kind, Values: nc.values(rows)}); err != nil {
			return err
		}
		if !existed {
			d.Meta.Set(nc.Name, nc.attributes())
		}
	}
	return nil
}

// Reorder moves the named columns to the front in the given order; all other
// columns follow in their previous relative order. Unknown names are skipped
// and returned.
func (d *Dataset) Reorder(order []string) []string {
	var skipped []string
	next := make([]string, 0, d.Table.NumColumns())
	placed := make(map[string]struct{}, len(order))
	for _, name := range order {
		if !d.Table.Has(name) {
			skipped = append(skipped, name)
			continue
		}
		if _, dup := placed[name]; dup {
			continue
		}
		placed[name] = struct{}{}
		next = append(next, name)
	}
	for _, name := range d.Table.Names() {
		if _, ok := placed[name]; !ok {
			next = append(next, name)
		}
	}
	if err := d.Table.Permute(next); err != nil {
		panic(fmt.Sprintf("dataset: reorder built a non-permutation: %v", err))
	}
	d.Meta.restrict(next)
	return skipped
}
