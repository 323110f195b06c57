package dataset

import "slices"

// Dataset pairs a Table with the Metadata that describes its columns.
type Dataset struct {
	Table *Table
	Meta  *Metadata
}

// New returns an empty dataset with no rows or columns.
func New() *Dataset {
	return &Dataset{Table: NewTable(0), Meta: NewMetadata()}
}

// Columns returns the table's column names in order.
func (d *Dataset) Columns() []string {
	return d.Table.Names()
}

// Attrs returns the metadata record for a column, or nil.
func (d *Dataset) Attrs(name string) *Attributes {
	attrs, _ := d.Meta.Get(name)
	return attrs
}

// InSync reports whether Metadata tracks exactly the table's columns in the
// table's order.
func (d *Dataset) InSync() bool {
	return slices.Equal(d.Table.Names(), d.Meta.names)
}

// AddColumn appends one column together with its metadata record.
func (d *Dataset) AddColumn(col *Column, attrs *Attributes) error {
	if d.Table.Has(col.Name) {
		return validationf("add column", col.Name, "already exists")
	}
	if err := d.Table.SetColumn(col); err != nil {
		return err
	}
	d.Meta.Set(col.Name, attrs)
	return nil
}

// Clone returns a deep copy of the table and metadata.
func (d *Dataset) Clone() *Dataset {
	return &Dataset{Table: d.Table.Clone(), Meta: d.Meta.Clone()}
}
