package dataset

import "slices"

// ValueLabel attaches a display label to one coded value.
type ValueLabel struct {
	Value Value
	Label string
}

// Attributes holds every descriptive property of one column. Optional
// properties are nil when the source file did not declare them.
type Attributes struct {
	Label        string
	ValueLabels  []ValueLabel
	DisplayWidth *int
	Measure      *Measure
	Format       *Format
	StorageWidth *int
}

// Clone returns a deep copy; nil stays nil.
func (a *Attributes) Clone() *Attributes {
	if a == nil {
		return nil
	}
	out := &Attributes{Label: a.Label}
	if a.ValueLabels != nil {
		out.ValueLabels = slices.Clone(a.ValueLabels)
	}
	out.DisplayWidth = clonePtr(a.DisplayWidth)
	out.Measure = clonePtr(a.Measure)
	out.Format = clonePtr(a.Format)
	out.StorageWidth = clonePtr(a.StorageWidth)
	return out
}

// Ptr returns a pointer to v, for filling optional Attributes fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Metadata is an ordered mapping of column name to Attributes. A tracked
// name may map to nil when nothing is known about the column.
type Metadata struct {
	names []string
	attrs map[string]*Attributes
}

// NewMetadata returns an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{attrs: make(map[string]*Attributes)}
}

// Len returns the number of tracked columns.
func (m *Metadata) Len() int {
	return len(m.names)
}

// Names returns tracked column names in order.
func (m *Metadata) Names() []string {
	return slices.Clone(m.names)
}

// Has reports whether name is tracked.
func (m *Metadata) Has(name string) bool {
	_, ok := m.attrs[name]
	return ok
}

// Get returns the record for name. The bool reports whether the name is
// tracked; the record may still be nil.
func (m *Metadata) Get(name string) (*Attributes, bool) {
	attrs, ok := m.attrs[name]
	return attrs, ok
}

// Set stores attrs under name, appending the name if it is new.
func (m *Metadata) Set(name string, attrs *Attributes) {
	if _, ok := m.attrs[name]; !ok {
		m.names = append(m.names, name)
	}
	m.attrs[name] = attrs
}

// Delete removes name and reports whether it was tracked.
func (m *Metadata) Delete(name string) bool {
	if _, ok := m.attrs[name]; !ok {
		return false
	}
	delete(m.attrs, name)
	m.names = slices.DeleteFunc(m.names, func(n string) bool { return n == name })
	return true
}

// Rename rekeys old to new in place, keeping position and record.
func (m *Metadata) Rename(oldName, newName string) bool {
	attrs, ok := m.attrs[oldName]
	if !ok {
		return false
	}
	delete(m.attrs, oldName)
	m.attrs[newName] = attrs
	for i, n := range m.names {
		if n == oldName {
			m.names[i] = newName
			break
		}
	}
	return true
}

// restrict rebuilds the mapping to exactly order, keeping existing records
// and tracking unknown names with a nil record.
func (m *Metadata) restrict(order []string) {
	attrs := make(map[string]*Attributes, len(order))
	for _, name := range order {
		attrs[name] = m.attrs[name]
	}
	m.names = slices.Clone(order)
	m.attrs = attrs
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{
		names: slices.Clone(m.names),
		attrs: make(map[string]*Attributes, len(m.attrs)),
	}
	for name, attrs := range m.attrs {
		out.attrs[name] = attrs.Clone()
	}
	return out
}
