package dataset

// Storage widths forced by NormalizeStorage.
const (
	NumericStorageWidth = 8
	StringStorageWidth  = 16000
)

var (
	normalizedNumeric = Format{Type: "F", Width: NumericStorageWidth, Decimals: 0}
	normalizedString  = Format{Type: "A", Width: StringStorageWidth}
)

// StorageReport lists the columns NormalizeStorage changed and skipped.
type StorageReport struct {
	Numeric   []string
	String    []string
	Unchanged []string
	Untyped   []string
}

// NormalizeStorage rewrites the format of every column at index start or
// later: F formats become F8.0 with storage width 8, A formats become A16000
// with storage width 16000. Other format families are left alone and listed
// in Unchanged; columns without a format are listed in Untyped.
func (d *Dataset) NormalizeStorage(start int) StorageReport {
	var report StorageReport
	if start < 0 {
		start = 0
	}
	names := d.Table.Names()
	for i := start; i < len(names); i++ {
		name := names[i]
		attrs, _ := d.Meta.Get(name)
		if attrs == nil || attrs.Format == nil {
			report.Untyped = append(report.Untyped, name)
			continue
		}
		switch attrs.Format.Type {
		case "F":
			attrs.Format = Ptr(normalizedNumeric)
			attrs.StorageWidth = Ptr(NumericStorageWidth)
			report.Numeric = append(report.Numeric, name)
		case "A":
			attrs.Format = Ptr(normalizedString)
			attrs.StorageWidth = Ptr(StringStorageWidth)
			report.String = append(report.String, name)
		default:
			report.Unchanged = append(report.Unchanged, name)
		}
	}
	return report
}
