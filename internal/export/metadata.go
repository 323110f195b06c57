package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"surveymerge/internal/dataset"
	"surveymerge/internal/fileutil"
)

// ValueLabel is the JSON form of one coded value label. Value is a number or
// a string following the column kind.
type ValueLabel struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Column describes one column of the dictionary.
type Column struct {
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Label        string           `json:"label,omitempty"`
	Format       *dataset.Format  `json:"format,omitempty"`
	Measure      *dataset.Measure `json:"measure,omitempty"`
	DisplayWidth *int             `json:"display_width,omitempty"`
	StorageWidth *int             `json:"storage_width,omitempty"`
	ValueLabels  []ValueLabel     `json:"value_labels,omitempty"`
	Missing      int              `json:"missing"`
}

// Document is the metadata sidecar written next to the merged file.
type Document struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Rows        int       `json:"rows"`
	Columns     []Column  `json:"columns"`
}

// Describe lists ds's columns in table order together with their metadata
// and the count of missing cells.
func Describe(ds *dataset.Dataset) []Column {
	columns := make([]Column, 0, ds.Table.NumColumns())
	for i := 0; i < ds.Table.NumColumns(); i++ {
		col := ds.Table.ColumnAt(i)
		info := Column{Name: col.Name, Kind: col.Kind.String()}
		for _, v := range col.Values {
			if v.IsMissing() {
				info.Missing++
			}
		}
		if attrs := ds.Attrs(col.Name); attrs != nil {
			info.Label = attrs.Label
			info.Format = attrs.Format
			info.Measure = attrs.Measure
			info.DisplayWidth = attrs.DisplayWidth
			info.StorageWidth = attrs.StorageWidth
			for _, vl := range attrs.ValueLabels {
				info.ValueLabels = append(info.ValueLabels, ValueLabel{Value: jsonValue(vl.Value), Label: vl.Label})
			}
		}
		columns = append(columns, info)
	}
	return columns
}

func jsonValue(v dataset.Value) any {
	if f, ok := v.Float(); ok {
		return f
	}
	if s, ok := v.Str(); ok {
		return s
	}
	return nil
}

// NewDocument builds the sidecar for ds.
func NewDocument(ds *dataset.Dataset, runID, source string) Document {
	return Document{
		GeneratedAt: time.Now().UTC(),
		RunID:       runID,
		Source:      source,
		Rows:        ds.Table.NumRows(),
		Columns:     Describe(ds),
	}
}

// WriteMetadata encodes doc as indented JSON at path.
func WriteMetadata(path string, doc Document) (fileutil.Digest, error) {
	digest, err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	})
	if err != nil {
		return fileutil.Digest{}, fmt.Errorf("write metadata %s: %w", path, err)
	}
	return digest, nil
}
