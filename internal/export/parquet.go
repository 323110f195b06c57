package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"surveymerge/internal/dataset"
	"surveymerge/internal/fileutil"
)

// Field metadata keys carried into the Parquet schema.
const (
	metaLabel   = "label"
	metaFormat  = "spss.format"
	metaMeasure = "spss.measure"
	metaWidth   = "spss.display_width"
)

// ArrowSchema maps numeric columns to nullable float64 and string columns to
// nullable utf8. Missing cells become nulls.
func ArrowSchema(ds *dataset.Dataset) *arrow.Schema {
	fields := make([]arrow.Field, 0, ds.Table.NumColumns())
	for i := 0; i < ds.Table.NumColumns(); i++ {
		col := ds.Table.ColumnAt(i)
		field := arrow.Field{Name: col.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
		if col.Kind == dataset.KindString {
			field.Type = arrow.BinaryTypes.String
		}
		field.Metadata = fieldMetadata(ds.Attrs(col.Name))
		fields = append(fields, field)
	}
	return arrow.NewSchema(fields, nil)
}

func fieldMetadata(attrs *dataset.Attributes) arrow.Metadata {
	if attrs == nil {
		return arrow.Metadata{}
	}
	var keys, values []string
	if attrs.Label != "" {
		keys = append(keys, metaLabel)
		values = append(values, attrs.Label)
	}
	if attrs.Format != nil {
		keys = append(keys, metaFormat)
		values = append(values, attrs.Format.String())
	}
	if attrs.Measure != nil {
		keys = append(keys, metaMeasure)
		values = append(values, attrs.Measure.String())
	}
	if attrs.DisplayWidth != nil {
		keys = append(keys, metaWidth)
		values = append(values, strconv.Itoa(*attrs.DisplayWidth))
	}
	return arrow.NewMetadata(keys, values)
}

// buildRecord copies every column of ds into one Arrow record. The caller
// releases it.
func buildRecord(ds *dataset.Dataset, schema *arrow.Schema) (arrow.Record, error) {
	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()

	for i := 0; i < ds.Table.NumColumns(); i++ {
		col := ds.Table.ColumnAt(i)
		switch fb := builder.Field(i).(type) {
		case *array.Float64Builder:
			fb.Reserve(len(col.Values))
			for _, v := range col.Values {
				if f, ok := v.Float(); ok {
					fb.Append(f)
				} else {
					fb.AppendNull()
				}
			}
		case *array.StringBuilder:
			fb.Reserve(len(col.Values))
			for _, v := range col.Values {
				if s, ok := v.Str(); ok {
					fb.Append(s)
				} else {
					fb.AppendNull()
				}
			}
		default:
			return nil, fmt.Errorf("column %s: unexpected builder %T", col.Name, fb)
		}
	}
	return builder.NewRecord(), nil
}

// WriteParquet writes ds to path as a Snappy-compressed Parquet file with the
// Arrow schema stored alongside.
func WriteParquet(path string, ds *dataset.Dataset) (fileutil.Digest, error) {
	schema := ArrowSchema(ds)
	record, err := buildRecord(ds, schema)
	if err != nil {
		return fileutil.Digest{}, fmt.Errorf("build parquet record: %w", err)
	}
	defer record.Release()

	digest, err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
		arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

		writer, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
		if err != nil {
			return fmt.Errorf("create parquet writer: %w", err)
		}
		if err := writer.Write(record); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write parquet record: %w", err)
		}
		return writer.Close()
	})
	if err != nil {
		return fileutil.Digest{}, fmt.Errorf("write parquet %s: %w", path, err)
	}
	return digest, nil
}
