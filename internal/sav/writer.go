package sav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"surveymerge/internal/dataset"
	"surveymerge/internal/fileutil"
)

const productPrefix = "@(#) SPSS DATA FILE "

// WriteOptions controls the file header and data encoding.
type WriteOptions struct {
	Compress bool
	Product  string
	Label    string
	// Now stamps the header; zero means time.Now.
	Now time.Time
}

// WriteFile writes ds to path atomically and returns the digest of the bytes
// written.
func WriteFile(path string, ds *dataset.Dataset, opts WriteOptions) (fileutil.Digest, error) {
	digest, err := fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return Write(w, ds, opts)
	})
	if err != nil {
		return fileutil.Digest{}, fmt.Errorf("write %s: %w", path, err)
	}
	return digest, nil
}

// Write encodes ds as a little-endian UTF-8 system file. Columns without a
// metadata record get SPSS defaults; string columns are stored at their
// StorageWidth, falling back to the format width, and widened to the longest
// value present. A value longer than 32767 bytes is an error.
func Write(w io.Writer, ds *dataset.Dataset, opts WriteOptions) error {
	plan, err := planLayout(ds)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, 64<<10)
	out := &binWriter{w: bw}
	writeHeader(out, plan, ds.Table.NumRows(), opts)
	writeDictionary(out, plan)
	if out.err != nil {
		return fmt.Errorf("write dictionary: %w", out.err)
	}

	var elems elementWriter = &rawWriter{w: bw}
	if opts.Compress {
		elems = newBytecodeWriter(bw, compressionBias)
	}
	writeCases(elems, plan, ds.Table.NumRows())
	if err := elems.close(); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return bw.Flush()
}

type outVar struct {
	name     string
	col      *dataset.Column
	attrs    *dataset.Attributes
	width    int
	format   dataset.Format
	segments []outSegment
	index    int
}

type outSegment struct {
	short    string
	width    int
	elements int
}

type layout struct {
	vars     []*outVar
	elements int
}

func planLayout(ds *dataset.Dataset) (*layout, error) {
	var err error
	plan := &layout{}
	names := make(nameSet)
	for _, name := range ds.Columns() {
		if name == "" || len(name) > maxLongNameBytes {
			return nil, fmt.Errorf("variable %q: name must be 1-%d bytes", name, maxLongNameBytes)
		}
		col, _ := ds.Table.Column(name)
		attrs := ds.Attrs(name)
		if attrs == nil {
			attrs = &dataset.Attributes{}
		}
		v := &outVar{name: name, col: col, attrs: attrs, index: plan.elements + 1}
		if col.Kind == dataset.KindString {
			v.width, err = stringWidth(col, attrs)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			v.format = dataset.Format{Type: "A", Width: v.width}
		} else {
			v.format = dataset.Format{Type: "F", Width: 8, Decimals: 2}
			if attrs.Format != nil && attrs.Format.IsNumeric() {
				v.format = *attrs.Format
			}
		}

		short := names.claim(shortNameBase(name))
		for i, w := range segmentWidths(v.width) {
			seg := outSegment{short: short, width: w, elements: elementsFor(w)}
			if i > 0 {
				seg.short = names.segmentName(short, i)
			}
			v.segments = append(v.segments, seg)
			plan.elements += seg.elements
		}
		plan.vars = append(plan.vars, v)
	}
	return plan, nil
}

func stringWidth(col *dataset.Column, attrs *dataset.Attributes) (int, error) {
	width := 0
	switch {
	case attrs.StorageWidth != nil && *attrs.StorageWidth > 0:
		width = *attrs.StorageWidth
	case attrs.Format != nil && attrs.Format.IsString() && attrs.Format.Width > 0:
		width = attrs.Format.Width
	}
	longest := 0
	for _, v := range col.Values {
		if s, ok := v.Str(); ok {
			longest = max(longest, len(s))
		}
	}
	if longest > maxStringWidth {
		return 0, fmt.Errorf("value of %d bytes exceeds the %d byte string limit", longest, maxStringWidth)
	}
	return min(max(width, longest, 1), maxStringWidth), nil
}

// binWriter writes little-endian fields, keeping the first error.
type binWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (b *binWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) i32(v int) {
	binary.LittleEndian.PutUint32(b.buf[:4], uint32(int32(v)))
	b.write(b.buf[:4])
}

func (b *binWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	b.write(b.buf[:4])
}

func (b *binWriter) f64(v float64) {
	binary.LittleEndian.PutUint64(b.buf[:], math.Float64bits(v))
	b.write(b.buf[:])
}

// padded writes p cut or padded to exactly n bytes.
func (b *binWriter) padded(p []byte, n int, pad byte) {
	if len(p) >= n {
		b.write(p[:n])
		return
	}
	b.write(p)
	b.write([]byte(strings.Repeat(string(pad), n-len(p))))
}

func writeHeader(out *binWriter, plan *layout, rows int, opts WriteOptions) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cases := rows
	if cases > math.MaxInt32 {
		cases = -1
	}
	out.write([]byte(magicSAV))
	out.padded([]byte(productPrefix+opts.Product), productSize, ' ')
	out.i32(2)
	out.i32(plan.elements)
	if opts.Compress {
		out.i32(1)
	} else {
		out.i32(0)
	}
	out.i32(0)
	out.i32(cases)
	out.f64(compressionBias)
	out.write([]byte(now.Format("02 Jan 06")))
	out.write([]byte(now.Format("15:04:05")))
	out.padded(truncateUTF8(opts.Label, fileLabelSize), fileLabelSize, ' ')
	out.write([]byte{0, 0, 0})
}

func writeDictionary(out *binWriter, plan *layout) {
	for _, v := range plan.vars {
		writeVariable(out, v)
	}
	for _, v := range plan.vars {
		writeValueLabels(out, v)
	}
	writeIntegerInfo(out)
	writeFloatInfo(out)
	writeDisplay(out, plan)
	writeLongNames(out, plan)
	writeVeryLongStrings(out, plan)
	writeExtension(out, extEncoding, 1, []byte("UTF-8"))
	writeLongStringLabels(out, plan)
	out.i32(recDictTerminator)
	out.i32(0)
}

func writeVariable(out *binWriter, v *outVar) {
	for i, seg := range v.segments {
		format := v.format
		if v.width > 0 {
			format = dataset.Format{Type: "A", Width: seg.width}
		}
		var label []byte
		if i == 0 && v.attrs.Label != "" {
			label = truncateUTF8(v.attrs.Label, maxLabelBytes)
		}
		out.i32(recVariable)
		out.i32(seg.width)
		if label != nil {
			out.i32(1)
		} else {
			out.i32(0)
		}
		out.i32(0)
		out.u32(packFormat(format))
		out.u32(packFormat(format))
		out.padded([]byte(seg.short), shortNameSize, ' ')
		if label != nil {
			out.i32(len(label))
			out.padded(label, (len(label)+3)/4*4, ' ')
		}
		for range seg.elements - 1 {
			out.i32(recVariable)
			out.i32(-1)
			out.i32(0)
			out.i32(0)
			out.u32(0)
			out.u32(0)
			out.padded(nil, shortNameSize, ' ')
		}
	}
}

// writeValueLabels emits record types 3 and 4 for numerics and strings of
// up to 8 bytes; wider strings go into the long string label extension.
func writeValueLabels(out *binWriter, v *outVar) {
	if v.width > elementSize {
		return
	}
	type entry struct {
		value [elementSize]byte
		label []byte
	}
	var entries []entry
	for _, vl := range v.attrs.ValueLabels {
		var e entry
		if v.width == 0 {
			f, ok := vl.Value.Float()
			if !ok {
				continue
			}
			binary.LittleEndian.PutUint64(e.value[:], math.Float64bits(f))
		} else {
			s, ok := vl.Value.Str()
			if !ok {
				continue
			}
			copy(e.value[:], spaces8[:])
			copy(e.value[:], truncateUTF8(s, elementSize))
		}
		e.label = truncateUTF8(vl.Label, maxValueLabel)
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return
	}
	out.i32(recValueLabels)
	out.i32(len(entries))
	for _, e := range entries {
		out.write(e.value[:])
		padded := (len(e.label)+1+elementSize-1)/elementSize*elementSize - 1
		out.write([]byte{byte(len(e.label))})
		out.padded(e.label, padded, ' ')
	}
	out.i32(recValueLabelVars)
	out.i32(1)
	out.i32(v.index)
}

func writeExtension(out *binWriter, subtype, size int, data []byte) {
	out.i32(recExtension)
	out.i32(subtype)
	out.i32(size)
	out.i32(len(data) / size)
	out.write(data)
}

func writeIntegerInfo(out *binWriter) {
	fields := []int{1, 0, 0, -1, 1, 1, 2, utf8CodePage}
	data := make([]byte, 0, len(fields)*4)
	for _, f := range fields {
		data = binary.LittleEndian.AppendUint32(data, uint32(int32(f)))
	}
	writeExtension(out, extIntegerInfo, 4, data)
}

func writeFloatInfo(out *binWriter) {
	data := make([]byte, 0, 3*elementSize)
	for _, f := range []float64{sysmis, highest, lowest} {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(f))
	}
	writeExtension(out, extFloatInfo, elementSize, data)
}

func writeDisplay(out *binWriter, plan *layout) {
	var data []byte
	for _, v := range plan.vars {
		measure, width, align := displayDefaults(v)
		for range v.segments {
			data = binary.LittleEndian.AppendUint32(data, uint32(measure))
			data = binary.LittleEndian.AppendUint32(data, uint32(width))
			data = binary.LittleEndian.AppendUint32(data, uint32(align))
		}
	}
	if len(data) > 0 {
		writeExtension(out, extDisplay, 4, data)
	}
}

func displayDefaults(v *outVar) (measure, width, align int) {
	measure, width, align = int(dataset.MeasureScale), 8, alignRight
	if v.width > 0 {
		measure, width, align = int(dataset.MeasureNominal), min(v.width, 40), alignLeft
	}
	if v.attrs.Measure != nil {
		measure = int(*v.attrs.Measure)
	}
	if v.attrs.DisplayWidth != nil && *v.attrs.DisplayWidth > 0 {
		width = *v.attrs.DisplayWidth
	}
	return measure, width, align
}

func writeLongNames(out *binWriter, plan *layout) {
	pairs := make([]string, 0, len(plan.vars))
	for _, v := range plan.vars {
		pairs = append(pairs, v.segments[0].short+"="+v.name)
	}
	if len(pairs) > 0 {
		writeExtension(out, extLongNames, 1, []byte(strings.Join(pairs, "\t")))
	}
}

func writeVeryLongStrings(out *binWriter, plan *layout) {
	var b strings.Builder
	for _, v := range plan.vars {
		if len(v.segments) > 1 {
			fmt.Fprintf(&b, "%s=%05d\x00\t", v.segments[0].short, v.width)
		}
	}
	if b.Len() > 0 {
		writeExtension(out, extVeryLongStrings, 1, []byte(b.String()))
	}
}

func writeLongStringLabels(out *binWriter, plan *layout) {
	var data []byte
	appendBytes := func(p []byte) {
		data = binary.LittleEndian.AppendUint32(data, uint32(len(p)))
		data = append(data, p...)
	}
	for _, v := range plan.vars {
		if v.width <= elementSize {
			continue
		}
		var labels []dataset.ValueLabel
		for _, vl := range v.attrs.ValueLabels {
			if vl.Value.IsText() {
				labels = append(labels, vl)
			}
		}
		if len(labels) == 0 {
			continue
		}
		appendBytes([]byte(v.name))
		data = binary.LittleEndian.AppendUint32(data, uint32(v.width))
		data = binary.LittleEndian.AppendUint32(data, uint32(len(labels)))
		for _, vl := range labels {
			s, _ := vl.Value.Str()
			appendBytes(padBytes(truncateUTF8(s, v.width), v.width))
			appendBytes(truncateUTF8(vl.Label, maxValueLabel))
		}
	}
	if len(data) > 0 {
		writeExtension(out, extLongStringLabels, 1, data)
	}
}

func writeCases(elems elementWriter, plan *layout, rows int) {
	var buf []byte
	for row := range rows {
		for _, v := range plan.vars {
			value := v.col.Values[row]
			if v.width == 0 {
				f, ok := value.Float()
				if !ok {
					f = sysmis
				}
				elems.number(f)
				continue
			}
			s, _ := value.Str()
			text := truncateUTF8(s, v.width)
			for i, seg := range v.segments {
				used := segmentUsed(v.width, i, len(v.segments))
				start := min(i*segmentUsedBytes, len(text))
				end := min(start+used, len(text))
				buf = append(buf[:0], text[start:end]...)
				buf = padBytes(buf, seg.elements*elementSize)
				for e := range seg.elements {
					elems.chunk(buf[e*elementSize:])
				}
			}
		}
	}
}

// truncateUTF8 returns at most n bytes of s without splitting a rune.
func truncateUTF8(s string, n int) []byte {
	if len(s) <= n {
		return []byte(s)
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return []byte(s[:cut])
}

func padBytes(p []byte, n int) []byte {
	for len(p) < n {
		p = append(p, ' ')
	}
	return p
}
