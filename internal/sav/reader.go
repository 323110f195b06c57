package sav

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"surveymerge/internal/dataset"
)

const (
	maxRecordBytes = 256 << 20
	maxCount       = 1 << 24
)

// FileInfo describes the file-level header of a system file.
type FileInfo struct {
	Product    string
	Created    time.Time
	Label      string
	Compressed bool
	Encoding   string
	ByteOrder  string
	Variables  int
	Cases      int
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string) (*dataset.Dataset, *FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open system file: %w", err)
	}
	defer f.Close()
	ds, info, err := Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, info, nil
}

// Read decodes a complete system file: the dictionary becomes the dataset
// metadata, the cases become its table.
func Read(r io.Reader) (*dataset.Dataset, *FileInfo, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	hdr, err := readHeader(br)
	if err != nil {
		return nil, nil, err
	}
	in := &binReader{r: br, order: hdr.order}
	dict, err := readDictionary(in)
	if err != nil {
		return nil, nil, err
	}
	vars, dec, err := dict.variables()
	if err != nil {
		return nil, nil, err
	}

	var elems elementReader = &rawReader{r: br}
	if hdr.compressed {
		elems = newBytecodeReader(br, hdr.order, hdr.bias)
	}
	columns, err := readCases(elems, hdr, vars, dec)
	if err != nil {
		return nil, nil, err
	}

	ds := dataset.New()
	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0].Values)
	}
	ds.Table = dataset.NewTable(rows)
	for i, col := range columns {
		if ds.Table.Has(col.Name) {
			return nil, nil, fmt.Errorf("%w: duplicate variable name %q", ErrCorrupt, col.Name)
		}
		if err := ds.Table.SetColumn(col); err != nil {
			return nil, nil, err
		}
		ds.Meta.Set(col.Name, vars[i].attrs)
	}

	info := &FileInfo{
		Product:    hdr.product,
		Created:    hdr.created,
		Label:      dec.text(bytes.TrimRight(hdr.label, " \x00")),
		Compressed: hdr.compressed,
		Encoding:   dec.name,
		ByteOrder:  hdr.order.String(),
		Variables:  len(vars),
		Cases:      rows,
	}
	return ds, info, nil
}

type header struct {
	order      binary.ByteOrder
	product    string
	compressed bool
	cases      int
	bias       float64
	created    time.Time
	label      []byte
}

func readHeader(r io.Reader) (*header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrCorrupt, err)
	}
	switch string(raw[:4]) {
	case magicSAV:
	case magicZSAV:
		return nil, fmt.Errorf("%w: zlib-compressed data", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, raw[:4])
	}

	h := &header{}
	switch {
	case validLayout(binary.LittleEndian.Uint32(raw[64:68])):
		h.order = binary.LittleEndian
	case validLayout(binary.BigEndian.Uint32(raw[64:68])):
		h.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: unrecognised layout code", ErrCorrupt)
	}
	h.product = strings.TrimSpace(string(bytes.TrimRight(raw[4:64], "\x00")))
	switch compression := int32(h.order.Uint32(raw[72:76])); compression {
	case 0:
	case 1:
		h.compressed = true
	case 2:
		return nil, fmt.Errorf("%w: zlib compression", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: compression code %d", ErrCorrupt, compression)
	}
	h.cases = int(int32(h.order.Uint32(raw[80:84])))
	h.bias = math.Float64frombits(h.order.Uint64(raw[84:92]))
	if h.compressed && h.bias == 0 {
		h.bias = compressionBias
	}
	stamp := string(raw[92:101]) + " " + string(raw[101:109])
	if created, err := time.Parse("02 Jan 06 15:04:05", stamp); err == nil {
		h.created = created
	}
	h.label = raw[109:173]
	return h, nil
}

func validLayout(code uint32) bool {
	return code == 2 || code == 3
}

// binReader reads fixed-size fields, keeping the first error.
type binReader struct {
	r     *bufio.Reader
	order binary.ByteOrder
	err   error
}

func (b *binReader) read(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > maxRecordBytes {
		b.err = fmt.Errorf("%w: record length %d out of range", ErrCorrupt, n)
		return nil
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(b.r, p); err != nil {
		b.err = fmt.Errorf("%w: unexpected end of dictionary", ErrCorrupt)
		return nil
	}
	return p
}

func (b *binReader) u32() uint32 {
	p := b.read(4)
	if p == nil {
		return 0
	}
	return b.order.Uint32(p)
}

func (b *binReader) i32() int {
	return int(int32(b.u32()))
}

func (b *binReader) u8() int {
	p := b.read(1)
	if p == nil {
		return 0
	}
	return int(p[0])
}

func (b *binReader) count(what string) int {
	n := b.i32()
	if b.err == nil && (n < 0 || n > maxCount) {
		b.err = fmt.Errorf("%w: %s count %d out of range", ErrCorrupt, what, n)
		return 0
	}
	return n
}

type rawVar struct {
	width    int
	hasLabel bool
	label    []byte
	print    uint32
	short    string
	index    int
}

type rawLabelSet struct {
	values  [][]byte
	labels  [][]byte
	indexes []int
}

type extRecord struct {
	size  int
	count int
	data  []byte
}

type dictionary struct {
	order     binary.ByteOrder
	vars      []rawVar
	labelSets []rawLabelSet
	ext       map[int]extRecord
}

func readDictionary(in *binReader) (*dictionary, error) {
	dict := &dictionary{order: in.order, ext: make(map[int]extRecord)}
	for {
		rec := in.i32()
		if in.err != nil {
			return nil, in.err
		}
		switch rec {
		case recVariable:
			dict.readVariable(in)
		case recValueLabels:
			dict.readValueLabels(in)
		case recDocument:
			lines := in.count("document line")
			in.read(lines * documentLineSize)
		case recExtension:
			subtype := in.i32()
			size := in.count("extension size")
			count := in.count("extension count")
			if in.err == nil && int64(size)*int64(count) > maxRecordBytes {
				return nil, fmt.Errorf("%w: extension %d too large", ErrCorrupt, subtype)
			}
			data := in.read(size * count)
			if in.err == nil {
				dict.ext[subtype] = extRecord{size: size, count: count, data: data}
			}
		case recDictTerminator:
			in.i32()
			return dict, in.err
		default:
			return nil, fmt.Errorf("%w: unknown record type %d", ErrCorrupt, rec)
		}
		if in.err != nil {
			return nil, in.err
		}
	}
}

func (d *dictionary) readVariable(in *binReader) {
	v := rawVar{width: in.i32(), index: len(d.vars) + 1}
	v.hasLabel = in.i32() == 1
	missing := in.i32()
	v.print = in.u32()
	in.u32()
	v.short = strings.TrimRight(string(in.read(shortNameSize)), " \x00")
	if v.hasLabel {
		n := in.count("label length")
		label := in.read((n + 3) / 4 * 4)
		if label != nil {
			v.label = label[:n]
		}
	}
	if missing != 0 {
		if missing < -3 || missing > 3 {
			in.err = fmt.Errorf("%w: missing value count %d", ErrCorrupt, missing)
			return
		}
		in.read(abs(missing) * elementSize)
	}
	if v.width < -1 || v.width > maxShortString {
		in.err = fmt.Errorf("%w: variable width %d", ErrCorrupt, v.width)
		return
	}
	d.vars = append(d.vars, v)
}

func (d *dictionary) readValueLabels(in *binReader) {
	n := in.count("value label")
	set := rawLabelSet{values: make([][]byte, 0, n), labels: make([][]byte, 0, n)}
	for i := 0; i < n && in.err == nil; i++ {
		value := in.read(elementSize)
		length := in.u8()
		// label length byte plus label is padded to a multiple of 8
		padded := (length+1+elementSize-1)/elementSize*elementSize - 1
		label := in.read(padded)
		if in.err != nil {
			return
		}
		set.values = append(set.values, value)
		set.labels = append(set.labels, label[:length])
	}
	if rec := in.i32(); in.err == nil && rec != recValueLabelVars {
		in.err = fmt.Errorf("%w: value labels not followed by variable indexes", ErrCorrupt)
		return
	}
	count := in.count("value label variable")
	for i := 0; i < count && in.err == nil; i++ {
		set.indexes = append(set.indexes, in.i32())
	}
	d.labelSets = append(d.labelSets, set)
}

// variable is one dataset column as laid out in the case data: a single
// slot for numerics and short strings, several for very long strings.
type variable struct {
	name  string
	kind  dataset.Kind
	width int
	slots []slot
	attrs *dataset.Attributes
}

type slot struct {
	raw      rawVar
	elements int
}

func (d *dictionary) variables() ([]*variable, *textDecoder, error) {
	var slots []slot
	for _, rv := range d.vars {
		if rv.width == -1 {
			if len(slots) == 0 {
				return nil, nil, fmt.Errorf("%w: continuation record without a variable", ErrCorrupt)
			}
			slots[len(slots)-1].elements++
			continue
		}
		slots = append(slots, slot{raw: rv, elements: 1})
	}
	for _, s := range slots {
		if s.elements != elementsFor(s.raw.width) {
			return nil, nil, fmt.Errorf("%w: variable %s spans %d elements, want %d", ErrCorrupt, s.raw.short, s.elements, elementsFor(s.raw.width))
		}
	}

	dec := newTextDecoder(string(d.ext[extEncoding].data), d.codePage())
	longNames := parsePairs(dec.text(d.ext[extLongNames].data))
	veryLong := d.veryLongStrings()

	var vars []*variable
	for i := 0; i < len(slots); {
		first := slots[i]
		v := &variable{name: first.raw.short, width: first.raw.width, kind: dataset.KindNumeric}
		if long, ok := longNames[strings.ToUpper(first.raw.short)]; ok && long != "" {
			v.name = long
		}
		n := 1
		if w, ok := veryLong[strings.ToUpper(first.raw.short)]; ok && first.raw.width > 0 && w > maxShortString {
			n = len(segmentWidths(w))
			if i+n > len(slots) {
				return nil, nil, fmt.Errorf("%w: very long string %s is missing segments", ErrCorrupt, v.name)
			}
			v.width = w
		}
		if v.width > 0 {
			v.kind = dataset.KindString
		}
		v.slots = slots[i : i+n]
		v.attrs = baseAttributes(first.raw, v, dec)
		vars = append(vars, v)
		i += n
	}

	d.applyDisplay(vars, len(slots))
	if err := d.applyValueLabels(vars, dec); err != nil {
		return nil, nil, err
	}
	d.applyLongStringLabels(vars, dec)
	return vars, dec, nil
}

func baseAttributes(raw rawVar, v *variable, dec *textDecoder) *dataset.Attributes {
	attrs := &dataset.Attributes{}
	if raw.hasLabel {
		attrs.Label = dec.text(raw.label)
	}
	if f, ok := unpackFormat(raw.print); ok {
		if v.kind == dataset.KindString {
			if !f.IsString() {
				f = dataset.Format{Type: "A"}
			}
			f.Width = v.width
			f.Decimals = 0
		}
		attrs.Format = &f
	}
	if v.kind == dataset.KindString {
		attrs.StorageWidth = dataset.Ptr(v.width)
	} else {
		attrs.StorageWidth = dataset.Ptr(elementSize)
	}
	return attrs
}

func (d *dictionary) codePage() int {
	rec, ok := d.ext[extIntegerInfo]
	if !ok || rec.size != 4 || rec.count < 8 {
		return 0
	}
	return int(int32(d.order.Uint32(rec.data[28:32])))
}

// veryLongStrings parses "SHORT=00300\0\t" entries, keyed by upper-case
// short name.
func (d *dictionary) veryLongStrings() map[string]int {
	out := make(map[string]int)
	data := string(d.ext[extVeryLongStrings].data)
	for _, entry := range strings.Split(data, "\t") {
		entry = strings.Trim(entry, "\x00 ")
		short, width, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		w, err := strconv.Atoi(strings.Trim(width, "\x00 "))
		if err != nil || w <= 0 || w > maxStringWidth {
			continue
		}
		out[strings.ToUpper(short)] = w
	}
	return out
}

// parsePairs parses tab-separated KEY=value entries, keyed by upper-case key.
func parsePairs(data string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(data, "\t") {
		key, value, ok := strings.Cut(strings.Trim(entry, "\x00"), "=")
		if !ok {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = value
	}
	return out
}

func (d *dictionary) applyDisplay(vars []*variable, slots int) {
	rec, ok := d.ext[extDisplay]
	if !ok || rec.size != 4 {
		return
	}
	field := func(i int) int {
		return int(int32(d.order.Uint32(rec.data[i*4:])))
	}
	per, bySlot := 3, true
	switch rec.count {
	case 3 * slots:
	case 3 * len(vars):
		bySlot = false
	case 2 * slots:
		per = 2
	default:
		return
	}
	entry := 0
	for _, v := range vars {
		measure, width := field(entry*per), field(entry*per+1)
		if measure >= int(dataset.MeasureNominal) && measure <= int(dataset.MeasureScale) {
			v.attrs.Measure = dataset.Ptr(dataset.Measure(measure))
		}
		if width > 0 {
			v.attrs.DisplayWidth = dataset.Ptr(width)
		}
		if bySlot {
			entry += len(v.slots)
		} else {
			entry++
		}
	}
}

func (d *dictionary) applyValueLabels(vars []*variable, dec *textDecoder) error {
	byIndex := make(map[int]*variable, len(vars))
	for _, v := range vars {
		byIndex[v.slots[0].raw.index] = v
	}
	for _, set := range d.labelSets {
		for _, idx := range set.indexes {
			v, ok := byIndex[idx]
			if !ok {
				return fmt.Errorf("%w: value labels reference dictionary index %d", ErrCorrupt, idx)
			}
			for i, raw := range set.values {
				var value dataset.Value
				if v.kind == dataset.KindNumeric {
					value = decodeNumber(d.order, raw)
				} else {
					value = dataset.Text(dec.value(bytes.TrimRight(raw, " \x00")))
				}
				v.attrs.ValueLabels = append(v.attrs.ValueLabels, dataset.ValueLabel{Value: value, Label: dec.text(set.labels[i])})
			}
		}
	}
	return nil
}

func (d *dictionary) applyLongStringLabels(vars []*variable, dec *textDecoder) {
	rec, ok := d.ext[extLongStringLabels]
	if !ok {
		return
	}
	byName := make(map[string]*variable, len(vars))
	for _, v := range vars {
		byName[strings.ToUpper(v.name)] = v
	}
	buf := rec.data
	next := func() ([]byte, bool) {
		if len(buf) < 4 {
			return nil, false
		}
		n := int(int32(d.order.Uint32(buf)))
		if n < 0 || 4+n > len(buf) {
			return nil, false
		}
		out := buf[4 : 4+n]
		buf = buf[4+n:]
		return out, true
	}
	integer := func() (int, bool) {
		if len(buf) < 4 {
			return 0, false
		}
		n := int(int32(d.order.Uint32(buf)))
		buf = buf[4:]
		return n, true
	}
	for len(buf) > 0 {
		name, ok := next()
		if !ok {
			return
		}
		if _, ok := integer(); !ok {
			return
		}
		count, ok := integer()
		if !ok || count < 0 {
			return
		}
		v := byName[strings.ToUpper(dec.text(name))]
		for i := 0; i < count; i++ {
			value, ok := next()
			if !ok {
				return
			}
			label, ok := next()
			if !ok {
				return
			}
			if v == nil {
				continue
			}
			v.attrs.ValueLabels = append(v.attrs.ValueLabels, dataset.ValueLabel{
				Value: dataset.Text(dec.value(bytes.TrimRight(value, " \x00"))),
				Label: dec.text(label),
			})
		}
	}
}

func decodeNumber(order binary.ByteOrder, raw []byte) dataset.Value {
	f := math.Float64frombits(order.Uint64(raw))
	if f == sysmis {
		return dataset.Missing()
	}
	return dataset.Number(f)
}

func readCases(elems elementReader, hdr *header, vars []*variable, dec *textDecoder) ([]*dataset.Column, error) {
	columns := make([]*dataset.Column, len(vars))
	capacity := 0
	if hdr.cases > 0 {
		capacity = min(hdr.cases, 1<<20)
	}
	for i, v := range vars {
		columns[i] = &dataset.Column{Name: v.name, Kind: v.kind, Values: make([]dataset.Value, 0, capacity)}
	}
	if len(vars) == 0 {
		return columns, nil
	}

	elem := make([]byte, elementSize)
	var text []byte
	first := true
	read := func() error {
		err := elems.next(elem)
		if errors.Is(err, io.EOF) && !first {
			return fmt.Errorf("%w: data ends inside a case", ErrCorrupt)
		}
		first = false
		return err
	}

	for row := 0; hdr.cases < 0 || row < hdr.cases; row++ {
		first = true
		for i, v := range vars {
			if v.kind == dataset.KindNumeric {
				if err := read(); err != nil {
					return caseEnd(columns, hdr, row, err)
				}
				columns[i].Values = append(columns[i].Values, decodeNumber(hdr.order, elem))
				continue
			}
			text = text[:0]
			for s, sl := range v.slots {
				used := segmentUsed(v.width, s, len(v.slots))
				start := len(text)
				for e := 0; e < sl.elements; e++ {
					if err := read(); err != nil {
						return caseEnd(columns, hdr, row, err)
					}
					text = append(text, elem...)
				}
				text = text[:start+used]
			}
			columns[i].Values = append(columns[i].Values, dataset.Text(dec.value(bytes.TrimRight(text, " \x00"))))
		}
	}
	return columns, nil
}

// caseEnd turns the end of data at the start of row into a result.
func caseEnd(columns []*dataset.Column, hdr *header, row int, err error) ([]*dataset.Column, error) {
	if !errors.Is(err, io.EOF) {
		return nil, err
	}
	if hdr.cases >= 0 && row < hdr.cases {
		return nil, fmt.Errorf("%w: header declares %d cases, data holds %d", ErrCorrupt, hdr.cases, row)
	}
	return columns, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
