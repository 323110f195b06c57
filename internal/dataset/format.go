package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is an SPSS print/write format such as F8.0, A200, or DATETIME11.
type Format struct {
	Type     string
	Width    int
	Decimals int
}

// formatFamilies lists the recognised format type names.
var formatFamilies = map[string]formatFamily{
	"A": familyString, "AHEX": familyString,
	"F": familyNumber, "COMMA": familyNumber, "DOLLAR": familyNumber, "DOT": familyNumber,
	"PCT": familyNumber, "E": familyNumber, "N": familyNumber, "Z": familyNumber,
	"IB": familyNumber, "PIB": familyNumber, "PIBHEX": familyNumber, "P": familyNumber,
	"PK": familyNumber, "RB": familyNumber, "RBHEX": familyNumber,
	"CCA": familyNumber, "CCB": familyNumber, "CCC": familyNumber, "CCD": familyNumber, "CCE": familyNumber,
	"DATE": familyTime, "ADATE": familyTime, "EDATE": familyTime, "SDATE": familyTime,
	"JDATE": familyTime, "TIME": familyTime, "DTIME": familyTime, "DATETIME": familyTime,
	"YMDHMS": familyTime, "MTIME": familyTime, "WKDAY": familyTime, "MONTH": familyTime,
	"MOYR": familyTime, "QYR": familyTime, "WKYR": familyTime,
}

type formatFamily uint8

const (
	familyNumber formatFamily = iota + 1
	familyString
	familyTime
)

// ParseFormat parses tags like "F8.0", "a200", or "DATETIME11".
func ParseFormat(tag string) (Format, error) {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == "" {
		return Format{}, fmt.Errorf("parse format: empty tag")
	}
	split := strings.IndexFunc(tag, func(r rune) bool { return r >= '0' && r <= '9' })
	if split <= 0 {
		return Format{}, fmt.Errorf("parse format %q: missing width", tag)
	}
	name := tag[:split]
	if _, ok := formatFamilies[name]; !ok {
		return Format{}, fmt.Errorf("parse format %q: unknown type %q", tag, name)
	}
	widthPart, decPart, hasDec := strings.Cut(tag[split:], ".")
	width, err := strconv.Atoi(widthPart)
	if err != nil || width <= 0 {
		return Format{}, fmt.Errorf("parse format %q: invalid width", tag)
	}
	f := Format{Type: name, Width: width}
	if hasDec {
		dec, err := strconv.Atoi(decPart)
		if err != nil || dec < 0 {
			return Format{}, fmt.Errorf("parse format %q: invalid decimals", tag)
		}
		f.Decimals = dec
	}
	return f, nil
}

// MustParseFormat is ParseFormat for literals known to be valid.
func MustParseFormat(tag string) Format {
	f, err := ParseFormat(tag)
	if err != nil {
		panic(err)
	}
	return f
}

// String renders the format the way SPSS prints it: numeric families carry
// decimals ("F8.0"), string and date families do not unless non-zero.
func (f Format) String() string {
	if f.Type == "" {
		return ""
	}
	switch formatFamilies[f.Type] {
	case familyNumber:
		return fmt.Sprintf("%s%d.%d", f.Type, f.Width, f.Decimals)
	case familyTime:
		if f.Decimals > 0 {
			return fmt.Sprintf("%s%d.%d", f.Type, f.Width, f.Decimals)
		}
	}
	return fmt.Sprintf("%s%d", f.Type, f.Width)
}

// IsString reports whether the format stores character data.
func (f Format) IsString() bool {
	return formatFamilies[f.Type] == familyString
}

// IsNumeric reports whether the format stores a double (including dates).
func (f Format) IsNumeric() bool {
	family := formatFamilies[f.Type]
	return family == familyNumber || family == familyTime
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Measure is the SPSS measurement level. Values match the on-disk codes.
type Measure uint8

const (
	MeasureNominal Measure = 1
	MeasureOrdinal Measure = 2
	MeasureScale   Measure = 3
)

func (m Measure) String() string {
	switch m {
	case MeasureNominal:
		return "nominal"
	case MeasureOrdinal:
		return "ordinal"
	case MeasureScale:
		return "scale"
	default:
		return "unknown"
	}
}

// ParseMeasure accepts nominal, ordinal, or scale (case-insensitive).
func ParseMeasure(value string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "nominal":
		return MeasureNominal, nil
	case "ordinal":
		return MeasureOrdinal, nil
	case "scale":
		return MeasureScale, nil
	default:
		return 0, fmt.Errorf("parse measure: unknown level %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Measure) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Measure) UnmarshalText(b []byte) error {
	parsed, err := ParseMeasure(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
