package sav

import (
	"errors"
	"math"

	"surveymerge/internal/dataset"
)

// ErrCorrupt marks input that is not a well-formed system file.
var ErrCorrupt = errors.New("corrupt system file")

// ErrUnsupported marks well-formed files using features this package does
// not implement.
var ErrUnsupported = errors.New("unsupported system file")

const (
	magicSAV  = "$FL2"
	magicZSAV = "$FL3"

	headerSize      = 176
	productSize     = 60
	fileLabelSize   = 64
	shortNameSize   = 8
	elementSize     = 8
	compressionBias = 100.0

	recVariable       = 2
	recValueLabels    = 3
	recValueLabelVars = 4
	recDocument       = 6
	recExtension      = 7
	recDictTerminator = 999

	extIntegerInfo      = 3
	extFloatInfo        = 4
	extDisplay          = 11
	extLongNames        = 13
	extVeryLongStrings  = 14
	extEncoding         = 20
	extLongStringLabels = 21

	maxShortString   = 255
	segmentUsedBytes = 252
	maxStringWidth   = 32767
	maxLongNameBytes = 64
	maxLabelBytes    = 255
	maxValueLabel    = 120
	documentLineSize = 80

	alignLeft  = 0
	alignRight = 1
)

var (
	sysmis  = -math.MaxFloat64
	highest = math.MaxFloat64
	lowest  = math.Nextafter(-math.MaxFloat64, 0)
)

// formatCodes maps SPSS format type codes to dataset format names.
var formatCodes = map[int]string{
	1: "A", 2: "AHEX", 3: "COMMA", 4: "DOLLAR", 5: "F", 6: "IB", 7: "PIBHEX",
	8: "P", 9: "PIB", 10: "PK", 11: "RB", 12: "RBHEX", 15: "Z", 16: "N", 17: "E",
	20: "DATE", 21: "TIME", 22: "DATETIME", 23: "ADATE", 24: "JDATE", 25: "DTIME",
	26: "WKDAY", 27: "MONTH", 28: "MOYR", 29: "QYR", 30: "WKYR", 31: "PCT", 32: "DOT",
	33: "CCA", 34: "CCB", 35: "CCC", 36: "CCD", 37: "CCE", 38: "EDATE", 39: "SDATE",
	40: "MTIME", 41: "YMDHMS",
}

var formatTypes = func() map[string]int {
	out := make(map[string]int, len(formatCodes))
	for code, name := range formatCodes {
		out[name] = code
	}
	return out
}()

func unpackFormat(packed uint32) (dataset.Format, bool) {
	name, ok := formatCodes[int(packed>>16&0xff)]
	if !ok {
		return dataset.Format{}, false
	}
	return dataset.Format{Type: name, Width: int(packed >> 8 & 0xff), Decimals: int(packed & 0xff)}, true
}

func packFormat(f dataset.Format) uint32 {
	code := formatTypes[f.Type]
	width := min(max(f.Width, 1), 255)
	decimals := min(max(f.Decimals, 0), 255)
	return uint32(code)<<16 | uint32(width)<<8 | uint32(decimals)
}

// elementsFor returns how many 8-byte elements a value of width bytes uses.
// Width 0 is numeric.
func elementsFor(width int) int {
	if width == 0 {
		return 1
	}
	return (width + elementSize - 1) / elementSize
}

// segmentWidths splits a string width into the per-segment widths SPSS
// stores: strings up to 255 bytes are one segment, wider ones use 255-wide
// segments carrying 252 bytes each plus a final remainder.
func segmentWidths(width int) []int {
	if width <= maxShortString {
		return []int{width}
	}
	n := (width + segmentUsedBytes - 1) / segmentUsedBytes
	out := make([]int, n)
	for i := 0; i < n-1; i++ {
		out[i] = maxShortString
	}
	out[n-1] = width - (n-1)*segmentUsedBytes
	return out
}

// segmentUsed returns how many bytes of the value segment i of n carries.
func segmentUsed(width, i, n int) int {
	if n == 1 {
		return width
	}
	if i < n-1 {
		return segmentUsedBytes
	}
	return width - (n-1)*segmentUsedBytes
}
