package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the declared storage kind of a column.
type Kind uint8

const (
	KindNumeric Kind = iota
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	default:
		return "numeric"
	}
}

type valueState uint8

const (
	stateMissing valueState = iota
	stateNumber
	stateText
)

// Value is a single cell: missing, a number, or text. The zero Value is missing.
type Value struct {
	state valueState
	num   float64
	text  string
}

// Missing returns the absent value.
func Missing() Value {
	return Value{}
}

// Number wraps f. NaN is folded into Missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{state: stateNumber, num: f}
}

// Text wraps s verbatim; blank text is still text, see IsBlank.
func Text(s string) Value {
	return Value{state: stateText, text: s}
}

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool {
	return v.state == stateMissing
}

// IsNumber reports whether the value holds a number.
func (v Value) IsNumber() bool {
	return v.state == stateNumber
}

// IsText reports whether the value holds text.
func (v Value) IsText() bool {
	return v.state == stateText
}

// Float returns the numeric payload.
func (v Value) Float() (float64, bool) {
	if v.state != stateNumber {
		return 0, false
	}
	return v.num, true
}

// Str returns the text payload.
func (v Value) Str() (string, bool) {
	if v.state != stateText {
		return "", false
	}
	return v.text, true
}

// IsBlank reports whether the value counts as a non-response: missing,
// whitespace-only text, or text equal to one of the sentinels after trimming.
func (v Value) IsBlank(sentinels []string) bool {
	switch v.state {
	case stateMissing:
		return true
	case stateText:
		trimmed := strings.TrimSpace(v.text)
		if trimmed == "" {
			return true
		}
		for _, s := range sentinels {
			if trimmed == strings.TrimSpace(s) {
				return true
			}
		}
		return false
	default:
		if len(sentinels) == 0 {
			return false
		}
		formatted := strconv.FormatFloat(v.num, 'f', -1, 64)
		for _, s := range sentinels {
			if formatted == strings.TrimSpace(s) {
				return true
			}
		}
		return false
	}
}

// Equal compares two values by state and payload.
func (v Value) Equal(other Value) bool {
	if v.state != other.state {
		return false
	}
	switch v.state {
	case stateNumber:
		return v.num == other.num
	case stateText:
		return v.text == other.text
	default:
		return true
	}
}

// String renders the value for display. Missing renders as ".", the SPSS
// convention for system-missing.
func (v Value) String() string {
	switch v.state {
	case stateNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case stateText:
		return v.text
	default:
		return "."
	}
}

// Fits reports whether the value can be stored in a column of kind k.
func (v Value) Fits(k Kind) bool {
	switch v.state {
	case stateMissing:
		return true
	case stateNumber:
		return k == KindNumeric
	default:
		return k == KindString
	}
}
