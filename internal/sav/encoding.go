package sav

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"
)

const utf8CodePage = 65001

// textDecoder turns raw file bytes into UTF-8 strings.
type textDecoder struct {
	name string
	dec  *encoding.Decoder
	// sniff is set when the file declares nothing usable: valid UTF-8 passes
	// through and anything else is read as windows-1252.
	sniff bool
}

// newTextDecoder picks a decoder from the encoding record name, falling back
// to the integer info code page.
func newTextDecoder(name string, codePage int) *textDecoder {
	name = strings.TrimSpace(strings.TrimRight(name, "\x00"))
	if name != "" {
		if isUTF8Name(name) {
			return &textDecoder{name: "UTF-8"}
		}
		if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
			canonical, cerr := ianaindex.IANA.Name(enc)
			if cerr != nil {
				canonical = name
			}
			return &textDecoder{name: canonical, dec: enc.NewDecoder()}
		}
	}
	if cpName := codePageName(codePage); cpName != "" {
		if isUTF8Name(cpName) {
			return &textDecoder{name: "UTF-8"}
		}
		if enc, err := ianaindex.IANA.Encoding(cpName); err == nil && enc != nil {
			return &textDecoder{name: cpName, dec: enc.NewDecoder()}
		}
	}
	return &textDecoder{name: "unknown", sniff: true}
}

func isUTF8Name(name string) bool {
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "")) {
	case "UTF8", "USASCII", "ASCII":
		return true
	}
	return false
}

// codePageName maps Windows and ISO code page numbers to IANA names.
func codePageName(cp int) string {
	switch {
	case cp == utf8CodePage:
		return "UTF-8"
	case cp == 20127 || cp == 2 || cp == 3:
		return "US-ASCII"
	case cp >= 1250 && cp <= 1258:
		return fmt.Sprintf("windows-%d", cp)
	case cp >= 28591 && cp <= 28599:
		return fmt.Sprintf("ISO-8859-%d", cp-28590)
	case cp == 28605:
		return "ISO-8859-15"
	case cp == 874:
		return "windows-874"
	case cp == 437:
		return "IBM437"
	case cp == 850:
		return "IBM850"
	default:
		return ""
	}
}

// value decodes cell data.
func (d *textDecoder) value(b []byte) string {
	switch {
	case d.dec != nil:
		out, err := d.dec.Bytes(b)
		if err != nil {
			return strings.ToValidUTF8(string(b), "�")
		}
		return string(out)
	case d.sniff && !utf8.Valid(b):
		out, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return strings.ToValidUTF8(string(b), "�")
		}
		return string(out)
	default:
		return string(b)
	}
}

// text decodes dictionary strings (names and labels) and normalizes them
// to NFC.
func (d *textDecoder) text(b []byte) string {
	return norm.NFC.String(d.value(b))
}
