package sav

import (
	"strconv"
	"strings"
)

// shortNameBase derives an 8-byte SPSS short name from a long name: upper
// case, letters digits and _.@#$ only, starting with a letter or @. A leading
// # or $ would mark a scratch or system variable, so it gets a V prefix.
func shortNameBase(long string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(long) {
		if b.Len() >= shortNameSize {
			break
		}
		switch {
		case r >= 'A' && r <= 'Z', r == '@':
			b.WriteRune(r)
		case r >= '0' && r <= '9', r == '_', r == '.', r == '#', r == '$':
			if b.Len() == 0 {
				b.WriteByte('V')
			}
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "V"
	}
	if len(s) > shortNameSize {
		s = s[:shortNameSize]
	}
	return s
}

// nameSet hands out unique short names.
type nameSet map[string]struct{}

func (s nameSet) claim(base string) string {
	if _, taken := s[base]; !taken {
		s[base] = struct{}{}
		return base
	}
	for i := 1; ; i++ {
		suffix := "_" + strconv.Itoa(i)
		stem := base
		if len(stem)+len(suffix) > shortNameSize {
			stem = stem[:shortNameSize-len(suffix)]
		}
		candidate := stem + suffix
		if _, taken := s[candidate]; !taken {
			s[candidate] = struct{}{}
			return candidate
		}
	}
}

// segmentName names segment i (1-based beyond the first) of a very long
// string whose first segment is called short.
func (s nameSet) segmentName(short string, i int) string {
	stem := short
	if len(stem) > 5 {
		stem = stem[:5]
	}
	return s.claim(stem + strconv.Itoa(i))
}
