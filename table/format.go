package table

import (
	"fmt"
	"strconv"
	"strings"
)

// A FieldDescriptor is one element of a format: literal Prefix text, then the cell for Code padded
// or truncated to Width (0 means natural width), then literal Suffix text.  A descriptor with Code
// 0 carries only literal text.
type FieldDescriptor struct {
	Prefix       string
	Code         byte
	Width        int
	RightJustify bool
	Suffix       string
}

type FormatSpec []FieldDescriptor

// Width used for long-format fields that don't give one.
const DefaultLongWidth = 20

// ParseFormat parses the short syntax:
//
//   format := prefix? ( "%" "."? digits? letter suffix? )*
//
// Everything before the first "%" is a literal prefix, everything after the letter up to the next
// "%" is the suffix.  The letter is not checked here, see Registry.Validate.
func ParseFormat(f string) FormatSpec {
	spec := make(FormatSpec, 0)
	prefix, rest, found := strings.Cut(f, "%")
	if prefix != "" {
		spec = append(spec, FieldDescriptor{Prefix: prefix})
	}
	if !found {
		return spec
	}
	for _, token := range strings.Split(rest, "%") {
		var d FieldDescriptor
		i := 0
		if i < len(token) && token[i] == '.' {
			d.RightJustify = true
			i++
		}
		start := i
		for i < len(token) && token[i] >= '0' && token[i] <= '9' {
			i++
		}
		if i > start {
			d.Width, _ = strconv.Atoi(token[start:i])
		}
		if i == len(token) {
			// "%" or "%.5" with no field letter
			continue
		}
		d.Code = token[i]
		d.Suffix = token[i+1:]
		spec = append(spec, d)
	}
	return spec
}

// ParseLongFormat parses the long syntax, a comma separated list of
//
//   "%"? name ( ":" "."? digits? suffix? )?
//
// where names are mapped to codes by the lookup.  A field without a width gets DefaultLongWidth.
func ParseLongFormat(f string, lookup func(name string) (byte, bool)) (FormatSpec, error) {
	spec := make(FormatSpec, 0)
	for _, token := range strings.Split(f, ",") {
		token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "%"))
		if token == "" {
			continue
		}
		name, mods, hasMods := strings.Cut(token, ":")
		code, found := lookup(strings.ToLower(name))
		if !found {
			return nil, fmt.Errorf("Invalid format specification: %s", name)
		}
		d := FieldDescriptor{Code: code, Width: DefaultLongWidth}
		if hasMods {
			i := 0
			if i < len(mods) && mods[i] == '.' {
				d.RightJustify = true
				i++
			}
			start := i
			for i < len(mods) && mods[i] >= '0' && mods[i] <= '9' {
				i++
			}
			if i > start {
				d.Width, _ = strconv.Atoi(mods[start:i])
			}
			d.Suffix = mods[i:]
		}
		spec = append(spec, d)
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("Invalid format specification: %q", f)
	}
	return spec, nil
}

// Codes returns the field codes in format order, literal-only descriptors excluded.
func (spec FormatSpec) Codes() []byte {
	codes := make([]byte, 0, len(spec))
	for _, d := range spec {
		if d.Code != 0 {
			codes = append(codes, d.Code)
		}
	}
	return codes
}

func (spec FormatSpec) Has(code byte) bool {
	for _, d := range spec {
		if d.Code == code {
			return true
		}
	}
	return false
}

// String renders the spec back in the short syntax.
func (spec FormatSpec) String() string {
	var s strings.Builder
	for _, d := range spec {
		s.WriteString(d.Prefix)
		if d.Code == 0 {
			continue
		}
		s.WriteByte('%')
		if d.RightJustify {
			s.WriteByte('.')
		}
		if d.Width > 0 {
			s.WriteString(strconv.Itoa(d.Width))
		}
		s.WriteByte(d.Code)
		s.WriteString(d.Suffix)
	}
	return s.String()
}
