package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// A SortKey selects a comparator by field code.  Reverse inverts it; Enumerated asks for the
// server's enumeration order instead of name order, where the comparator supports that.
type SortKey struct {
	Code       byte
	Reverse    bool
	Enumerated bool
}

func (k SortKey) String() string {
	var s strings.Builder
	if k.Enumerated {
		s.WriteByte('#')
	}
	if k.Reverse {
		s.WriteByte('-')
	}
	s.WriteByte(k.Code)
	return s.String()
}

// A Comparator orders two rows for one key; it may consult the key's Enumerated flag.  It must not
// look at Reverse, SortStable applies that.
type Comparator[T any] func(key SortKey) func(a, b *T) int

// ParseSortSpec parses a sort spec like "P,t,-p" or "#P-t" into keys, most significant first.  A
// leading "+" is ignored; "-" and "#" prefixes may be combined in either order.  Codes for which
// valid returns false are errors.
func ParseSortSpec(spec string, valid func(code byte) bool) ([]SortKey, error) {
	spec = strings.TrimPrefix(spec, "+")
	keys := make([]SortKey, 0)
	var k SortKey
	var errs []error
	for i := 0; i < len(spec); i++ {
		switch c := spec[i]; c {
		case ',', ' ':
			if k.Reverse || k.Enumerated {
				errs = append(errs, fmt.Errorf("Invalid sort specification: %s", spec))
				k = SortKey{}
			}
		case '-':
			k.Reverse = true
		case '#':
			k.Enumerated = true
		case '+':
			// Explicit ascending
		default:
			k.Code = c
			if !valid(c) {
				errs = append(errs, fmt.Errorf("Invalid sort specification: %c", c))
			}
			keys = append(keys, k)
			k = SortKey{}
		}
	}
	if k.Reverse || k.Enumerated {
		errs = append(errs, fmt.Errorf("Invalid sort specification: %s", spec))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return keys, nil
}

// SortStable sorts rows by keys, most significant first, by stable-sorting on each key from the
// least significant to the most significant.  Keys without a comparator are skipped.
func SortStable[T any](rows []*T, keys []SortKey, comparators map[byte]Comparator[T]) {
	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		mk, found := comparators[key.Code]
		if !found {
			continue
		}
		cmp := mk(key)
		if key.Reverse {
			slices.SortStableFunc(rows, func(a, b *T) int { return cmp(b, a) })
		} else {
			slices.SortStableFunc(rows, cmp)
		}
	}
}
