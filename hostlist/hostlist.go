// Host name lists and their compressed range form.
//
// The following grammar pertains to host list expressions:
//
//   expression ::= pattern ("," pattern)*
//   pattern    ::= fragment+
//   fragment   ::= literal | range
//   literal    ::= <longest nonempty string of characters not containing "[" or ",">
//   range      ::= "[" range-elt ("," range-elt)* "]"
//   range-elt  ::= number | number "-" number
//   number     ::= <nonempty string of 0..9, to be interpreted as decimal>
//
// The following restrictions apply:
//
// - In a range A-B, A must be no greater than B or the pattern is invalid
// - A number with leading zeroes fixes the width of every name it expands to, so "n[01-03]"
//   expands to n01, n02, n03 and "n[8-10]" to n8, n9, n10
// - The expansion of the ranged form of a list H yields exactly the set of names in H
//
// A Hostlist is an ordered sequence of host names; duplicates are allowed until Uniq is called.
// Hostlists are values: Copy before handing one to code that mutates it.

package hostlist

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

type Hostlist struct {
	hosts []string
	// Lazily built membership set, nil when stale
	set map[string]bool
}

func New() *Hostlist {
	return &Hostlist{hosts: make([]string, 0)}
}

// Parse an expression into a new Hostlist.  The empty expression yields an empty list.

func Parse(expr string) (*Hostlist, error) {
	h := New()
	if err := h.Push(expr); err != nil {
		return nil, err
	}
	return h, nil
}

// Push appends every host named by the expression.

func (h *Hostlist) Push(expr string) error {
	patterns, err := splitExpression(expr)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		names, err := expandPattern(p)
		if err != nil {
			return fmt.Errorf("Illegal host list %q: %w", expr, err)
		}
		h.hosts = append(h.hosts, names...)
	}
	h.set = nil
	return nil
}

// PushHost appends a single concrete host name without interpreting it.

func (h *Hostlist) PushHost(name string) {
	h.hosts = append(h.hosts, name)
	h.set = nil
}

// Pop removes and returns the last host.

func (h *Hostlist) Pop() (string, bool) {
	if len(h.hosts) == 0 {
		return "", false
	}
	name := h.hosts[len(h.hosts)-1]
	h.hosts = h.hosts[:len(h.hosts)-1]
	h.set = nil
	return name, true
}

// Shift removes and returns the first host.

func (h *Hostlist) Shift() (string, bool) {
	if len(h.hosts) == 0 {
		return "", false
	}
	name := h.hosts[0]
	h.hosts = h.hosts[1:]
	h.set = nil
	return name, true
}

func (h *Hostlist) Count() int {
	return len(h.hosts)
}

// Hosts returns a copy of the names in list order.

func (h *Hostlist) Hosts() []string {
	return slices.Clone(h.hosts)
}

func (h *Hostlist) Copy() *Hostlist {
	return &Hostlist{hosts: slices.Clone(h.hosts)}
}

// Sort orders the names in host order: by prefix, then numerically by the rightmost digit run,
// then by suffix.  The sort is stable.

func (h *Hostlist) Sort() {
	slices.SortStableFunc(h.hosts, Compare)
}

// Uniq removes duplicates, keeping the first occurrence.

func (h *Hostlist) Uniq() {
	seen := make(map[string]bool, len(h.hosts))
	out := h.hosts[:0]
	for _, n := range h.hosts {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	h.hosts = out
	h.set = nil
}

func (h *Hostlist) Contains(name string) bool {
	if h.set == nil {
		h.set = make(map[string]bool, len(h.hosts))
		for _, n := range h.hosts {
			h.set[n] = true
		}
	}
	return h.set[name]
}

// Intersects is true if some host is in both lists.

func (h *Hostlist) Intersects(other *Hostlist) bool {
	if other == nil {
		return false
	}
	small, large := h, other
	if small.Count() > large.Count() {
		small, large = large, small
	}
	for _, n := range small.hosts {
		if large.Contains(n) {
			return true
		}
	}
	return false
}

// Min returns the first host in host order, or "" for an empty list.  The list is not modified.

func (h *Hostlist) Min() string {
	if len(h.hosts) == 0 {
		return ""
	}
	return slices.MinFunc(h.hosts, Compare)
}

// Ranged returns the compressed form of the list, e.g. "node[01-04,07],login1".  Names that share
// a prefix, a suffix and a number width are collected into one range in the position of the first
// of them; numbers within a range are sorted and deduplicated.

func (h *Hostlist) Ranged() string {
	return strings.Join(compress(h.hosts), ",")
}

func (h *Hostlist) String() string {
	return h.Ranged()
}

// Compare orders host names as described for Sort.

func Compare(a, b string) int {
	pa, na, wa, sa, oka := splitHost(a)
	pb, nb, wb, sb, okb := splitHost(b)
	if !oka || !okb || pa != pb {
		return strings.Compare(a, b)
	}
	if na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	if wa != wb {
		if wa < wb {
			return -1
		}
		return 1
	}
	return strings.Compare(sa, sb)
}

// This takes an expression and returns the individual patterns in it.  It requires a bit of logic
// because each pattern may contain a range that contains a comma.

func splitExpression(s string) ([]string, error) {
	patterns := make([]string, 0)
	if s == "" {
		return patterns, nil
	}
	insideBrackets := false
	start := -1
	for ix, c := range s {
		if c == '[' {
			if insideBrackets {
				return nil, errors.New("Illegal host list: nested brackets")
			}
			insideBrackets = true
		} else if c == ']' {
			if !insideBrackets {
				return nil, errors.New("Illegal host list: unmatched end bracket")
			}
			insideBrackets = false
		} else if c == ',' && !insideBrackets {
			if start == -1 {
				return nil, errors.New("Illegal host list: empty host name")
			}
			patterns = append(patterns, s[start:ix])
			start = -1
			continue
		}
		if start == -1 {
			start = ix
		}
	}
	if insideBrackets {
		return nil, errors.New("Illegal host list: missing end bracket")
	}
	if start == -1 {
		return nil, errors.New("Illegal host list: empty host name")
	}
	patterns = append(patterns, s[start:])
	return patterns, nil
}

const maxRange = 1 << 20

type number struct {
	value uint64
	width int
}

func expandPattern(s string) ([]string, error) {
	r := strings.NewReader(s)
	fragments := make([]any, 0)
	for {
		fragment, err := parseFragment(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	if len(fragments) == 0 {
		return nil, errors.New("Empty pattern")
	}
	tails := []string{""}
	for i := len(fragments) - 1; i >= 0; i-- {
		switch f := fragments[i].(type) {
		case string:
			for j := range tails {
				tails[j] = f + tails[j]
			}
		case []number:
			xs := make([]string, 0, len(tails)*len(f))
			for _, n := range f {
				for _, t := range tails {
					xs = append(xs, fmt.Sprintf("%0*d%s", n.width, n.value, t))
				}
			}
			tails = xs
		default:
			panic("Unexpected fragment")
		}
	}
	return tails, nil
}

func parseFragment(r *strings.Reader) (any, error) {
	switch c := getc(r); c {
	case 0:
		return nil, io.EOF
	case '[':
		needOne := true
		nodes := []number{}
		for {
			if eatc(r, ']') {
				if needOne {
					return nil, errors.New("Expected number")
				}
				break
			}
			needOne = false
			lo, width, err := readNumber(r)
			if err != nil {
				return nil, err
			}
			if eatc(r, '-') {
				hi, _, err := readNumber(r)
				if err != nil {
					return nil, err
				}
				if lo > hi {
					return nil, errors.New("Bad range")
				}
				if hi-lo >= maxRange {
					return nil, errors.New("Range too large")
				}
				for n := lo; n <= hi; n++ {
					nodes = append(nodes, number{n, width})
				}
			} else {
				nodes = append(nodes, number{lo, width})
			}
			if eatc(r, ',') {
				needOne = true
			} else if eatc(r, ']') {
				ungetc(r, ']')
			} else {
				return nil, errors.New("Unexpected character")
			}
		}
		return nodes, nil
	case ']', ',':
		return nil, fmt.Errorf("Unexpected '%c'", c)
	default:
		var literal strings.Builder
		literal.WriteRune(c)
		for {
			c := getc(r)
			if c == 0 || c == '[' || c == ',' || c == ']' {
				ungetc(r, c)
				break
			}
			literal.WriteRune(c)
		}
		return literal.String(), nil
	}
}

// The width is the number of digits if the number has a leading zero, otherwise zero (no padding).

func readNumber(r io.RuneScanner) (uint64, int, error) {
	var cs strings.Builder
	for {
		c := getc(r)
		if c < '0' || c > '9' {
			ungetc(r, c)
			break
		}
		cs.WriteRune(c)
	}
	if cs.Len() == 0 {
		return 0, 0, errors.New("Expected number")
	}
	digits := cs.String()
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return n, paddedWidth(digits), nil
}

func paddedWidth(digits string) int {
	if len(digits) > 1 && digits[0] == '0' {
		return len(digits)
	}
	return 0
}

func eatc(r io.RuneScanner, x rune) bool {
	c := getc(r)
	if c == x {
		return true
	}
	ungetc(r, c)
	return false
}

func getc(r io.RuneScanner) rune {
	c, _, err := r.ReadRune()
	if err == io.EOF {
		return 0
	}
	return c
}

func ungetc(r io.RuneScanner, c rune) {
	if c != 0 {
		r.UnreadRune()
	}
}

var withDigitsRe = regexp.MustCompile(`^(.*?)(\d+)(\D*)$`)

// splitHost splits a name on its rightmost digit run.  The width is the digit count.
func splitHost(h string) (prefix string, n uint64, width int, suffix string, ok bool) {
	ms := withDigitsRe.FindStringSubmatch(h)
	if ms == nil {
		return
	}
	v, err := strconv.ParseUint(ms[2], 10, 64)
	if err != nil {
		return
	}
	return ms[1], v, len(ms[2]), ms[3], true
}

type rangeKey struct {
	prefix, suffix string
	width          int
}

type rangeGroup struct {
	key     rangeKey
	literal string
	numbers []uint64
}

func compress(hosts []string) []string {
	groups := make([]*rangeGroup, 0)
	index := make(map[rangeKey]*rangeGroup)
	for _, h := range hosts {
		prefix, n, digits, suffix, ok := splitHost(h)
		if !ok {
			groups = append(groups, &rangeGroup{literal: h})
			continue
		}
		width := 0
		if digits > 1 && h[len(prefix)] == '0' {
			width = digits
		}
		key := rangeKey{prefix, suffix, width}
		// An unpadded number that is as wide as a padded group joins that group.
		if width == 0 {
			if g, found := index[rangeKey{prefix, suffix, digits}]; found {
				g.numbers = append(g.numbers, n)
				continue
			}
		}
		if g, found := index[key]; found {
			g.numbers = append(g.numbers, n)
			continue
		}
		g := &rangeGroup{key: key, numbers: []uint64{n}}
		index[key] = g
		groups = append(groups, g)
	}

	result := make([]string, 0, len(groups))
	seenLiteral := make(map[string]bool)
	for _, g := range groups {
		if g.numbers == nil {
			if !seenLiteral[g.literal] {
				seenLiteral[g.literal] = true
				result = append(result, g.literal)
			}
			continue
		}
		slices.Sort(g.numbers)
		g.numbers = slices.Compact(g.numbers)
		if len(g.numbers) == 1 {
			result = append(result, fmt.Sprintf("%s%0*d%s", g.key.prefix, g.key.width, g.numbers[0], g.key.suffix))
			continue
		}
		result = append(result, g.key.prefix+compressRange(g.numbers, g.key.width)+g.key.suffix)
	}
	return result
}

func compressRange(xs []uint64, width int) string {
	var s strings.Builder
	s.WriteByte('[')
	for i := 0; i < len(xs); {
		first := xs[i]
		prev := first
		i++
		for i < len(xs) && xs[i] == prev+1 {
			prev = xs[i]
			i++
		}
		if s.Len() > 1 {
			s.WriteByte(',')
		}
		if first != prev {
			fmt.Fprintf(&s, "%0*d-%0*d", width, first, width, prev)
		} else {
			fmt.Fprintf(&s, "%0*d", width, first)
		}
	}
	s.WriteByte(']')
	return s.String()
}
