package table

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	. "github.com/SchedMD/slurm-sub064/common"
)

// WriteRow renders one line for r, or the header line if r is nil.  A descriptor whose code has no
// field is reported and produces no output.
func WriteRow[T any](out io.Writer, spec FormatSpec, reg *Registry[T], r *T) {
	var s strings.Builder
	for _, d := range spec {
		s.WriteString(d.Prefix)
		if d.Code == 0 {
			continue
		}
		f, found := reg.Lookup(d.Code)
		if !found {
			Log.Errorf("Invalid format specification: %c", d.Code)
			continue
		}
		var text string
		if r == nil {
			text = f.Header
		} else {
			text = f.Cell(r)
		}
		writeCell(&s, d.Width, d.RightJustify, text)
		s.WriteString(d.Suffix)
	}
	s.WriteByte('\n')
	io.WriteString(out, s.String())
}

// Render writes the optional header and then one line per row, and flushes.
func Render[T any](unbufOut io.Writer, spec FormatSpec, reg *Registry[T], rows []*T, header bool) error {
	out := Buffered(unbufOut)
	if header {
		WriteRow[T](out, spec, reg, nil)
	}
	for _, r := range rows {
		WriteRow(out, spec, reg, r)
	}
	return out.Flush()
}

// This padder is much faster than the equivalent Sprintf(), and allocates almost nothing at all.
//
// We will almost never need more spaces than initial_spaces; the padder will create more as
// necessary but not update the global string b/c that would require a lock.
const initial_spaces = "                                                                                "

func writeCell(s *strings.Builder, width int, right bool, str string) {
	if width == 0 {
		s.WriteString(str)
		return
	}
	n := utf8.RuneCountInString(str)
	if n > width {
		str = truncateRunes(str, width)
		n = width
	}
	spaces := initial_spaces
	needed := width - n
	for len(spaces) < needed {
		spaces = spaces + spaces
	}
	if right {
		s.WriteString(spaces[:needed])
		s.WriteString(str)
	} else {
		s.WriteString(str)
		s.WriteString(spaces[:needed])
	}
}

func truncateRunes(str string, n int) string {
	i := 0
	for ix := range str {
		if i == n {
			return str[:ix]
		}
		i++
	}
	return str
}

func Buffered(unbufOut io.Writer) *bufio.Writer {
	if b, ok := unbufOut.(*bufio.Writer); ok {
		return b
	}
	return bufio.NewWriter(unbufOut)
}
