package table

import (
	"strings"
)

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// NaturalCompare orders strings with embedded numbers numerically: "linux2" < "linux12".  The
// strings are compared in lockstep; at the first difference, if both sides are inside a digit run
// the whole runs are compared as integers, otherwise the bytes are compared.
func NaturalCompare(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	if i == len(a) && i == len(b) {
		return 0
	}

	// Back up to the start of a digit run common to both.
	start := i
	for start > 0 && isDigit(a[start-1]) {
		start--
	}
	aDigit := i < len(a) && isDigit(a[i]) || start < i
	bDigit := i < len(b) && isDigit(b[i]) || start < i
	if aDigit && bDigit {
		ea := start
		for ea < len(a) && isDigit(a[ea]) {
			ea++
		}
		eb := start
		for eb < len(b) && isDigit(b[eb]) {
			eb++
		}
		if c := compareDigitRuns(a[start:ea], b[start:eb]); c != 0 {
			return c
		}
		if c := NaturalCompare(a[ea:], b[eb:]); c != 0 {
			return c
		}
		// Same numbers and tails, differing only in leading zeroes.
		return strings.Compare(a, b)
	}

	switch {
	case i == len(a):
		return -1
	case i == len(b):
		return 1
	case a[i] < b[i]:
		return -1
	default:
		return 1
	}
}

func compareDigitRuns(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}
