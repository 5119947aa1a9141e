package cli

import (
	"strconv"
	"strings"
)

// List is a comma separated multi-valued option.  The first Set replaces whatever default the
// list held, later ones append, so "-p a -p b" is the same as "-p a,b".
type List struct {
	Items []string
	isSet bool
}

func (l *List) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(l.Items, ",")
}

func (l *List) Set(s string) error {
	if !l.isSet {
		l.Items = nil
		l.isSet = true
	}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			l.Items = append(l.Items, item)
		}
	}
	return nil
}

// IsSet is true if the list was given on the command line, even if it was given as empty.
func (l *List) IsSet() bool {
	return l.isSet
}

// Default installs a lower-layer value; it is replaced by the first Set.
func (l *List) Default(s string) {
	if l.isSet {
		return
	}
	l.Items = nil
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			l.Items = append(l.Items, item)
		}
	}
}

// Counter is a boolean option that counts its occurrences, for -v -v and -vv.
type Counter int

func (c *Counter) String() string {
	if c == nil {
		return "0"
	}
	return strconv.Itoa(int(*c))
}

func (c *Counter) Set(s string) error {
	if s == "" || s == "true" {
		*c++
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*c++
	}
	return nil
}

func (c *Counter) IsBoolFlag() bool {
	return true
}
