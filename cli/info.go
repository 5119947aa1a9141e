package cli

import (
	"fmt"
	"io"
)

const banner = "-----------------------------"

// Info is an ordered set of key/value strings; setting a key again replaces its value in place.
type Info struct {
	keys   []string
	values map[string]string
}

func NewInfo() *Info {
	return &Info{values: make(map[string]string)}
}

func (in *Info) Set(key string, value any) {
	if _, found := in.values[key]; !found {
		in.keys = append(in.keys, key)
	}
	in.values[key] = fmt.Sprint(value)
}

func (in *Info) Get(key string) (string, bool) {
	v, found := in.values[key]
	return v, found
}

func (in *Info) Len() int {
	return len(in.keys)
}

// Write prints the entries as "key = value" lines between banners.
func (in *Info) Write(out io.Writer) {
	fmt.Fprintln(out, banner)
	for _, k := range in.keys {
		fmt.Fprintf(out, "%s = %s\n", k, in.values[k])
	}
	fmt.Fprintln(out, banner)
}
