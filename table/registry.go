package table

import (
	"errors"
	"fmt"
	"slices"
)

// A Field renders one column of a row of type T.  Name is the long-format name.
type Field[T any] struct {
	Code   byte
	Name   string
	Header string
	Help   string
	Cell   func(r *T) string
}

type Registry[T any] struct {
	fields map[byte]*Field[T]
	names  map[string]byte
	order  []byte
}

func NewRegistry[T any](fields []Field[T]) *Registry[T] {
	reg := &Registry[T]{
		fields: make(map[byte]*Field[T], len(fields)),
		names:  make(map[string]byte, len(fields)),
		order:  make([]byte, 0, len(fields)),
	}
	for i := range fields {
		f := &fields[i]
		if _, found := reg.fields[f.Code]; found {
			panic(fmt.Sprintf("Duplicate field code %c", f.Code))
		}
		reg.fields[f.Code] = f
		reg.order = append(reg.order, f.Code)
		if f.Name != "" {
			reg.names[f.Name] = f.Code
		}
	}
	return reg
}

// Alias adds another long-format name for a code.
func (reg *Registry[T]) Alias(name string, code byte) {
	if _, found := reg.fields[code]; !found {
		panic(fmt.Sprintf("Field not found: %c", code))
	}
	reg.names[name] = code
}

func (reg *Registry[T]) Lookup(code byte) (*Field[T], bool) {
	f, found := reg.fields[code]
	return f, found
}

func (reg *Registry[T]) CodeForName(name string) (byte, bool) {
	c, found := reg.names[name]
	return c, found
}

// Fields returns the fields in definition order.
func (reg *Registry[T]) Fields() []*Field[T] {
	fs := make([]*Field[T], 0, len(reg.order))
	for _, c := range reg.order {
		fs = append(fs, reg.fields[c])
	}
	return fs
}

// Names returns the long-format names, sorted.
func (reg *Registry[T]) Names() []string {
	names := make([]string, 0, len(reg.names))
	for n := range reg.names {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Validate reports every code in the spec that has no field.
func (reg *Registry[T]) Validate(spec FormatSpec) error {
	var errs []error
	for _, d := range spec {
		if d.Code == 0 {
			continue
		}
		if _, found := reg.fields[d.Code]; !found {
			errs = append(errs, fmt.Errorf("Invalid format specification: %c", d.Code))
		}
	}
	return errors.Join(errs...)
}
