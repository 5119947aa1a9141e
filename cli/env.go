package cli

import (
	"os"
	"strings"

	ini "github.com/lars-t-hansen/ini"

	. "github.com/SchedMD/slurm-sub064/common"
)

// Getenv reads <TOOL>_<NAME>, e.g. SQUEUE_FORMAT.  An empty value counts as unset.
func Getenv(tool, name string) (string, bool) {
	v := os.Getenv(strings.ToUpper(tool) + "_" + name)
	return v, v != ""
}

// Layer fills *sp from the lowest layer that has a value, unless the command line set it: first
// the environment variables in order, then the config file field.
func Layer(sp *string, tool string, field *ini.Field, envNames ...string) {
	if *sp != "" {
		return
	}
	for _, name := range envNames {
		if v, ok := Getenv(tool, name); ok {
			*sp = v
			return
		}
	}
	if field != nil {
		ApplyDefault(sp, field)
	}
}

// LayerList fills l from the environment unless the command line set it.
func LayerList(l *List, tool, envName string) {
	if l.IsSet() {
		return
	}
	if v, ok := Getenv(tool, envName); ok {
		l.Default(v)
	}
}
