package common

import (
	"errors"
	"io"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"
)

// MT: Constant after initialization
var (
	iniParser = ini.NewParser()
	store     *ini.Store

	dataSource        = iniParser.AddSection("data-source")
	DataSourceURI     = dataSource.AddString("uri")
	DataSourceCluster = dataSource.AddString("cluster")

	squeueSection = iniParser.AddSection("squeue")
	SqueueFormat  = squeueSection.AddString("format")
	SqueueSort    = squeueSection.AddString("sort")

	sinfoSection = iniParser.AddSection("sinfo")
	SinfoFormat  = sinfoSection.AddString("format")
	SinfoSort    = sinfoSection.AddString("sort")
)

// IniFilename is $SLURMTAB_CONF if set, otherwise ~/.slurmtab, or "" if neither can be formed.
func IniFilename() string {
	if fn := os.Getenv("SLURMTAB_CONF"); fn != "" {
		return fn
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return path.Join(path.Clean(home), ".slurmtab")
}

// LoadIniFile reads the defaults file.  A missing file is not an error; a file that can't be read
// or parsed is logged and ignored, the defaults then come only from the environment and the
// command line.
func LoadIniFile(fn string) {
	store = nil
	if fn == "" {
		return
	}
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Warningf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	if err := ParseIni(input); err != nil {
		Log.Warningf("Error in trying to parse %s: %s", fn, err.Error())
	}
}

func ParseIni(input io.Reader) error {
	s, err := iniParser.Parse(input)
	if err != nil {
		store = nil
		return err
	}
	store = s
	return nil
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

// IniValue returns the value of f with environment variables expanded, if present.
func IniValue(f *ini.Field) (string, bool) {
	if !HasDefault(f) {
		return "", false
	}
	return os.ExpandEnv(f.StringVal(store)), true
}

func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" {
		return false
	}
	v, ok := IniValue(f)
	if !ok {
		return false
	}
	*sp = v
	return true
}
