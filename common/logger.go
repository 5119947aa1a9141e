package common

import (
	"github.com/SchedMD/slurm-sub064/status"
)

// MT: Constant after initialization; thread-safe
var Log status.Logger = status.Default()

// SetVerbosity lowers the log level by one step per -v: Info, then Debug.
func SetVerbosity(verbose int) {
	switch {
	case verbose >= 2:
		Log.LowerLevelTo(status.LogLevelDebug)
	case verbose == 1:
		Log.LowerLevelTo(status.LogLevelInfo)
	}
}
