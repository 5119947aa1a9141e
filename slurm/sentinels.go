package slurm

import (
	"fmt"
	"math"
	"time"
)

const (
	Infinite uint32 = 0xffffffff
	NoVal    uint32 = 0xfffffffe

	Infinite64 uint64 = 0xffffffffffffffff
	NoVal64    uint64 = 0xfffffffffffffffe

	TimeUnset    int64 = 0
	TimeInfinite int64 = math.MaxInt64
)

// The sentinels are the largest values of their types, so plain unsigned comparison already
// orders them after every finite value.

func IsSet32(v uint32) bool {
	return v != Infinite && v != NoVal
}

func IsSet64(v uint64) bool {
	return v != Infinite64 && v != NoVal64
}

// Timestamps are rendered in this zone.  MT: Constant after initialization.
var TimeZone = time.Local

const TimestampLayout = "2006-01-02T15:04:05"

func FormatTimestamp(t int64) string {
	return time.Unix(t, 0).In(TimeZone).Format(TimestampLayout)
}

// SecsToTime renders a duration as D-HH:MM:SS, H:MM:SS or M:SS.
func SecsToTime(secs int64) string {
	if secs < 0 {
		return "INVALID"
	}
	seconds := secs % 60
	minutes := (secs / 60) % 60
	hours := (secs / 3600) % 24
	days := secs / 86400
	switch {
	case days > 0:
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%d:%02d", minutes, seconds)
	}
}

// MinsToTime renders a limit in minutes, with the sentinels as UNLIMITED and NOT_SET.
func MinsToTime(mins uint32) string {
	switch mins {
	case Infinite:
		return "UNLIMITED"
	case NoVal:
		return "NOT_SET"
	default:
		return SecsToTime(int64(mins) * 60)
	}
}
