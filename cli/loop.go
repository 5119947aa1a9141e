package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/source"
)

// Loop runs a report once, or with a nonzero Interval repeatedly until the context is cancelled.
// Reports are separated by a blank line.
type Loop struct {
	Interval time.Duration

	// Reports to produce before returning, 0 means no limit
	Limit int

	// Defaults to SleepContext
	Sleep func(ctx context.Context, d time.Duration) error
}

func (l Loop) Run(ctx context.Context, out io.Writer, report func() error) error {
	sleep := l.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	for n := 1; ; n++ {
		if n > 1 {
			fmt.Fprintln(out)
		}
		if err := report(); err != nil {
			return err
		}
		if l.Interval == 0 || n == l.Limit {
			return nil
		}
		if err := sleep(ctx, l.Interval); err != nil {
			return nil
		}
	}
}

func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reload asks for data newer than prev and falls back to prev when there is nothing newer.  Loader
// failures are SnapshotUnavailable.
func Reload[S any](
	ctx context.Context,
	prev *S,
	load func(since time.Time) (*S, error),
	lastUpdate func(*S) time.Time,
) (*S, error) {
	var since time.Time
	if prev != nil {
		since = lastUpdate(prev)
	}
	snap, err := load(since)
	switch {
	case errors.Is(err, source.ErrNoChange) && prev != nil:
		Log.Debug("No change, reusing the previous snapshot")
		return prev, nil
	case errors.Is(err, source.ErrNoChange):
		return nil, NewInternal("No snapshot to reuse")
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewSnapshotUnavailable(err)
	}
	return snap, nil
}
