package sonar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
)

const (
	ClusterFile = "cluster.json"
	JobsFile    = "jobs.json"
)

// Files reads the newest envelope from files that Sonar appends to, one JSON object per line.
type Files struct {
	dir string
}

var _ source.Loader = (*Files)(nil)

func NewFiles(dir string) (*Files, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Files{dir: dir}, nil
}

func (f *Files) Close() error {
	return nil
}

// The envelopes are converted as they are read, the decoder may reuse them.
func (f *Files) lastJobs() (*slurm.JobSnapshot, *slurm.StepSnapshot, error) {
	fn := filepath.Join(f.dir, JobsFile)
	input, err := os.Open(fn)
	if err != nil {
		return nil, nil, err
	}
	defer input.Close()

	var jobs *slurm.JobSnapshot
	var steps *slurm.StepSnapshot
	softErrors := 0
	err = newfmt.ConsumeJSONJobs(input, false, func(r *newfmt.JobsEnvelope) {
		j, s, err := JobSnapshots(r)
		if err != nil {
			softErrors++
			return
		}
		jobs, steps = j, s
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", fn, err)
	}
	if softErrors > 0 {
		Log.Infof("%s: %d bad envelopes skipped", fn, softErrors)
	}
	if jobs == nil {
		return nil, nil, fmt.Errorf("%s: %w", fn, ErrNoData)
	}
	return jobs, steps, nil
}

func (f *Files) LoadJobs(_ context.Context, since time.Time, _ source.ShowFlags) (*slurm.JobSnapshot, error) {
	jobs, _, err := f.lastJobs()
	if err != nil {
		return nil, err
	}
	if source.Unchanged(since, jobs.LastUpdate) {
		return nil, source.ErrNoChange
	}
	return jobs, nil
}

func (f *Files) LoadSteps(_ context.Context, since time.Time, _ source.ShowFlags) (*slurm.StepSnapshot, error) {
	_, steps, err := f.lastJobs()
	if err != nil {
		return nil, err
	}
	if source.Unchanged(since, steps.LastUpdate) {
		return nil, source.ErrNoChange
	}
	return steps, nil
}

func (f *Files) LoadNodes(_ context.Context, since time.Time, _ source.ShowFlags) (*slurm.NodeSnapshot, error) {
	fn := filepath.Join(f.dir, ClusterFile)
	input, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	var snap *slurm.NodeSnapshot
	var lastErr error
	err = newfmt.ConsumeJSONCluster(input, false, func(r *newfmt.ClusterEnvelope) {
		s, err := NodeSnapshot(r)
		if err != nil {
			lastErr = err
			return
		}
		snap = s
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if snap == nil {
		if lastErr == nil {
			lastErr = ErrNoData
		}
		return nil, fmt.Errorf("%s: %w", fn, lastErr)
	}
	if source.Unchanged(since, snap.LastUpdate) {
		return nil, source.ErrNoChange
	}
	return snap, nil
}
