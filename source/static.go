package source

import (
	"context"
	"time"

	"github.com/SchedMD/slurm-sub064/slurm"
)

// Static serves fixed snapshots, one per call in sequence, repeating the last one.  A nil entry
// stands for "no change".  An empty sequence yields ErrNotSupported.
type Static struct {
	Jobs  []*slurm.JobSnapshot
	Steps []*slurm.StepSnapshot
	Nodes []*slurm.NodeSnapshot
	Err   error // Returned by every call if set

	jobCalls, stepCalls, nodeCalls int
	Since                          []time.Time // The `since` of every call, in order
}

var _ Loader = (*Static)(nil)

func pick[T any](seq []*T, calls *int) (*T, error) {
	if len(seq) == 0 {
		return nil, ErrNotSupported
	}
	i := min(*calls, len(seq)-1)
	*calls++
	if seq[i] == nil {
		return nil, ErrNoChange
	}
	return seq[i], nil
}

func (s *Static) LoadJobs(ctx context.Context, since time.Time, flags ShowFlags) (*slurm.JobSnapshot, error) {
	s.Since = append(s.Since, since)
	if s.Err != nil {
		return nil, s.Err
	}
	return pick(s.Jobs, &s.jobCalls)
}

func (s *Static) LoadSteps(ctx context.Context, since time.Time, flags ShowFlags) (*slurm.StepSnapshot, error) {
	s.Since = append(s.Since, since)
	if s.Err != nil {
		return nil, s.Err
	}
	return pick(s.Steps, &s.stepCalls)
}

func (s *Static) LoadNodes(ctx context.Context, since time.Time, flags ShowFlags) (*slurm.NodeSnapshot, error) {
	s.Since = append(s.Since, since)
	if s.Err != nil {
		return nil, s.Err
	}
	return pick(s.Nodes, &s.nodeCalls)
}

func (s *Static) Close() error {
	return nil
}
