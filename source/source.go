// Package source defines how the reporting tools obtain snapshots of cluster state.  The concrete
// loaders live in the subpackages; Static serves snapshots from memory.

package source

import (
	"context"
	"errors"
	"time"

	"github.com/SchedMD/slurm-sub064/slurm"
)

// ErrNoChange is returned by a loader when the data are not newer than the `since` time passed to
// it.  The caller then reuses its previous snapshot.
var ErrNoChange = errors.New("No change since last update")

// ErrNotSupported is returned by loaders that cannot produce some kind of snapshot.
var ErrNotSupported = errors.New("Not supported by this data source")

type ShowFlags int

const (
	ShowAll ShowFlags = 1 << iota
	ShowDetail
)

// A Loader produces snapshots.  A zero `since` always produces a snapshot.
type Loader interface {
	LoadJobs(ctx context.Context, since time.Time, flags ShowFlags) (*slurm.JobSnapshot, error)
	LoadSteps(ctx context.Context, since time.Time, flags ShowFlags) (*slurm.StepSnapshot, error)
	LoadNodes(ctx context.Context, since time.Time, flags ShowFlags) (*slurm.NodeSnapshot, error)
	Close() error
}

// Unchanged is the check shared by the loaders: there is a previous time and the data are not
// newer than it.
func Unchanged(since, lastUpdate time.Time) bool {
	return !since.IsZero() && !lastUpdate.After(since)
}

// MergePartitionMembership expands every partition's node list and records the membership on the
// nodes, keeping memberships the loader already set.  Nodes named by partitions but absent from
// the node list are ignored.
func MergePartitionMembership(snap *slurm.NodeSnapshot, expand func(expr string) ([]string, error)) error {
	byName := make(map[string]*slurm.NodeRecord, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byName[n.Name] = n
	}
	for _, p := range snap.Partitions {
		if p.Nodes == "" {
			continue
		}
		names, err := expand(p.Nodes)
		if err != nil {
			return err
		}
		for _, name := range names {
			n := byName[name]
			if n == nil {
				continue
			}
			member := false
			for _, q := range n.Partitions {
				if q == p.Name {
					member = true
					break
				}
			}
			if !member {
				n.Partitions = append(n.Partitions, p.Name)
			}
		}
		if p.TotalNodes == 0 {
			p.TotalNodes = uint32(len(names))
		}
	}
	return nil
}
