// Snapshot loader for the Slurm REST daemon.  Jobs, nodes and partitions are read from the
// /slurm/<version>/ endpoints; the server's last_update is the change token and update_time is
// passed so that the server can skip unchanged data.

package slurmrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
)

const (
	DefaultVersion = "v0.0.40"
	DefaultTimeout = 30 * time.Second
)

// Doer is the part of http.Client that is used, tests substitute their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	client  Doer
	base    *url.URL
	version string
	timeout time.Duration
	user    string
	token   string
}

var _ source.Loader = (*Client)(nil)

// New creates a loader for the daemon at base, e.g. http://slurmctl:6820.  The JWT is taken from
// $SLURM_JWT and the user name from $USER, as for the Slurm command line tools.
func New(client Doer, base string) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("Bad slurmrestd address %s: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("Bad slurmrestd address %s: scheme must be http or https", base)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		client:  client,
		base:    u,
		version: DefaultVersion,
		timeout: DefaultTimeout,
		user:    os.Getenv("USER"),
		token:   os.Getenv("SLURM_JWT"),
	}, nil
}

func (sc *Client) SetCredentials(user, token string) {
	sc.user = user
	sc.token = token
}

func (sc *Client) Close() error {
	return nil
}

func (sc *Client) get(ctx context.Context, what string, since time.Time, flags source.ShowFlags, data any) error {
	ctx, cancel := context.WithTimeout(ctx, sc.timeout)
	defer cancel()

	u := sc.base.JoinPath("slurm", sc.version, what)
	q := u.Query()
	if !since.IsZero() {
		q.Set("update_time", strconv.FormatInt(since.Unix(), 10))
	}
	if flags&source.ShowAll != 0 {
		q.Add("flags", "SHOW_ALL")
	}
	if flags&source.ShowDetail != 0 {
		q.Add("flags", "DETAIL")
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("Unable to create request for slurmrestd: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if sc.token != "" {
		req.Header.Set("X-SLURM-USER-NAME", sc.user)
		req.Header.Set("X-SLURM-USER-TOKEN", sc.token)
	}

	Log.Debugf("GET %s", u.String())
	resp, err := sc.client.Do(req)
	if err != nil {
		return fmt.Errorf("Unable to do request for slurmrestd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("Unexpected status code from slurmrestd: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return fmt.Errorf("Unable to decode slurmrestd response: %w", err)
	}
	return nil
}

func (r *response) check(since time.Time) error {
	if len(r.Errors) > 0 {
		e := r.Errors[0]
		msg := e.Description
		if msg == "" {
			msg = e.Error
		}
		return fmt.Errorf("slurmrestd: %s", msg)
	}
	if source.Unchanged(since, time.Unix(r.LastUpdate.time(), 0)) {
		return source.ErrNoChange
	}
	return nil
}

func (sc *Client) LoadJobs(ctx context.Context, since time.Time, flags source.ShowFlags) (*slurm.JobSnapshot, error) {
	var data jobsResponse
	if err := sc.get(ctx, "jobs", since, flags, &data); err != nil {
		return nil, err
	}
	if err := data.check(since); err != nil {
		return nil, err
	}
	snap := &slurm.JobSnapshot{
		LastUpdate: time.Unix(data.LastUpdate.time(), 0),
		Jobs:       make([]*slurm.JobRecord, 0, len(data.Jobs)),
	}
	for i := range data.Jobs {
		snap.Jobs = append(snap.Jobs, convertJob(&data.Jobs[i]))
	}
	return snap, nil
}

func convertJob(j *jobInfo) *slurm.JobRecord {
	state, stateFlags := decodeJobState(j.JobState)
	arrayTask := j.ArrayTaskID.u32()
	if arrayTask == slurm.Infinite {
		arrayTask = slurm.NoVal
	}
	hetOffset := j.HetJobOffset.u32()
	r := &slurm.JobRecord{
		JobID:          j.JobID,
		ArrayJobID:     j.ArrayJobID.count(),
		ArrayTaskID:    arrayTask,
		ArrayTaskStr:   j.ArrayTaskStr,
		HetJobID:       j.HetJobID.count(),
		HetJobOffset:   hetOffset,
		UserID:         j.UserID,
		UserName:       j.UserName,
		GroupID:        j.GroupID,
		Name:           j.Name,
		Partition:      j.Partition,
		Account:        j.Account,
		QOS:            j.QOS,
		Command:        j.Command,
		WorkDir:        j.WorkDir,
		State:          state,
		StateFlags:     stateFlags,
		StateReason:    j.StateReason,
		SubmitTime:     j.SubmitTime.time(),
		StartTime:      j.StartTime.time(),
		EndTime:        j.EndTime.time(),
		SuspendTime:    j.SuspendTime.time(),
		PreSusTime:     int64(j.PreSusTime.count()),
		TimeLimit:      j.TimeLimit.u32(),
		Priority:       j.Priority.count(),
		NumNodes:       j.NodeCount.count(),
		NumCPUs:        j.CPUs.count(),
		Nodes:          j.Nodes,
		ReqNodes:       j.ReqNodes,
		ExcNodes:       j.ExcNodes,
		Features:       j.Features,
		Reservation:    j.Reservation,
		Dependency:     j.Dependency,
		Licenses:       j.Licenses,
		OverSubscribe:  decodeShared(j.Shared),
		Contiguous:     j.Contiguous,
		MinCPUsPerNode: j.MinCPUsPerNode.count(),
		MinMemory:      j.MemoryPerNode.u64(),
		MinTmpDisk:     j.MinTmpDisk.count(),
		Sockets:        j.SocketsPerNode.u32(),
		Cores:          j.CoresPerSocket.u32(),
		Threads:        j.ThreadsPerCore.u32(),
	}
	if r.MinMemory == slurm.NoVal64 {
		r.MinMemory = 0
	}
	return r
}

// The first element that is a base state is the state, the others are flags.
func decodeJobState(names []string) (slurm.JobState, slurm.JobFlags) {
	state := slurm.JobPending
	var flags slurm.JobFlags
	seenBase := false
	for _, n := range names {
		spec, err := slurm.ParseJobState(n)
		if err != nil {
			Log.Debugf("Unknown job state %s", n)
			continue
		}
		if spec.HasState && !seenBase && spec.State != slurm.JobCompleting {
			state = spec.State
			seenBase = true
		} else {
			flags |= spec.Flag
		}
	}
	if !seenBase && flags&slurm.FlagCompleting != 0 {
		state = slurm.JobCompleting
	}
	return state, flags
}

func decodeShared(shared []string) string {
	for _, s := range shared {
		switch strings.ToLower(s) {
		case "none", "exclusive":
			return "NO"
		case "oversubscribe":
			return "OK"
		case "user":
			return "USER"
		case "mcs":
			return "MCS"
		case "topo":
			return "TOPO"
		}
	}
	return "OK"
}

func (sc *Client) LoadSteps(ctx context.Context, since time.Time, flags source.ShowFlags) (*slurm.StepSnapshot, error) {
	return nil, fmt.Errorf("Job steps from slurmrestd: %w", source.ErrNotSupported)
}

// Nodes and partitions are separate requests; the snapshot has changed if either has.
func (sc *Client) LoadNodes(ctx context.Context, since time.Time, flags source.ShowFlags) (*slurm.NodeSnapshot, error) {
	var nodes nodesResponse
	if err := sc.get(ctx, "nodes", since, flags, &nodes); err != nil {
		return nil, err
	}
	nodesErr := nodes.check(since)
	if nodesErr != nil && nodesErr != source.ErrNoChange {
		return nil, nodesErr
	}
	var parts partitionsResponse
	if err := sc.get(ctx, "partitions", since, flags, &parts); err != nil {
		return nil, err
	}
	partsErr := parts.check(since)
	if partsErr != nil && partsErr != source.ErrNoChange {
		return nil, partsErr
	}
	if nodesErr == source.ErrNoChange && partsErr == source.ErrNoChange {
		return nil, source.ErrNoChange
	}
	if nodesErr == source.ErrNoChange || partsErr == source.ErrNoChange {
		// One half is missing from this response, fetch both in full.
		return sc.LoadNodes(ctx, time.Time{}, flags)
	}

	last := max(nodes.LastUpdate.time(), parts.LastUpdate.time())
	snap := &slurm.NodeSnapshot{
		LastUpdate: time.Unix(last, 0),
		Cluster:    sc.base.Hostname(),
		Nodes:      make([]*slurm.NodeRecord, 0, len(nodes.Nodes)),
		Partitions: make([]*slurm.PartitionRecord, 0, len(parts.Partitions)),
	}
	for i := range nodes.Nodes {
		snap.Nodes = append(snap.Nodes, convertNode(&nodes.Nodes[i]))
	}
	for i := range parts.Partitions {
		snap.Partitions = append(snap.Partitions, convertPartition(i, &parts.Partitions[i]))
	}
	err := source.MergePartitionMembership(snap, func(expr string) ([]string, error) {
		h, err := hostlist.Parse(expr)
		if err != nil {
			return nil, err
		}
		return h.Hosts(), nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func convertNode(n *nodeInfo) *slurm.NodeRecord {
	cpuLoad := n.CPULoad.u32()
	if cpuLoad == slurm.Infinite {
		cpuLoad = slurm.NoVal
	}
	return &slurm.NodeRecord{
		Name:           n.Name,
		Address:        n.Address,
		Hostname:       n.Hostname,
		State:          slurm.ParseNodeStateString(strings.Join(n.State, "+")),
		CPUs:           n.CPUs,
		Sockets:        n.Sockets,
		Cores:          n.Cores,
		Threads:        n.Threads,
		Memory:         n.RealMemory,
		TmpDisk:        n.TmpDisk,
		Weight:         n.Weight,
		Features:       strings.Join(n.Features, ","),
		ActiveFeatures: strings.Join(n.ActiveFeatures, ","),
		Reason:         n.Reason,
		ReasonTime:     n.ReasonTime.time(),
		ReasonUID:      slurm.NoVal,
		ReasonUser:     n.ReasonUser,
		CPULoad:        cpuLoad,
		FreeMem:        n.FreeMem.u64(),
		Reservation:    n.Reservation,
		Partitions:     n.Partitions,
	}
}

func convertPartition(index int, p *partitionInfo) *slurm.PartitionRecord {
	avail := slurm.PartitionUp
	if len(p.Partition.State) > 0 {
		avail = slurm.ParsePartitionAvail(p.Partition.State[0])
	}
	share := uint16(p.Maximums.Oversubscribe.Jobs)
	for _, f := range p.Maximums.Oversubscribe.Flags {
		if strings.EqualFold(f, "force") {
			share |= slurm.SharedForce
		}
	}
	r := &slurm.PartitionRecord{
		Name:              p.Name,
		Index:             index,
		Nodes:             p.Nodes.Configured,
		Avail:             avail,
		MaxNodes:          p.Maximums.Nodes.u32(),
		MinNodes:          p.Minimums.Nodes,
		MaxTime:           p.Maximums.Time.u32(),
		DefaultTime:       p.Defaults.Time.u32(),
		MaxShare:          share,
		PriorityTier:      p.Priority.Tier,
		PriorityJobFactor: p.Priority.JobFactor,
		AllowGroups:       p.Groups.Allowed,
		PreemptMode:       strings.Join(p.PreemptMode, ","),
		TotalNodes:        p.Nodes.Total,
		TotalCPUs:         p.CPUs.Total,
	}
	for _, f := range p.Flags {
		switch strings.ToUpper(f) {
		case "DEFAULT":
			r.Default = true
		case "HIDDEN":
			r.Hidden = true
		case "ROOT_ONLY":
			r.RootOnly = true
		}
	}
	return r
}
