// Read-only snapshot loader over the slurm-monitor timescaledb schema.  Every table holds a time
// series; the snapshot is the set of rows at the newest time for the cluster, and that time is the
// change token.
//
// Ingestion into the database is done by slurm-monitor, nothing is ever written here.

package tsdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	. "github.com/SchedMD/slurm-sub064/common"
	"github.com/SchedMD/slurm-sub064/hostlist"
	"github.com/SchedMD/slurm-sub064/slurm"
	"github.com/SchedMD/slurm-sub064/source"
)

// The connection is not thread-safe; queries are serialized.
type DB struct {
	connection *pgx.Conn
	lock       sync.Mutex
	cluster    string
}

var _ source.Loader = (*DB)(nil)

func Open(ctx context.Context, databaseURI, cluster string) (*DB, error) {
	connection, err := pgx.Connect(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	db := &DB{connection: connection, cluster: cluster}
	if cluster == "" {
		clusters, err := db.Clusters(ctx)
		if err != nil {
			connection.Close(ctx)
			return nil, err
		}
		if len(clusters) != 1 {
			connection.Close(ctx)
			return nil, fmt.Errorf("Database holds %d clusters, a cluster name is required", len(clusters))
		}
		db.cluster = clusters[0]
	}
	return db, nil
}

func (db *DB) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.connection.Close(context.Background())
}

func (db *DB) query(ctx context.Context, q string, arg ...any) (pgx.Rows, error) {
	Log.Debugf("SQL: %s %v", q, arg)
	return db.connection.Query(ctx, q, arg...)
}

// Clusters lists the distinct cluster names in the database.
func (db *DB) Clusters(ctx context.Context) ([]string, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	rows, err := db.query(ctx, "SELECT DISTINCT cluster FROM cluster_attributes")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (db *DB) latest(ctx context.Context, table string) (time.Time, error) {
	rows, err := db.query(ctx, "SELECT max(time) FROM "+table+" WHERE cluster=$1", db.cluster)
	if err != nil {
		return time.Time{}, err
	}
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[pgtype.Timestamptz])
	if err != nil {
		return time.Time{}, err
	}
	if !t.Valid {
		return time.Time{}, fmt.Errorf("No %s data for cluster %s", table, db.cluster)
	}
	return t.Time, nil
}

// Rows of `table` at time t, scanned into boxes.  The field list and the boxes must be in the same
// order.
func (db *DB) forEach(
	ctx context.Context,
	table, fields, where string,
	t time.Time,
	boxes []any,
	unbox func(),
) error {
	qstr := "SELECT " + fields + " FROM " + table + " WHERE cluster=$1 AND time=$2"
	if where != "" {
		qstr += " AND " + where
	}
	rows, err := db.query(ctx, qstr, db.cluster, t)
	if err != nil {
		return err
	}
	_, err = pgx.ForEachRow(rows, boxes, func() error {
		unbox()
		return nil
	})
	return err
}

func (db *DB) LoadNodes(ctx context.Context, since time.Time, _ source.ShowFlags) (*slurm.NodeSnapshot, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	nodeTime, err := db.latest(ctx, "node_state")
	if err != nil {
		return nil, err
	}
	partTime, err := db.latest(ctx, "partition")
	if err != nil {
		return nil, err
	}
	last := nodeTime
	if partTime.After(last) {
		last = partTime
	}
	if source.Unchanged(since, last) {
		return nil, source.ErrNoChange
	}

	snap := &slurm.NodeSnapshot{LastUpdate: last, Cluster: db.cluster}

	var nodeName string
	var states []string
	err = db.forEach(ctx, "node_state", "node, states", "", nodeTime,
		[]any{&nodeName, &states},
		func() {
			snap.Nodes = append(snap.Nodes, nodeRecord(nodeName, states))
		})
	if err != nil {
		return nil, err
	}

	var partName string
	var nodesCompact []string
	err = db.forEach(ctx, "partition", "partition, nodes_compact", "", partTime,
		[]any{&partName, &nodesCompact},
		func() {
			snap.Partitions = append(snap.Partitions, partitionRecord(len(snap.Partitions), partName, nodesCompact))
		})
	if err != nil {
		return nil, err
	}

	err = source.MergePartitionMembership(snap, func(expr string) ([]string, error) {
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

func nodeRecord(name string, states []string) *slurm.NodeRecord {
	return &slurm.NodeRecord{
		Name:      name,
		Hostname:  name,
		Address:   name,
		State:     slurm.ParseNodeStateString(strings.Join(states, "+")),
		ReasonUID: slurm.NoVal,
		CPULoad:   slurm.NoVal,
		FreeMem:   slurm.NoVal64,
	}
}

// The schema has no partition attributes beyond membership.
func partitionRecord(index int, name string, nodesCompact []string) *slurm.PartitionRecord {
	return &slurm.PartitionRecord{
		Name:        name,
		Index:       index,
		Nodes:       strings.Join(nodesCompact, ","),
		Avail:       slurm.PartitionUp,
		MaxNodes:    slurm.Infinite,
		MaxTime:     slurm.Infinite,
		DefaultTime: slurm.NoVal,
		MaxShare:    1,
	}
}

// One row of sample_slurm_job.
type jobRow struct {
	account, jobName, jobState, jobStep, partition, reservation, userName string
	nodes                                                                 []string
	arrayJobID, hetJobID, jobID, priority, suspendTime, timeLimit         pgtype.Int8
	arrayTaskID                                                           *int
	hetJobOffset, minCPUsPerNode, requestedCPUs                           int
	requestedMemoryPerNode, requestedNodeCount                            int
	endTime, startTime, submitTime                                        pgtype.Timestamptz
}

// Alpha order and the boxes below must stay in sync.
const jobFields = "account, array_job_id, array_task_id, end_time, het_job_id, het_job_offset, " +
	"job_id, job_name, job_state, job_step, minimum_cpus_per_node, nodes, partition, priority, " +
	"requested_cpus, requested_memory_per_node, requested_node_count, reservation, start_time, " +
	"submit_time, suspend_time, time_limit, user_name"

func (r *jobRow) boxes() []any {
	return []any{
		&r.account, &r.arrayJobID, &r.arrayTaskID, &r.endTime, &r.hetJobID, &r.hetJobOffset,
		&r.jobID, &r.jobName, &r.jobState, &r.jobStep, &r.minCPUsPerNode, &r.nodes, &r.partition, &r.priority,
		&r.requestedCPUs, &r.requestedMemoryPerNode, &r.requestedNodeCount, &r.reservation, &r.startTime,
		&r.submitTime, &r.suspendTime, &r.timeLimit, &r.userName,
	}
}

func timestamp(t pgtype.Timestamptz) int64 {
	if !t.Valid || t.Time.IsZero() {
		return slurm.TimeUnset
	}
	return t.Time.UTC().Unix()
}

// sacct reports this in place of an empty node list.
func nodeList(nodes []string) string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n != "None assigned" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ",")
}

func (r *jobRow) job() *slurm.JobRecord {
	name, _, _ := strings.Cut(r.jobState, " ")
	state := slurm.JobPending
	var flags slurm.JobFlags
	if spec, err := slurm.ParseJobState(name); err == nil && spec.HasState {
		state = spec.State
		if state == slurm.JobCompleting {
			flags = slurm.FlagCompleting
		}
	}
	timeLimit := slurm.NoVal
	if r.timeLimit.Valid {
		timeLimit = uint32(r.timeLimit.Int64)
	}
	arrayTask := slurm.NoVal
	if r.arrayJobID.Valid && r.arrayJobID.Int64 != 0 && r.arrayTaskID != nil {
		arrayTask = uint32(*r.arrayTaskID)
	}
	return &slurm.JobRecord{
		JobID:          uint32(r.jobID.Int64),
		ArrayJobID:     uint32(r.arrayJobID.Int64),
		ArrayTaskID:    arrayTask,
		HetJobID:       uint32(r.hetJobID.Int64),
		HetJobOffset:   uint32(r.hetJobOffset),
		UserID:         slurm.NoVal,
		UserName:       r.userName,
		GroupID:        slurm.NoVal,
		Name:           r.jobName,
		Partition:      r.partition,
		Account:        r.account,
		Reservation:    r.reservation,
		State:          state,
		StateFlags:     flags,
		SubmitTime:     timestamp(r.submitTime),
		StartTime:      timestamp(r.startTime),
		EndTime:        timestamp(r.endTime),
		PreSusTime:     r.suspendTime.Int64,
		TimeLimit:      timeLimit,
		Priority:       uint32(r.priority.Int64),
		NumNodes:       uint32(r.requestedNodeCount),
		NumCPUs:        uint32(r.requestedCPUs),
		MinCPUsPerNode: uint32(r.minCPUsPerNode),
		MinMemory:      uint64(r.requestedMemoryPerNode),
		Nodes:          nodeList(r.nodes),
		OverSubscribe:  "OK",
		Sockets:        slurm.NoVal,
		Cores:          slurm.NoVal,
		Threads:        slurm.NoVal,
	}
}

func (r *jobRow) step() (*slurm.StepRecord, bool) {
	var id int32
	switch r.jobStep {
	case "batch":
		id = slurm.StepBatch
	case "extern":
		id = slurm.StepExtern
	case "interactive":
		id = slurm.StepInteractive
	default:
		n, err := fmt.Sscanf(r.jobStep, "%d", &id)
		if err != nil || n != 1 || id < 0 {
			return nil, false
		}
	}
	j := r.job()
	return &slurm.StepRecord{
		JobID:       j.JobID,
		StepID:      id,
		ArrayJobID:  j.ArrayJobID,
		ArrayTaskID: j.ArrayTaskID,
		UserID:      slurm.NoVal,
		UserName:    j.UserName,
		Partition:   j.Partition,
		Nodes:       j.Nodes,
		StartTime:   j.StartTime,
		TimeLimit:   j.TimeLimit,
		Name:        j.Name,
		NumCPUs:     j.NumCPUs,
	}, true
}

func (db *DB) LoadJobs(ctx context.Context, since time.Time, _ source.ShowFlags) (*slurm.JobSnapshot, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	t, err := db.latest(ctx, "sample_slurm_job")
	if err != nil {
		return nil, err
	}
	if source.Unchanged(since, t) {
		return nil, source.ErrNoChange
	}
	snap := &slurm.JobSnapshot{LastUpdate: t, Jobs: make([]*slurm.JobRecord, 0)}
	var row jobRow
	err = db.forEach(ctx, "sample_slurm_job", jobFields, "job_step=''", t, row.boxes(), func() {
		snap.Jobs = append(snap.Jobs, row.job())
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (db *DB) LoadSteps(ctx context.Context, since time.Time, _ source.ShowFlags) (*slurm.StepSnapshot, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	t, err := db.latest(ctx, "sample_slurm_job")
	if err != nil {
		return nil, err
	}
	if source.Unchanged(since, t) {
		return nil, source.ErrNoChange
	}
	snap := &slurm.StepSnapshot{LastUpdate: t, Steps: make([]*slurm.StepRecord, 0)}
	var row jobRow
	err = db.forEach(ctx, "sample_slurm_job", jobFields, "job_step<>''", t, row.boxes(), func() {
		if s, ok := row.step(); ok {
			snap.Steps = append(snap.Steps, s)
		}
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
