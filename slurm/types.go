// Package slurm holds the records that the snapshot loaders produce and the reporting tools
// consume, together with the encodings of their states and sentinel values.
//
// Times are Unix seconds; TimeUnset (0) means "not set" and TimeInfinite means "never/unknown".
// 32-bit quantities use Infinite and NoVal as sentinels.

package slurm

import (
	"strings"
	"time"
)

type JobRecord struct {
	JobID uint32

	// Array membership: ArrayJobID is 0 for a job that is not part of an array.  ArrayTaskID is
	// NoVal for the meta record of a pending array, in which case ArrayTaskStr holds the remaining
	// task expression, e.g. "[6-10%2]".
	ArrayJobID   uint32
	ArrayTaskID  uint32
	ArrayTaskStr string

	// Heterogeneous job membership: HetJobID is 0 for a job that is not a component.
	HetJobID     uint32
	HetJobOffset uint32

	UserID   uint32
	UserName string // Set by loaders that know the name but not the uid
	GroupID  uint32

	Name      string
	Partition string
	Account   string
	QOS       string
	Command   string
	WorkDir   string
	Comment   string

	State       JobState
	StateFlags  JobFlags
	StateReason string

	SubmitTime  int64
	StartTime   int64
	EndTime     int64
	SuspendTime int64 // Time of the last suspend or resume
	PreSusTime  int64 // Seconds run before the last suspend

	TimeLimit uint32 // Minutes, or Infinite, or NoVal

	Priority          uint32
	PartitionPriority uint32

	NumNodes uint32
	NumCPUs  uint32

	Nodes    string // Allocated nodes, host list expression
	ReqNodes string
	ExcNodes string

	Features    string
	Reservation string
	Dependency  string
	Licenses    string

	OverSubscribe string // "OK", "NO", "USER", "MCS", "TOPO"
	Contiguous    bool

	MinCPUsPerNode uint32
	MinMemory      uint64 // MB
	MinTmpDisk     uint32 // MB
	Sockets        uint32 // NoVal means not requested
	Cores          uint32
	Threads        uint32

	// The job belongs to a hidden partition
	Hidden bool
}

func (j *JobRecord) IsArray() bool {
	return j.ArrayJobID != 0
}

func (j *JobRecord) IsHet() bool {
	return j.HetJobID != 0
}

// Step ids below zero name special steps.
const (
	StepBatch       int32 = -1
	StepExtern      int32 = -2
	StepInteractive int32 = -3
)

type StepRecord struct {
	JobID       uint32
	StepID      int32
	ArrayJobID  uint32
	ArrayTaskID uint32
	UserID      uint32
	UserName    string
	Partition   string
	Nodes       string
	StartTime   int64
	TimeLimit   uint32
	Name        string
	NumTasks    uint32
	NumCPUs     uint32
}

type NodeRecord struct {
	Name     string
	Address  string
	Hostname string

	State NodeState

	CPUs    uint32
	Sockets uint32
	Cores   uint32 // Per socket
	Threads uint32 // Per core

	Memory  uint64 // MB
	TmpDisk uint32 // MB
	Weight  uint32

	Features       string
	ActiveFeatures string

	Reason     string
	ReasonTime int64
	ReasonUID  uint32 // NoVal if nobody set the reason
	ReasonUser string // Set by loaders that know the name but not the uid

	CPULoad uint32 // Hundredths, NoVal if unknown
	FreeMem uint64 // MB, NoVal64 if unknown

	Reservation string

	// Partitions that list this node; merged with the partition node lists by the loaders.
	Partitions []string
}

type PartitionAvail uint8

const (
	PartitionUp PartitionAvail = iota
	PartitionDown
	PartitionDrain
	PartitionInactive
)

func (a PartitionAvail) String() string {
	switch a {
	case PartitionUp:
		return "up"
	case PartitionDown:
		return "down"
	case PartitionDrain:
		return "drain"
	default:
		return "inact"
	}
}

// ParsePartitionAvail accepts the long and short spellings, in any case.
func ParsePartitionAvail(s string) PartitionAvail {
	switch strings.ToUpper(s) {
	case "UP":
		return PartitionUp
	case "DOWN":
		return PartitionDown
	case "DRAIN":
		return PartitionDrain
	default:
		return PartitionInactive
	}
}

// Oversubscription policy: 0 is exclusive, 1 is no sharing, n > 1 allows n jobs per resource, and
// SharedForce marks the count as forced.
const SharedForce uint16 = 0x8000

type PartitionRecord struct {
	Name    string
	Index   int // Server enumeration order
	Default bool
	Nodes   string // Host list expression

	Avail             PartitionAvail
	MaxNodes          uint32
	MinNodes          uint32
	MaxTime           uint32 // Minutes
	DefaultTime       uint32
	MaxShare          uint16
	PriorityTier      uint32
	PriorityJobFactor uint32
	RootOnly          bool
	Hidden            bool
	AllowGroups       string // Empty means all
	PreemptMode       string

	TotalNodes uint32
	TotalCPUs  uint32
}

type JobSnapshot struct {
	LastUpdate time.Time
	Jobs       []*JobRecord
}

type StepSnapshot struct {
	LastUpdate time.Time
	Steps      []*StepRecord
}

type NodeSnapshot struct {
	LastUpdate time.Time
	Cluster    string
	Nodes      []*NodeRecord
	Partitions []*PartitionRecord
}
