package slurmrest

import (
	"bytes"
	"encoding/json"

	"github.com/SchedMD/slurm-sub064/slurm"
)

// slurmrestd wraps most numbers in an object that can express "unset" and "infinite"; older
// versions send bare numbers.  Both are accepted.
type number struct {
	Set      bool   `json:"set"`
	Infinite bool   `json:"infinite"`
	Number   uint64 `json:"number"`
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		if bytes.Equal(data, []byte("null")) {
			*n = number{}
			return nil
		}
		var v uint64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = number{Set: true, Number: v}
		return nil
	}
	type plain number
	return json.Unmarshal(data, (*plain)(n))
}

func (n number) u32() uint32 {
	switch {
	case n.Infinite:
		return slurm.Infinite
	case !n.Set:
		return slurm.NoVal
	default:
		return uint32(n.Number)
	}
}

// For counts where unset means zero.
func (n number) count() uint32 {
	if !n.Set || n.Infinite {
		return 0
	}
	return uint32(n.Number)
}

func (n number) u64() uint64 {
	switch {
	case n.Infinite:
		return slurm.Infinite64
	case !n.Set:
		return slurm.NoVal64
	default:
		return n.Number
	}
}

func (n number) time() int64 {
	switch {
	case n.Infinite:
		return slurm.TimeInfinite
	case !n.Set:
		return slurm.TimeUnset
	default:
		return int64(n.Number)
	}
}

type apiError struct {
	Description string `json:"description"`
	Error       string `json:"error"`
	ErrorNumber int    `json:"error_number"`
	Source      string `json:"source"`
}

type response struct {
	LastUpdate number     `json:"last_update"`
	Errors     []apiError `json:"errors"`
}

type jobInfo struct {
	JobID          uint32   `json:"job_id"`
	ArrayJobID     number   `json:"array_job_id"`
	ArrayTaskID    number   `json:"array_task_id"`
	ArrayTaskStr   string   `json:"array_task_string"`
	HetJobID       number   `json:"het_job_id"`
	HetJobOffset   number   `json:"het_job_offset"`
	UserID         uint32   `json:"user_id"`
	UserName       string   `json:"user_name"`
	GroupID        uint32   `json:"group_id"`
	Name           string   `json:"name"`
	Partition      string   `json:"partition"`
	Account        string   `json:"account"`
	QOS            string   `json:"qos"`
	Command        string   `json:"command"`
	WorkDir        string   `json:"current_working_directory"`
	JobState       []string `json:"job_state"`
	StateReason    string   `json:"state_reason"`
	SubmitTime     number   `json:"submit_time"`
	StartTime      number   `json:"start_time"`
	EndTime        number   `json:"end_time"`
	SuspendTime    number   `json:"suspend_time"`
	PreSusTime     number   `json:"pre_sus_time"`
	TimeLimit      number   `json:"time_limit"`
	Priority       number   `json:"priority"`
	NodeCount      number   `json:"node_count"`
	CPUs           number   `json:"cpus"`
	Nodes          string   `json:"nodes"`
	ReqNodes       string   `json:"required_nodes"`
	ExcNodes       string   `json:"excluded_nodes"`
	Features       string   `json:"features"`
	Reservation    string   `json:"reservation"`
	Dependency     string   `json:"dependency"`
	Licenses       string   `json:"licenses"`
	Shared         []string `json:"shared"`
	Contiguous     bool     `json:"contiguous"`
	MinCPUsPerNode number   `json:"minimum_cpus_per_node"`
	MemoryPerNode  number   `json:"memory_per_node"`
	MinTmpDisk     number   `json:"minimum_tmp_disk_per_node"`
	SocketsPerNode number   `json:"sockets_per_node"`
	CoresPerSocket number   `json:"cores_per_socket"`
	ThreadsPerCore number   `json:"threads_per_core"`
}

type jobsResponse struct {
	response
	Jobs []jobInfo `json:"jobs"`
}

type nodeInfo struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Hostname       string   `json:"hostname"`
	State          []string `json:"state"`
	CPUs           uint32   `json:"cpus"`
	Sockets        uint32   `json:"sockets"`
	Cores          uint32   `json:"cores"`
	Threads        uint32   `json:"threads"`
	RealMemory     uint64   `json:"real_memory"`
	TmpDisk        uint32   `json:"temporary_disk"`
	Weight         uint32   `json:"weight"`
	Features       []string `json:"features"`
	ActiveFeatures []string `json:"active_features"`
	Reason         string   `json:"reason"`
	ReasonTime     number   `json:"reason_changed_at"`
	ReasonUser     string   `json:"reason_set_by_user"`
	CPULoad        number   `json:"cpu_load"`
	FreeMem        number   `json:"free_mem"`
	Reservation    string   `json:"reservation"`
	Partitions     []string `json:"partitions"`
}

type nodesResponse struct {
	response
	Nodes []nodeInfo `json:"nodes"`
}

type partitionInfo struct {
	Name  string `json:"name"`
	Nodes struct {
		Configured string `json:"configured"`
		Total      uint32 `json:"total"`
	} `json:"nodes"`
	CPUs struct {
		Total uint32 `json:"total"`
	} `json:"cpus"`
	Groups struct {
		Allowed string `json:"allowed"`
	} `json:"groups"`
	Defaults struct {
		Time number `json:"time"`
	} `json:"defaults"`
	Maximums struct {
		Nodes         number `json:"nodes"`
		Time          number `json:"time"`
		Oversubscribe struct {
			Jobs  uint32   `json:"jobs"`
			Flags []string `json:"flags"`
		} `json:"oversubscribe"`
	} `json:"maximums"`
	Minimums struct {
		Nodes uint32 `json:"nodes"`
	} `json:"minimums"`
	Priority struct {
		JobFactor uint32 `json:"job_factor"`
		Tier      uint32 `json:"tier"`
	} `json:"priority"`
	Partition struct {
		State []string `json:"state"`
	} `json:"partition"`
	Flags       []string `json:"flags"`
	PreemptMode []string `json:"preempt_mode"`
}

type partitionsResponse struct {
	response
	Partitions []partitionInfo `json:"partitions"`
}
