package slurm

import (
	"fmt"
	"strings"
)

type JobState uint8

const (
	JobPending JobState = iota
	JobRunning
	JobSuspended
	JobComplete
	JobCancelled
	JobFailed
	JobTimeout
	JobNodeFail
	JobPreempted
	JobBootFail
	JobDeadline
	JobOOM
	// Some servers report COMPLETING as a base state rather than as a flag.
	JobCompleting
	jobStateEnd
)

type JobFlags uint32

const (
	FlagCompleting JobFlags = 1 << iota
	FlagConfiguring
	FlagResizing
	FlagRequeued
	FlagRequeueHold
	FlagSpecialExit
	FlagStopped
	FlagRevoked
	FlagSignaling
	FlagStageOut
)

type stateName struct {
	long, compact string
}

var jobStateNames = [jobStateEnd]stateName{
	JobPending:    {"PENDING", "PD"},
	JobRunning:    {"RUNNING", "R"},
	JobSuspended:  {"SUSPENDED", "S"},
	JobComplete:   {"COMPLETED", "CD"},
	JobCancelled:  {"CANCELLED", "CA"},
	JobFailed:     {"FAILED", "F"},
	JobTimeout:    {"TIMEOUT", "TO"},
	JobNodeFail:   {"NODE_FAIL", "NF"},
	JobPreempted:  {"PREEMPTED", "PR"},
	JobBootFail:   {"BOOT_FAIL", "BF"},
	JobDeadline:   {"DEADLINE", "DL"},
	JobOOM:        {"OUT_OF_MEMORY", "OOM"},
	JobCompleting: {"COMPLETING", "CG"},
}

// Flags in display precedence order: the first flag set replaces the base state in the output.
var jobFlagNames = []struct {
	flag JobFlags
	name stateName
}{
	{FlagCompleting, stateName{"COMPLETING", "CG"}},
	{FlagStageOut, stateName{"STAGE_OUT", "SO"}},
	{FlagConfiguring, stateName{"CONFIGURING", "CF"}},
	{FlagResizing, stateName{"RESIZING", "RS"}},
	{FlagRequeued, stateName{"REQUEUED", "RQ"}},
	{FlagRequeueHold, stateName{"REQUEUE_HOLD", "RH"}},
	{FlagSpecialExit, stateName{"SPECIAL_EXIT", "SE"}},
	{FlagStopped, stateName{"STOPPED", "ST"}},
	{FlagRevoked, stateName{"REVOKED", "RV"}},
	{FlagSignaling, stateName{"SIGNALING", "SI"}},
}

func (s JobState) String() string {
	if s < jobStateEnd {
		return jobStateNames[s].long
	}
	return "UNKNOWN"
}

func (s JobState) Compact() string {
	if s < jobStateEnd {
		return jobStateNames[s].compact
	}
	return "?"
}

// JobStateString is the long display form of a base state with flags.
func JobStateString(s JobState, flags JobFlags) string {
	for _, f := range jobFlagNames {
		if flags&f.flag != 0 {
			return f.name.long
		}
	}
	return s.String()
}

func JobStateCompact(s JobState, flags JobFlags) string {
	for _, f := range jobFlagNames {
		if flags&f.flag != 0 {
			return f.name.compact
		}
	}
	return s.Compact()
}

// IsCompleting is true whether the server reported COMPLETING as the base state or as a flag.
func IsCompleting(s JobState, flags JobFlags) bool {
	return s == JobCompleting || flags&FlagCompleting != 0
}

// JobStateSpec is one element of a state filter.
type JobStateSpec struct {
	State    JobState // Meaningful only if HasState
	HasState bool
	Flag     JobFlags
}

func (spec JobStateSpec) Matches(s JobState, flags JobFlags) bool {
	if spec.HasState && spec.State == s {
		return true
	}
	return spec.Flag != 0 && flags&spec.Flag != 0
}

func (spec JobStateSpec) String() string {
	if spec.HasState {
		return spec.State.String()
	}
	for _, f := range jobFlagNames {
		if f.flag == spec.Flag {
			return f.name.long
		}
	}
	return "?"
}

// ParseJobState parses a long or compact state name, case-insensitively.  COMPLETING/CG matches
// both the base state and the flag.
func ParseJobState(name string) (JobStateSpec, error) {
	u := strings.ToUpper(strings.TrimSpace(name))
	if u == "COMPLETING" || u == "CG" {
		return JobStateSpec{State: JobCompleting, HasState: true, Flag: FlagCompleting}, nil
	}
	if u == "OOM" {
		return JobStateSpec{State: JobOOM, HasState: true}, nil
	}
	for s := JobState(0); s < jobStateEnd; s++ {
		if jobStateNames[s].long == u || jobStateNames[s].compact == u {
			return JobStateSpec{State: s, HasState: true}, nil
		}
	}
	for _, f := range jobFlagNames {
		if f.name.long == u || f.name.compact == u {
			return JobStateSpec{Flag: f.flag}, nil
		}
	}
	return JobStateSpec{}, fmt.Errorf("Invalid job state specified: %s", name)
}

// AllJobStates is the universe selected by "all".
func AllJobStates() []JobStateSpec {
	specs := make([]JobStateSpec, 0, int(jobStateEnd)+len(jobFlagNames))
	for s := JobState(0); s < jobStateEnd; s++ {
		specs = append(specs, JobStateSpec{State: s, HasState: true})
	}
	for _, f := range jobFlagNames {
		specs = append(specs, JobStateSpec{Flag: f.flag})
	}
	return specs
}
