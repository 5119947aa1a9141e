package slurm

import (
	"fmt"
	"strings"
)

// NodeState is a base state in the low bits plus flag bits.
type NodeState uint32

const (
	NodeUnknown NodeState = iota
	NodeDown
	NodeIdle
	NodeAllocated
	NodeError
	NodeMixed
	NodeFuture

	NodeStateBase NodeState = 0xff
)

const (
	NodeDrain NodeState = 1 << (8 + iota)
	NodeFail
	NodePoweredDown
	NodePoweringUp
	NodeMaint
	NodeReserved
	NodePlanned
	NodeCompleting
	NodeNotResponding
	NodeCloud
)

func (s NodeState) Base() NodeState {
	return s & NodeStateBase
}

func (s NodeState) Has(flag NodeState) bool {
	return s&flag != 0
}

var nodeBaseNames = map[NodeState]stateName{
	NodeUnknown:   {"UNKNOWN", "unk"},
	NodeDown:      {"DOWN", "down"},
	NodeIdle:      {"IDLE", "idle"},
	NodeAllocated: {"ALLOCATED", "alloc"},
	NodeError:     {"ERROR", "err"},
	NodeMixed:     {"MIXED", "mix"},
	NodeFuture:    {"FUTURE", "futr"},
}

var nodeEffectiveCompact = map[string]string{
	"MAINT":      "maint",
	"DRAINING":   "drng",
	"DRAINED":    "drain",
	"FAILING":    "failg",
	"FAIL":       "fail",
	"COMPLETING": "comp",
	"RESERVED":   "resv",
	"PLANNED":    "plnd",
}

// Long is the canonical name of the effective state, the flags folded into the base state.
func (s NodeState) Long() string {
	base := s.Base()
	drain := s.Has(NodeDrain)
	completing := s.Has(NodeCompleting)
	busy := base == NodeAllocated || base == NodeMixed
	switch {
	case s.Has(NodeMaint) && !drain && !busy && base != NodeDown:
		return "MAINT"
	case drain && (completing || busy):
		return "DRAINING"
	case drain && base == NodeError:
		return "ERROR"
	case drain:
		return "DRAINED"
	case s.Has(NodeFail) && (completing || base == NodeAllocated):
		return "FAILING"
	case s.Has(NodeFail):
		return "FAIL"
	case base == NodeDown:
		return "DOWN"
	case completing:
		return "COMPLETING"
	case s.Has(NodeReserved) && base == NodeIdle:
		return "RESERVED"
	case s.Has(NodePlanned) && base == NodeIdle:
		return "PLANNED"
	}
	if n, found := nodeBaseNames[base]; found {
		return n.long
	}
	return "UNKNOWN"
}

// Compact is the short name of the effective state.
func (s NodeState) Compact() string {
	long := s.Long()
	if c, found := nodeEffectiveCompact[long]; found {
		return c
	}
	for _, n := range nodeBaseNames {
		if n.long == long {
			return n.compact
		}
	}
	return "unk"
}

// Suffix marks conditions that are not part of the state name: "*" not responding, "~" powered
// down, "#" powering up.
func (s NodeState) Suffix() string {
	switch {
	case s.Has(NodeNotResponding):
		return "*"
	case s.Has(NodePoweredDown):
		return "~"
	case s.Has(NodePoweringUp):
		return "#"
	default:
		return ""
	}
}

func (s NodeState) String() string {
	return strings.ToLower(s.Long()) + s.Suffix()
}

func (s NodeState) CompactString() string {
	return s.Compact() + s.Suffix()
}

// Allocated, idle and other, as counted in the A/I/O/T summaries.
func (s NodeState) IsAllocated() bool {
	if s.Has(NodeDrain) || s.Has(NodeFail) || s.Base() == NodeDown {
		return false
	}
	return s.Base() == NodeAllocated || s.Base() == NodeMixed || s.Has(NodeCompleting)
}

func (s NodeState) IsIdle() bool {
	if s.Has(NodeDrain) || s.Has(NodeFail) || s.Has(NodeCompleting) {
		return false
	}
	return s.Base() == NodeIdle
}

// Mapping from a state name to the flags that name a condition rather than an effective state.
var nodeFlagNames = map[string]NodeState{
	"DRAIN":          NodeDrain,
	"FAIL":           NodeFail,
	"MAINT":          NodeMaint,
	"COMP":           NodeCompleting,
	"COMPLETING":     NodeCompleting,
	"RESV":           NodeReserved,
	"RESERVED":       NodeReserved,
	"PLANNED":        NodePlanned,
	"PLND":           NodePlanned,
	"CLOUD":          NodeCloud,
	"POWERED_DOWN":   NodePoweredDown,
	"POWER_DOWN":     NodePoweredDown,
	"POWERING_UP":    NodePoweringUp,
	"POWER_UP":       NodePoweringUp,
	"NO_RESPOND":     NodeNotResponding,
	"NOT_RESPONDING": NodeNotResponding,
}

type NodeStateSpec struct {
	Name  string
	match func(NodeState) bool
}

func (spec NodeStateSpec) Matches(s NodeState) bool {
	return spec.match(s)
}

// ParseNodeState parses a state name for filtering, case-insensitively, accepting base names,
// effective names and flag names in long and compact forms.
func ParseNodeState(name string) (NodeStateSpec, error) {
	u := strings.ToUpper(strings.TrimSpace(name))
	if flag, found := nodeFlagNames[u]; found {
		return NodeStateSpec{u, func(s NodeState) bool { return s.Has(flag) }}, nil
	}
	for long, compact := range nodeEffectiveCompact {
		if u == long || u == strings.ToUpper(compact) {
			return NodeStateSpec{long, func(s NodeState) bool { return s.Long() == long }}, nil
		}
	}
	for base, n := range nodeBaseNames {
		if u == n.long || u == strings.ToUpper(n.compact) {
			if base == NodeError {
				// A drained node in error displays as ERROR too.
				return NodeStateSpec{n.long, func(s NodeState) bool { return s.Long() == "ERROR" || s.Base() == NodeError }}, nil
			}
			return NodeStateSpec{n.long, func(s NodeState) bool { return s.Base() == base }}, nil
		}
	}
	return NodeStateSpec{}, fmt.Errorf("Invalid node state specified: %s", name)
}

// ParseNodeStateString decodes the state strings reported by the loaders, e.g. "IDLE",
// "MIXED+DRAIN", "IDLE+POWERED_DOWN" or ["DOWN", "NOT_RESPONDING"] joined by "+".
func ParseNodeStateString(s string) NodeState {
	var state NodeState
	for _, part := range strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool { return r == '+' || r == ',' }) {
		if flag, found := nodeFlagNames[part]; found {
			state |= flag
			continue
		}
		switch part {
		case "DRAINING", "DRAINED":
			state |= NodeDrain
			continue
		}
		for base, n := range nodeBaseNames {
			if part == n.long || part == strings.ToUpper(n.compact) {
				state = (state &^ NodeStateBase) | base
			}
		}
	}
	return state
}
