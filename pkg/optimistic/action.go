package optimistic

import "fmt"

// Action is the kind of change an operation makes.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionToggle Action = "toggle"
	ActionSet    Action = "set"
)

// ParseAction parses the action name sent by the browser client.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAdd, ActionRemove, ActionToggle, ActionSet:
		return Action(s), nil
	default:
		return "", fmt.Errorf("optimistic: unknown action %q", s)
	}
}

// Status is the lifecycle state of an operation.
type Status int

const (
	Idle Status = iota
	Applying
	Committed
	RolledBack
	Abandoned // the owning view was closed while the write was pending
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Applying:
		return "applying"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Final reports whether no further transition is possible.
func (s Status) Final() bool {
	return s == Committed || s == RolledBack || s == Abandoned
}
