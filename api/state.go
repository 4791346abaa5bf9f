package api

import "fmt"

// State is the lifecycle state of a Session.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Running
	Draining
	Completed
	Failed
)

var stateNames = map[State]string{
	Uninitialized: "Uninitialized",
	Initializing:  "Initializing",
	Ready:         "Ready",
	Running:       "Running",
	Draining:      "Draining",
	Completed:     "Completed",
	Failed:        "Failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == Completed || s == Failed
}

// transitions lists the legal successors of every state. Failed is
// reachable from every non-terminal state.
var transitions = map[State][]State{
	Uninitialized: {Initializing, Failed},
	Initializing:  {Ready, Failed},
	Ready:         {Running, Failed},
	Running:       {Draining, Failed},
	Draining:      {Completed, Failed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateChange is the item of a HookPosStateChange hook.
type StateChange struct {
	From, To State
}
