package session

import "fmt"

// State is a connection's position in its lifecycle
type State int

// Connection lifecycle states. Closed is terminal.
const (
	Connecting State = iota
	Authenticated
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authenticated:
		return "authenticated"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Trigger is an input that can move a session between states
type Trigger int

// Lifecycle triggers
const (
	AuthSucceeded Trigger = iota
	AuthFailed
	Registered
	Disconnected
)

type edge struct {
	from    State
	trigger Trigger
}

var transitions = map[edge]State{
	{Connecting, AuthSucceeded}:   Authenticated,
	{Connecting, AuthFailed}:      Closed,
	{Connecting, Disconnected}:    Closed,
	{Authenticated, Registered}:   Active,
	{Authenticated, Disconnected}: Closed,
	{Active, Disconnected}:        Closed,
}

// Next returns the state reached from `from` on trigger t. ok is false when the
// trigger does not apply in that state.
func Next(from State, t Trigger) (State, bool) {
	to, ok := transitions[edge{from, t}]
	return to, ok
}
