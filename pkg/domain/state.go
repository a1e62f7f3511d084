package domain

// State is one member of the closed, ordered set of states declared when a
// machine is constructed. Exactly one state is current at any instant; the
// first declared state is the default initial state.
type State string

// Any is a placeholder source state accepted by the batch registration form.
// It expands to every declared state of the machine. It is never a valid
// state on its own.
const Any State = "*"

// Entity names an external observable value (for example a sensor reading)
// supplied by the host's entity bus.
type Entity string
