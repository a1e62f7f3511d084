package domain

import "errors"

// ErrUnknownState is returned when a transition names a state that is not a
// member of the machine's declared state set.
var ErrUnknownState = errors.New("unknown state")

// ErrAnyState is returned when the Any placeholder is used where a concrete
// state is required: in the declared state set, or in the single-transition
// registration form.
var ErrAnyState = errors.New("any is not a concrete state")

// ErrNilTrigger is returned when a transition is registered without a trigger.
var ErrNilTrigger = errors.New("nil trigger")

// ErrUnsupportedTrigger is returned when a transition carries a trigger kind
// the engine does not know. The trigger variant is closed; this only happens
// for a foreign implementation of the Trigger interface.
var ErrUnsupportedTrigger = errors.New("unsupported trigger")

// ErrNoStates is returned when a machine is constructed with an empty state set.
var ErrNoStates = errors.New("no states provided")

// ErrDuplicateState is returned when the declared state set contains the same
// state twice.
var ErrDuplicateState = errors.New("duplicate state")
