package domain

// Transition defines a rule to move from one state to another.
type Transition struct {
	// Trigger is the condition causing the transition. A nil trigger marks a
	// direct external override (a write to the mirrored entity) that bypasses
	// the transition table.
	Trigger Trigger

	From State
	To   State

	// OnTransition is an optional 0-argument callback invoked after the
	// machine has fully entered To (mirror written, timer re-armed).
	OnTransition func()
}

// TriggerLabel returns the trigger's description, or "external" for the
// table-bypassing override transition.
func (t Transition) TriggerLabel() string {
	if t.Trigger == nil {
		return "external"
	}
	return t.Trigger.String()
}
