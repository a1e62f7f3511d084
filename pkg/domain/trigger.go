package domain

import (
	"fmt"
	"time"
)

// Predicate tests an observed entity value. Entities that have no value yet
// are presented as the empty string.
type Predicate func(value string) bool

// Trigger is a condition that causes a transition when satisfied. The set of
// implementations is closed: ValueTrigger and TimeoutTrigger. Triggers are
// plain values; storing one in a transition copies it, so the same trigger
// literal can safely seed several transitions.
type Trigger interface {
	fmt.Stringer

	// sealed keeps the variant closed so the engine can match exhaustively.
	sealed()
}

// ValueTrigger matches when the named entity's value satisfies Predicate.
type ValueTrigger struct {
	Entity    Entity
	Predicate Predicate

	// Label is the human-readable form used in graph exports.
	Label string
}

func (ValueTrigger) sealed() {}

func (t ValueTrigger) String() string { return t.Label }

// Satisfied reports whether value satisfies the trigger's predicate.
// Predicate evaluation is fail-closed: a nil or panicking predicate counts
// as not satisfied.
func (t ValueTrigger) Satisfied(value string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if t.Predicate == nil {
		return false
	}
	return t.Predicate(value)
}

// TimeoutTrigger fires once Duration has elapsed continuously while the
// owning state is current. Its satisfaction is solely a timer event; it has
// no evaluable current value.
type TimeoutTrigger struct {
	Duration time.Duration
}

func (TimeoutTrigger) sealed() {}

func (t TimeoutTrigger) String() string { return fmt.Sprintf("timeout %s", t.Duration) }

// StateIs triggers when the entity's value satisfies pred.
func StateIs(entity Entity, pred Predicate) ValueTrigger {
	return ValueTrigger{
		Entity:    entity,
		Predicate: pred,
		Label:     fmt.Sprintf("%s?", entity),
	}
}

// StateEq triggers when the entity's value equals value.
func StateEq(entity Entity, value string) ValueTrigger {
	return ValueTrigger{
		Entity:    entity,
		Predicate: func(v string) bool { return v == value },
		Label:     fmt.Sprintf("%s == %s", entity, value),
	}
}

// StateNeq triggers when the entity's value differs from value.
func StateNeq(entity Entity, value string) ValueTrigger {
	return ValueTrigger{
		Entity:    entity,
		Predicate: func(v string) bool { return v != value },
		Label:     fmt.Sprintf("%s != %s", entity, value),
	}
}

// StateOn triggers when the entity's value is "on".
func StateOn(entity Entity) ValueTrigger {
	t := StateEq(entity, "on")
	t.Label = string(entity)
	return t
}

// StateOff triggers when the entity's value is anything but "on".
func StateOff(entity Entity) ValueTrigger {
	t := StateNeq(entity, "on")
	t.Label = fmt.Sprintf("!%s", entity)
	return t
}

// Timeout triggers after d has elapsed while the owning state is current.
func Timeout(d time.Duration) TimeoutTrigger {
	return TimeoutTrigger{Duration: d}
}
