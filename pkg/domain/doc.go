/*
Package domain contains the core domain models for the arbor engine.

It defines the fundamental entities of the state machine: States, Triggers,
Transitions and the derived graph Edges. This package is kept pure and free
of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - State: One member of the closed set of states a machine can occupy.
  - Trigger: A condition (entity predicate or timeout) that causes a transition.
  - Transition: Defines the rule for moving from one state to another.
  - Edge: An aggregated view of the transition table for visualization.
*/
package domain
