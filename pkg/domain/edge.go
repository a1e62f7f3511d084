package domain

// Edge is one aggregated edge of the transition graph: every trigger leading
// from From to To, labelled for visualization. Edges are pure derived data;
// producing them has no side effects on the machine.
type Edge struct {
	From   State
	To     State
	Labels []string
}
