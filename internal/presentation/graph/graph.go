// Package graph renders a machine's transition table for visualization.
// Rendering is pure: it derives text from the edge list and has no effect on
// the machine.
package graph

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/arborhq/arbor/pkg/domain"
)

// DOT produces the transition graph in Graphviz DOT format. Every (from, to)
// pair becomes one edge, labelled with all of its triggers stacked.
func DOT(edges []domain.Edge) string {
	var sb strings.Builder
	sb.WriteString("digraph G {")
	for _, e := range edges {
		sb.WriteString(fmt.Sprintf("%s->%s[label=%q];",
			sanitizeID(e.From), sanitizeID(e.To), strings.Join(e.Labels, "\\n")))
	}
	sb.WriteString("}")
	return sb.String()
}

// Mermaid produces a Mermaid flowchart (graph TD) for the transition graph.
// If current is non-empty, that node is highlighted.
func Mermaid(edges []domain.Edge, current domain.State) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[string]bool)
	for _, e := range edges {
		for _, s := range []domain.State{e.From, e.To} {
			id := sanitizeID(s)
			if !declared[id] {
				declared[id] = true
				sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, s))
			}
		}
	}

	for _, e := range edges {
		label := strings.Join(e.Labels, "<br/>")
		// Escape double quotes for the Mermaid label
		label = strings.ReplaceAll(label, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n",
			sanitizeID(e.From), label, sanitizeID(e.To)))
	}

	if current != "" {
		sb.WriteString("\n    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeID(current)))
	}

	return sb.String()
}

// Link returns a GraphvizOnline URL rendering the DOT form of the graph.
func Link(edges []domain.Edge) string {
	return "https://dreampuf.github.io/GraphvizOnline/#" + url.PathEscape(DOT(edges))
}

func sanitizeID[T ~string](id T) string {
	s := strings.ReplaceAll(string(id), ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
