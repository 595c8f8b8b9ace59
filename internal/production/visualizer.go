package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/primitives"
)

// TableVisualizer renders a transition table.
type TableVisualizer struct {
	// ShowIgnored also draws rows that neither move nor act.
	ShowIgnored bool
}

// Edge is one drawn transition. Events sharing a source, target and
// action list are merged into one edge.
type Edge struct {
	From    avssm.State
	To      avssm.State
	Events  []avssm.Event
	Actions []avssm.ActionID
	Label   string
}

// ExportDOT generates Graphviz DOT source for t, highlighting current.
// Pass an invalid state to highlight nothing.
func (v *TableVisualizer) ExportDOT(t avssm.Table, current avssm.State) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph StreamStateMachine {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for s := avssm.State(0); s < avssm.NumStates; s++ {
		style := ""
		if s == current {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", s.String(), s.String(), style)
	}

	for _, e := range v.collectEdges(t) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From.String(), e.To.String(), e.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// Edges returns the edges ExportDOT draws, ordered by source state and
// first event.
func (v *TableVisualizer) Edges(t avssm.Table) []Edge {
	return v.collectEdges(t)
}

func (v *TableVisualizer) collectEdges(t avssm.Table) []Edge {
	type key struct {
		from, to avssm.State
		actions  string
	}
	index := make(map[key]int)
	var edges []Edge
	for s := avssm.State(0); s < avssm.NumStates; s++ {
		for _, e := range avssm.Events() {
			row, err := t.Lookup(s, e)
			if err != nil || (!v.ShowIgnored && row.Ignored(s)) {
				continue
			}
			k := key{from: s, to: row.Next(), actions: actionList(row.Actions())}
			if i, ok := index[k]; ok {
				edges[i].Events = append(edges[i].Events, e)
				continue
			}
			index[k] = len(edges)
			edges = append(edges, Edge{From: s, To: row.Next(), Events: []avssm.Event{e}, Actions: row.Actions()})
		}
	}
	for i := range edges {
		edges[i].Label = edgeLabel(edges[i])
	}
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].Events[0] < edges[j].Events[0]
	})
	return edges
}

// edgeLabel is "EV_A\nEV_B / ACT_1, ACT_2".
func edgeLabel(e Edge) string {
	names := make([]string, len(e.Events))
	for i, ev := range e.Events {
		names[i] = ev.String()
	}
	label := strings.Join(names, "\n")
	if acts := actionList(e.Actions); acts != "" {
		label += " / " + acts
	}
	return label
}

func actionList(ids []avssm.ActionID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return strings.Join(names, ", ")
}

// ExportJSON serializes t as state -> event -> row.
func (v *TableVisualizer) ExportJSON(t avssm.Table) ([]byte, error) {
	return json.MarshalIndent(primitives.DocumentTable(t), "", "  ")
}

// ExportYAML serializes t as state -> event -> row.
func (v *TableVisualizer) ExportYAML(t avssm.Table) ([]byte, error) {
	return yaml.Marshal(primitives.DocumentTable(t))
}
