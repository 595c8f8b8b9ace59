package primitives

import "github.com/comalice/avssm"

// RowDoc is the serializable form of one table cell.
type RowDoc struct {
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Next    string   `json:"next" yaml:"next"`
}

// TableDoc maps state label -> event label -> row. Map keys keep both the
// JSON and YAML encodings sorted and therefore stable.
type TableDoc map[string]map[string]RowDoc

// DocumentTable converts t into its serializable form.
func DocumentTable(t avssm.Table) TableDoc {
	doc := make(TableDoc, avssm.NumStates)
	for s := avssm.State(0); s < avssm.NumStates; s++ {
		rows := make(map[string]RowDoc, avssm.NumEvents)
		for _, e := range avssm.Events() {
			r, err := t.Lookup(s, e)
			if err != nil {
				continue
			}
			rd := RowDoc{Next: r.Next().String()}
			for _, id := range r.Actions() {
				rd.Actions = append(rd.Actions, id.String())
			}
			rows[e.String()] = rd
		}
		doc[s.String()] = rows
	}
	return doc
}
