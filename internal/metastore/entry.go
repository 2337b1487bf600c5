package metastore

import "sort"

// Column is one discovered column as the metastore records it.
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

// Entry is the schema of one table: its column names in discovery order,
// regular columns first and partition keys after them.
type Entry struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Details []Column `json:"details,omitempty"`
}

// Builder accumulates entries keyed by table name. Add is get-or-create:
// the first column seen for a table creates its entry, later ones append.
type Builder struct {
	entries map[string]*Entry
}

func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]*Entry)}
}

// Add appends col to the entry of table, creating the entry if needed.
func (b *Builder) Add(table string, col Column) {
	e, ok := b.entries[table]
	if !ok {
		e = &Entry{Name: table}
		b.entries[table] = e
	}
	e.Columns = append(e.Columns, col.Name)
	e.Details = append(e.Details, col)
}

// Schema returns the accumulated entries keyed by table name.
func (b *Builder) Schema() map[string]*Entry {
	return b.entries
}

// Sorted returns the entries of schema ordered by table name.
func Sorted(schema map[string]*Entry) []*Entry {
	out := make([]*Entry, 0, len(schema))
	for _, e := range schema {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
