package store

import (
	"sort"

	"github.com/thoran/Dynamoid/schema"
)

// Document is the in-memory state of one item: its attributes, the values
// they had before unsaved changes, and whether it has ever been persisted.
//
// A Document is not safe for concurrent use.
type Document struct {
	schema    *schema.Schema
	attrs     map[string]any
	changes   map[string]any
	newRecord bool
}

func newDocument(s *schema.Schema, isNew bool) *Document {
	return &Document{
		schema:    s,
		attrs:     make(map[string]any),
		changes:   make(map[string]any),
		newRecord: isNew,
	}
}

// Schema returns the document's schema.
func (d *Document) Schema() *schema.Schema { return d.schema }

// IsNew reports whether the document has never been persisted or loaded.
func (d *Document) IsNew() bool { return d.newRecord }

// Get returns the in-memory value of name.
func (d *Document) Get(name string) any { return d.attrs[name] }

// Set changes the in-memory value of name. The previous value is remembered
// until the next successful write.
func (d *Document) Set(name string, v any) {
	if _, ok := d.changes[name]; !ok {
		d.changes[name] = d.attrs[name]
	}
	d.attrs[name] = v
}

// HashKey returns the hash key value.
func (d *Document) HashKey() any { return d.attrs[d.schema.HashKey()] }

// RangeKey returns the range key value, or nil if the schema has none.
func (d *Document) RangeKey() any {
	if d.schema.RangeKey() == "" {
		return nil
	}
	return d.attrs[d.schema.RangeKey()]
}

// LockVersion returns the in-memory lock version, or nil.
func (d *Document) LockVersion() any { return d.attrs[schema.LockVersionAttr] }

// Attributes returns a copy of the attribute map.
func (d *Document) Attributes() map[string]any {
	out := make(map[string]any, len(d.attrs))
	for k, v := range d.attrs {
		out[k] = v
	}
	return out
}

// Changed returns the names of attributes with unsaved changes, sorted.
func (d *Document) Changed() []string {
	out := make([]string, 0, len(d.changes))
	for k := range d.changes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Was returns the value name had before its first unsaved change.
func (d *Document) Was(name string) (any, bool) {
	v, ok := d.changes[name]
	return v, ok
}

// durable returns the last value of name known to be stored: the value
// before any pending change, otherwise the current value.
func (d *Document) durable(name string) any {
	if v, ok := d.changes[name]; ok {
		return v
	}
	return d.attrs[name]
}

// load replaces attributes with freshly stored values.
func (d *Document) load(attrs map[string]any) {
	for k, v := range attrs {
		d.attrs[k] = v
		delete(d.changes, k)
	}
	d.newRecord = false
}

func (d *Document) clearChanges() {
	d.changes = make(map[string]any)
}
