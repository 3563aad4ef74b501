package store

import (
	"context"

	"github.com/thoran/Dynamoid/codec"
	"github.com/thoran/Dynamoid/schema"
)

// Adapter is the key/value table store that documents are persisted to.
//
// Conditional operations must be atomic compare-and-set: the write is
// applied only if every condition holds against the stored item, and a
// rejection is reported as an error wrapping ErrConditionalCheckFailed.
type Adapter interface {
	// CreateTable creates a table. It is a no-op if the table exists.
	CreateTable(ctx context.Context, spec TableSpec) error

	// GetItem returns the stored item, or nil if there is none.
	GetItem(ctx context.Context, table string, key Key) (codec.Record, error)

	// Write replaces the whole item identified by the key attributes of record.
	Write(ctx context.Context, table string, record codec.Record, conds Conditions) error

	// UpdateItem applies m to the item and returns every attribute of the
	// updated item.
	UpdateItem(ctx context.Context, table string, key Key, conds Conditions, m *Mutation) (codec.Record, error)

	// Delete removes the item.
	Delete(ctx context.Context, table string, key Key, conds Conditions) error
}

// Key identifies a single item. Values are store scalars.
type Key struct {
	HashName  string
	Hash      any
	RangeName string
	Range     any
}

// Record returns the key attributes as a record.
func (k Key) Record() codec.Record {
	rec := codec.Record{k.HashName: k.Hash}
	if k.RangeName != "" {
		rec[k.RangeName] = k.Range
	}
	return rec
}

// KeyAttr names a key attribute and its store category.
type KeyAttr struct {
	Name     string
	Category schema.Category
}

// TableSpec describes a table to create.
type TableSpec struct {
	Name     string
	HashKey  KeyAttr
	RangeKey *KeyAttr

	// ReadCapacity and WriteCapacity select provisioned billing when
	// either is positive.
	ReadCapacity  int64
	WriteCapacity int64
}

// Conditions are write preconditions evaluated against the stored item.
type Conditions struct {
	// UnlessExists lists attributes that must be absent.
	UnlessExists []string

	// IfEqual maps attributes to the store scalar they must currently hold.
	// A nil value requires the attribute to be absent.
	IfEqual map[string]any
}

// IsZero reports whether there are no conditions.
func (c Conditions) IsZero() bool {
	return len(c.UnlessExists) == 0 && len(c.IfEqual) == 0
}

// Merge returns the union of c and o. Entries of o win on conflict.
func (c Conditions) Merge(o Conditions) Conditions {
	out := Conditions{}
	seen := make(map[string]bool)
	for _, list := range [][]string{c.UnlessExists, o.UnlessExists} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out.UnlessExists = append(out.UnlessExists, name)
			}
		}
	}
	if len(c.IfEqual)+len(o.IfEqual) > 0 {
		out.IfEqual = make(map[string]any, len(c.IfEqual)+len(o.IfEqual))
		for k, v := range c.IfEqual {
			out.IfEqual[k] = v
		}
		for k, v := range o.IfEqual {
			out.IfEqual[k] = v
		}
	}
	return out
}

// ActionKind is the kind of change an Action makes.
type ActionKind int

const (
	// ActionSet replaces the attribute value.
	ActionSet ActionKind = iota + 1

	// ActionAdd adds a number to a numeric attribute or members to a set.
	ActionAdd

	// ActionDelete removes members from a set attribute.
	ActionDelete

	// ActionRemove deletes the attribute.
	ActionRemove
)

// Action is a single attribute change.
type Action struct {
	Kind  ActionKind
	Attr  string
	Value any
}

// Mutation is an ordered list of attribute changes applied server-side by
// UpdateItem.
type Mutation struct {
	actions []Action
}

// Set replaces attr with v.
func (m *Mutation) Set(attr string, v any) *Mutation {
	m.actions = append(m.actions, Action{Kind: ActionSet, Attr: attr, Value: v})
	return m
}

// Add increments a numeric attribute by v, or adds the members of v to a set.
func (m *Mutation) Add(attr string, v any) *Mutation {
	m.actions = append(m.actions, Action{Kind: ActionAdd, Attr: attr, Value: v})
	return m
}

// Delete removes the members of v from a set attribute.
func (m *Mutation) Delete(attr string, v any) *Mutation {
	m.actions = append(m.actions, Action{Kind: ActionDelete, Attr: attr, Value: v})
	return m
}

// Remove deletes attr from the item.
func (m *Mutation) Remove(attr string) *Mutation {
	m.actions = append(m.actions, Action{Kind: ActionRemove, Attr: attr})
	return m
}

// Actions returns the changes in the order they were added.
func (m *Mutation) Actions() []Action {
	if m == nil {
		return nil
	}
	out := make([]Action, len(m.actions))
	copy(out, m.actions)
	return out
}
