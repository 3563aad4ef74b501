package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/thoran/Dynamoid/codec"
	"github.com/thoran/Dynamoid/schema"
)

// Store persists documents through an Adapter.
type Store struct {
	adapter Adapter
	config  Config

	mu     sync.Mutex
	tables map[string]*tableState
}

// tableState serializes creation of one table.
type tableState struct {
	mu    sync.Mutex
	ready bool
}

// New creates a new Store instance.
func New(adapter Adapter, config Config) *Store {
	config.validate()
	return &Store{
		adapter: adapter,
		config:  config,
		tables:  make(map[string]*tableState),
	}
}

// Adapter returns the underlying adapter.
func (s *Store) Adapter() Adapter {
	return s.adapter
}

// TableName returns the namespaced table name for a schema.
func (s *Store) TableName(sc *schema.Schema) string {
	if s.config.Namespace == "" {
		return sc.Table()
	}
	return s.config.Namespace + "_" + sc.Table()
}

// EnsureTable creates the schema's table once per Store. Creating a table
// that already exists is not an error. Only callers ensuring the same table
// wait on each other.
func (s *Store) EnsureTable(ctx context.Context, sc *schema.Schema) error {
	name := s.TableName(sc)

	s.mu.Lock()
	st, ok := s.tables[name]
	if !ok {
		st = &tableState{}
		s.tables[name] = st
	}
	s.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ready {
		return nil
	}

	spec, err := s.tableSpec(name, sc)
	if err != nil {
		return err
	}
	if err := s.adapter.CreateTable(ctx, spec); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	st.ready = true
	return nil
}

func (s *Store) tableSpec(name string, sc *schema.Schema) (TableSpec, error) {
	hashField, _ := sc.Field(sc.HashKey())
	hashCat, err := hashField.Category()
	if err != nil {
		return TableSpec{}, err
	}
	spec := TableSpec{
		Name:          name,
		HashKey:       KeyAttr{Name: sc.HashKey(), Category: hashCat},
		ReadCapacity:  s.config.ReadCapacity,
		WriteCapacity: s.config.WriteCapacity,
	}
	if sc.RangeKey() != "" {
		rangeField, _ := sc.Field(sc.RangeKey())
		rangeCat, err := rangeField.Category()
		if err != nil {
			return TableSpec{}, err
		}
		spec.RangeKey = &KeyAttr{Name: sc.RangeKey(), Category: rangeCat}
	}
	return spec, nil
}

// Model binds a schema to the store. A nil hooks runs no hooks.
func (s *Store) Model(sc *schema.Schema, hooks Hooks) *Model {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Model{
		store:  s,
		schema: sc,
		hooks:  hooks,
		table:  s.TableName(sc),
	}
}

// Model creates, loads, writes and deletes documents of one schema.
type Model struct {
	store  *Store
	schema *schema.Schema
	hooks  Hooks
	table  string
}

// Schema returns the model's schema.
func (m *Model) Schema() *schema.Schema { return m.schema }

// TableName returns the namespaced table name.
func (m *Model) TableName() string { return m.table }

// New builds a document that has not been persisted. attrs are coerced to
// their declared types and declared defaults fill the gaps; every resulting
// attribute counts as an unsaved change.
func (m *Model) New(attrs map[string]any) (*Document, error) {
	values, err := codec.Undump(m.schema, attrs)
	if err != nil {
		return nil, err
	}
	doc := newDocument(m.schema, true)
	for k, v := range values {
		doc.Set(k, v)
	}
	return doc, nil
}

// Load builds a persisted document from a stored record.
func (m *Model) Load(rec codec.Record) (*Document, error) {
	values, err := codec.Undump(m.schema, rec)
	if err != nil {
		return nil, err
	}
	doc := newDocument(m.schema, false)
	doc.load(values)
	return doc, nil
}

// Find loads the document with the given keys. rangeKey is ignored when
// the schema has no range key.
func (m *Model) Find(ctx context.Context, hashKey, rangeKey any) (*Document, error) {
	key, err := m.keyOf(hashKey, rangeKey)
	if err != nil {
		return nil, err
	}
	rec, err := m.store.adapter.GetItem(ctx, m.table, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return m.Load(rec)
}

// Create builds a new document from attrs and saves it.
func (m *Model) Create(ctx context.Context, attrs map[string]any) (*Document, error) {
	doc, err := m.New(attrs)
	if err != nil {
		return nil, err
	}
	if err := m.Save(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// Save writes the whole document. A new document is created with a
// precondition that its key is not taken, failing with RecordNotUniqueError;
// a persisted one is overwritten, failing with StaleObjectError when the
// schema has a lock version that changed since it was read.
func (m *Model) Save(ctx context.Context, doc *Document) error {
	if err := m.store.EnsureTable(ctx, m.schema); err != nil {
		return err
	}

	if m.schema.Timestamps() {
		now := m.store.config.Now()
		if doc.IsNew() && doc.Get(schema.CreatedAtAttr) == nil {
			doc.Set(schema.CreatedAtAttr, now)
		}
		doc.Set(schema.UpdatedAtAttr, now)
	}

	if doc.IsNew() {
		return m.hooks.Run(ctx, HookCreate, doc, func() error {
			return m.persist(ctx, doc, Conditions{})
		})
	}
	return m.persist(ctx, doc, Conditions{})
}

// persist writes the dumped document with the given preconditions plus the
// existence and lock version checks that apply.
func (m *Model) persist(ctx context.Context, doc *Document, conds Conditions) error {
	return m.hooks.Run(ctx, HookSave, doc, func() error {
		if isBlank(doc.HashKey()) {
			doc.Set(m.schema.HashKey(), uuid.NewString())
		}

		creating := doc.IsNew()
		if creating {
			conds = conds.Merge(existenceConditions(m.schema))
		}

		rollback := func() {}
		if m.schema.HasLockVersion() {
			lock, undo, err := bumpLockVersion(doc)
			if err != nil {
				return err
			}
			conds = conds.Merge(lock)
			rollback = undo
		}

		rec, err := codec.Dump(m.schema, doc.attrs)
		if err != nil {
			rollback()
			return err
		}

		m.store.config.Logger.Debug("writing document",
			"table", m.table,
			"hashKey", doc.HashKey(),
			"new", creating,
		)
		if err := m.store.adapter.Write(ctx, m.table, rec, conds); err != nil {
			rollback()
			return m.conflict(err, doc, OpPersist, creating)
		}

		doc.newRecord = false
		doc.clearChanges()
		return nil
	})
}

// Update applies a server-side mutation built by build, guarded by conds and,
// when the schema has a lock version, by the last durable lock version. The
// lock version is incremented in the same request. On success the document is
// reloaded from the updated item; a failed precondition returns
// StaleObjectError and leaves the document untouched.
func (m *Model) Update(ctx context.Context, doc *Document, conds Conditions, build func(*Mutation)) error {
	return m.hooks.Run(ctx, HookUpdate, doc, func() error {
		key, err := m.keyOf(doc.HashKey(), doc.RangeKey())
		if err != nil {
			return err
		}

		var mut Mutation
		if m.schema.HasLockVersion() {
			lock, err := lockCondition(doc)
			if err != nil {
				return err
			}
			conds = conds.Merge(lock)
			mut.Add(schema.LockVersionAttr, 1)
		}
		if build != nil {
			build(&mut)
		}
		dumped, err := m.dumpMutation(&mut)
		if err != nil {
			return err
		}

		rec, err := m.store.adapter.UpdateItem(ctx, m.table, key, conds, dumped)
		if err != nil {
			return m.conflict(err, doc, OpUpdate, false)
		}

		values, err := codec.Undump(m.schema, rec)
		if err != nil {
			return err
		}
		doc.load(values)
		return nil
	})
}

// TryUpdate is like Update but reports a stale lock version as false instead
// of an error. Other errors are returned.
func (m *Model) TryUpdate(ctx context.Context, doc *Document, conds Conditions, build func(*Mutation)) (bool, error) {
	err := m.Update(ctx, doc, conds, build)
	if errors.Is(err, ErrStaleObject) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the document's item. When the schema has a lock version the
// stored value must match the last durable one: the value before a pending
// local change if there is one, otherwise the current value.
func (m *Model) Delete(ctx context.Context, doc *Document) error {
	return m.hooks.Run(ctx, HookDestroy, doc, func() error {
		key, err := m.keyOf(doc.HashKey(), doc.RangeKey())
		if err != nil {
			return err
		}

		var conds Conditions
		if m.schema.HasLockVersion() {
			if conds, err = lockCondition(doc); err != nil {
				return err
			}
		}

		if err := m.store.adapter.Delete(ctx, m.table, key, conds); err != nil {
			return m.conflict(err, doc, OpDelete, false)
		}
		return nil
	})
}

// Touch sets updated_at, and any named attributes, to the current instant
// and saves the document. Every attribute touched must be declared.
func (m *Model) Touch(ctx context.Context, doc *Document, names ...string) error {
	names = append([]string{schema.UpdatedAtAttr}, names...)
	for _, name := range names {
		if _, ok := m.schema.Field(name); !ok {
			return fmt.Errorf("touch %q on %s: %w", name, m.schema.Table(), ErrUndeclaredAttribute)
		}
	}

	now := m.store.config.Now()
	for _, name := range names {
		doc.Set(name, now)
	}
	return m.Save(ctx, doc)
}

func (m *Model) conflict(err error, doc *Document, op string, creating bool) error {
	mapped := conflictError(err, doc, op, creating)
	if errors.Is(err, ErrConditionalCheckFailed) {
		m.store.config.Logger.Warn("conditional write rejected",
			"table", m.table,
			"operation", op,
			"hashKey", doc.HashKey(),
			"error", mapped,
		)
	}
	return mapped
}

// keyOf dumps key values for the adapter.
func (m *Model) keyOf(hashKey, rangeKey any) (Key, error) {
	if isBlank(hashKey) {
		return Key{}, ErrMissingHashKey
	}
	hashField, _ := m.schema.Field(m.schema.HashKey())
	hv, err := codec.DumpField(hashKey, hashField)
	if err != nil {
		return Key{}, fmt.Errorf("hash key: %w", err)
	}
	key := Key{HashName: m.schema.HashKey(), Hash: hv}

	if m.schema.RangeKey() != "" {
		rangeField, _ := m.schema.Field(m.schema.RangeKey())
		rv, err := codec.DumpField(rangeKey, rangeField)
		if err != nil {
			return Key{}, fmt.Errorf("range key: %w", err)
		}
		key.RangeName = m.schema.RangeKey()
		key.Range = rv
	}
	return key, nil
}

// dumpMutation converts mutation values of declared attributes to store
// scalars. Values of undeclared attributes are sent as given.
func (m *Model) dumpMutation(mut *Mutation) (*Mutation, error) {
	out := &Mutation{}
	for _, a := range mut.Actions() {
		if f, ok := m.schema.Field(a.Attr); ok && a.Kind != ActionRemove {
			v, err := codec.DumpField(a.Value, f)
			if err != nil {
				return nil, fmt.Errorf("update %q: %w", a.Attr, err)
			}
			a.Value = v
		}
		out.actions = append(out.actions, a)
	}
	return out, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
