package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/thoran/Dynamoid/codec"
	"github.com/thoran/Dynamoid/internal/shard"
)

// DefaultMemoryShards is the number of lock shards per table used by NewMemory.
const DefaultMemoryShards = 16

// Memory is an in-process Adapter. Items are spread over lock shards by key;
// every operation on an item holds its shard's lock, so conditional writes
// are atomic compare-and-set. It is intended for tests and local development.
type Memory struct {
	numShards int

	mu     sync.RWMutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	spec   TableSpec
	shards []*memoryShard
}

type memoryShard struct {
	mu    sync.Mutex
	items map[string]codec.Record
}

// NewMemory returns an empty in-memory adapter.
func NewMemory() *Memory {
	return NewMemoryWithShards(DefaultMemoryShards)
}

// NewMemoryWithShards returns an empty in-memory adapter with numShards lock
// shards per table, clamped to [1, 256].
func NewMemoryWithShards(numShards int) *Memory {
	return &Memory{
		numShards: shard.Clamp(numShards),
		tables:    make(map[string]*memoryTable),
	}
}

// Tables returns the names of the created tables.
func (m *Memory) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for name := range m.tables {
		out = append(out, name)
	}
	return out
}

// CreateTable implements Adapter.
func (m *Memory) CreateTable(_ context.Context, spec TableSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[spec.Name]; ok {
		return nil
	}
	t := &memoryTable{spec: spec, shards: make([]*memoryShard, m.numShards)}
	for i := range t.shards {
		t.shards[i] = &memoryShard{items: make(map[string]codec.Record)}
	}
	m.tables[spec.Name] = t
	return nil
}

// GetItem implements Adapter.
func (m *Memory) GetItem(_ context.Context, table string, key Key) (codec.Record, error) {
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	k := itemKey(key.Hash, key.Range)
	sh := t.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	item, ok := sh.items[k]
	if !ok {
		return nil, nil
	}
	return copyRecord(item), nil
}

// Write implements Adapter.
func (m *Memory) Write(_ context.Context, table string, record codec.Record, conds Conditions) error {
	t, err := m.table(table)
	if err != nil {
		return err
	}
	k, err := t.recordKey(record)
	if err != nil {
		return err
	}
	sh := t.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if !conditionsHold(sh.items[k], conds) {
		return ErrConditionalCheckFailed
	}
	sh.items[k] = compactRecord(record)
	return nil
}

// UpdateItem implements Adapter. A missing item is created from the key.
func (m *Memory) UpdateItem(_ context.Context, table string, key Key, conds Conditions, mut *Mutation) (codec.Record, error) {
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	k := itemKey(key.Hash, key.Range)
	sh := t.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	current := sh.items[k]
	if !conditionsHold(current, conds) {
		return nil, ErrConditionalCheckFailed
	}

	next := copyRecord(current)
	if next == nil {
		next = key.Record()
	}
	for _, a := range mut.Actions() {
		if err := applyAction(next, a); err != nil {
			return nil, err
		}
	}
	next = compactRecord(next)
	sh.items[k] = next
	return copyRecord(next), nil
}

// Delete implements Adapter. Deleting a missing item succeeds if the
// conditions allow it.
func (m *Memory) Delete(_ context.Context, table string, key Key, conds Conditions) error {
	t, err := m.table(table)
	if err != nil {
		return err
	}
	k := itemKey(key.Hash, key.Range)
	sh := t.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if !conditionsHold(sh.items[k], conds) {
		return ErrConditionalCheckFailed
	}
	delete(sh.items, k)
	return nil
}

func (m *Memory) table(name string) (*memoryTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

func (t *memoryTable) shard(k string) *memoryShard {
	return t.shards[shard.Index(k, len(t.shards))]
}

func (t *memoryTable) recordKey(rec codec.Record) (string, error) {
	hash, ok := rec[t.spec.HashKey.Name]
	if !ok || hash == nil {
		return "", fmt.Errorf("dynamoid: record has no %q attribute", t.spec.HashKey.Name)
	}
	var rng any
	if t.spec.RangeKey != nil {
		if rng, ok = rec[t.spec.RangeKey.Name]; !ok || rng == nil {
			return "", fmt.Errorf("dynamoid: record has no %q attribute", t.spec.RangeKey.Name)
		}
	}
	return itemKey(hash, rng), nil
}

func itemKey(hash, rng any) string {
	return fmt.Sprintf("%v\x00%v", hash, rng)
}

func conditionsHold(item codec.Record, c Conditions) bool {
	for _, name := range c.UnlessExists {
		if _, ok := item[name]; ok {
			return false
		}
	}
	for name, want := range c.IfEqual {
		got, ok := item[name]
		if want == nil {
			if ok {
				return false
			}
			continue
		}
		if !ok || !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

func scalarEqual(a, b any) bool {
	if x, ok := a.(codec.Set); ok {
		y, ok := b.(codec.Set)
		return ok && x.Equal(y)
	}
	switch a.(type) {
	case []any, map[string]any:
		return reflect.DeepEqual(a, b)
	}
	return codec.NewSet(a).Equal(codec.NewSet(b))
}

func applyAction(item codec.Record, a Action) error {
	switch a.Kind {
	case ActionSet:
		item[a.Attr] = a.Value
	case ActionRemove:
		delete(item, a.Attr)
	case ActionAdd:
		current, ok := item[a.Attr]
		if !ok || current == nil {
			item[a.Attr] = a.Value
			return nil
		}
		if set, ok := current.(codec.Set); ok {
			add, ok := a.Value.(codec.Set)
			if !ok {
				return fmt.Errorf("dynamoid: cannot add %T to set attribute %q", a.Value, a.Attr)
			}
			item[a.Attr] = set.Union(add)
			return nil
		}
		x, err := codec.Number(current)
		if err != nil {
			return fmt.Errorf("dynamoid: cannot add to attribute %q: %w", a.Attr, err)
		}
		y, err := codec.Number(a.Value)
		if err != nil {
			return fmt.Errorf("dynamoid: cannot add to attribute %q: %w", a.Attr, err)
		}
		item[a.Attr] = x.Add(y)
	case ActionDelete:
		set, ok := item[a.Attr].(codec.Set)
		if !ok {
			return nil
		}
		del, ok := a.Value.(codec.Set)
		if !ok {
			return fmt.Errorf("dynamoid: cannot delete %T from set attribute %q", a.Value, a.Attr)
		}
		item[a.Attr] = set.Difference(del)
	default:
		return fmt.Errorf("dynamoid: unknown update action %d", a.Kind)
	}
	return nil
}

// compactRecord drops nil values and empty sets, which the store does not keep.
func compactRecord(rec codec.Record) codec.Record {
	out := make(codec.Record, len(rec))
	for k, v := range rec {
		if v == nil {
			continue
		}
		if s, ok := v.(codec.Set); ok && s.Len() == 0 {
			continue
		}
		out[k] = v
	}
	return out
}

func copyRecord(rec codec.Record) codec.Record {
	if rec == nil {
		return nil
	}
	out := make(codec.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
