package store

import (
	"errors"
	"fmt"
	"math"

	"github.com/thoran/Dynamoid/codec"
	"github.com/thoran/Dynamoid/schema"
)

// existenceConditions requires that no item with the document's key exists.
func existenceConditions(s *schema.Schema) Conditions {
	c := Conditions{UnlessExists: []string{s.HashKey()}}
	if s.RangeKey() != "" {
		c.UnlessExists = append(c.UnlessExists, s.RangeKey())
	}
	return c
}

// bumpLockVersion increments the in-memory lock version for a full write and
// returns the precondition on the last durable value. The precondition is
// empty when nothing has been stored yet. rollback restores the document if
// the write fails.
func bumpLockVersion(d *Document) (cond Conditions, rollback func(), err error) {
	f, _ := d.schema.Field(schema.LockVersionAttr)

	durable := d.durable(schema.LockVersionAttr)
	current := d.attrs[schema.LockVersionAttr]
	_, pending := d.changes[schema.LockVersionAttr]

	n, err := codec.UndumpField(current, f)
	if err != nil {
		return Conditions{}, nil, err
	}
	next := int64(1)
	if n != nil {
		if n.(int64) == math.MaxInt64 {
			return Conditions{}, nil, fmt.Errorf("lock version: %w", codec.ErrInvalidNumber)
		}
		next = n.(int64) + 1
	}
	d.Set(schema.LockVersionAttr, next)

	rollback = func() {
		d.attrs[schema.LockVersionAttr] = current
		if !pending {
			delete(d.changes, schema.LockVersionAttr)
		}
	}

	if durable == nil {
		return Conditions{}, rollback, nil
	}
	expected, err := codec.DumpField(durable, f)
	if err != nil {
		rollback()
		return Conditions{}, nil, err
	}
	return Conditions{IfEqual: map[string]any{schema.LockVersionAttr: expected}}, rollback, nil
}

// lockCondition requires the stored lock version to equal the last durable
// value, preferring the value before a pending local change over the current
// one. A nil durable value requires the attribute to be absent.
func lockCondition(d *Document) (Conditions, error) {
	f, _ := d.schema.Field(schema.LockVersionAttr)
	expected, err := codec.DumpField(d.durable(schema.LockVersionAttr), f)
	if err != nil {
		return Conditions{}, err
	}
	return Conditions{IfEqual: map[string]any{schema.LockVersionAttr: expected}}, nil
}

// conflictError maps a rejected precondition to RecordNotUniqueError when
// a new document was being created, and to StaleObjectError otherwise.
// Other errors are returned unchanged.
func conflictError(err error, d *Document, op string, creating bool) error {
	if !errors.Is(err, ErrConditionalCheckFailed) {
		return err
	}
	if creating {
		return &RecordNotUniqueError{Document: d, Err: err}
	}
	return &StaleObjectError{Document: d, Operation: op}
}
