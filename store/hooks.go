package store

import "context"

// HookKind names the lifecycle point a hook runs around.
type HookKind string

const (
	// HookSave runs around every full write of a document.
	HookSave HookKind = "save"

	// HookCreate runs around the first save of a new document.
	HookCreate HookKind = "create"

	// HookUpdate runs around Update.
	HookUpdate HookKind = "update"

	// HookDestroy runs around Delete.
	HookDestroy HookKind = "destroy"
)

// Hooks wraps lifecycle points of a document. Run must call body exactly
// once to let the operation proceed, and return its error. Returning
// without calling body aborts the operation.
type Hooks interface {
	Run(ctx context.Context, kind HookKind, doc *Document, body func() error) error
}

// HookFunc adapts a function to the Hooks interface.
type HookFunc func(ctx context.Context, kind HookKind, doc *Document, body func() error) error

// Run calls f.
func (f HookFunc) Run(ctx context.Context, kind HookKind, doc *Document, body func() error) error {
	return f(ctx, kind, doc, body)
}

// NopHooks runs every body without doing anything around it.
type NopHooks struct{}

// Run calls body.
func (NopHooks) Run(_ context.Context, _ HookKind, _ *Document, body func() error) error {
	return body()
}
