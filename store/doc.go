// Package store persists schema-typed documents to a key/value table store
// with optimistic concurrency control.
//
// A [Model] binds a [schema.Schema] to a [Store]. Documents are dumped with
// package codec before every write and undumped after every read.
//
// # Key Features
//
//   - Whole-document writes that refuse to overwrite an existing key on create
//   - Optimistic locking through an integer lock_version attribute
//   - Conditional server-side updates that increment the lock version
//   - Conditional deletes
//   - Automatic created_at and updated_at timestamps
//   - Lifecycle hooks around save, create, update and destroy
//
// # Adapters
//
// Writes go through the [Adapter] interface. [DynamoDB] talks to Amazon
// DynamoDB through a [DynamoClient]; [Memory] keeps tables in process:
//
//	client := dynamodb.NewFromConfig(awsCfg)
//	st := store.New(store.NewDynamoDB(client, store.DefaultDynamoDBConfig()), store.DefaultConfig())
//	users := st.Model(userSchema, nil)
//
//	doc, err := users.Create(ctx, map[string]any{"name": "Ada"})
//
// # Optimistic Locking
//
// When a schema declares lock_version, [Model.Save] increments it and
// requires the stored value to still be the one last read. [Model.Update]
// and [Model.Delete] carry the same precondition. A rejected precondition
// returns [*StaleObjectError]; the in-memory lock version is restored.
//
// # Errors
//
//   - [ErrNotFound] - no item with the given key
//   - [ErrRecordNotUnique] - a new document's key is already taken
//   - [ErrStaleObject] - the lock version changed since it was read
//   - [ErrConditionalCheckFailed] - an adapter rejected a precondition
//   - [ErrTableNotFound] - the adapter has no such table
package store
