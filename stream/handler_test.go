package stream_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/thoran/Dynamoid/schema"
	"github.com/thoran/Dynamoid/store"
	"github.com/thoran/Dynamoid/stream"
)

var accountSchema = schema.MustNew(schema.Definition{
	Table: "accounts",
	Fields: []schema.Field{
		{Name: "owner", Type: schema.TypeString},
		{Name: "balance", Type: schema.TypeInteger, Default: schema.Literal(0)},
		{Name: "active", Type: schema.TypeBoolean},
		{Name: schema.LockVersionAttr, Type: schema.TypeInteger},
	},
})

func newModel() *store.Model {
	return store.New(store.NewMemory(), store.DefaultConfig()).Model(accountSchema, nil)
}

func image(id, owner, balance, lock string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":           events.NewStringAttribute(id),
		"owner":        events.NewStringAttribute(owner),
		"balance":      events.NewNumberAttribute(balance),
		"active":       events.NewStringAttribute("t"),
		"lock_version": events.NewNumberAttribute(lock),
	}
}

func TestNewHandler(t *testing.T) {
	// Nil model, func and logger should not panic
	h := stream.NewHandler(nil, nil, nil)
	if h == nil {
		t.Fatal("expected non-nil Handler")
	}
}

func TestHandleChanges_EmptyEvent(t *testing.T) {
	h := stream.NewHandler(newModel(), nil, nil)

	err := h.HandleChanges(context.Background(), events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{}})
	if err != nil {
		t.Errorf("expected no error for empty event, got %v", err)
	}
}

func TestHandleChanges_DecodesImages(t *testing.T) {
	var changes []stream.Change
	h := stream.NewHandler(newModel(), func(_ context.Context, c stream.Change) error {
		changes = append(changes, c)
		return nil
	}, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "1",
				EventName: stream.EventInsert,
				Change: events.DynamoDBStreamRecord{
					Keys:     map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("a1")},
					NewImage: image("a1", "ada", "10", "1"),
				},
			},
			{
				EventID:   "2",
				EventName: stream.EventModify,
				Change: events.DynamoDBStreamRecord{
					Keys:     map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("a1")},
					OldImage: image("a1", "ada", "10", "1"),
					NewImage: image("a1", "ada", "25", "2"),
				},
			},
			{
				EventID:   "3",
				EventName: stream.EventRemove,
				Change: events.DynamoDBStreamRecord{
					Keys:     map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("a1")},
					OldImage: image("a1", "ada", "25", "2"),
				},
			},
		},
	}

	if err := h.HandleChanges(context.Background(), event); err != nil {
		t.Fatalf("HandleChanges: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}

	insert := changes[0]
	if insert.Old != nil {
		t.Error("expected no old document on insert")
	}
	if insert.New == nil || insert.New.IsNew() {
		t.Fatal("expected a persisted new document on insert")
	}
	if insert.New.Get("balance") != int64(10) {
		t.Errorf("expected balance 10, got %#v", insert.New.Get("balance"))
	}
	if insert.New.Get("active") != true {
		t.Errorf("expected active true, got %#v", insert.New.Get("active"))
	}
	if insert.Keys["id"] != "a1" {
		t.Errorf("expected key a1, got %#v", insert.Keys["id"])
	}

	modify := changes[1]
	if modify.Old.LockVersion() != int64(1) || modify.New.LockVersion() != int64(2) {
		t.Errorf("expected lock versions 1 -> 2, got %#v -> %#v", modify.Old.LockVersion(), modify.New.LockVersion())
	}

	remove := changes[2]
	if remove.New != nil {
		t.Error("expected no new document on remove")
	}
	if remove.Old.Get("balance") != int64(25) {
		t.Errorf("expected old balance 25, got %#v", remove.Old.Get("balance"))
	}
}

func TestHandleChanges_StopsOnError(t *testing.T) {
	errFail := errors.New("downstream failed")
	calls := 0
	h := stream.NewHandler(newModel(), func(context.Context, stream.Change) error {
		calls++
		return errFail
	}, nil)

	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: image("a1", "ada", "1", "1")}},
			{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: image("a2", "bob", "1", "1")}},
		},
	}

	if err := h.HandleChanges(context.Background(), event); !errors.Is(err, errFail) {
		t.Fatalf("expected downstream error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected processing to stop after the first failure, got %d calls", calls)
	}
}

func TestHandleChanges_UndecodableImage(t *testing.T) {
	h := stream.NewHandler(newModel(), func(context.Context, stream.Change) error {
		t.Error("expected the change func not to be called")
		return nil
	}, nil)

	bad := image("a1", "ada", "1", "1")
	bad["active"] = events.NewStringAttribute("maybe")
	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{EventName: stream.EventInsert, Change: events.DynamoDBStreamRecord{NewImage: bad}},
		},
	}

	if err := h.HandleChanges(context.Background(), event); err == nil {
		t.Error("expected an error for an invalid boolean")
	}
}
