//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// Credentials come from the default AWS chain. Set DYNAMOID_AWS_PROFILE to use
// a named shared-config profile.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/thoran/Dynamoid/codec"
	"github.com/thoran/Dynamoid/schema"
	"github.com/thoran/Dynamoid/store"
)

// Namespace prefix - unique per test run to avoid conflicts
const namespacePrefix = "dynamoid-e2e"

var (
	testID    string
	ddbClient *dynamodb.Client
	testStore *store.Store

	accounts *store.Model
	events   *store.Model
)

// --- Test Schemas ---

var accountSchema = schema.MustNew(schema.Definition{
	Table: "accounts",
	Fields: []schema.Field{
		{Name: "owner", Type: schema.TypeString},
		{Name: "balance", Type: schema.TypeInteger, Default: schema.Literal(0)},
		{Name: "tags", Type: schema.TypeSet},
		{Name: "settings", Type: schema.TypeSerialized},
		{Name: "active", Type: schema.TypeBoolean, Default: schema.Literal(true)},
		{Name: schema.LockVersionAttr, Type: schema.TypeInteger},
	},
	Timestamps: true,
})

var eventSchema = schema.MustNew(schema.Definition{
	Table:    "events",
	HashKey:  "stream",
	RangeKey: "seq",
	Fields: []schema.Field{
		{Name: "seq", Type: schema.TypeInteger},
		{Name: "payload", Type: schema.TypeString},
	},
})

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	namespace := fmt.Sprintf("%s-%s", namespacePrefix, testID)
	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if profile := os.Getenv("DYNAMOID_AWS_PROFILE"); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	storeCfg := store.DefaultConfig()
	storeCfg.Namespace = namespace
	storeCfg.ReadCapacity = 0
	storeCfg.WriteCapacity = 0
	testStore = store.New(store.NewDynamoDB(ddbClient, store.DefaultDynamoDBConfig()), storeCfg)

	accounts = testStore.Model(accountSchema, nil)
	events = testStore.Model(eventSchema, nil)

	for _, sc := range []*schema.Schema{accountSchema, eventSchema} {
		fmt.Printf("  - %s\n", testStore.TableName(sc))
		if err := testStore.EnsureTable(ctx, sc); err != nil {
			fmt.Printf("Failed to create tables: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println("All tables created and active")

	code := m.Run()

	deleteTables(ctx, accountSchema, eventSchema)
	os.Exit(code)
}

func deleteTables(ctx context.Context, schemas ...*schema.Schema) {
	fmt.Println("Deleting test tables...")
	for _, sc := range schemas {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(testStore.TableName(sc)),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", testStore.TableName(sc), err)
		}
	}
	fmt.Println("Tables deleted")
}

// --- Save Tests ---

func TestCreate_AndFind(t *testing.T) {
	ctx := context.Background()

	doc, err := accounts.Create(ctx, map[string]any{
		"owner":    "Ada",
		"balance":  100,
		"tags":     []any{"gold", "early"},
		"settings": map[string]any{"theme": "dark"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := accounts.Find(ctx, doc.HashKey(), nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found.Get("owner") != "Ada" {
		t.Errorf("expected owner 'Ada', got %#v", found.Get("owner"))
	}
	if found.Get("balance") != int64(100) {
		t.Errorf("expected balance 100, got %#v", found.Get("balance"))
	}
	if found.Get("active") != true {
		t.Errorf("expected default active true, got %#v", found.Get("active"))
	}
	if tags, ok := found.Get("tags").(codec.Set); !ok || !tags.Equal(codec.NewSet("gold", "early")) {
		t.Errorf("expected tags {gold early}, got %#v", found.Get("tags"))
	}
	if settings, ok := found.Get("settings").(map[string]any); !ok || settings["theme"] != "dark" {
		t.Errorf("expected settings to round-trip, got %#v", found.Get("settings"))
	}
	if found.LockVersion() != int64(1) {
		t.Errorf("expected lock version 1, got %#v", found.LockVersion())
	}
	created, ok := found.Get(schema.CreatedAtAttr).(time.Time)
	if !ok || time.Since(created) > time.Minute {
		t.Errorf("expected a recent created_at, got %#v", found.Get(schema.CreatedAtAttr))
	}
}

func TestCreate_Duplicate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	if _, err := accounts.Create(ctx, map[string]any{"id": id, "owner": "first"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := accounts.Create(ctx, map[string]any{"id": id, "owner": "second"})
	if !errors.Is(err, store.ErrRecordNotUnique) {
		t.Errorf("expected ErrRecordNotUnique, got %v", err)
	}
}

func TestFind_NotFound(t *testing.T) {
	_, err := accounts.Find(context.Background(), uuid.New().String(), nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_StaleObject(t *testing.T) {
	ctx := context.Background()

	doc, err := accounts.Create(ctx, map[string]any{"owner": "Ada"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	a, _ := accounts.Find(ctx, doc.HashKey(), nil)
	b, _ := accounts.Find(ctx, doc.HashKey(), nil)

	a.Set("owner", "Grace")
	if err := accounts.Save(ctx, a); err != nil {
		t.Fatalf("Save a failed: %v", err)
	}

	b.Set("owner", "Bob")
	if err := accounts.Save(ctx, b); !errors.Is(err, store.ErrStaleObject) {
		t.Fatalf("expected ErrStaleObject, got %v", err)
	}
	if b.LockVersion() != int64(1) {
		t.Errorf("expected lock version rolled back to 1, got %#v", b.LockVersion())
	}
}

// --- Update Tests ---

func TestUpdate_Success(t *testing.T) {
	ctx := context.Background()

	doc, err := accounts.Create(ctx, map[string]any{"owner": "Ada", "balance": 10, "tags": []any{"a", "b"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err = accounts.Update(ctx, doc, store.Conditions{}, func(m *store.Mutation) {
		m.Add("balance", 5).Delete("tags", codec.NewSet("a")).Set("owner", "Grace")
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if doc.Get("balance") != int64(15) {
		t.Errorf("expected balance 15, got %#v", doc.Get("balance"))
	}
	if tags, ok := doc.Get("tags").(codec.Set); !ok || !tags.Equal(codec.NewSet("b")) {
		t.Errorf("expected tags {b}, got %#v", doc.Get("tags"))
	}
	if doc.LockVersion() != int64(2) {
		t.Errorf("expected lock version 2, got %#v", doc.LockVersion())
	}
}

func TestUpdate_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()

	doc, err := accounts.Create(ctx, map[string]any{"owner": "Ada"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const workers = 5
	docs := make([]*store.Document, workers)
	for i := range docs {
		if docs[i], err = accounts.Find(ctx, doc.HashKey(), nil); err != nil {
			t.Fatalf("Find failed: %v", err)
		}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, d := range docs {
		wg.Add(1)
		go func(d *store.Document) {
			defer wg.Done()
			ok, err := accounts.TryUpdate(ctx, d, store.Conditions{}, func(m *store.Mutation) { m.Add("balance", 1) })
			if err != nil {
				t.Errorf("TryUpdate failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 winner, got %d", successes)
	}
	found, _ := accounts.Find(ctx, doc.HashKey(), nil)
	if found.Get("balance") != int64(1) {
		t.Errorf("expected balance 1, got %#v", found.Get("balance"))
	}
}

// --- Delete Tests ---

func TestDelete_StaleObject(t *testing.T) {
	ctx := context.Background()

	doc, err := accounts.Create(ctx, map[string]any{"owner": "Ada"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	stale, _ := accounts.Find(ctx, doc.HashKey(), nil)

	if err := accounts.Touch(ctx, doc); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	if err := accounts.Delete(ctx, stale); !errors.Is(err, store.ErrStaleObject) {
		t.Fatalf("expected ErrStaleObject, got %v", err)
	}
	if _, err := accounts.Find(ctx, doc.HashKey(), nil); err != nil {
		t.Fatalf("expected item to survive, got %v", err)
	}

	if err := accounts.Delete(ctx, doc); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := accounts.Find(ctx, doc.HashKey(), nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

// --- Range Key Tests ---

func TestRangeKey_Items(t *testing.T) {
	ctx := context.Background()
	streamID := uuid.New().String()

	for seq := 1; seq <= 3; seq++ {
		if _, err := events.Create(ctx, map[string]any{"stream": streamID, "seq": seq, "payload": fmt.Sprintf("event %d", seq)}); err != nil {
			t.Fatalf("Create seq %d failed: %v", seq, err)
		}
	}

	found, err := events.Find(ctx, streamID, 2)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found.Get("payload") != "event 2" {
		t.Errorf("expected 'event 2', got %#v", found.Get("payload"))
	}

	_, err = events.Create(ctx, map[string]any{"stream": streamID, "seq": 2})
	if !errors.Is(err, store.ErrRecordNotUnique) {
		t.Errorf("expected ErrRecordNotUnique, got %v", err)
	}
}
