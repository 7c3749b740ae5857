package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/carwash-console/internal/model"
)

type store interface {
	Append(ctx context.Context, collection string, doc any) (string, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Remove(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	List(ctx context.Context, collection string) (Snapshot, error)
	Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error)
	Close() error
}

type expenseDoc struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func stores(t *testing.T) map[string]store {
	t.Helper()

	bolt, err := NewBoltRepository(filepath.Join(t.TempDir(), "carwash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	return map[string]store{
		"memory": NewMemoryRepository(),
		"bolt":   bolt,
	}
}

func TestAppendGetList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := s.Append(ctx, model.CollectionExpenses, expenseDoc{Description: "welding rod", Category: "welding"})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			raw, err := s.Get(ctx, model.CollectionExpenses, id)
			require.NoError(t, err)
			var got expenseDoc
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, expenseDoc{ID: id, Description: "welding rod", Category: "welding"}, got)

			_, err = s.Append(ctx, model.CollectionExpenses, expenseDoc{Description: "bulb"})
			require.NoError(t, err)

			snap, err := s.List(ctx, model.CollectionExpenses)
			require.NoError(t, err)
			assert.Equal(t, model.CollectionExpenses, snap.Collection)
			require.Len(t, snap.Records, 2)
			assert.Less(t, snap.Records[0].ID, snap.Records[1].ID)

			docs, err := Decode[expenseDoc](snap)
			require.NoError(t, err)
			assert.Len(t, docs, 2)
		})
	}
}

func TestUpdateMergesTopLevelFields(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, model.CollectionServices, "o1", map[string]any{
				"carNumber": "MH12AB1234",
				"status":    "pending",
				"services":  []map[string]any{{"type": "basic", "amount": "300"}},
			}))

			require.NoError(t, s.Update(ctx, model.CollectionServices, "o1", map[string]any{"status": "completed"}))

			raw, err := s.Get(ctx, model.CollectionServices, "o1")
			require.NoError(t, err)
			var doc map[string]any
			require.NoError(t, json.Unmarshal(raw, &doc))
			assert.Equal(t, "completed", doc["status"])
			assert.Equal(t, "MH12AB1234", doc["carNumber"])
			assert.Equal(t, "o1", doc["id"])
			assert.Len(t, doc["services"], 1)
		})
	}
}

func TestMissingRecords(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, model.CollectionWorkers, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Update(ctx, model.CollectionWorkers, "nope", map[string]any{"a": 1}), ErrNotFound)
			assert.ErrorIs(t, s.Remove(ctx, model.CollectionWorkers, "nope"), ErrNotFound)

			_, err = s.List(ctx, "orders")
			assert.ErrorIs(t, err, ErrUnknownCollection)
			assert.Error(t, s.Set(ctx, model.CollectionWorkers, " ", map[string]any{}))
		})
	}
}

func TestRemove(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.Append(ctx, model.CollectionWorkers, map[string]any{"name": "Ravi"})
			require.NoError(t, err)

			require.NoError(t, s.Remove(ctx, model.CollectionWorkers, id))

			snap, err := s.List(ctx, model.CollectionWorkers)
			require.NoError(t, err)
			assert.Empty(t, snap.Records)
		})
	}
}

func TestSubscribe(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			require.NoError(t, s.Set(ctx, model.CollectionRedemptions, "r1", map[string]any{"carNumber": "X1"}))

			ch, err := s.Subscribe(ctx, model.CollectionRedemptions)
			require.NoError(t, err)

			first := receive(t, ch)
			require.Len(t, first.Records, 1, "current snapshot comes first")

			// Подписчик не читает канал, поэтому промежуточные снимки вытесняются.
			require.NoError(t, s.Set(ctx, model.CollectionRedemptions, "r2", map[string]any{"carNumber": "X2"}))
			require.NoError(t, s.Set(ctx, model.CollectionRedemptions, "r3", map[string]any{"carNumber": "X3"}))

			latest := receive(t, ch)
			assert.Len(t, latest.Records, 3)

			cancel()
			assert.Eventually(t, func() bool {
				select {
				case _, ok := <-ch:
					return !ok
				default:
					return false
				}
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestSubscribeIgnoresOtherCollections(t *testing.T) {
	s := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, model.CollectionWorkers)
	require.NoError(t, err)
	receive(t, ch)

	require.NoError(t, s.Set(ctx, model.CollectionExpenses, "e1", map[string]any{}))

	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot for %s", snap.Collection)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBoltRepositoryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carwash.db")
	ctx := context.Background()

	r, err := NewBoltRepository(path)
	require.NoError(t, err)
	require.NoError(t, r.Set(ctx, model.CollectionWorkers, "w1", map[string]any{"name": "Ravi"}))
	require.NoError(t, r.Close())

	r, err = NewBoltRepository(path)
	require.NoError(t, err)
	defer r.Close()

	raw, err := r.Get(ctx, model.CollectionWorkers, "w1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"w1","name":"Ravi"}`, string(raw))
}

func TestNewBoltRepositoryRequiresPath(t *testing.T) {
	_, err := NewBoltRepository("  ")
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
		return Snapshot{}
	}
}
