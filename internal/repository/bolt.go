package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mmeshcher/carwash-console/internal/model"
)

// BoltRepository хранит записи в файле bbolt, по бакету на коллекцию.
type BoltRepository struct {
	db  *bbolt.DB
	hub *hub
}

// NewBoltRepository открывает файл хранилища и создаёт недостающие бакеты.
func NewBoltRepository(path string) (*BoltRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %v", ErrUnavailable, err)
	}

	r := &BoltRepository{db: db}
	r.hub = newHub(r.List)
	if err := r.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

// Close закрывает файл хранилища.
func (r *BoltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Append сохраняет документ под новым идентификатором и возвращает его.
func (r *BoltRepository) Append(ctx context.Context, collection string, doc any) (string, error) {
	id := NewID()
	if err := r.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set записывает документ целиком.
func (r *BoltRepository) Set(ctx context.Context, collection, id string, doc any) error {
	if err := r.check(ctx, collection, id); err != nil {
		return err
	}
	payload, err := encodeDocument(doc, id)
	if err != nil {
		return err
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), payload)
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}

	return r.hub.publish(ctx, collection)
}

// Update заменяет указанные верхнеуровневые поля документа.
func (r *BoltRepository) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := r.check(ctx, collection, id); err != nil {
		return err
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		merged, err := mergeFields(payload, fields)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), merged)
	})
	if err != nil {
		return err
	}

	return r.hub.publish(ctx, collection)
}

// Remove удаляет запись.
func (r *BoltRepository) Remove(ctx context.Context, collection, id string) error {
	if err := r.check(ctx, collection, id); err != nil {
		return err
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return err
	}

	return r.hub.publish(ctx, collection)
}

// Get возвращает документ по идентификатору.
func (r *BoltRepository) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := r.check(ctx, collection, id); err != nil {
		return nil, err
	}

	var out json.RawMessage
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		// Срез bbolt действителен только внутри транзакции.
		out = append(json.RawMessage(nil), payload...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List возвращает снимок коллекции.
func (r *BoltRepository) List(ctx context.Context, collection string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Collection: collection}
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket, err := collectionBucket(tx, collection)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			snap.Records = append(snap.Records, Record{
				ID:   string(k),
				Data: append(json.RawMessage(nil), v...),
			})
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list %s: %w", collection, err)
	}

	// ForEach обходит ключи в порядке байтов, что совпадает с порядком строк.
	return snap, nil
}

// Subscribe возвращает канал снимков коллекции. Первым приходит текущий снимок,
// канал закрывается после отмены ctx.
func (r *BoltRepository) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error) {
	return r.hub.subscribe(ctx, collection)
}

func (r *BoltRepository) check(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil || r.db == nil {
		return fmt.Errorf("%w: storage is not configured", ErrUnavailable)
	}
	if err := checkCollection(collection); err != nil {
		return err
	}
	return checkID(id)
}

func (r *BoltRepository) ensureBuckets() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, collection := range model.Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(collection)); err != nil {
				return fmt.Errorf("create %s bucket: %w", collection, err)
			}
		}
		return nil
	})
}

func collectionBucket(tx *bbolt.Tx, collection string) (*bbolt.Bucket, error) {
	bucket := tx.Bucket([]byte(collection))
	if bucket == nil {
		return nil, fmt.Errorf("%s bucket is missing", collection)
	}
	return bucket, nil
}
