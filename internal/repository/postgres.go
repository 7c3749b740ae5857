package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/carwash-console/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// notifyChannel - канал LISTEN/NOTIFY, в который триггер таблицы records пишет имя коллекции.
const notifyChannel = "records_changed"

// PostgresRepository хранит записи в таблице records с JSONB-документами.
type PostgresRepository struct {
	pool *pgxpool.Pool
	hub  *hub
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrUnavailable, err)
	}

	r := &PostgresRepository{pool: pool}
	r.hub = newHub(r.List)

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[i]):
		}
	}

	if isConnectionError(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Append сохраняет документ под новым идентификатором и возвращает его.
func (r *PostgresRepository) Append(ctx context.Context, collection string, doc any) (string, error) {
	id := NewID()
	if err := r.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set записывает документ целиком.
func (r *PostgresRepository) Set(ctx context.Context, collection, id string, doc any) error {
	if err := check(collection, id); err != nil {
		return err
	}
	payload, err := encodeDocument(doc, id)
	if err != nil {
		return err
	}

	err = r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO records (collection, id, doc) VALUES ($1, $2, $3::jsonb)
			 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
			collection, id, string(payload),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update заменяет указанные верхнеуровневые поля документа.
func (r *PostgresRepository) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := check(collection, id); err != nil {
		return err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	var affected int64
	err = r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE records SET doc = doc || $3::jsonb, updated_at = now()
			 WHERE collection = $1 AND id = $2`,
			collection, id, string(payload),
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

// Remove удаляет запись.
func (r *PostgresRepository) Remove(ctx context.Context, collection, id string) error {
	if err := check(collection, id); err != nil {
		return err
	}

	var affected int64
	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM records WHERE collection = $1 AND id = $2`,
			collection, id,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

// Get возвращает документ по идентификатору.
func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := check(collection, id); err != nil {
		return nil, err
	}

	var doc []byte
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT doc FROM records WHERE collection = $1 AND id = $2`,
			collection, id,
		).Scan(&doc)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// List возвращает снимок коллекции.
func (r *PostgresRepository) List(ctx context.Context, collection string) (Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Collection: collection}
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, doc FROM records WHERE collection = $1 ORDER BY id`,
			collection,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		snap.Records = snap.Records[:0]
		for rows.Next() {
			var rec Record
			var doc []byte
			if err := rows.Scan(&rec.ID, &doc); err != nil {
				return fmt.Errorf("scan record: %w", err)
			}
			rec.Data = doc
			snap.Records = append(snap.Records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list %s: %w", collection, err)
	}
	return snap, nil
}

// Subscribe возвращает канал снимков коллекции. Первым приходит текущий снимок,
// канал закрывается после отмены ctx. Новые снимки приходят, пока работает Listen.
func (r *PostgresRepository) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error) {
	return r.hub.subscribe(ctx, collection)
}

// Listen слушает уведомления об изменении записей и рассылает снимки подписчикам.
// При потере соединения переподключается и рассылает снимки всех коллекций заново.
func (r *PostgresRepository) Listen(ctx context.Context) error {
	for {
		err := r.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !isConnectionError(err) {
			return fmt.Errorf("listen %s: %w", notifyChannel, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (r *PostgresRepository) listen(ctx context.Context) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	// Пока соединения не было, уведомления могли потеряться.
	for _, collection := range model.Collections {
		if err := r.hub.publish(ctx, collection); err != nil {
			return err
		}
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := checkCollection(n.Payload); err != nil {
			continue
		}
		if err := r.hub.publish(ctx, n.Payload); err != nil {
			return err
		}
	}
}

func check(collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	return checkID(id)
}
