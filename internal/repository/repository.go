// Package repository содержит хранилища записей консоли: в памяти, в файле bbolt и в PostgreSQL.
//
// Хранилище оперирует коллекциями JSON-документов вида collection/id. Все реализации
// поддерживают подписку на полные снимки коллекции.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/carwash-console/internal/model"
)

var (
	// ErrNotFound возвращается, если записи с таким идентификатором нет.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable возвращается, если хранилище недоступно.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrUnknownCollection возвращается для коллекции, которую консоль не использует.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Record - документ коллекции.
type Record struct {
	ID   string
	Data json.RawMessage
}

// Snapshot - полное содержимое коллекции на момент чтения, записи упорядочены по ID.
type Snapshot struct {
	Collection string
	Records    []Record
}

// Decode разбирает документы снимка в значения типа T.
func Decode[T any](s Snapshot) ([]T, error) {
	out := make([]T, 0, len(s.Records))
	for _, rec := range s.Records {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", s.Collection, rec.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NewID генерирует идентификатор новой записи.
func NewID() string {
	return uuid.NewString()
}

func checkCollection(collection string) error {
	if !slices.Contains(model.Collections, collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("record id is required")
	}
	return nil
}

// encodeDocument сериализует документ и записывает в него поле id.
func encodeDocument(doc any, id string) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return mergeFields(payload, map[string]any{"id": id})
}

// mergeFields заменяет верхнеуровневые поля документа, остальные оставляет как есть.
func mergeFields(payload []byte, fields map[string]any) ([]byte, error) {
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", k, err)
		}
		doc[k] = raw
	}
	return json.Marshal(doc)
}

func sortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })
}
