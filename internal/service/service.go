// Package service реализует бизнес-логику консоли автомойки.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/carwash-console/internal/loyalty"
	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Append(ctx context.Context, collection string, doc any) (string, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Remove(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	List(ctx context.Context, collection string) (repository.Snapshot, error)
	Subscribe(ctx context.Context, collection string) (<-chan repository.Snapshot, error)
}

// ValidationError описывает некорректное поле входных данных. Возвращается до любой записи.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Options - необязательные зависимости сервиса.
type Options struct {
	Logger   *zap.Logger
	Location *time.Location
	ShopName string
	Composer *messaging.Composer
	Now      func() time.Time
}

// Service содержит бизнес-логику консоли автомойки.
type Service struct {
	repo     Repository
	logger   *zap.Logger
	loc      *time.Location
	shopName string
	composer *messaging.Composer
	now      func() time.Time

	view atomic.Pointer[loyaltyView]
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		logger:   opts.Logger,
		loc:      opts.Location,
		shopName: opts.ShopName,
		composer: opts.Composer,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.shopName == "" {
		s.shopName = "Four Win Cars"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// ServiceCatalog возвращает прайс-лист мойки.
func (s *Service) ServiceCatalog() []model.ServiceOption {
	return model.ServiceCatalog()
}

func (s *Service) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func (s *Service) messages() (*messaging.Composer, error) {
	if s.composer == nil {
		return nil, fmt.Errorf("messaging is not configured")
	}
	return s.composer, nil
}

// parseDate разбирает дату из входных данных; пустая строка означает сегодняшний день.
func (s *Service) parseDate(field, value string) (model.Date, error) {
	if strings.TrimSpace(value) == "" {
		return s.today(), nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return model.Date{}, invalid(field, "expected YYYY-MM-DD, got %q", value)
	}
	return d, nil
}

func getDoc[T any](ctx context.Context, repo Repository, collection, id string) (T, error) {
	var v T
	raw, err := repo.Get(ctx, collection, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return v, nil
}

func listDocs[T any](ctx context.Context, repo Repository, collection string) ([]T, error) {
	snap, err := repo.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	return repository.Decode[T](snap)
}

// Amount - сумма во входных данных. Принимает JSON-число или строку.
type Amount string

// UnmarshalJSON принимает число, строку или null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	switch {
	case string(data) == "null":
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(data)
	}
	return nil
}

// ledger читает все записи, из которых строятся счета лояльности.
func (s *Service) ledger(ctx context.Context) (loyalty.Ledger, error) {
	var (
		in  loyalty.Ledger
		err error
	)
	if in.Orders, err = listDocs[model.ServiceOrder](ctx, s.repo, model.CollectionServices); err != nil {
		return loyalty.Ledger{}, fmt.Errorf("list services: %w", err)
	}
	if in.Redemptions, err = listDocs[model.RedemptionEvent](ctx, s.repo, model.CollectionRedemptions); err != nil {
		return loyalty.Ledger{}, fmt.Errorf("list redemptions: %w", err)
	}
	if in.Adjustments, err = listDocs[model.PointAdjustment](ctx, s.repo, model.CollectionPointAdjustments); err != nil {
		return loyalty.Ledger{}, fmt.Errorf("list point adjustments: %w", err)
	}
	return in, nil
}
