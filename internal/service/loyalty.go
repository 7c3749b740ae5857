package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/loyalty"
	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/repository"
)

// loyaltyView - счета, построенные из последних снимков коллекций.
// Истечение баллов оценивается при чтении.
type loyaltyView struct {
	accounts map[string]model.LoyaltyAccount
}

// StartLoyaltyProjection подписывается на заказы, списания и корректировки и
// пересчитывает счета лояльности при каждом изменении любой из коллекций.
func (s *Service) StartLoyaltyProjection(ctx context.Context) error {
	services, err := s.repo.Subscribe(ctx, model.CollectionServices)
	if err != nil {
		return fmt.Errorf("subscribe services: %w", err)
	}
	redemptions, err := s.repo.Subscribe(ctx, model.CollectionRedemptions)
	if err != nil {
		return fmt.Errorf("subscribe redemptions: %w", err)
	}
	adjustments, err := s.repo.Subscribe(ctx, model.CollectionPointAdjustments)
	if err != nil {
		return fmt.Errorf("subscribe point adjustments: %w", err)
	}

	go func() {
		var (
			in       loyalty.Ledger
			received = make(map[string]bool, 3)
		)

		for {
			var (
				snap repository.Snapshot
				ok   bool
			)
			select {
			case <-ctx.Done():
				return
			case snap, ok = <-services:
			case snap, ok = <-redemptions:
			case snap, ok = <-adjustments:
			}
			if !ok {
				return
			}

			if err := applySnapshot(&in, snap); err != nil {
				s.logger.Error("loyalty projection: skip snapshot",
					zap.String("collection", snap.Collection), zap.Error(err))
				continue
			}
			received[snap.Collection] = true
			if len(received) < 3 {
				continue
			}

			s.view.Store(&loyaltyView{accounts: loyalty.Build(in)})
			s.logger.Debug("loyalty projection updated", zap.String("collection", snap.Collection))
		}
	}()

	return nil
}

func applySnapshot(in *loyalty.Ledger, snap repository.Snapshot) error {
	var err error
	switch snap.Collection {
	case model.CollectionServices:
		var orders []model.ServiceOrder
		if orders, err = repository.Decode[model.ServiceOrder](snap); err == nil {
			in.Orders = orders
		}
	case model.CollectionRedemptions:
		var events []model.RedemptionEvent
		if events, err = repository.Decode[model.RedemptionEvent](snap); err == nil {
			in.Redemptions = events
		}
	case model.CollectionPointAdjustments:
		var adjustments []model.PointAdjustment
		if adjustments, err = repository.Decode[model.PointAdjustment](snap); err == nil {
			in.Adjustments = adjustments
		}
	default:
		err = fmt.Errorf("unexpected collection %q", snap.Collection)
	}
	return err
}

// accounts возвращает счета, оценённые на текущий момент. До первого пересчёта
// проекции счета строятся прямым чтением хранилища.
func (s *Service) accounts(ctx context.Context) (map[string]model.LoyaltyAccount, error) {
	var built map[string]model.LoyaltyAccount
	if v := s.view.Load(); v != nil {
		built = v.accounts
	} else {
		in, err := s.ledger(ctx)
		if err != nil {
			return nil, err
		}
		built = loyalty.Build(in)
	}

	now := s.now()
	out := make(map[string]model.LoyaltyAccount, len(built))
	for key, acc := range built {
		loyalty.Evaluate(&acc, now)
		out[key] = acc
	}
	return out, nil
}

// ListAccounts возвращает счета лояльности, отсортированные по числу визитов.
func (s *Service) ListAccounts(ctx context.Context, search string) ([]model.LoyaltyAccount, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}
	return loyalty.Search(loyalty.Sorted(accounts), search), nil
}

// GetAccount возвращает счёт лояльности автомобиля.
func (s *Service) GetAccount(ctx context.Context, vehicle string) (model.LoyaltyAccount, error) {
	key := model.VehicleKey(vehicle)
	accounts, err := s.accounts(ctx)
	if err != nil {
		return model.LoyaltyAccount{}, err
	}
	acc, ok := accounts[key]
	if !ok {
		return model.LoyaltyAccount{}, fmt.Errorf("%w: loyalty account %s", repository.ErrNotFound, key)
	}
	return acc, nil
}

// freshAccount строит счёт прямо из хранилища, минуя проекцию.
func (s *Service) freshAccount(ctx context.Context, vehicle string) (model.LoyaltyAccount, error) {
	key := model.VehicleKey(vehicle)
	if key == "" {
		return model.LoyaltyAccount{}, invalid("carNumber", "is required")
	}
	in, err := s.ledger(ctx)
	if err != nil {
		return model.LoyaltyAccount{}, err
	}
	acc, ok := loyalty.Accounts(in, s.now())[key]
	if !ok {
		return model.LoyaltyAccount{}, fmt.Errorf("%w: loyalty account %s", repository.ErrNotFound, key)
	}
	return acc, nil
}

// Redeem списывает порог баллов за бесплатную услугу.
// Счёт читается напрямую из хранилища, чтобы повторное списание не прошло по устаревшей проекции.
func (s *Service) Redeem(ctx context.Context, vehicle string) (model.RedemptionEvent, error) {
	acc, err := s.freshAccount(ctx, vehicle)
	if err != nil {
		return model.RedemptionEvent{}, err
	}

	event, err := loyalty.Redeem(acc, s.now())
	if err != nil {
		return model.RedemptionEvent{}, err
	}

	id, err := s.repo.Append(ctx, model.CollectionRedemptions, event)
	if err != nil {
		return model.RedemptionEvent{}, fmt.Errorf("append redemption: %w", err)
	}
	event.ID = id

	s.logger.Info("free service redeemed",
		zap.String("vehicle", event.VehicleNumber),
		zap.Int64("previous_points", event.PreviousPoints),
		zap.Int64("new_points", event.NewPoints))
	return event, nil
}

// AdjustInput - ручная корректировка баллов.
type AdjustInput struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note"`
}

// AdjustPoints добавляет корректировку баллов к счёту.
func (s *Service) AdjustPoints(ctx context.Context, vehicle string, in AdjustInput) (model.PointAdjustment, error) {
	if in.Delta == 0 {
		return model.PointAdjustment{}, invalid("delta", "must not be zero")
	}
	acc, err := s.freshAccount(ctx, vehicle)
	if err != nil {
		return model.PointAdjustment{}, err
	}

	adj := model.PointAdjustment{
		VehicleNumber: acc.VehicleNumber,
		Delta:         in.Delta,
		Note:          strings.TrimSpace(in.Note),
		Date:          s.now(),
	}
	id, err := s.repo.Append(ctx, model.CollectionPointAdjustments, adj)
	if err != nil {
		return model.PointAdjustment{}, fmt.Errorf("append point adjustment: %w", err)
	}
	adj.ID = id
	return adj, nil
}

// ExpiringAccounts возвращает счета, баллы которых скоро сгорят.
func (s *Service) ExpiringAccounts(ctx context.Context) ([]model.LoyaltyAccount, error) {
	accounts, err := s.ListAccounts(ctx, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	return aggregate.Filter(accounts, func(acc model.LoyaltyAccount) bool {
		return acc.Points > 0 && loyalty.ExpiringSoon(acc, now)
	}), nil
}

// LoyaltyReminder собирает напоминание клиенту о сгорающих баллах.
func (s *Service) LoyaltyReminder(ctx context.Context, vehicle string) (messaging.Message, error) {
	composer, err := s.messages()
	if err != nil {
		return messaging.Message{}, err
	}
	acc, err := s.GetAccount(ctx, vehicle)
	if err != nil {
		return messaging.Message{}, err
	}
	msg, err := composer.LoyaltyReminder(acc)
	if err != nil {
		return messaging.Message{}, invalid("phone", "%v", err)
	}
	return msg, nil
}
