// Package loyalty вычисляет состояние программы лояльности по истории заказов.
//
// Баллы нигде не хранятся: баланс каждый раз выводится из заказов, списаний
// и ручных корректировок. Функции пакета чистые и не обращаются к хранилищу.
package loyalty

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/model"
)

// Параметры программы лояльности.
const (
	PointsPerService     = 50
	FreeServiceThreshold = 400
	PointsValidityDays   = 60
	ExpiryWarningDays    = 7
)

// ErrNotEligible возвращается при попытке списать баллы у клиента, не набравшего порог.
var ErrNotEligible = errors.New("account is not eligible for a free service")

type tierThreshold struct {
	minVisits int
	tier      model.Tier
}

// tierThresholds упорядочены по убыванию порога: побеждает первый выполненный.
var tierThresholds = []tierThreshold{
	{minVisits: 10, tier: model.TierPlatinum},
	{minVisits: 8, tier: model.TierGold},
	{minVisits: 5, tier: model.TierSilver},
	{minVisits: 3, tier: model.TierBronze},
}

// TierFor возвращает уровень для числа визитов за вычетом списаний.
func TierFor(effectiveVisits int) model.Tier {
	for _, t := range tierThresholds {
		if effectiveVisits >= t.minVisits {
			return t.tier
		}
	}
	return model.TierRegular
}

// Tiers возвращает все уровни от младшего к старшему.
func Tiers() []model.Tier {
	return []model.Tier{model.TierRegular, model.TierBronze, model.TierSilver, model.TierGold, model.TierPlatinum}
}

// Ledger - исходные данные для расчёта: полные коллекции без фильтрации.
type Ledger struct {
	Orders      []model.ServiceOrder
	Redemptions []model.RedemptionEvent
	Adjustments []model.PointAdjustment
}

// Build группирует заказы по номеру автомобиля и считает баланс, уровень и срок действия баллов.
// Поля, зависящие от текущего времени, не заполняются: для них вызывается Evaluate.
func Build(in Ledger) map[string]model.LoyaltyAccount {
	byVehicle := aggregate.GroupBy(in.Orders, func(o model.ServiceOrder) string {
		return model.VehicleKey(o.VehicleNumber)
	})
	redemptions := aggregate.GroupBy(in.Redemptions, func(r model.RedemptionEvent) string {
		return model.VehicleKey(r.VehicleNumber)
	})
	adjustments := aggregate.GroupBy(in.Adjustments, func(a model.PointAdjustment) string {
		return model.VehicleKey(a.VehicleNumber)
	})

	accounts := make(map[string]model.LoyaltyAccount, len(byVehicle))
	for key, orders := range byVehicle {
		if key == "" {
			continue
		}
		accounts[key] = buildAccount(key, orders, redemptions[key], adjustments[key])
	}
	return accounts
}

func buildAccount(key string, orders []model.ServiceOrder, redemptions []model.RedemptionEvent, adjustments []model.PointAdjustment) model.LoyaltyAccount {
	orders = slices.Clone(orders)
	slices.SortFunc(orders, model.NewestOrderFirst)

	acc := model.LoyaltyAccount{
		VehicleNumber:   key,
		Name:            orders[0].CustomerName,
		Phone:           orders[0].Phone,
		VisitCount:      len(orders),
		RedemptionCount: len(redemptions),
		TotalSpent:      aggregate.Sum(orders, model.ServiceOrder.EffectiveTotal),
		Orders:          orders,
	}

	points := int64(len(orders)) * PointsPerService
	for _, r := range redemptions {
		points -= r.PointsRedeemed
	}
	for _, a := range adjustments {
		points += a.Delta
	}
	acc.Points = points
	acc.Tier = TierFor(acc.EffectiveVisits())

	for _, o := range orders {
		if o.Date.IsZero() {
			continue
		}
		expiry := o.Date.AddDays(PointsValidityDays).Time()
		if expiry.After(acc.PointsExpiry) {
			acc.PointsExpiry = expiry
		}
	}

	acc.Redemptions = slices.Clone(redemptions)
	slices.SortStableFunc(acc.Redemptions, func(a, b model.RedemptionEvent) int {
		return b.Date.Compare(a.Date)
	})
	acc.Adjustments = slices.Clone(adjustments)
	slices.SortStableFunc(acc.Adjustments, func(a, b model.PointAdjustment) int {
		return b.Date.Compare(a.Date)
	})

	return acc
}

// Evaluate заполняет поля, зависящие от момента чтения: истечение баллов и право на бесплатную услугу.
func Evaluate(acc *model.LoyaltyAccount, now time.Time) {
	acc.PointsExpired = !acc.PointsExpiry.IsZero() && acc.PointsExpiry.Before(now)
	acc.EligibleForFreeService = acc.Points >= FreeServiceThreshold && !acc.PointsExpired
}

// Accounts строит и оценивает все счета на момент now.
func Accounts(in Ledger, now time.Time) map[string]model.LoyaltyAccount {
	accounts := Build(in)
	for key, acc := range accounts {
		Evaluate(&acc, now)
		accounts[key] = acc
	}
	return accounts
}

// Sorted возвращает счета по убыванию числа визитов, при равенстве - по номеру автомобиля.
func Sorted(accounts map[string]model.LoyaltyAccount) []model.LoyaltyAccount {
	out := make([]model.LoyaltyAccount, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc)
	}
	slices.SortFunc(out, func(a, b model.LoyaltyAccount) int {
		if c := cmp.Compare(b.VisitCount, a.VisitCount); c != 0 {
			return c
		}
		return strings.Compare(a.VehicleNumber, b.VehicleNumber)
	})
	return out
}

// Search отбирает счета, у которых имя или номер автомобиля содержат строку без учёта регистра.
func Search(accounts []model.LoyaltyAccount, term string) []model.LoyaltyAccount {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return accounts
	}
	return aggregate.Filter(accounts, func(a model.LoyaltyAccount) bool {
		return strings.Contains(strings.ToLower(a.Name), term) ||
			strings.Contains(strings.ToLower(a.VehicleNumber), term)
	})
}

// ExpiringSoon сообщает, истекают ли баллы в ближайшие ExpiryWarningDays дней.
func ExpiringSoon(acc model.LoyaltyAccount, now time.Time) bool {
	if acc.PointsExpiry.IsZero() || !acc.PointsExpiry.After(now) {
		return false
	}
	return acc.PointsExpiry.Sub(now) <= ExpiryWarningDays*24*time.Hour
}

// Redeem формирует событие списания порога баллов за бесплатную услугу.
// Счёт не изменяется: новое состояние получится при следующем пересчёте.
func Redeem(acc model.LoyaltyAccount, now time.Time) (model.RedemptionEvent, error) {
	Evaluate(&acc, now)
	if !acc.EligibleForFreeService {
		return model.RedemptionEvent{}, fmt.Errorf("%w: %s has %d points, expired=%t",
			ErrNotEligible, acc.VehicleNumber, acc.Points, acc.PointsExpired)
	}

	return model.RedemptionEvent{
		VehicleNumber:  acc.VehicleNumber,
		CustomerName:   acc.Name,
		PointsRedeemed: FreeServiceThreshold,
		Date:           now,
		PreviousPoints: acc.Points,
		NewPoints:      acc.Points - FreeServiceThreshold,
		PreviousTier:   acc.Tier,
		NewTier:        TierFor(acc.EffectiveVisits() - 1),
	}, nil
}

// TierCounts считает клиентов каждого уровня среди счетов с числом визитов не меньше minVisits.
func TierCounts(accounts map[string]model.LoyaltyAccount, minVisits int) map[model.Tier]int {
	counts := make(map[model.Tier]int, len(tierThresholds)+1)
	for _, tier := range Tiers() {
		counts[tier] = 0
	}
	for _, acc := range accounts {
		if acc.VisitCount >= minVisits {
			counts[acc.Tier]++
		}
	}
	return counts
}
