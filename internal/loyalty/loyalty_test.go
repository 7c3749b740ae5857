package loyalty

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/carwash-console/internal/model"
)

func order(id, vehicle, date string, amount int64) model.ServiceOrder {
	return model.ServiceOrder{
		ID:            id,
		VehicleNumber: vehicle,
		CustomerName:  "customer " + id,
		Phone:         "98765" + id,
		Date:          model.MustParseDate(date),
		LineItems:     []model.LineItem{{Type: "basic", Amount: decimal.NewFromInt(amount)}},
		Status:        model.OrderStatusCompleted,
	}
}

func visits(vehicle string, n int, first model.Date) []model.ServiceOrder {
	out := make([]model.ServiceOrder, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, order(fmt.Sprintf("%s-%02d", vehicle, i), vehicle, first.AddDays(i).String(), 300))
	}
	return out
}

func TestTierForBoundaries(t *testing.T) {
	tests := []struct {
		visits int
		want   model.Tier
	}{
		{visits: -1, want: model.TierRegular},
		{visits: 0, want: model.TierRegular},
		{visits: 2, want: model.TierRegular},
		{visits: 3, want: model.TierBronze},
		{visits: 4, want: model.TierBronze},
		{visits: 5, want: model.TierSilver},
		{visits: 7, want: model.TierSilver},
		{visits: 8, want: model.TierGold},
		{visits: 9, want: model.TierGold},
		{visits: 10, want: model.TierPlatinum},
		{visits: 25, want: model.TierPlatinum},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d visits", tt.visits), func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.visits))
		})
	}
}

func TestBuildGroupsCaseInsensitively(t *testing.T) {
	orders := []model.ServiceOrder{
		order("1", "mh12ab1234", "2024-01-01", 300),
		order("2", "MH12AB1234", "2024-01-10", 400),
		order("3", " Mh12Ab1234 ", "2024-01-05", 100),
		order("4", "KA01ZZ0001", "2024-01-02", 250),
	}

	accounts := Build(Ledger{Orders: orders})

	require.Len(t, accounts, 2)
	acc := accounts["MH12AB1234"]
	assert.Equal(t, 3, acc.VisitCount)
	assert.True(t, decimal.NewFromInt(800).Equal(acc.TotalSpent))
	assert.Equal(t, int64(150), acc.Points)
	assert.Equal(t, model.TierBronze, acc.Tier)

	total := 0
	for _, a := range accounts {
		total += a.VisitCount
	}
	assert.Equal(t, len(orders), total)
}

func TestBuildUsesStoredTotalWhenPresent(t *testing.T) {
	stored := decimal.NewFromInt(1000)
	o := order("1", "X1", "2024-01-01", 300)
	o.TotalAmount = &stored
	o2 := order("2", "X1", "2024-01-02", 300)
	o2.OtherCharges = decimal.NewFromInt(20)

	acc := Build(Ledger{Orders: []model.ServiceOrder{o, o2}})["X1"]

	assert.True(t, decimal.NewFromInt(1320).Equal(acc.TotalSpent), acc.TotalSpent.String())
}

func TestBuildPicksNameFromMostRecentOrder(t *testing.T) {
	older := order("a", "X1", "2024-02-01", 300)
	older.CustomerName = "Old Name"
	newer := order("b", "X1", "2024-03-01", 300)
	newer.CustomerName = "New Name"
	newer.Phone = "111"
	sameDayLater := order("c", "X1", "2024-03-01", 300)
	sameDayLater.CustomerName = "Latest Name"
	sameDayLater.Phone = "222"
	sameDayLater.Timestamp = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	newer.Timestamp = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, orders := range [][]model.ServiceOrder{
		{older, newer, sameDayLater},
		{sameDayLater, older, newer},
		{newer, sameDayLater, older},
	} {
		acc := Build(Ledger{Orders: orders})["X1"]
		assert.Equal(t, "Latest Name", acc.Name)
		assert.Equal(t, "222", acc.Phone)
		assert.Equal(t, "c", acc.Orders[0].ID)
		assert.Equal(t, "a", acc.Orders[2].ID)
	}
}

func TestBuildDeductsRedemptionsAndAppliesAdjustments(t *testing.T) {
	orders := visits("X1", 9, model.MustParseDate("2024-01-01"))
	ledger := Ledger{
		Orders: orders,
		Redemptions: []model.RedemptionEvent{
			{VehicleNumber: "x1", PointsRedeemed: FreeServiceThreshold},
			{VehicleNumber: "NOBODY", PointsRedeemed: FreeServiceThreshold},
		},
		Adjustments: []model.PointAdjustment{
			{VehicleNumber: "X1", Delta: 30},
			{VehicleNumber: "X1", Delta: -10},
		},
	}

	accounts := Build(ledger)

	require.Len(t, accounts, 1, "redemptions without orders do not create accounts")
	acc := accounts["X1"]
	assert.Equal(t, int64(9*50-400+20), acc.Points)
	assert.Equal(t, 1, acc.RedemptionCount)
	assert.Equal(t, model.TierGold, acc.Tier, "effective visits are 8")
}

func TestPointsExpiryIsLatestVisitPlusValidity(t *testing.T) {
	orders := []model.ServiceOrder{
		order("1", "X1", "2024-01-01", 300),
		order("2", "X1", "2024-03-01", 300),
		order("3", "X1", "2024-02-01", 300),
	}
	acc := Build(Ledger{Orders: orders})["X1"]

	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), acc.PointsExpiry)

	Evaluate(&acc, time.Date(2024, 4, 29, 12, 0, 0, 0, time.UTC))
	assert.False(t, acc.PointsExpired)

	Evaluate(&acc, time.Date(2024, 4, 30, 0, 0, 1, 0, time.UTC))
	assert.True(t, acc.PointsExpired)
}

func TestEligibility(t *testing.T) {
	start := model.MustParseDate("2024-01-01")
	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	seven := Accounts(Ledger{Orders: visits("X1", 7, start)}, now)["X1"]
	assert.Equal(t, int64(350), seven.Points)
	assert.False(t, seven.EligibleForFreeService)

	eight := Accounts(Ledger{Orders: visits("X1", 8, start)}, now)["X1"]
	assert.Equal(t, int64(400), eight.Points)
	assert.True(t, eight.EligibleForFreeService)

	expired := Accounts(Ledger{Orders: visits("X1", 8, start)}, now.AddDate(0, 6, 0))["X1"]
	assert.True(t, expired.PointsExpired)
	assert.False(t, expired.EligibleForFreeService)
}

func TestRedeem(t *testing.T) {
	start := model.MustParseDate("2024-01-01")
	now := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	ledger := Ledger{Orders: visits("X1", 8, start)}

	acc := Accounts(ledger, now)["X1"]
	event, err := Redeem(acc, now)
	require.NoError(t, err)

	assert.Equal(t, "X1", event.VehicleNumber)
	assert.Equal(t, int64(FreeServiceThreshold), event.PointsRedeemed)
	assert.Equal(t, int64(400), event.PreviousPoints)
	assert.Equal(t, int64(0), event.NewPoints)
	assert.Equal(t, model.TierGold, event.PreviousTier)
	assert.Equal(t, model.TierSilver, event.NewTier)
	assert.Equal(t, now, event.Date)

	// Повторное списание без новых визитов отклоняется.
	ledger.Redemptions = append(ledger.Redemptions, event)
	acc = Accounts(ledger, now)["X1"]
	assert.Equal(t, int64(0), acc.Points)
	_, err = Redeem(acc, now)
	assert.True(t, errors.Is(err, ErrNotEligible))
}

func TestRedeemRejectsExpiredPoints(t *testing.T) {
	acc := Build(Ledger{Orders: visits("X1", 10, model.MustParseDate("2023-01-01"))})["X1"]

	_, err := Redeem(acc, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestDisplayPointsClampsAtZero(t *testing.T) {
	acc := Build(Ledger{
		Orders:      visits("X1", 1, model.MustParseDate("2024-01-01")),
		Adjustments: []model.PointAdjustment{{VehicleNumber: "X1", Delta: -120}},
	})["X1"]

	assert.Equal(t, int64(-70), acc.Points)
	assert.Equal(t, int64(0), acc.DisplayPoints())
}

func TestExpiringSoon(t *testing.T) {
	acc := Build(Ledger{Orders: []model.ServiceOrder{order("1", "X1", "2024-01-01", 300)}})["X1"]
	// Срок действия: 2024-03-01.
	assert.False(t, ExpiringSoon(acc, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ExpiringSoon(acc, time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)))
	assert.False(t, ExpiringSoon(acc, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestSortedAndSearch(t *testing.T) {
	orders := append(visits("B2", 2, model.MustParseDate("2024-01-01")), visits("A1", 2, model.MustParseDate("2024-01-01"))...)
	orders = append(orders, visits("C3", 5, model.MustParseDate("2024-01-01"))...)
	orders[0].CustomerName = "Suresh"
	orders[1].CustomerName = "Suresh"

	sorted := Sorted(Build(Ledger{Orders: orders}))
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"C3", "A1", "B2"}, []string{sorted[0].VehicleNumber, sorted[1].VehicleNumber, sorted[2].VehicleNumber})

	assert.Len(t, Search(sorted, "sure"), 1)
	assert.Len(t, Search(sorted, "c3"), 1)
	assert.Len(t, Search(sorted, ""), 3)
}

func TestTierCounts(t *testing.T) {
	orders := append(visits("A1", 1, model.MustParseDate("2024-01-01")), visits("B2", 3, model.MustParseDate("2024-01-01"))...)
	orders = append(orders, visits("C3", 10, model.MustParseDate("2024-01-01"))...)

	counts := TierCounts(Build(Ledger{Orders: orders}), 2)

	assert.Equal(t, 0, counts[model.TierRegular])
	assert.Equal(t, 1, counts[model.TierBronze])
	assert.Equal(t, 1, counts[model.TierPlatinum])
	assert.Equal(t, 0, counts[model.TierGold])
}
