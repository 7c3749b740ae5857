package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/carwash-console/internal/loyalty"
	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/report"
	"github.com/mmeshcher/carwash-console/internal/repository"
)

var testNow = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	composer, err := messaging.NewComposer("91", "Four Win Cars")
	require.NoError(t, err)
	svc := NewService(repo, Options{
		Composer: composer,
		Now:      func() time.Time { return testNow },
	})
	t.Cleanup(func() { _ = svc.Close() })
	return svc, repo
}

func validOrder(vehicle string) OrderInput {
	return OrderInput{
		VehicleNumber: vehicle,
		CustomerName:  "Arjun",
		Phone:         "+91 98765 43210",
		Seater:        "5",
		Date:          "2026-06-15",
		LineItems:     []LineItemInput{{Type: "basic", Amount: "300"}},
	}
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Equal(t, field, verr.Field)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(*OrderInput)
		field  string
	}{
		{"missing vehicle", func(in *OrderInput) { in.VehicleNumber = " " }, "carNumber"},
		{"bad vehicle", func(in *OrderInput) { in.VehicleNumber = "ABCDEF" }, "carNumber"},
		{"missing name", func(in *OrderInput) { in.CustomerName = "" }, "name"},
		{"bad phone", func(in *OrderInput) { in.Phone = "12345" }, "phone"},
		{"bad seater", func(in *OrderInput) { in.Seater = "9" }, "seater"},
		{"bad date", func(in *OrderInput) { in.Date = "15/06/2026" }, "date"},
		{"no services", func(in *OrderInput) { in.LineItems = nil }, "services"},
		{"negative amount", func(in *OrderInput) { in.LineItems[0].Amount = "-1" }, "services[0].amount"},
		{"bad status", func(in *OrderInput) { in.Status = "archived" }, "status"},
		{"bad payment", func(in *OrderInput) { in.PaymentMode = "cheque" }, "paymentMode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validOrder("MH12AB1234")
			tt.modify(&in)
			_, err := svc.CreateOrder(ctx, in)
			requireValidation(t, err, tt.field)
		})
	}

	snap, err := repo.List(ctx, model.CollectionServices)
	require.NoError(t, err)
	assert.Empty(t, snap.Records, "invalid input must not be written")
}

func TestCreateOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := validOrder(" mh12ab1234 ")
	in.Seater = "7"
	in.Date = ""
	in.LineItems = []LineItemInput{{Type: "basic"}, {Type: "interior", Amount: "150"}}
	in.OtherCharges = "50"

	o, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "MH12AB1234", o.VehicleNumber)
	assert.Equal(t, "9876543210", o.Phone)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, "2026-06-15", o.Date.String())
	assert.True(t, o.LineItems[0].Amount.Equal(decimal.NewFromInt(400)), "price taken from the 7-seater catalog")
	require.NotNil(t, o.TotalAmount)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(600)), "got %s", o.TotalAmount)

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.VehicleNumber, got.VehicleNumber)
	assert.True(t, got.Timestamp.Equal(testNow))
}

func TestUpdateOrderKeepsIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, validOrder("MH12AB1234"))
	require.NoError(t, err)

	in := validOrder("MH12AB1234")
	in.Date = ""
	in.Status = model.OrderStatusCompleted
	in.Notes = "wax"
	updated, err := svc.UpdateOrder(ctx, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, o.ID, updated.ID)
	assert.Equal(t, model.OrderStatusCompleted, updated.Status)
	assert.True(t, updated.Date.Equal(o.Date))

	_, err = svc.UpdateOrder(ctx, "missing", in)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListOrdersFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := validOrder("MH12AB1234")
	first.Date = "2026-06-10"
	_, err := svc.CreateOrder(ctx, first)
	require.NoError(t, err)

	second := validOrder("KA01XY9999")
	second.CustomerName = "Meera"
	second.Status = model.OrderStatusCompleted
	_, err = svc.CreateOrder(ctx, second)
	require.NoError(t, err)

	all, err := svc.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "KA01XY9999", all[0].VehicleNumber, "newest first")

	completed, err := svc.ListOrders(ctx, OrderFilter{Status: model.OrderStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)

	byName, err := svc.ListOrders(ctx, OrderFilter{Search: "arj"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "MH12AB1234", byName[0].VehicleNumber)

	byDate, err := svc.ListOrders(ctx, OrderFilter{Date: "2026-06-10"})
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	_, err = svc.ListOrders(ctx, OrderFilter{Status: "archived"})
	requireValidation(t, err, "status")

	history, err := svc.CustomerHistory(ctx, "mh12ab1234")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSetOrderStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, validOrder("MH12AB1234"))
	require.NoError(t, err)

	require.NoError(t, svc.SetOrderStatus(ctx, o.ID, model.OrderStatusInProgress))
	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, got.Status)
	assert.Len(t, got.LineItems, 1)

	requireValidation(t, svc.SetOrderStatus(ctx, o.ID, "done"), "status")
	assert.ErrorIs(t, svc.SetOrderStatus(ctx, "missing", model.OrderStatusCompleted), repository.ErrNotFound)

	require.NoError(t, svc.DeleteOrder(ctx, o.ID))
	_, err = svc.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func createVisits(t *testing.T, svc *Service, vehicle string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.CreateOrder(context.Background(), validOrder(vehicle))
		require.NoError(t, err)
	}
}

func TestRedeemOnlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createVisits(t, svc, "MH12AB1234", 8)

	acc, err := svc.GetAccount(ctx, "mh12ab1234")
	require.NoError(t, err)
	assert.Equal(t, int64(400), acc.Points)
	assert.True(t, acc.EligibleForFreeService)

	event, err := svc.Redeem(ctx, "MH12AB1234")
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, int64(400), event.PreviousPoints)
	assert.Equal(t, int64(0), event.NewPoints)

	_, err = svc.Redeem(ctx, "MH12AB1234")
	assert.ErrorIs(t, err, loyalty.ErrNotEligible)

	acc, err = svc.GetAccount(ctx, "MH12AB1234")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Points)
	assert.Equal(t, 1, acc.RedemptionCount)

	_, err = svc.Redeem(ctx, "KA01XY9999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdjustPoints(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createVisits(t, svc, "MH12AB1234", 2)

	_, err := svc.AdjustPoints(ctx, "MH12AB1234", AdjustInput{})
	requireValidation(t, err, "delta")

	_, err = svc.AdjustPoints(ctx, "KA01XY9999", AdjustInput{Delta: 10})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	adj, err := svc.AdjustPoints(ctx, "mh12ab1234", AdjustInput{Delta: -30, Note: " goodwill "})
	require.NoError(t, err)
	assert.Equal(t, "MH12AB1234", adj.VehicleNumber)
	assert.Equal(t, "goodwill", adj.Note)

	acc, err := svc.GetAccount(ctx, "MH12AB1234")
	require.NoError(t, err)
	assert.Equal(t, int64(70), acc.Points)
}

func TestLoyaltyProjectionFollowsWrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.StartLoyaltyProjection(ctx))
	createVisits(t, svc, "MH12AB1234", 3)

	assert.Eventually(t, func() bool {
		acc, err := svc.GetAccount(ctx, "MH12AB1234")
		return err == nil && acc.VisitCount == 3
	}, time.Second, 10*time.Millisecond)

	accounts, err := svc.ListAccounts(ctx, "mh12")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, model.TierBronze, accounts[0].Tier)
}

func TestInvoiceRightAfterCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.StartLoyaltyProjection(ctx))

	for i := range 20 {
		vehicle := fmt.Sprintf("MH12AB%04d", i)
		o, err := svc.CreateOrder(ctx, validOrder(vehicle))
		require.NoError(t, err)

		doc, err := svc.Invoice(ctx, o.ID)
		require.NoError(t, err, "invoice for %s", vehicle)
		assert.NotEmpty(t, doc.Body)
		assert.True(t, strings.HasPrefix(doc.Filename, "Invoice_"+vehicle), doc.Filename)
	}
}

func TestLoyaltyReminder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	createVisits(t, svc, "MH12AB1234", 1)

	msg, err := svc.LoyaltyReminder(ctx, "MH12AB1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Link, "https://wa.me/919876543210?text="), msg.Link)
	assert.Contains(t, msg.Text, "Arjun")
}

func validWorker() WorkerInput {
	return WorkerInput{
		Name:     "Ravi",
		Age:      28,
		Phone:    "9876501234",
		Role:     "washer",
		Category: "full-time",
		Salary:   "30000",
		JoinDate: "2026-01-05",
	}
}

func TestWorkerPayroll(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateWorker(ctx, WorkerInput{Name: "Ravi", Phone: "9876501234"})
	requireValidation(t, err, "salary")

	w, err := svc.CreateWorker(ctx, validWorker())
	require.NoError(t, err)
	require.Len(t, w.Attendance[model.MonthKey{Year: 2026, Month: time.June}], 30)

	att, err := svc.SetMonthAttendance(ctx, w.ID, "2026-6", model.AttendancePresent)
	require.NoError(t, err)
	assert.Equal(t, model.AttendancePresent, att[30])

	next, err := svc.ToggleAttendance(ctx, w.ID, "2026-6", 1)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceAbsent, next)

	_, err = svc.ToggleAttendance(ctx, w.ID, "2026-6", 31)
	requireValidation(t, err, "day")

	_, err = svc.AddAdvance(ctx, w.ID, AdvanceInput{Amount: "-5"})
	requireValidation(t, err, "amount")
	_, err = svc.AddAdvance(ctx, w.ID, AdvanceInput{Amount: "0"})
	requireValidation(t, err, "amount")

	adv, err := svc.AddAdvance(ctx, w.ID, AdvanceInput{Amount: "5000"})
	require.NoError(t, err)
	assert.NotEmpty(t, adv.Note)

	summary, err := svc.Payroll(ctx, w.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 29, summary.PresentDays)
	assert.Equal(t, 1, summary.AbsentDays)
	assert.True(t, summary.BasePayment.Equal(decimal.NewFromInt(29000)), "got %s", summary.BasePayment)
	assert.True(t, summary.TotalAdvances.Equal(decimal.NewFromInt(5000)))
	assert.True(t, summary.FinalPayment.Equal(decimal.NewFromInt(24000)), "got %s", summary.FinalPayment)

	stored, err := svc.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Advances, 1, "rejected advances are not stored")

	updated, err := svc.UpdateWorker(ctx, w.ID, WorkerInput{Name: "Ravi Kumar", Phone: "9876501234", Salary: "32000"})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", updated.JoinDate.String())
	stored, err = svc.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Advances, 1)
	assert.Equal(t, "Ravi Kumar", stored.Name)

	require.NoError(t, svc.DeleteWorker(ctx, w.ID))
	snap, err := repo.List(ctx, model.CollectionWorkers)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
}

func TestWorkerMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.CreateWorker(ctx, validWorker())
	require.NoError(t, err)

	msg, err := svc.WorkerMessage(ctx, w.ID, WorkerMessageInput{Template: messaging.TemplateTaskAssignment, Due: "2026-06-20"})
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "assigned task")
	assert.Contains(t, msg.Text, "2026-06-20")
	assert.True(t, strings.HasPrefix(msg.Link, "https://wa.me/919876501234?text="))

	_, err = svc.WorkerMessage(ctx, w.ID, WorkerMessageInput{Template: "greeting"})
	requireValidation(t, err, "template")
}

func TestExpenses(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateExpense(ctx, ExpenseInput{Description: "rod", Amount: "100", Category: "fuel"})
	requireValidation(t, err, "category")
	_, err = svc.CreateExpense(ctx, ExpenseInput{Description: "rod", Amount: "0"})
	requireValidation(t, err, "amount")

	e, err := svc.CreateExpense(ctx, ExpenseInput{Description: "bulb", Amount: "120"})
	require.NoError(t, err)
	assert.Equal(t, "misc", e.Category)
	assert.Equal(t, "2026-06-15", e.Date.String())

	_, err = svc.CreateExpense(ctx, ExpenseInput{Description: "welding rod", Amount: "80", Category: "Welding"})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, ExpenseInput{Description: "bill", Amount: "900", Category: "utilities", Date: "2026-06-01"})
	require.NoError(t, err)

	total, err := svc.DailyExpenseTotal(ctx, "")
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(200)), "got %s", total)

	list, err := svc.ListExpenses(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "bill", list[2].Description)

	updated, err := svc.UpdateExpense(ctx, e.ID, ExpenseInput{Description: "LED bulb", Amount: "150", Category: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "2026-06-15", updated.Date.String())

	require.NoError(t, svc.DeleteExpense(ctx, e.ID))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, e.ID), repository.ErrNotFound)
}

func TestReport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createVisits(t, svc, "MH12AB1234", 2)
	old := validOrder("KA01XY9999")
	old.Date = "2025-01-01"
	_, err := svc.CreateOrder(ctx, old)
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, ExpenseInput{Description: "bulb", Amount: "120"})
	require.NoError(t, err)
	_, err = svc.CreateWorker(ctx, validWorker())
	require.NoError(t, err)

	summary, err := svc.Report(ctx, ReportQuery{Preset: report.Preset7Days})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OrderCount)
	assert.True(t, summary.Revenue.Equal(decimal.NewFromInt(600)), "got %s", summary.Revenue)
	assert.True(t, summary.Expenses.Equal(decimal.NewFromInt(120)))
	require.Len(t, summary.Workers, 1)

	custom, err := svc.Report(ctx, ReportQuery{Preset: report.PresetCustom, Start: "2025-01-01", End: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, 1, custom.OrderCount)

	_, err = svc.Report(ctx, ReportQuery{Preset: report.PresetCustom, Start: "2026-02-01", End: "2026-01-01"})
	requireValidation(t, err, "range")
	_, err = svc.Report(ctx, ReportQuery{Preset: "forever"})
	requireValidation(t, err, "range")

	dashboard, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dashboard.Services)
	assert.Equal(t, 1, dashboard.Workers)
	assert.Equal(t, 2, dashboard.TodayServices)
	assert.Equal(t, 1, dashboard.Tiers[model.TierRegular])

	doc, err := svc.ExportReport(ctx, ReportQuery{})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Body)

	doc, err = svc.ExportOrders(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Body)
}
