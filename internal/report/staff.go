package report

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/payroll"
)

// WorkerStat - посещаемость работника за всё время.
type WorkerStat struct {
	Name        string          `json:"name"`
	Role        string          `json:"role"`
	PresentDays int             `json:"attendance"`
	Salary      decimal.Decimal `json:"salary"`
}

// WorkerAttendance собирает посещаемость всех работников, отсортированную по имени.
func WorkerAttendance(workers []model.Worker) []WorkerStat {
	out := make([]WorkerStat, 0, len(workers))
	for _, w := range workers {
		out = append(out, WorkerStat{
			Name:        w.Name,
			Role:        w.Role,
			PresentDays: payroll.PresentDaysTotal(w),
			Salary:      w.Salary,
		})
	}
	slices.SortFunc(out, func(a, b WorkerStat) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ExpenseSummary - расходы за период.
type ExpenseSummary struct {
	Total      decimal.Decimal `json:"total"`
	ByCategory []Stat          `json:"byCategory"`
}

// Expenses считает расходы за период по категориям.
func Expenses(expenses []model.Expense, r Range) ExpenseSummary {
	inRange := aggregate.Filter(expenses, func(e model.Expense) bool { return r.Contains(e.Date) })
	groups := aggregate.GroupBy(inRange, func(e model.Expense) string { return e.Category })

	summary := ExpenseSummary{
		Total:      aggregate.Sum(inRange, func(e model.Expense) decimal.Decimal { return e.Amount }),
		ByCategory: make([]Stat, 0, len(groups)),
	}
	for _, category := range aggregate.SortedKeys(groups) {
		group := groups[category]
		summary.ByCategory = append(summary.ByCategory, Stat{
			Name:    category,
			Count:   len(group),
			Revenue: aggregate.Sum(group, func(e model.Expense) decimal.Decimal { return e.Amount }),
		})
	}
	return summary
}

// Dashboard - показатели главной страницы.
type Dashboard struct {
	Services        int                `json:"services"`
	Workers         int                `json:"workers"`
	TodayServices   int                `json:"todayServices"`
	PendingServices int                `json:"pendingServices"`
	CompletedToday  int                `json:"completedToday"`
	Tiers           map[model.Tier]int `json:"tiers"`
}

// BuildDashboard считает показатели на сегодняшний день.
func BuildDashboard(orders []model.ServiceOrder, workers int, today model.Date) Dashboard {
	return Dashboard{
		Services: len(orders),
		Workers:  workers,
		TodayServices: aggregate.Count(orders, func(o model.ServiceOrder) bool {
			return o.Date.Equal(today)
		}),
		PendingServices: aggregate.Count(orders, func(o model.ServiceOrder) bool {
			return o.Status == model.OrderStatusPending
		}),
		CompletedToday: aggregate.Count(orders, func(o model.ServiceOrder) bool {
			return o.Date.Equal(today) && o.Status == model.OrderStatusCompleted
		}),
	}
}
