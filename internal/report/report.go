// Package report строит сводки по заказам, расходам и персоналу за период.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/model"
)

// DefaultTopCustomers - размер рейтинга клиентов по умолчанию.
const DefaultTopCustomers = 5

// ErrInvalidRange возвращается для неизвестного пресета или периода с концом раньше начала.
var ErrInvalidRange = errors.New("invalid report range")

// Preset - заранее заданный период отчёта.
type Preset string

const (
	Preset7Days   Preset = "7days"
	Preset30Days  Preset = "30days"
	Preset6Months Preset = "6months"
	Preset1Year   Preset = "1year"
	PresetCustom  Preset = "custom"
)

// Range - период отчёта, обе границы включительно.
type Range struct {
	Start model.Date `json:"start"`
	End   model.Date `json:"end"`
}

// NewRange проверяет, что период не перевёрнут.
func NewRange(start, end model.Date) (Range, error) {
	if start.IsZero() || end.IsZero() {
		return Range{}, fmt.Errorf("%w: both dates are required", ErrInvalidRange)
	}
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, end, start)
	}
	return Range{Start: start, End: end}, nil
}

// PresetRange возвращает период, заканчивающийся сегодняшним днём.
func PresetRange(p Preset, today model.Date) (Range, error) {
	t := today.Time()
	var start model.Date
	switch p {
	case Preset7Days:
		start = today.AddDays(-7)
	case Preset30Days, "":
		start = today.AddDays(-30)
	case Preset6Months:
		start = model.DateOf(t.AddDate(0, -6, 0))
	case Preset1Year:
		start = model.DateOf(t.AddDate(-1, 0, 0))
	default:
		return Range{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidRange, p)
	}
	return Range{Start: start, End: today}, nil
}

// Contains сообщает, попадает ли дата в период.
func (r Range) Contains(d model.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Filter отбирает заказы, дата которых попадает в период.
func Filter(orders []model.ServiceOrder, r Range) []model.ServiceOrder {
	return aggregate.Filter(orders, func(o model.ServiceOrder) bool {
		return !o.Date.IsZero() && r.Contains(o.Date)
	})
}

// Revenue - суммарная выручка по заказам.
func Revenue(orders []model.ServiceOrder) decimal.Decimal {
	return aggregate.Sum(orders, model.ServiceOrder.EffectiveTotal)
}

// Stat - число и выручка для одной категории.
type Stat struct {
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ByServiceType раскладывает услуги всех заказов по типу.
// Порядок: по убыванию выручки, при равенстве - по названию типа.
func ByServiceType(orders []model.ServiceOrder) []Stat {
	stats := make(map[string]*Stat)
	for _, o := range orders {
		for _, item := range o.LineItems {
			s, ok := stats[item.Type]
			if !ok {
				s = &Stat{Name: item.Type}
				stats[item.Type] = s
			}
			s.Count++
			s.Revenue = s.Revenue.Add(item.Amount)
		}
	}

	out := make([]Stat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Stat) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// ByStatus считает заказы по статусу. Все три статуса присутствуют всегда.
func ByStatus(orders []model.ServiceOrder) []Stat {
	statuses := model.OrderStatuses()
	out := make([]Stat, len(statuses))
	index := make(map[model.OrderStatus]int, len(statuses))
	for i, s := range statuses {
		out[i] = Stat{Name: string(s), Revenue: decimal.Zero}
		index[s] = i
	}

	for _, o := range orders {
		i, ok := index[o.Status]
		if !ok {
			continue
		}
		out[i].Count++
		out[i].Revenue = out[i].Revenue.Add(o.EffectiveTotal())
	}
	return out
}

// Point - значение временного ряда.
type Point struct {
	Key     string          `json:"key"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DailyRevenue суммирует выручку по дням в хронологическом порядке.
func DailyRevenue(orders []model.ServiceOrder) []Point {
	buckets := aggregate.SumBy(orders,
		func(o model.ServiceOrder) model.Date { return o.Date },
		model.ServiceOrder.EffectiveTotal,
		model.Date.Compare,
	)
	out := make([]Point, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Point{Key: b.Key.String(), Revenue: b.Value})
	}
	return out
}

// MonthlyRevenue суммирует выручку по месяцам в хронологическом порядке.
func MonthlyRevenue(orders []model.ServiceOrder) []Point {
	buckets := aggregate.SumBy(orders,
		func(o model.ServiceOrder) model.MonthKey { return o.Date.MonthKey() },
		model.ServiceOrder.EffectiveTotal,
		model.MonthKey.Compare,
	)
	out := make([]Point, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Point{Key: b.Key.String(), Revenue: b.Value})
	}
	return out
}

// Customer - строка рейтинга клиентов.
type Customer struct {
	VehicleNumber string          `json:"carNumber"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Visits        int             `json:"visits"`
	Revenue       decimal.Decimal `json:"revenue"`
}

// TopCustomers возвращает n клиентов с наибольшей выручкой; при равенстве выше стоит меньший номер автомобиля.
func TopCustomers(orders []model.ServiceOrder, n int) []Customer {
	groups := aggregate.GroupBy(orders, func(o model.ServiceOrder) string {
		return model.VehicleKey(o.VehicleNumber)
	})

	out := make([]Customer, 0, len(groups))
	for key, group := range groups {
		latest := slices.MinFunc(group, model.NewestOrderFirst)
		out = append(out, Customer{
			VehicleNumber: key,
			Name:          latest.CustomerName,
			Phone:         latest.Phone,
			Visits:        len(group),
			Revenue:       Revenue(group),
		})
	}

	slices.SortFunc(out, func(a, b Customer) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.VehicleNumber, b.VehicleNumber)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Summary - полный отчёт за период.
type Summary struct {
	Range          Range           `json:"range"`
	OrderCount     int             `json:"orderCount"`
	Revenue        decimal.Decimal `json:"revenue"`
	ByServiceType  []Stat          `json:"byServiceType"`
	ByStatus       []Stat          `json:"byStatus"`
	DailyRevenue   []Point         `json:"dailyRevenue"`
	MonthlyRevenue []Point         `json:"monthlyRevenue"`
	TopCustomers   []Customer      `json:"topCustomers"`
	Expenses       decimal.Decimal `json:"expenses"`
	Workers        []WorkerStat    `json:"workers"`
}

// Build считает отчёт по заказам, попавшим в период.
func Build(orders []model.ServiceOrder, r Range, topN int) Summary {
	filtered := Filter(orders, r)
	return Summary{
		Range:          r,
		OrderCount:     len(filtered),
		Revenue:        Revenue(filtered),
		ByServiceType:  ByServiceType(filtered),
		ByStatus:       ByStatus(filtered),
		DailyRevenue:   DailyRevenue(filtered),
		MonthlyRevenue: MonthlyRevenue(filtered),
		TopCustomers:   TopCustomers(filtered, topN),
	}
}

// SortOrdersNewestFirst упорядочивает заказы от новых к старым в том же порядке, что и история лояльности.
func SortOrdersNewestFirst(orders []model.ServiceOrder) {
	slices.SortFunc(orders, model.NewestOrderFirst)
}
