package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/carwash-console/internal/export"
	"github.com/mmeshcher/carwash-console/internal/loyalty"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/report"
)

// dashboardMinVisits - с какого числа визитов клиент учитывается в распределении по уровням.
const dashboardMinVisits = 2

// ReportQuery - параметры отчёта. Для пресета custom нужны обе даты.
type ReportQuery struct {
	Preset report.Preset
	Start  string
	End    string
}

func (s *Service) reportRange(q ReportQuery) (report.Range, error) {
	if q.Preset != report.PresetCustom {
		r, err := report.PresetRange(q.Preset, s.today())
		if err != nil {
			return report.Range{}, invalid("range", "%v", err)
		}
		return r, nil
	}

	start, err := model.ParseDate(q.Start)
	if err != nil {
		return report.Range{}, invalid("start", "expected YYYY-MM-DD, got %q", q.Start)
	}
	end, err := model.ParseDate(q.End)
	if err != nil {
		return report.Range{}, invalid("end", "expected YYYY-MM-DD, got %q", q.End)
	}
	r, err := report.NewRange(start, end)
	if errors.Is(err, report.ErrInvalidRange) {
		return report.Range{}, invalid("range", "%v", err)
	}
	return r, err
}

// Report строит сводку за период: выручка, услуги, статусы, клиенты, расходы и персонал.
func (s *Service) Report(ctx context.Context, q ReportQuery) (report.Summary, error) {
	r, err := s.reportRange(q)
	if err != nil {
		return report.Summary{}, err
	}

	orders, err := listDocs[model.ServiceOrder](ctx, s.repo, model.CollectionServices)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list orders: %w", err)
	}
	expenses, err := listDocs[model.Expense](ctx, s.repo, model.CollectionExpenses)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list expenses: %w", err)
	}
	workers, err := listDocs[model.Worker](ctx, s.repo, model.CollectionWorkers)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list workers: %w", err)
	}

	summary := report.Build(orders, r, report.DefaultTopCustomers)
	summary.Expenses = report.Expenses(expenses, r).Total
	summary.Workers = report.WorkerAttendance(workers)
	return summary, nil
}

// ExpenseReport считает расходы за период по категориям.
func (s *Service) ExpenseReport(ctx context.Context, q ReportQuery) (report.ExpenseSummary, error) {
	r, err := s.reportRange(q)
	if err != nil {
		return report.ExpenseSummary{}, err
	}
	expenses, err := listDocs[model.Expense](ctx, s.repo, model.CollectionExpenses)
	if err != nil {
		return report.ExpenseSummary{}, fmt.Errorf("list expenses: %w", err)
	}
	return report.Expenses(expenses, r), nil
}

// Dashboard возвращает показатели главной страницы на сегодня.
func (s *Service) Dashboard(ctx context.Context) (report.Dashboard, error) {
	orders, err := listDocs[model.ServiceOrder](ctx, s.repo, model.CollectionServices)
	if err != nil {
		return report.Dashboard{}, fmt.Errorf("list orders: %w", err)
	}
	workers, err := s.repo.List(ctx, model.CollectionWorkers)
	if err != nil {
		return report.Dashboard{}, fmt.Errorf("list workers: %w", err)
	}
	accounts, err := s.accounts(ctx)
	if err != nil {
		return report.Dashboard{}, err
	}

	d := report.BuildDashboard(orders, len(workers.Records), s.today())
	d.Tiers = loyalty.TierCounts(accounts, dashboardMinVisits)
	return d, nil
}

// ExportReport выгружает отчёт за период в книгу Excel.
func (s *Service) ExportReport(ctx context.Context, q ReportQuery) (export.Document, error) {
	r, err := s.reportRange(q)
	if err != nil {
		return export.Document{}, err
	}
	orders, err := listDocs[model.ServiceOrder](ctx, s.repo, model.CollectionServices)
	if err != nil {
		return export.Document{}, fmt.Errorf("list orders: %w", err)
	}
	accounts, err := s.ListAccounts(ctx, "")
	if err != nil {
		return export.Document{}, err
	}
	report.SortOrdersNewestFirst(orders)
	return export.ReportWorkbook(export.DefaultReportName, r, orders, accounts)
}

// ExportOrders выгружает все заказы в книгу Excel.
func (s *Service) ExportOrders(ctx context.Context) (export.Document, error) {
	orders, err := s.ListOrders(ctx, OrderFilter{})
	if err != nil {
		return export.Document{}, err
	}
	return export.OrdersWorkbook(orders)
}
