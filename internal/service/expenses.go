package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/validation"
)

// defaultExpenseCategory подставляется, когда категория не указана.
const defaultExpenseCategory = "misc"

// ExpenseInput - данные для создания или изменения расхода.
type ExpenseInput struct {
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func (s *Service) applyExpense(in ExpenseInput, e *model.Expense) error {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return invalid("description", "is required")
	}
	amount, err := validation.ParseAmount(string(in.Amount))
	if err != nil {
		return invalid("amount", "%v", err)
	}
	if !amount.IsPositive() {
		return invalid("amount", "must be positive")
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = defaultExpenseCategory
	}
	if !slices.Contains(model.ExpenseCategories, category) {
		return invalid("category", "unknown category %q", in.Category)
	}
	date, err := s.parseDate("date", in.Date)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Date) == "" && !e.Date.IsZero() {
		date = e.Date
	}

	e.Description = description
	e.Amount = amount
	e.Category = category
	e.Date = date
	return nil
}

// CreateExpense записывает расход.
func (s *Service) CreateExpense(ctx context.Context, in ExpenseInput) (model.Expense, error) {
	var e model.Expense
	if err := s.applyExpense(in, &e); err != nil {
		return model.Expense{}, err
	}
	e.Timestamp = s.now()

	id, err := s.repo.Append(ctx, model.CollectionExpenses, e)
	if err != nil {
		return model.Expense{}, fmt.Errorf("append expense: %w", err)
	}
	e.ID = id
	return e, nil
}

// UpdateExpense заменяет поля расхода.
func (s *Service) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (model.Expense, error) {
	e, err := s.GetExpense(ctx, id)
	if err != nil {
		return model.Expense{}, err
	}
	if err := s.applyExpense(in, &e); err != nil {
		return model.Expense{}, err
	}
	if err := s.repo.Set(ctx, model.CollectionExpenses, id, e); err != nil {
		return model.Expense{}, fmt.Errorf("set expense: %w", err)
	}
	return e, nil
}

// DeleteExpense удаляет расход.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, model.CollectionExpenses, id); err != nil {
		return fmt.Errorf("remove expense: %w", err)
	}
	return nil
}

// GetExpense возвращает расход по идентификатору.
func (s *Service) GetExpense(ctx context.Context, id string) (model.Expense, error) {
	e, err := getDoc[model.Expense](ctx, s.repo, model.CollectionExpenses, id)
	if err != nil {
		return model.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses возвращает расходы от новых к старым; непустая дата оставляет только расходы этого дня.
func (s *Service) ListExpenses(ctx context.Context, date string) ([]model.Expense, error) {
	expenses, err := listDocs[model.Expense](ctx, s.repo, model.CollectionExpenses)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if date != "" {
		day, err := model.ParseDate(date)
		if err != nil {
			return nil, invalid("date", "expected YYYY-MM-DD, got %q", date)
		}
		expenses = aggregate.Filter(expenses, func(e model.Expense) bool { return e.Date.Equal(day) })
	}
	slices.SortStableFunc(expenses, func(a, b model.Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.Timestamp.Compare(a.Timestamp)
	})
	return expenses, nil
}

// DailyExpenseTotal возвращает сумму расходов за день; пустая дата означает сегодня.
func (s *Service) DailyExpenseTotal(ctx context.Context, date string) (decimal.Decimal, error) {
	day, err := s.parseDate("date", date)
	if err != nil {
		return decimal.Zero, err
	}
	expenses, err := s.ListExpenses(ctx, day.String())
	if err != nil {
		return decimal.Zero, err
	}
	return aggregate.Sum(expenses, func(e model.Expense) decimal.Decimal { return e.Amount }), nil
}
