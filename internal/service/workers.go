package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/payroll"
	"github.com/mmeshcher/carwash-console/internal/validation"
)

// WorkerInput - данные для создания или изменения работника.
type WorkerInput struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Category string `json:"category"`
	Salary   Amount `json:"salary"`
	JoinDate string `json:"joinDate"`
	Note     string `json:"note"`
}

// AdvanceInput - выдача аванса.
type AdvanceInput struct {
	Amount Amount `json:"amount"`
	Note   string `json:"note"`
}

// WorkerMessageInput - запрос на сообщение работнику.
type WorkerMessageInput struct {
	Template messaging.Template `json:"template"`
	Task     string             `json:"task"`
	Due      string             `json:"due"`
}

func (s *Service) applyWorker(in WorkerInput, w *model.Worker) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	phone, ok := validation.NormalizePhone(in.Phone)
	if !ok {
		return invalid("phone", "%q is not a mobile number", in.Phone)
	}
	if in.Age < 0 || in.Age > 100 {
		return invalid("age", "%d is out of range", in.Age)
	}
	if strings.TrimSpace(string(in.Salary)) == "" {
		return invalid("salary", "is required")
	}
	salary, err := validation.ParseAmount(string(in.Salary))
	if err != nil {
		return invalid("salary", "%v", err)
	}
	joinDate, err := s.parseDate("joinDate", in.JoinDate)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.JoinDate) == "" && !w.JoinDate.IsZero() {
		joinDate = w.JoinDate
	}

	w.Name = name
	w.Age = in.Age
	w.Phone = phone
	w.Role = strings.TrimSpace(in.Role)
	w.Category = strings.TrimSpace(in.Category)
	w.Salary = salary
	w.JoinDate = joinDate
	w.Note = strings.TrimSpace(in.Note)
	return nil
}

// CreateWorker добавляет работника. Текущий месяц сразу заполняется отметками none.
func (s *Service) CreateWorker(ctx context.Context, in WorkerInput) (model.Worker, error) {
	var w model.Worker
	if err := s.applyWorker(in, &w); err != nil {
		return model.Worker{}, err
	}
	w.CreatedAt = s.now()
	month := s.today().MonthKey()
	w.Attendance = map[model.MonthKey]model.MonthAttendance{month: payroll.NewMonth(month)}
	w.Advances = []model.Advance{}

	id, err := s.repo.Append(ctx, model.CollectionWorkers, w)
	if err != nil {
		return model.Worker{}, fmt.Errorf("append worker: %w", err)
	}
	w.ID = id
	return w, nil
}

// UpdateWorker меняет анкетные данные работника, не трогая посещаемость и авансы.
func (s *Service) UpdateWorker(ctx context.Context, id string, in WorkerInput) (model.Worker, error) {
	w, err := s.GetWorker(ctx, id)
	if err != nil {
		return model.Worker{}, err
	}
	if err := s.applyWorker(in, &w); err != nil {
		return model.Worker{}, err
	}

	fields := map[string]any{
		"name":     w.Name,
		"age":      w.Age,
		"phone":    w.Phone,
		"role":     w.Role,
		"category": w.Category,
		"salary":   w.Salary,
		"joinDate": w.JoinDate,
		"note":     w.Note,
	}
	if err := s.repo.Update(ctx, model.CollectionWorkers, id, fields); err != nil {
		return model.Worker{}, fmt.Errorf("update worker: %w", err)
	}
	return w, nil
}

// DeleteWorker удаляет работника.
func (s *Service) DeleteWorker(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, model.CollectionWorkers, id); err != nil {
		return fmt.Errorf("remove worker: %w", err)
	}
	return nil
}

// GetWorker возвращает работника по идентификатору.
func (s *Service) GetWorker(ctx context.Context, id string) (model.Worker, error) {
	w, err := getDoc[model.Worker](ctx, s.repo, model.CollectionWorkers, id)
	if err != nil {
		return model.Worker{}, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

// ListWorkers возвращает работников по имени, с необязательным поиском по имени, роли и телефону.
func (s *Service) ListWorkers(ctx context.Context, search string) ([]model.Worker, error) {
	workers, err := listDocs[model.Worker](ctx, s.repo, model.CollectionWorkers)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		workers = slices.DeleteFunc(workers, func(w model.Worker) bool {
			return !strings.Contains(strings.ToLower(w.Name), term) &&
				!strings.Contains(strings.ToLower(w.Role), term) &&
				!strings.Contains(w.Phone, term)
		})
	}
	slices.SortFunc(workers, func(a, b model.Worker) int { return strings.Compare(a.Name, b.Name) })
	return workers, nil
}

func parseMonth(value string) (model.MonthKey, error) {
	month, err := model.ParseMonthKey(value)
	if err != nil {
		return model.MonthKey{}, invalid("month", "expected YYYY-M, got %q", value)
	}
	return month, nil
}

// SetMonthAttendance отмечает все дни месяца одним статусом.
func (s *Service) SetMonthAttendance(ctx context.Context, id, month string, status model.AttendanceStatus) (model.MonthAttendance, error) {
	key, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	w, err := s.GetWorker(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := payroll.BulkSet(&w, key, status); err != nil {
		return nil, invalid("status", "%v", err)
	}
	if err := s.repo.Update(ctx, model.CollectionWorkers, id, map[string]any{"attendance": w.Attendance}); err != nil {
		return nil, fmt.Errorf("update attendance: %w", err)
	}
	return w.Attendance[key], nil
}

// ToggleAttendance переводит отметку дня на следующую и возвращает её.
func (s *Service) ToggleAttendance(ctx context.Context, id, month string, day int) (model.AttendanceStatus, error) {
	key, err := parseMonth(month)
	if err != nil {
		return "", err
	}
	w, err := s.GetWorker(ctx, id)
	if err != nil {
		return "", err
	}
	next, err := payroll.Toggle(&w, key, day)
	if err != nil {
		return "", invalid("day", "%v", err)
	}
	if err := s.repo.Update(ctx, model.CollectionWorkers, id, map[string]any{"attendance": w.Attendance}); err != nil {
		return "", fmt.Errorf("update attendance: %w", err)
	}
	return next, nil
}

// AddAdvance выдаёт работнику аванс. Неверная сумма не меняет работника.
func (s *Service) AddAdvance(ctx context.Context, id string, in AdvanceInput) (model.Advance, error) {
	amount, err := validation.ParseAmount(string(in.Amount))
	if err != nil {
		return model.Advance{}, invalid("amount", "%v", err)
	}
	adv, err := payroll.NewAdvance(amount, strings.TrimSpace(in.Note), s.now())
	if err != nil {
		return model.Advance{}, invalid("amount", "%v", err)
	}

	w, err := s.GetWorker(ctx, id)
	if err != nil {
		return model.Advance{}, err
	}
	advances := append(w.Advances, adv)
	if err := s.repo.Update(ctx, model.CollectionWorkers, id, map[string]any{"advances": advances}); err != nil {
		return model.Advance{}, fmt.Errorf("update advances: %w", err)
	}
	return adv, nil
}

// Payroll считает выплату работнику за месяц; пустой месяц означает текущий.
func (s *Service) Payroll(ctx context.Context, id, month string) (model.PayrollSummary, error) {
	key := s.today().MonthKey()
	if month != "" {
		var err error
		if key, err = parseMonth(month); err != nil {
			return model.PayrollSummary{}, err
		}
	}
	w, err := s.GetWorker(ctx, id)
	if err != nil {
		return model.PayrollSummary{}, err
	}
	return payroll.Summarize(w, key, s.loc), nil
}

// WorkerMessage собирает сообщение работнику. Сумма в напоминании о выплате берётся из расчёта за текущий месяц.
func (s *Service) WorkerMessage(ctx context.Context, id string, in WorkerMessageInput) (messaging.Message, error) {
	composer, err := s.messages()
	if err != nil {
		return messaging.Message{}, err
	}
	w, err := s.GetWorker(ctx, id)
	if err != nil {
		return messaging.Message{}, err
	}

	params := messaging.WorkerParams{Task: strings.TrimSpace(in.Task), Due: s.today()}
	if in.Due != "" {
		if params.Due, err = s.parseDate("due", in.Due); err != nil {
			return messaging.Message{}, err
		}
	}
	params.Payment = payroll.Summarize(w, s.today().MonthKey(), s.loc).FinalPayment

	msg, err := composer.WorkerMessage(in.Template, w, params)
	switch {
	case errors.Is(err, messaging.ErrUnknownTemplate):
		return messaging.Message{}, invalid("template", "%v", err)
	case err != nil:
		return messaging.Message{}, invalid("phone", "%v", err)
	}
	return msg, nil
}
