// Package payroll рассчитывает посещаемость и месячную выплату работникам.
package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/model"
)

// DefaultAdvanceNote подставляется, если к авансу не указан комментарий.
const DefaultAdvanceNote = "Advance payment"

var (
	// ErrInvalidStatus возвращается для неизвестной отметки посещаемости.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrInvalidDay возвращается для дня за пределами месяца.
	ErrInvalidDay = errors.New("day is outside of the month")
	// ErrInvalidAdvance возвращается для аванса с неположительной суммой.
	ErrInvalidAdvance = errors.New("advance amount must be positive")
)

// Summarize считает выплату работнику за месяц.
//
// Выплата не опускается ниже нуля. Непокрытая часть авансов возвращается в поле
// Deficit и на следующий месяц не переносится. Авансы относятся к месяцу по дате
// в часовом поясе loc.
func Summarize(w model.Worker, month model.MonthKey, loc *time.Location) model.PayrollSummary {
	if loc == nil {
		loc = time.UTC
	}

	days := month.Days()
	summary := model.PayrollSummary{
		WorkerID:    w.ID,
		Month:       month,
		DaysInMonth: days,
	}

	for _, status := range w.Attendance[month] {
		switch status {
		case model.AttendancePresent:
			summary.PresentDays++
		case model.AttendanceAbsent:
			summary.AbsentDays++
		}
	}

	summary.DailyRate = w.Salary.Div(decimal.NewFromInt(int64(days)))
	summary.BasePayment = summary.DailyRate.Mul(decimal.NewFromInt(int64(summary.PresentDays)))

	inMonth := aggregate.Filter(w.Advances, func(a model.Advance) bool {
		return month.Contains(a.Date.In(loc))
	})
	summary.TotalAdvances = aggregate.Sum(inMonth, func(a model.Advance) decimal.Decimal { return a.Amount })

	net := summary.BasePayment.Sub(summary.TotalAdvances)
	if net.IsNegative() {
		summary.Deficit = net.Neg()
		net = decimal.Zero
	}
	summary.FinalPayment = net

	return summary
}

// NewMonth возвращает месяц, в котором все дни отмечены как none.
func NewMonth(month model.MonthKey) model.MonthAttendance {
	return Fill(month, model.AttendanceNone)
}

// Fill возвращает месяц, в котором все дни имеют одну отметку.
func Fill(month model.MonthKey, status model.AttendanceStatus) model.MonthAttendance {
	days := month.Days()
	att := make(model.MonthAttendance, days)
	for day := 1; day <= days; day++ {
		att[day] = status
	}
	return att
}

// BulkSet перезаписывает все дни месяца одной отметкой.
func BulkSet(w *model.Worker, month model.MonthKey, status model.AttendanceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if w.Attendance == nil {
		w.Attendance = make(map[model.MonthKey]model.MonthAttendance)
	}
	w.Attendance[month] = Fill(month, status)
	return nil
}

// Toggle переводит отметку дня на следующую в цикле none → present → absent → none.
// Отсутствующий месяц сначала заполняется отметками none.
func Toggle(w *model.Worker, month model.MonthKey, day int) (model.AttendanceStatus, error) {
	if day < 1 || day > month.Days() {
		return "", fmt.Errorf("%w: %d in %s", ErrInvalidDay, day, month)
	}
	if w.Attendance == nil {
		w.Attendance = make(map[model.MonthKey]model.MonthAttendance)
	}
	att, ok := w.Attendance[month]
	if !ok {
		att = NewMonth(month)
		w.Attendance[month] = att
	}

	next := att[day].Next()
	att[day] = next
	return next, nil
}

// NewAdvance проверяет сумму и создаёт запись об авансе.
func NewAdvance(amount decimal.Decimal, note string, now time.Time) (model.Advance, error) {
	if !amount.IsPositive() {
		return model.Advance{}, fmt.Errorf("%w: %s", ErrInvalidAdvance, amount)
	}
	if note == "" {
		note = DefaultAdvanceNote
	}
	return model.Advance{Amount: amount, Date: now, Note: note}, nil
}

// PresentDaysTotal считает все дни присутствия работника за всю историю.
func PresentDaysTotal(w model.Worker) int {
	total := 0
	for _, att := range w.Attendance {
		for _, status := range att {
			if status == model.AttendancePresent {
				total++
			}
		}
	}
	return total
}
