package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/service"
)

// ListWorkers возвращает работников.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.service.ListWorkers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, workers)
}

// CreateWorker добавляет работника.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var in service.WorkerInput
	if !h.decode(w, r, &in) {
		return
	}
	worker, err := h.service.CreateWorker(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, worker)
}

// GetWorker возвращает работника.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.service.GetWorker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, worker)
}

// UpdateWorker меняет анкету работника.
func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	var in service.WorkerInput
	if !h.decode(w, r, &in) {
		return
	}
	worker, err := h.service.UpdateWorker(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, worker)
}

// DeleteWorker удаляет работника.
func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWorker(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attendanceRequest struct {
	Status model.AttendanceStatus `json:"status"`
}

// SetMonthAttendance отмечает весь месяц одним статусом.
func (h *Handler) SetMonthAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	att, err := h.service.SetMonthAttendance(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "month"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, att)
}

// ToggleAttendance переключает отметку одного дня.
func (h *Handler) ToggleAttendance(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "day must be a number", Field: "day"})
		return
	}
	status, err := h.service.ToggleAttendance(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "month"), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, attendanceRequest{Status: status})
}

// AddAdvance выдаёт аванс.
func (h *Handler) AddAdvance(w http.ResponseWriter, r *http.Request) {
	var in service.AdvanceInput
	if !h.decode(w, r, &in) {
		return
	}
	adv, err := h.service.AddAdvance(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, adv)
}

// Payroll возвращает расчёт выплаты за месяц из параметра month.
func (h *Handler) Payroll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Payroll(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("month"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// WorkerMessage возвращает сообщение работнику и ссылку wa.me.
func (h *Handler) WorkerMessage(w http.ResponseWriter, r *http.Request) {
	var in service.WorkerMessageInput
	if !h.decode(w, r, &in) {
		return
	}
	msg, err := h.service.WorkerMessage(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, msg)
}

// ListExpenses возвращает расходы, с необязательным фильтром date.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListExpenses(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, expenses)
}

type expenseTotalResponse struct {
	Date  string          `json:"date,omitempty"`
	Total decimal.Decimal `json:"total"`
}

// DailyExpenseTotal возвращает сумму расходов за день.
func (h *Handler) DailyExpenseTotal(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	total, err := h.service.DailyExpenseTotal(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, expenseTotalResponse{Date: date, Total: total})
}

// CreateExpense записывает расход.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in service.ExpenseInput
	if !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.CreateExpense(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, e)
}

// GetExpense возвращает расход.
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

// UpdateExpense заменяет расход.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var in service.ExpenseInput
	if !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.UpdateExpense(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

// DeleteExpense удаляет расход.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
