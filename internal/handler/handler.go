// Package handler содержит HTTP-обработчики API консоли автомойки.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/carwash-console/internal/auth"
	"github.com/mmeshcher/carwash-console/internal/export"
	"github.com/mmeshcher/carwash-console/internal/loyalty"
	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/middleware"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/report"
	"github.com/mmeshcher/carwash-console/internal/repository"
	"github.com/mmeshcher/carwash-console/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ServiceCatalog() []model.ServiceOption
	Dashboard(ctx context.Context) (report.Dashboard, error)

	CreateOrder(ctx context.Context, in service.OrderInput) (model.ServiceOrder, error)
	UpdateOrder(ctx context.Context, id string, in service.OrderInput) (model.ServiceOrder, error)
	SetOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (model.ServiceOrder, error)
	ListOrders(ctx context.Context, f service.OrderFilter) ([]model.ServiceOrder, error)
	CustomerHistory(ctx context.Context, vehicle string) ([]model.ServiceOrder, error)
	NotifyOrder(ctx context.Context, id string) (messaging.Message, error)
	Invoice(ctx context.Context, id string) (export.Document, error)
	ExportOrders(ctx context.Context) (export.Document, error)

	ListAccounts(ctx context.Context, search string) ([]model.LoyaltyAccount, error)
	GetAccount(ctx context.Context, vehicle string) (model.LoyaltyAccount, error)
	ExpiringAccounts(ctx context.Context) ([]model.LoyaltyAccount, error)
	Redeem(ctx context.Context, vehicle string) (model.RedemptionEvent, error)
	AdjustPoints(ctx context.Context, vehicle string, in service.AdjustInput) (model.PointAdjustment, error)
	LoyaltyReminder(ctx context.Context, vehicle string) (messaging.Message, error)

	CreateWorker(ctx context.Context, in service.WorkerInput) (model.Worker, error)
	UpdateWorker(ctx context.Context, id string, in service.WorkerInput) (model.Worker, error)
	DeleteWorker(ctx context.Context, id string) error
	GetWorker(ctx context.Context, id string) (model.Worker, error)
	ListWorkers(ctx context.Context, search string) ([]model.Worker, error)
	SetMonthAttendance(ctx context.Context, id, month string, status model.AttendanceStatus) (model.MonthAttendance, error)
	ToggleAttendance(ctx context.Context, id, month string, day int) (model.AttendanceStatus, error)
	AddAdvance(ctx context.Context, id string, in service.AdvanceInput) (model.Advance, error)
	Payroll(ctx context.Context, id, month string) (model.PayrollSummary, error)
	WorkerMessage(ctx context.Context, id string, in service.WorkerMessageInput) (messaging.Message, error)

	CreateExpense(ctx context.Context, in service.ExpenseInput) (model.Expense, error)
	UpdateExpense(ctx context.Context, id string, in service.ExpenseInput) (model.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (model.Expense, error)
	ListExpenses(ctx context.Context, date string) ([]model.Expense, error)
	DailyExpenseTotal(ctx context.Context, date string) (decimal.Decimal, error)

	Report(ctx context.Context, q service.ReportQuery) (report.Summary, error)
	ExpenseReport(ctx context.Context, q service.ReportQuery) (report.ExpenseSummary, error)
	ExportReport(ctx context.Context, q service.ReportQuery) (export.Document, error)
}

// Handler реализует HTTP-обработчики API консоли.
type Handler struct {
	service        Service
	authenticator  auth.Authenticator
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, authenticator auth.Authenticator, logger *zap.Logger, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		authenticator:  authenticator,
		logger:         logger,
		authMiddleware: authMiddleware,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login проверяет учётные данные администратора и выдаёт cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.authenticator.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Username)
	w.WriteHeader(http.StatusOK)
}

// Logout удаляет cookie сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Catalog возвращает прайс-лист услуг.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.ServiceCatalog())
}

// Dashboard возвращает показатели главной страницы.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError переводит ошибку сервиса в HTTP-статус.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, loyalty.ErrNotEligible):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrUnavailable):
		h.logger.Warn("store unavailable", zap.String("uri", r.RequestURI), zap.String("user", sessionUser(r)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", zap.String("uri", r.RequestURI), zap.String("user", sessionUser(r)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func sessionUser(r *http.Request) string {
	if username, ok := middleware.GetUsernameFromContext(r.Context()); ok {
		return username
	}
	return "anonymous"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeDocument(w http.ResponseWriter, doc export.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		h.logger.Error("write document", zap.String("filename", doc.Filename), zap.Error(err))
	}
}

// decode читает JSON-тело запроса; при ошибке отвечает 400 и возвращает false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return false
	}
	return true
}
