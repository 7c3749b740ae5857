package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/carwash-console/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware консоли.
// Пустой allowedOrigins отключает CORS.
func (h *Handler) SetupRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Encoding"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/catalog", h.Catalog)
			r.Get("/dashboard", h.Dashboard)

			r.Route("/services", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Post("/", h.CreateOrder)
				r.Get("/export", h.ExportOrders)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetOrder)
					r.Put("/", h.UpdateOrder)
					r.Delete("/", h.DeleteOrder)
					r.Patch("/status", h.SetOrderStatus)
					r.Get("/notify", h.NotifyOrder)
					r.Get("/invoice", h.Invoice)
				})
			})

			r.Get("/customers/{carNumber}/history", h.CustomerHistory)

			r.Route("/loyalty", func(r chi.Router) {
				r.Get("/", h.ListAccounts)
				r.Get("/expiring", h.ExpiringAccounts)
				r.Route("/{carNumber}", func(r chi.Router) {
					r.Get("/", h.GetAccount)
					r.Post("/redeem", h.Redeem)
					r.Post("/adjust", h.AdjustPoints)
					r.Get("/reminder", h.LoyaltyReminder)
				})
			})

			r.Route("/workers", func(r chi.Router) {
				r.Get("/", h.ListWorkers)
				r.Post("/", h.CreateWorker)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetWorker)
					r.Put("/", h.UpdateWorker)
					r.Delete("/", h.DeleteWorker)
					r.Put("/attendance/{month}", h.SetMonthAttendance)
					r.Post("/attendance/{month}/{day}/toggle", h.ToggleAttendance)
					r.Post("/advances", h.AddAdvance)
					r.Get("/payroll", h.Payroll)
					r.Post("/message", h.WorkerMessage)
				})
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.CreateExpense)
				r.Get("/total", h.DailyExpenseTotal)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetExpense)
					r.Put("/", h.UpdateExpense)
					r.Delete("/", h.DeleteExpense)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.Report)
				r.Get("/expenses", h.ExpenseReport)
				r.Get("/export", h.ExportReport)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
