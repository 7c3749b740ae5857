package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/carwash-console/internal/service"
)

// ListAccounts возвращает счета лояльности с необязательным поиском.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// ExpiringAccounts возвращает счета со сгорающими баллами.
func (h *Handler) ExpiringAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ExpiringAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// GetAccount возвращает счёт автомобиля.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "carNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

// Redeem списывает баллы за бесплатную услугу. Неподходящий счёт даёт 409.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Redeem(r.Context(), chi.URLParam(r, "carNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, event)
}

// AdjustPoints добавляет ручную корректировку баллов.
func (h *Handler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var in service.AdjustInput
	if !h.decode(w, r, &in) {
		return
	}
	adj, err := h.service.AdjustPoints(r.Context(), chi.URLParam(r, "carNumber"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, adj)
}

// LoyaltyReminder возвращает напоминание о сгорающих баллах.
func (h *Handler) LoyaltyReminder(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.LoyaltyReminder(r.Context(), chi.URLParam(r, "carNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, msg)
}
