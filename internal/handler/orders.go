package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/service"
)

// ListOrders возвращает заказы с фильтрами search, status и date.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.service.ListOrders(r.Context(), service.OrderFilter{
		Search: q.Get("search"),
		Status: model.OrderStatus(q.Get("status")),
		Date:   q.Get("date"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// CreateOrder принимает новый заказ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in service.OrderInput
	if !h.decode(w, r, &in) {
		return
	}
	o, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, o)
}

// GetOrder возвращает заказ.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}

// UpdateOrder заменяет заказ.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var in service.OrderInput
	if !h.decode(w, r, &in) {
		return
	}
	o, err := h.service.UpdateOrder(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// SetOrderStatus меняет статус заказа.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteOrder удаляет заказ.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotifyOrder возвращает сообщение клиенту о выполненном заказе и ссылку wa.me.
func (h *Handler) NotifyOrder(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.NotifyOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, msg)
}

// Invoice отдаёт счёт по заказу в PDF.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, doc)
}

// ExportOrders отдаёт все заказы в книге Excel.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, doc)
}

// CustomerHistory возвращает историю визитов автомобиля.
func (h *Handler) CustomerHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.CustomerHistory(r.Context(), chi.URLParam(r, "carNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}
