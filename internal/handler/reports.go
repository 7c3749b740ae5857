package handler

import (
	"net/http"

	"github.com/mmeshcher/carwash-console/internal/report"
	"github.com/mmeshcher/carwash-console/internal/service"
)

func reportQuery(r *http.Request) service.ReportQuery {
	q := r.URL.Query()
	return service.ReportQuery{
		Preset: report.Preset(q.Get("range")),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	}
}

// Report возвращает сводку за период из параметров range, start и end.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Report(r.Context(), reportQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// ExpenseReport возвращает расходы за период по категориям.
func (h *Handler) ExpenseReport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ExpenseReport(r.Context(), reportQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// ExportReport отдаёт отчёт за период в книге Excel.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ExportReport(r.Context(), reportQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDocument(w, doc)
}
