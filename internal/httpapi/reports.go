package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"qms/hospital-service/internal/reports"
)

// parseReportTime accepts RFC3339 or a bare YYYY-MM-DD date (midnight UTC).
func parseReportTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *Handler) handleAttendedReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, okFrom := parseReportTime(query.Get("from"))
	to, okTo := parseReportTime(query.Get("to"))
	if !okFrom || !okTo {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "from and to are required (RFC3339 or YYYY-MM-DD)")
		return
	}
	appts, err := h.reports.AttendedAppointments(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) handlePendingReport(w http.ResponseWriter, r *http.Request) {
	appts, err := h.reports.PendingAppointments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) handleCallsByPriorityReport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format != "" && format != "json" && format != "csv" && format != "pdf" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "format must be json, csv or pdf")
		return
	}
	if format == "pdf" && !h.pdf.Enabled() {
		h.fail(w, r, reports.ErrPDFUnavailable)
		return
	}
	counts, err := h.reports.CallsByPriority(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	switch format {
	case "csv":
		if err := reports.WritePriorityCSV(&buf, counts); err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="calls-by-priority.csv"`)
	case "pdf":
		if err := h.pdf.WritePriorityPDF(&buf, counts, h.now()); err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="calls-by-priority.pdf"`)
	default:
		writeJSON(w, http.StatusOK, counts)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleUsersByRoleReport(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reports.UsersByRole(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
