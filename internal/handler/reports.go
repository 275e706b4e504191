package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// ListReports is visible to everyone. exhibition_id filters and
// ordering=created_at lists the oldest first.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	var exhibitionID *int64
	if id, ok := queryInt64(r, "exhibition_id"); ok {
		exhibitionID = &id
	}
	oldestFirst := r.URL.Query().Get("ordering") == "created_at"

	reports, err := h.store.ListReports(exhibitionID, oldestFirst)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "reports retrieved", reports)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid report id")
		return
	}

	report, err := h.store.GetReportByID(id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "report not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	h.successResponse(w, r, "report retrieved", report)
}

// reportRecipients is the reception address, or every admin when none is configured.
func (h *Handler) reportRecipients() []string {
	if h.config.Email.Reception != "" {
		return []string{h.config.Email.Reception}
	}
	admins, err := h.store.GetAdminEmails()
	if err != nil {
		slog.Warn("failed to load admin emails for report", "error", err)
		return nil
	}
	return admins
}

// CreateReport files a guard's report about a position and mails it out.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, "admins cannot create reports")
		return
	}

	var req struct {
		PositionID          int64  `json:"position_id" validate:"required"`
		PositionExplanation string `json:"position_explanation" validate:"max=255"`
		ReportText          string `json:"report_text" validate:"required"`
	}
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	guard, err := h.store.GetGuardByUserID(me.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.forbidden(w, r, "only guards can create reports")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	position, err := h.store.GetPositionByID(req.PositionID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusBadRequest, "position does not exist")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	report := &domain.Report{
		GuardID:             guard.ID,
		PositionID:          position.ID,
		PositionExplanation: req.PositionExplanation,
		ReportText:          req.ReportText,
		Guard:               guard,
		Position:            position,
	}
	if err := h.store.CreateReport(report); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	for _, to := range h.reportRecipients() {
		h.sendMail(r.Context(), domain.MailMessage{
			Type: domain.MailGuardReport,
			To:   to,
			Data: domain.GuardReportMailData{
				GuardName:           me.FullName(),
				ExhibitionName:      exhibitionName(position),
				Date:                position.Date.String(),
				PositionExplanation: report.PositionExplanation,
				ReportText:          report.ReportText,
			},
		})
	}

	h.createdResponse(w, r, "report created", report)
}

// ReportImmutable answers updates and deletes: reports never change once filed.
func (h *Handler) ReportImmutable(w http.ResponseWriter, r *http.Request) {
	h.methodNotAllowed(w, r, "reports cannot be updated or deleted")
}
