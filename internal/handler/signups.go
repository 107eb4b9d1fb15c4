package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/utils"
)

type SignupConfirmation struct {
	Signup *domain.Signup          `json:"signup"`
	Shifts []domain.ConfirmedShift `json:"shifts"`
}

func (h *Handler) confirmedShifts(signup *domain.Signup) []domain.ConfirmedShift {
	shifts := make([]domain.ConfirmedShift, 0, len(signup.SelectedShifts))
	for _, shift := range signup.SelectedShifts {
		name := shift.ShiftID
		if slot, ok := h.catalog.Get(shift.ShiftID); ok {
			name = slot.Name
		}
		shifts = append(shifts, domain.ConfirmedShift{
			Name:         name,
			Availability: string(shift.Availability),
		})
	}
	return shifts
}

func (h *Handler) SubmitSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Selections []struct {
			ShiftID      string `json:"shiftId"`
			Availability string `json:"availability"`
		} `json:"selections"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	selections := make([]utils.Selection, 0, len(req.Selections))
	for _, s := range req.Selections {
		selections = append(selections, utils.Selection{
			SlotID:       s.ShiftID,
			Availability: s.Availability,
		})
	}

	// 容量检查必须基于提交时的最新数据
	current, err := h.store.ListAll(r.Context())
	if err != nil {
		h.storeUnavailable(w, r, err, "Submission failed. Please try again.")
		return
	}

	signup, err := utils.ComposeSignup(h.catalog, req.Name, req.Email, selections, current)
	if err != nil {
		var vErr *domain.ValidationError
		switch {
		case errors.As(err, &vErr):
			h.validationFailed(w, r, vErr)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 读取和写入之间可能有其他人抢先报满，由存储在写入时再检查一次
	if err := h.store.CreateWithinCapacity(r.Context(), signup, h.catalog); err != nil {
		var vErr *domain.ValidationError
		switch {
		case errors.As(err, &vErr):
			h.cache.Invalidate(r.Context())
			h.validationFailed(w, r, vErr)
		case errors.Is(err, repository.ErrStoreUnavailable):
			h.storeUnavailable(w, r, err, "Submission failed. Please try again.")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.cache.Invalidate(r.Context())

	session, _ := r.Context().Value(SubCtxKey).(string)
	slog.Info("已提交报名", "signup", signup.ID, "session", session)

	shifts := h.confirmedShifts(signup)

	// 确认邮件发送失败不影响报名结果
	mailMessage := domain.MailMessage{
		Type: domain.MailTypeSignupConfirmation,
		To:   signup.Email,
		Data: domain.SignupConfirmationMailData{
			FullName:    signup.Name,
			ProgramName: h.config.ProgramName,
			Shifts:      shifts,
		},
	}
	if err := h.mailer.Publish(r.Context(), mailMessage); err != nil {
		slog.Error("无法发送报名确认邮件", "signup", signup.ID, "error", err)
	}

	h.successResponse(w, r, "Signup submitted", SignupConfirmation{
		Signup: signup,
		Shifts: shifts,
	})
}

func (h *Handler) GetAllSignups(w http.ResponseWriter, r *http.Request) {
	signups, err := h.store.ListAll(r.Context())
	if err != nil {
		h.storeUnavailable(w, r, err, "Could not load signups. Please try again.")
		return
	}

	summary := capacity.Summarize(h.catalog, signups)
	h.cache.Set(r.Context(), summary)

	h.successResponse(w, r, "Signups loaded", map[string]any{
		"signups": signups,
		"summary": summary,
	})
}

func (h *Handler) DeleteSignup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteByID(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			h.errorResponse(w, r, "Signup not found")
		case errors.Is(err, repository.ErrStoreUnavailable):
			h.storeUnavailable(w, r, err, "Delete failed. Please try again.")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.cache.Invalidate(r.Context())

	h.successResponse(w, r, "Signup deleted", nil)
}

func (h *Handler) ExportSignupsCSV(w http.ResponseWriter, r *http.Request) {
	signups, err := h.store.ListAll(r.Context())
	if err != nil {
		h.storeUnavailable(w, r, err, "Export failed. Please try again.")
		return
	}

	data := h.exporter.CSV(signups)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporter.Filename("csv", h.now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("无法写入导出文件", "error", err)
	}
}

func (h *Handler) ExportSignupsXLSX(w http.ResponseWriter, r *http.Request) {
	signups, err := h.store.ListAll(r.Context())
	if err != nil {
		h.storeUnavailable(w, r, err, "Export failed. Please try again.")
		return
	}

	buf, err := h.exporter.XLSX(signups)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporter.Filename("xlsx", h.now())))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("无法写入导出文件", "error", err)
	}
}
