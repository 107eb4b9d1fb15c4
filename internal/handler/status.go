package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"
)

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	backend := h.store.Backend()

	h.successResponse(w, r, "OK", map[string]any{
		"programName": h.config.ProgramName,
		"backend":     backend,
		"standalone":  backend == repository.BackendLocal,
	})
}
