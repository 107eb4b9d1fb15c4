package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
)

// currentSummary 优先读缓存，未命中时根据存储中的全部报名重新统计
func (h *Handler) currentSummary(r *http.Request) (*capacity.Summary, error) {
	if summary, ok := h.cache.Get(r.Context()); ok {
		return summary, nil
	}

	signups, err := h.store.ListAll(r.Context())
	if err != nil {
		return nil, err
	}

	summary := capacity.Summarize(h.catalog, signups)
	h.cache.Set(r.Context(), summary)

	return summary, nil
}

func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	summary, err := h.currentSummary(r)
	if err != nil {
		h.storeUnavailable(w, r, err, "Could not load shift slots. Please try again.")
		return
	}

	h.successResponse(w, r, "Shift slots loaded", summary)
}
