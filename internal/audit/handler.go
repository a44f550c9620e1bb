package audit

import (
	"context"
	"net/http"

	"github.com/frahmantamala/ecodocs/internal/transport"
)

type ServiceAPI interface {
	ListLatest(ctx context.Context, limit int) ([]*Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListLatest(r.Context(), DefaultListLimit)
	if err != nil {
		h.Logger.Error("ListLogs: failed to list audit entries", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}
