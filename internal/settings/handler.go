package settings

import (
	"context"
	"net/http"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/auth"
	"github.com/frahmantamala/ecodocs/internal/transport"
)

type ServiceAPI interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, actor *auth.User, dto UpdateSettingsDTO) (*Settings, error)
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

func (h *Handler) GetSystemSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Get(r.Context())
	if err != nil {
		h.Logger.Error("GetSystemSettings: failed to get settings", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) UpdateSystemSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	if appErr := h.ParseMultipart(w, r); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	s, err := h.Service.Update(r.Context(), actor, UpdateSettingsDTO{
		CompanyName: r.FormValue("companyName"),
		Logo:        h.FormFile(r, "logo"),
	})
	if err != nil {
		h.Logger.Warn("UpdateSystemSettings: service error", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, s)
}
