package journal

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/locale"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/render"
)

// Handler lists the hosted journals.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// View is a journal localized for the request.
type View struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// List renders every enabled journal.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	journals, err := h.svc.List(r.Context(), true)
	if err != nil {
		h.logger.Errorw("list journals", "err", err)
		render.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	prefs := locale.Preferences(r)
	out := make([]View, 0, len(journals))
	for _, j := range journals {
		out = append(out, View{
			Path:        j.Path,
			Name:        j.Name.Localize(prefs, j.PrimaryLocale),
			Description: j.Description.Localize(prefs, j.PrimaryLocale),
		})
	}
	render.JSON(w, http.StatusOK, out)
}
