package announcement

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/locale"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/policy"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/render"
)

// Handler serves a journal's public announcement pages.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

// View is an announcement localized for the request.
type View struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	DescriptionShort string     `json:"description_short,omitempty"`
	Description      string     `json:"description,omitempty"`
	DatePosted       time.Time  `json:"date_posted"`
	DateExpire       *time.Time `json:"date_expire,omitempty"`
}

func view(a *entity.Announcement, prefs []language.Tag, fallback string) View {
	return View{
		ID:               a.ID,
		Title:            a.Title.Localize(prefs, fallback),
		DescriptionShort: a.DescriptionShort.Localize(prefs, fallback),
		Description:      a.Description.Localize(prefs, fallback),
		DatePosted:       a.DatePosted,
		DateExpire:       a.DateExpire,
	}
}

// List renders the journal's current announcements. ?limit= caps the count.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	if !j.EnableAnnouncements {
		render.NotFound(w)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.ListCurrent(r.Context(), j.Owner(), h.now(), limit)
	if err != nil {
		h.logger.Errorw("list announcements", "journal_id", j.ID, "err", err)
		render.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	prefs := locale.Preferences(r)
	out := make([]View, 0, len(items))
	for _, a := range items {
		out = append(out, view(a, prefs, j.PrimaryLocale))
	}
	render.JSON(w, http.StatusOK, out)
}

// Get renders one current announcement of the journal.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	if !j.EnableAnnouncements {
		render.NotFound(w)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.NotFound(w)
		return
	}
	a, err := h.svc.Get(r.Context(), j.Owner(), id, h.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			render.NotFound(w)
			return
		}
		h.logger.Errorw("get announcement", "announcement_id", id, "err", err)
		render.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	render.JSON(w, http.StatusOK, view(a, locale.Preferences(r), j.PrimaryLocale))
}
