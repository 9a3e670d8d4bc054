package reviewform

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/locale"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/policy"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/render"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/entity"
)

// Handler exposes review form management for journal managers.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// FormRequest is the body of create and update requests.
type FormRequest struct {
	Title       dao.LocalizedText `json:"title"`
	Description dao.LocalizedText `json:"description"`
	Active      bool              `json:"active"`
}

// FormView is a form as rendered: localized strings plus every locale variant
// for editing.
type FormView struct {
	ID              int64             `json:"id"`
	Seq             float64           `json:"seq"`
	Active          bool              `json:"active"`
	InUse           bool              `json:"in_use"`
	CompleteCount   int               `json:"complete_count"`
	IncompleteCount int               `json:"incomplete_count"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Titles          dao.LocalizedText `json:"titles"`
	Descriptions    dao.LocalizedText `json:"descriptions,omitempty"`
}

// ListResponse wraps one page of forms.
type ListResponse struct {
	Items []FormView `json:"items"`
	Total int        `json:"total"`
}

// ElementRequest is the body of an add-element request.
type ElementRequest struct {
	ElementType       int                 `json:"element_type"`
	Required          bool                `json:"required"`
	Included          bool                `json:"included"`
	Question          dao.LocalizedText   `json:"question"`
	Description       dao.LocalizedText   `json:"description"`
	PossibleResponses map[string][]string `json:"possible_responses"`
}

// ElementView is an element as rendered.
type ElementView struct {
	ID                int64    `json:"id"`
	Seq               float64  `json:"seq"`
	ElementType       string   `json:"element_type"`
	Required          bool     `json:"required"`
	Included          bool     `json:"included"`
	Question          string   `json:"question"`
	Description       string   `json:"description,omitempty"`
	PossibleResponses []string `json:"possible_responses,omitempty"`
}

// OrderRequest lists form ids in their new order.
type OrderRequest struct {
	IDs []int64 `json:"ids"`
}

func formView(f *entity.ReviewForm, prefs []language.Tag, fallback string) FormView {
	return FormView{
		ID:              f.ID,
		Seq:             f.Seq,
		Active:          f.Active,
		InUse:           f.InUse(),
		CompleteCount:   f.CompleteCount,
		IncompleteCount: f.IncompleteCount,
		Title:           f.Title.Localize(prefs, fallback),
		Description:     f.Description.Localize(prefs, fallback),
		Titles:          f.Title,
		Descriptions:    f.Description,
	}
}

func elementView(e *entity.Element, prefs []language.Tag, fallback string) ElementView {
	v := ElementView{
		ID:          e.ID,
		Seq:         e.Seq,
		ElementType: e.ElementType.String(),
		Required:    e.Required,
		Included:    e.Included,
		Question:    e.Question.Localize(prefs, fallback),
		Description: e.Description.Localize(prefs, fallback),
	}
	if len(e.PossibleResponses) > 0 {
		// pick the locale the question resolved to so labels match it
		keys := dao.LocalizedText{}
		for l := range e.PossibleResponses {
			keys[l] = l
		}
		v.PossibleResponses = e.PossibleResponses[keys.Localize(prefs, fallback)]
	}
	return v
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrElementNotFound):
		render.NotFound(w)
	case errors.Is(err, ErrInUse):
		render.Error(w, http.StatusConflict, "review form in use")
	case errors.Is(err, ErrInvalid):
		render.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw("review form request failed", "err", err)
		render.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// List renders one page of the journal's forms. ?page= and ?per_page= select the page.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	var rng *dao.Range
	if pp, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && pp > 0 {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		rng = &dao.Range{Page: page, PerPage: pp}
	}
	forms, total, err := h.svc.List(r.Context(), j.Owner(), rng)
	if err != nil {
		h.fail(w, err)
		return
	}
	prefs := locale.Preferences(r)
	out := ListResponse{Items: make([]FormView, 0, len(forms)), Total: total}
	for _, f := range forms {
		out.Items = append(out.Items, formView(f, prefs, j.PrimaryLocale))
	}
	render.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	f, err := h.svc.Get(r.Context(), j.Owner(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	render.JSON(w, http.StatusOK, formView(f, locale.Preferences(r), j.PrimaryLocale))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	var req FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid review form payload", "err", err)
		render.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	f, err := h.svc.Create(r.Context(), j.Owner(), &entity.ReviewForm{
		Title:       req.Title,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	render.JSON(w, http.StatusCreated, formView(f, locale.Preferences(r), j.PrimaryLocale))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	var req FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	f, err := h.svc.Update(r.Context(), j.Owner(), &entity.ReviewForm{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	render.JSON(w, http.StatusOK, formView(f, locale.Preferences(r), j.PrimaryLocale))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	if err := h.svc.Delete(r.Context(), j.Owner(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	f, err := h.svc.Copy(r.Context(), j.Owner(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	render.JSON(w, http.StatusCreated, formView(f, locale.Preferences(r), j.PrimaryLocale))
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.svc.Reorder(r.Context(), j.Owner(), req.IDs); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListElements(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	els, err := h.svc.ListElements(r.Context(), j.Owner(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	prefs := locale.Preferences(r)
	out := make([]ElementView, 0, len(els))
	for _, e := range els {
		out = append(out, elementView(e, prefs, j.PrimaryLocale))
	}
	render.JSON(w, http.StatusOK, out)
}

func (h *Handler) AddElement(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	var req ElementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	e, err := h.svc.AddElement(r.Context(), j.Owner(), id, &entity.Element{
		ElementType:       entity.ElementType(req.ElementType),
		Required:          req.Required,
		Included:          req.Included,
		Question:          req.Question,
		Description:       req.Description,
		PossibleResponses: req.PossibleResponses,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	render.JSON(w, http.StatusCreated, elementView(e, locale.Preferences(r), j.PrimaryLocale))
}

func (h *Handler) DeleteElement(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		render.NotFound(w)
		return
	}
	elementID, ok := pathID(r, "elementId")
	if !ok {
		render.NotFound(w)
		return
	}
	if err := h.svc.DeleteElement(r.Context(), j.Owner(), id, elementID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
