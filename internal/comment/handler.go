package comment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/policy"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/render"
)

// Handler serves submission comments to the people working on a submission.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// PostRequest is the body of a new comment.
type PostRequest struct {
	CommentType int    `json:"comment_type"`
	AssocID     int64  `json:"assoc_id"`
	Title       string `json:"title"`
	Comments    string `json:"comments"`
	Viewable    bool   `json:"viewable"`
}

// primaryRole returns the first role of claims that has a role id, most
// privileged first.
func primaryRole(c *policy.Claims) string {
	for _, r := range []string{policy.RoleAdmin, policy.RoleManager, policy.RoleEditor, policy.RoleReviewer, policy.RoleAuthor} {
		if c.HasRole(r) {
			return r
		}
	}
	return ""
}

func submissionID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// List renders the submission's comments in the resolved journal. Only
// editorial roles see comments that are not marked viewable. ?type= filters
// by comment type.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	sid, ok := submissionID(r)
	if !ok {
		render.NotFound(w)
		return
	}
	claims, _ := policy.ClaimsFrom(r.Context())
	var f repo.Filter
	if t, err := strconv.Atoi(r.URL.Query().Get("type")); err == nil {
		f.CommentType = entity.CommentType(t)
	}
	editorial := claims.HasRole(policy.RoleManager, policy.RoleEditor)
	items, err := h.svc.List(r.Context(), j.ID, sid, f, !editorial)
	if err != nil {
		h.logger.Errorw("list comments", "submission_id", sid, "err", err)
		render.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []*entity.SubmissionComment{}
	}
	render.JSON(w, http.StatusOK, items)
}

// Post adds a comment authored by the token's subject to the resolved journal.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	j, _ := policy.JournalFrom(r.Context())
	sid, ok := submissionID(r)
	if !ok {
		render.NotFound(w)
		return
	}
	claims, _ := policy.ClaimsFrom(r.Context())
	authorID, err := claims.UserID()
	if err != nil {
		render.Error(w, http.StatusForbidden, "token has no user")
		return
	}
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid comment payload", "err", err)
		render.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	c, err := h.svc.Post(r.Context(), &entity.SubmissionComment{
		JournalID:    j.ID,
		CommentType:  entity.CommentType(req.CommentType),
		RoleID:       policy.RoleIDs[primaryRole(claims)],
		SubmissionID: sid,
		AssocID:      req.AssocID,
		AuthorID:     authorID,
		Title:        req.Title,
		Comments:     req.Comments,
		Viewable:     req.Viewable,
	})
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			render.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Errorw("post comment", "submission_id", sid, "err", err)
		render.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	render.JSON(w, http.StatusCreated, c)
}
