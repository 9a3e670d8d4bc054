package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
)

var (
	ErrNotFound = errors.New("comment not found")
	ErrInvalid  = errors.New("invalid comment")
)

// Service reads and posts submission comments.
type Service struct {
	repo *repo.CommentRepo
}

func NewService(r *repo.CommentRepo) *Service {
	return &Service{repo: r}
}

// List returns the submission's comments in journalID matching f, oldest
// first. With visibleOnly, comments not marked viewable are dropped.
func (s *Service) List(ctx context.Context, journalID, submissionID int64, f repo.Filter, visibleOnly bool) ([]*entity.SubmissionComment, error) {
	var out []*entity.SubmissionComment
	for c, err := range s.repo.GetBySubmission(journalID, submissionID, f, nil).All(ctx) {
		if err != nil {
			return nil, err
		}
		if visibleOnly && !c.Viewable {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Latest returns the most recent comment matching f.
func (s *Service) Latest(ctx context.Context, journalID, submissionID int64, f repo.Filter) (*entity.SubmissionComment, error) {
	c, err := s.repo.GetMostRecent(ctx, journalID, submissionID, f)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Post stores a new comment dated now. The comment must name its journal.
func (s *Service) Post(ctx context.Context, c *entity.SubmissionComment) (*entity.SubmissionComment, error) {
	if c.JournalID <= 0 {
		return nil, fmt.Errorf("%w: journal is required", ErrInvalid)
	}
	if !c.CommentType.Valid() {
		return nil, fmt.Errorf("%w: unknown comment type %d", ErrInvalid, int(c.CommentType))
	}
	if strings.TrimSpace(c.Comments) == "" {
		return nil, fmt.Errorf("%w: comments are required", ErrInvalid)
	}
	c.ID = 0
	c.DatePosted = time.Now().UTC()
	c.DateModified = nil
	if _, err := s.repo.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Edit changes the title and body of a comment and stamps it modified.
func (s *Service) Edit(ctx context.Context, journalID, submissionID, id int64, title, comments string) (*entity.SubmissionComment, error) {
	c, err := s.repo.GetByID(ctx, id, journalID, &submissionID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	now := time.Now().UTC()
	c.Title = title
	c.Comments = comments
	c.DateModified = &now
	ok, err := s.repo.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}
