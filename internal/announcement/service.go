package announcement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
)

var ErrNotFound = errors.New("announcement not found")

// Service reads and publishes announcements. Expiry is applied here rather
// than in the query.
type Service struct {
	db   *sqlx.DB
	repo *repo.AnnouncementRepo
}

func NewService(db *sqlx.DB, r *repo.AnnouncementRepo) *Service {
	return &Service{db: db, repo: r}
}

// ListCurrent returns the owner's announcements that have not expired at now,
// newest first. limit <= 0 means no limit.
func (s *Service) ListCurrent(ctx context.Context, owner dao.Owner, now time.Time, limit int) ([]*entity.Announcement, error) {
	rs := s.repo.GetByOwner(owner, nil)
	defer rs.Close()
	var out []*entity.Announcement
	for {
		a, ok, err := rs.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if a.IsExpired(now) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Get returns a current announcement of owner. Expired announcements are not found.
func (s *Service) Get(ctx context.Context, owner dao.Owner, id int64, now time.Time) (*entity.Announcement, error) {
	a, err := s.repo.GetByID(ctx, id, &owner)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if a.IsExpired(now) {
		return nil, ErrNotFound
	}
	return a, nil
}

// Publish stores a new announcement with its settings in one transaction.
func (s *Service) Publish(ctx context.Context, a *entity.Announcement) (*entity.Announcement, error) {
	if len(a.Title) == 0 {
		return nil, fmt.Errorf("announcement title is required")
	}
	if a.DatePosted.IsZero() {
		a.DatePosted = time.Now().UTC()
	}
	err := database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := s.repo.WithHandle(tx).Insert(ctx, a)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("publish announcement: %w", err)
	}
	return a, nil
}

// Delete removes an announcement of owner.
func (s *Service) Delete(ctx context.Context, owner dao.Owner, id int64) error {
	if _, err := s.repo.GetByID(ctx, id, &owner); err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.repo.WithHandle(tx).DeleteByID(ctx, id)
	})
}
