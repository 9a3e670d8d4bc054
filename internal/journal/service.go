package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
)

var ErrNotFound = errors.New("journal not found")

// Service manages journals and resolves request paths to journals through a
// short-lived cache.
type Service struct {
	db     *sqlx.DB
	repo   *repo.JournalRepo
	cache  *cache.Cache
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, r *repo.JournalRepo, ttl time.Duration, logger *zap.SugaredLogger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{db: db, repo: r, cache: cache.New(ttl, 2*ttl), logger: logger}
}

// Resolve returns the enabled journal at path. Disabled and unknown journals
// are both ErrNotFound. Callers get their own copy and may modify it.
func (s *Service) Resolve(ctx context.Context, path string) (*entity.Journal, error) {
	if v, ok := s.cache.Get(path); ok {
		return v.(*entity.Journal).Clone(), nil
	}
	j, err := s.repo.GetByPath(ctx, path)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !j.Enabled {
		return nil, ErrNotFound
	}
	s.cache.SetDefault(path, j.Clone())
	s.logger.Debugw("journal resolved", "path", path, "journal_id", j.ID)
	return j, nil
}

// Invalidate drops a cached path.
func (s *Service) Invalidate(path string) {
	s.cache.Delete(path)
}

// Get returns a journal by id regardless of its enabled flag.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Journal, error) {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

// List returns journals in sequence order.
func (s *Service) List(ctx context.Context, enabledOnly bool) ([]*entity.Journal, error) {
	return s.repo.GetAll(enabledOnly, nil).Collect(ctx)
}

// Create inserts a journal with its settings in one transaction.
func (s *Service) Create(ctx context.Context, j *entity.Journal) (*entity.Journal, error) {
	err := database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := s.repo.WithHandle(tx).Insert(ctx, j)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	s.Invalidate(j.Path)
	return j, nil
}

// Update rewrites a journal and drops both its old and new paths from the cache.
func (s *Service) Update(ctx context.Context, j *entity.Journal) (*entity.Journal, error) {
	existing, err := s.Get(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	err = database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		ok, err := s.repo.WithHandle(tx).Update(ctx, j)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(existing.Path)
	s.Invalidate(j.Path)
	return j, nil
}

// Delete removes a journal and everything it owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.repo.WithHandle(tx).DeleteByID(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete journal %d: %w", id, err)
	}
	s.Invalidate(existing.Path)
	s.logger.Infow("journal deleted", "journal_id", id, "path", existing.Path)
	return nil
}
