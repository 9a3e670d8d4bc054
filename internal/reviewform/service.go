package reviewform

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
)

// sentinel errors for common failure modes
var (
	ErrNotFound        = errors.New("review form not found")
	ErrElementNotFound = errors.New("review form element not found")
	ErrInUse           = errors.New("review form in use")
	ErrInvalid         = errors.New("invalid review form")
)

// Service encapsulates review form management for one owner at a time.
type Service struct {
	db       *sqlx.DB
	forms    *repo.ReviewFormRepo
	elements *repo.ElementRepo
	logger   *zap.SugaredLogger
}

func NewService(db *sqlx.DB, forms *repo.ReviewFormRepo, elements *repo.ElementRepo, logger *zap.SugaredLogger) *Service {
	return &Service{db: db, forms: forms, elements: elements, logger: logger}
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, dao.ErrNotFound) {
		return sentinel
	}
	return err
}

// List returns one page of the owner's forms and the total count.
func (s *Service) List(ctx context.Context, owner dao.Owner, rng *dao.Range) ([]*entity.ReviewForm, int, error) {
	rs := s.forms.GetByOwner(owner, rng)
	total, err := rs.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	forms, err := rs.Collect(ctx)
	if err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

// ListActive returns the owner's active forms.
func (s *Service) ListActive(ctx context.Context, owner dao.Owner) ([]*entity.ReviewForm, error) {
	return s.forms.GetActiveByOwner(owner, nil).Collect(ctx)
}

// Get returns a form of owner.
func (s *Service) Get(ctx context.Context, owner dao.Owner, id int64) (*entity.ReviewForm, error) {
	f, err := s.forms.GetByID(ctx, id, &owner)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return f, nil
}

func validate(f *entity.ReviewForm) error {
	if len(f.Title) == 0 {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	for _, locale := range f.Title.Locales() {
		if err := dao.ValidateLocale(locale); err != nil || locale == "" {
			return fmt.Errorf("%w: title locale %q", ErrInvalid, locale)
		}
	}
	return nil
}

// Create appends a new form to the owner's list.
func (s *Service) Create(ctx context.Context, owner dao.Owner, in *entity.ReviewForm) (*entity.ReviewForm, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	in.ID = 0
	in.Owner = owner
	err := database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		forms := s.forms.WithHandle(tx)
		maxSeq, err := forms.MaxSeq(ctx, owner)
		if err != nil {
			return err
		}
		in.Seq = maxSeq + 1
		_, err = forms.Insert(ctx, in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create review form: %w", err)
	}
	s.logger.Debugw("review form created", "review_form_id", in.ID, "owner", owner.String())
	return in, nil
}

// Update rewrites the title, description and active flag of an existing form.
// Position and owner are kept.
func (s *Service) Update(ctx context.Context, owner dao.Owner, in *entity.ReviewForm) (*entity.ReviewForm, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, owner, in.ID)
	if err != nil {
		return nil, err
	}
	existing.Title = in.Title
	existing.Description = in.Description
	existing.Active = in.Active
	err = database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		ok, err := s.forms.WithHandle(tx).Update(ctx, existing)
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
	return existing, nil
}

// Delete removes an unused form with its elements and closes the gap in the
// owner's sequence.
func (s *Service) Delete(ctx context.Context, owner dao.Owner, id int64) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	unused, err := s.forms.UnusedCheck(ctx, id)
	if err != nil {
		return notFound(err, ErrNotFound)
	}
	if !unused {
		return ErrInUse
	}
	err = database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		forms := s.forms.WithHandle(tx)
		if err := forms.DeleteByID(ctx, id); err != nil {
			return err
		}
		return forms.Resequence(ctx, owner)
	})
	if err != nil {
		return fmt.Errorf("delete review form %d: %w", id, err)
	}
	s.logger.Infow("review form deleted", "review_form_id", id, "owner", owner.String())
	return nil
}

// Copy duplicates a form and its elements. The copy is inactive and is
// placed last.
func (s *Service) Copy(ctx context.Context, owner dao.Owner, id int64) (*entity.ReviewForm, error) {
	src, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	elements, err := s.elements.GetByReviewFormID(id, nil).Collect(ctx)
	if err != nil {
		return nil, err
	}
	cp := &entity.ReviewForm{
		Owner:       owner,
		Title:       src.Title.Clone(),
		Description: src.Description.Clone(),
	}
	err = database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		forms := s.forms.WithHandle(tx)
		maxSeq, err := forms.MaxSeq(ctx, owner)
		if err != nil {
			return err
		}
		cp.Seq = maxSeq + 1
		if _, err := forms.Insert(ctx, cp); err != nil {
			return err
		}
		els := s.elements.WithHandle(tx)
		for _, e := range elements {
			e.ID = 0
			e.ReviewFormID = cp.ID
			if _, err := els.Insert(ctx, e); err != nil {
				return err
			}
		}
		return forms.Resequence(ctx, owner)
	})
	if err != nil {
		return nil, fmt.Errorf("copy review form %d: %w", id, err)
	}
	return s.Get(ctx, owner, cp.ID)
}

// Reorder places the listed forms first, in the given order, then
// renumbers all of the owner's forms.
func (s *Service) Reorder(ctx context.Context, owner dao.Owner, ids []int64) error {
	return database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		forms := s.forms.WithHandle(tx)
		for _, id := range ids {
			ok, err := forms.Exists(ctx, id, &owner)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotFound
			}
		}
		// unlisted forms keep their relative order after the listed ones
		base := -float64(len(ids))
		for i, id := range ids {
			if err := forms.SetSeq(ctx, id, base+float64(i)); err != nil {
				return err
			}
		}
		return forms.Resequence(ctx, owner)
	})
}

// ListElements returns the form's elements in order.
func (s *Service) ListElements(ctx context.Context, owner dao.Owner, formID int64) ([]*entity.Element, error) {
	if _, err := s.Get(ctx, owner, formID); err != nil {
		return nil, err
	}
	return s.elements.GetByReviewFormID(formID, nil).Collect(ctx)
}

// AddElement appends an element to an unused form.
func (s *Service) AddElement(ctx context.Context, owner dao.Owner, formID int64, e *entity.Element) (*entity.Element, error) {
	form, err := s.Get(ctx, owner, formID)
	if err != nil {
		return nil, err
	}
	if form.InUse() {
		return nil, ErrInUse
	}
	if !e.ElementType.Valid() {
		return nil, fmt.Errorf("%w: unknown element type %d", ErrInvalid, int(e.ElementType))
	}
	if len(e.Question) == 0 {
		return nil, fmt.Errorf("%w: question is required", ErrInvalid)
	}
	if e.ElementType.MultipleResponses() && len(e.PossibleResponses) == 0 {
		return nil, fmt.Errorf("%w: %s requires possible responses", ErrInvalid, e.ElementType)
	}
	e.ID = 0
	e.ReviewFormID = formID
	err = database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		els := s.elements.WithHandle(tx)
		maxSeq, err := els.MaxSeq(ctx, formID)
		if err != nil {
			return err
		}
		e.Seq = maxSeq + 1
		_, err = els.Insert(ctx, e)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add review form element: %w", err)
	}
	return e, nil
}

// DeleteElement removes an element of an unused form and renumbers the rest.
func (s *Service) DeleteElement(ctx context.Context, owner dao.Owner, formID, elementID int64) error {
	form, err := s.Get(ctx, owner, formID)
	if err != nil {
		return err
	}
	if form.InUse() {
		return ErrInUse
	}
	ok, err := s.elements.Exists(ctx, elementID, &formID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	return database.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		els := s.elements.WithHandle(tx)
		if err := els.DeleteByID(ctx, elementID); err != nil {
			return err
		}
		return els.Resequence(ctx, formID)
	})
}
