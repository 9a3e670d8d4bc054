// Package app wires repositories and services together. A Container is built
// once at process start and passed to whatever needs it.
package app

import (
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement"
	announcementrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment"
	commentrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/dao"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal"
	journalrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/policy"
	reviewrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/review/repo"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform"
	reviewformrepo "github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform/repo"
)

// Registry names of the repositories.
const (
	JournalDAO           = "JournalDAO"
	AnnouncementDAO      = "AnnouncementDAO"
	ReviewFormDAO        = "ReviewFormDAO"
	ReviewFormElementDAO = "ReviewFormElementDAO"
	ReviewAssignmentDAO  = "ReviewAssignmentDAO"
	SubmissionCommentDAO = "SubmissionCommentDAO"
)

// Container owns the repository registry and the services built on it.
type Container struct {
	DB       *sqlx.DB
	Logger   *zap.SugaredLogger
	Config   Config
	Registry *dao.Registry

	once          sync.Once
	journals      *journal.Service
	announcements *announcement.Service
	reviewForms   *reviewform.Service
	comments      *comment.Service
	verifier      *policy.TokenVerifier
}

// Factories maps every repository name to its constructor on db.
func Factories(db *sqlx.DB) map[string]dao.Factory {
	return map[string]dao.Factory{
		JournalDAO:           func() (any, error) { return journalrepo.NewJournalRepo(db), nil },
		AnnouncementDAO:      func() (any, error) { return announcementrepo.NewAnnouncementRepo(db), nil },
		ReviewFormDAO:        func() (any, error) { return reviewformrepo.NewReviewFormRepo(db), nil },
		ReviewFormElementDAO: func() (any, error) { return reviewformrepo.NewElementRepo(db), nil },
		ReviewAssignmentDAO:  func() (any, error) { return reviewrepo.NewAssignmentRepo(db), nil },
		SubmissionCommentDAO: func() (any, error) { return commentrepo.NewCommentRepo(db), nil },
	}
}

func NewContainer(db *sqlx.DB, logger *zap.SugaredLogger, cfg Config) *Container {
	return &Container{
		DB:       db,
		Logger:   logger,
		Config:   cfg,
		Registry: dao.NewRegistry(Factories(db)),
	}
}

// mustLookup resolves a repository. A failure means the factory table is
// broken, which is not recoverable.
func mustLookup[T any](c *Container, name string) T {
	v, err := dao.Lookup[T](c.Registry, name)
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Container) Journals() *journalrepo.JournalRepo {
	return mustLookup[*journalrepo.JournalRepo](c, JournalDAO)
}

func (c *Container) Announcements() *announcementrepo.AnnouncementRepo {
	return mustLookup[*announcementrepo.AnnouncementRepo](c, AnnouncementDAO)
}

func (c *Container) ReviewForms() *reviewformrepo.ReviewFormRepo {
	return mustLookup[*reviewformrepo.ReviewFormRepo](c, ReviewFormDAO)
}

func (c *Container) ReviewFormElements() *reviewformrepo.ElementRepo {
	return mustLookup[*reviewformrepo.ElementRepo](c, ReviewFormElementDAO)
}

func (c *Container) ReviewAssignments() *reviewrepo.AssignmentRepo {
	return mustLookup[*reviewrepo.AssignmentRepo](c, ReviewAssignmentDAO)
}

func (c *Container) SubmissionComments() *commentrepo.CommentRepo {
	return mustLookup[*commentrepo.CommentRepo](c, SubmissionCommentDAO)
}

// build creates the services from whatever the registry holds at first use,
// so test doubles must be registered before the first service accessor call.
func (c *Container) build() {
	c.once.Do(func() {
		c.journals = journal.NewService(c.DB, c.Journals(), c.Config.JournalCacheTTL, c.Logger)
		c.announcements = announcement.NewService(c.DB, c.Announcements())
		c.reviewForms = reviewform.NewService(c.DB, c.ReviewForms(), c.ReviewFormElements(), c.Logger)
		c.comments = comment.NewService(c.SubmissionComments())
		c.verifier = policy.NewTokenVerifier(c.Config.JWTSecret, c.Config.JWTIssuer)
	})
}

func (c *Container) JournalService() *journal.Service {
	c.build()
	return c.journals
}

func (c *Container) AnnouncementService() *announcement.Service {
	c.build()
	return c.announcements
}

func (c *Container) ReviewFormService() *reviewform.Service {
	c.build()
	return c.reviewForms
}

func (c *Container) CommentService() *comment.Service {
	c.build()
	return c.comments
}

func (c *Container) TokenVerifier() *policy.TokenVerifier {
	c.build()
	return c.verifier
}
