package router

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/announcement"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/comment"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/policy"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/reviewform"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/utilities"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// statusRecorder remembers the status and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// RequestIDMiddleware keeps an inbound X-Request-ID or mints one, and echoes
// it on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := utilities.RequestIDOrNew(r.Header.Get(requestIDHeader))
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestID returns the id assigned by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware writes one access log line per request. Server errors are
// logged at error level, client errors at info and the rest at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r)
			if sr.status == 0 {
				sr.status = http.StatusOK
			}
			log := logger.Debugw
			switch {
			case sr.status >= http.StatusInternalServerError:
				log = logger.Errorw
			case sr.status >= http.StatusBadRequest:
				log = logger.Infow
			}
			log("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"journal", r.PathValue("journal"),
				"status", sr.status,
				"duration", time.Since(start),
				"bytes", sr.size,
			)
		})
	}
}

// APIHeadersMiddleware sets the headers every JSON response carries.
// Responses to requests with credentials are never cached.
func APIHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if r.Header.Get("Authorization") != "" {
				h.Set("Cache-Control", "no-store")
			}
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RegisterRoutes mounts every endpoint on a ServeMux and wraps it with the
// request id, logging and header middleware.
func RegisterRoutes(logger *zap.SugaredLogger, c *app.Container) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := c.DB.PingContext(r.Context()); err != nil {
			logger.Warnw("health check db ping failed", "err", err)
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	journals := c.JournalService()
	verifier := c.TokenVerifier()
	inJournal := policy.RequireJournal(journals, logger)
	manager := policy.RequireRole(verifier, logger, policy.RoleManager)
	participant := policy.RequireRole(verifier, logger, policy.RoleManager, policy.RoleEditor, policy.RoleReviewer, policy.RoleAuthor)

	journalHandler := journal.NewHandler(journals, logger)
	mux.HandleFunc("GET /journals", journalHandler.List)

	announcements := announcement.NewHandler(c.AnnouncementService(), logger)
	mux.Handle("GET /journals/{journal}/announcements", chain(announcements.List, inJournal))
	mux.Handle("GET /journals/{journal}/announcements/{id}", chain(announcements.Get, inJournal))

	forms := reviewform.NewHandler(c.ReviewFormService(), logger)
	mux.Handle("GET /journals/{journal}/review-forms", chain(forms.List, inJournal, manager))
	mux.Handle("POST /journals/{journal}/review-forms", chain(forms.Create, inJournal, manager))
	mux.Handle("PUT /journals/{journal}/review-forms/order", chain(forms.Reorder, inJournal, manager))
	mux.Handle("GET /journals/{journal}/review-forms/{id}", chain(forms.Get, inJournal, manager))
	mux.Handle("PUT /journals/{journal}/review-forms/{id}", chain(forms.Update, inJournal, manager))
	mux.Handle("DELETE /journals/{journal}/review-forms/{id}", chain(forms.Delete, inJournal, manager))
	mux.Handle("POST /journals/{journal}/review-forms/{id}/copy", chain(forms.Copy, inJournal, manager))
	mux.Handle("GET /journals/{journal}/review-forms/{id}/elements", chain(forms.ListElements, inJournal, manager))
	mux.Handle("POST /journals/{journal}/review-forms/{id}/elements", chain(forms.AddElement, inJournal, manager))
	mux.Handle("DELETE /journals/{journal}/review-forms/{id}/elements/{elementId}", chain(forms.DeleteElement, inJournal, manager))

	comments := comment.NewHandler(c.CommentService(), logger)
	mux.Handle("GET /journals/{journal}/submissions/{id}/comments", chain(comments.List, inJournal, participant))
	mux.Handle("POST /journals/{journal}/submissions/{id}/comments", chain(comments.Post, inJournal, participant))

	return chain(mux.ServeHTTP, RequestIDMiddleware(), LoggingMiddleware(logger), APIHeadersMiddleware())
}
