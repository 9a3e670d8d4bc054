// Package policy holds the checks a page operation runs before touching data.
// A failing check short-circuits the request with a not-found or an
// authentication error.
package policy

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/journal/entity"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/render"
)

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEditor   = "editor"
	RoleReviewer = "reviewer"
	RoleAuthor   = "author"
)

// RoleIDs maps role names to the numeric ids stored with submission comments.
var RoleIDs = map[string]int64{
	RoleAdmin:    1,
	RoleManager:  16,
	RoleEditor:   17,
	RoleReviewer: 4096,
	RoleAuthor:   65536,
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type ctxKey int

const (
	journalKey ctxKey = iota
	claimsKey
)

// JournalResolver finds the enabled journal for a URL path segment.
type JournalResolver interface {
	Resolve(ctx context.Context, path string) (*entity.Journal, error)
}

// RequireJournal resolves the {journal} path value. Requests for an unknown
// or disabled journal get a 404.
func RequireJournal(resolver JournalResolver, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.PathValue("journal")
			if path == "" {
				render.NotFound(w)
				return
			}
			j, err := resolver.Resolve(r.Context(), path)
			if err != nil {
				if !errors.Is(err, journal.ErrNotFound) {
					logger.Errorw("resolve journal", "path", path, "err", err)
					render.Error(w, http.StatusInternalServerError, "internal error")
					return
				}
				render.NotFound(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), journalKey, j)))
		})
	}
}

// JournalFrom returns the journal resolved by RequireJournal.
func JournalFrom(ctx context.Context) (*entity.Journal, bool) {
	j, ok := ctx.Value(journalKey).(*entity.Journal)
	return j, ok
}

// Claims is the body of a bearer token. Journal, when set, limits the token
// to one journal path.
type Claims struct {
	Roles   []string `json:"roles"`
	Journal string   `json:"journal,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims grant any of roles. Admin grants all.
func (c *Claims) HasRole(roles ...string) bool {
	if slices.Contains(c.Roles, RoleAdmin) {
		return true
	}
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}

// UserID parses the subject as a numeric user id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenVerifier checks HS256 bearer tokens minted by the identity service.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Sign mints a token for claims. Used by tooling and tests.
func (v *TokenVerifier) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses and validates a token string.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return &claims, nil
}

func bearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// RequireRole demands a valid bearer token granting one of roles. A token
// scoped to another journal than the resolved one is rejected unless it is
// an admin token.
func RequireRole(v *TokenVerifier, logger *zap.SugaredLogger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearer(r)
			if err != nil {
				render.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				logger.Debugw("token rejected", "err", err)
				render.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !claims.HasRole(roles...) {
				render.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			if j, ok := JournalFrom(r.Context()); ok && claims.Journal != "" && claims.Journal != j.Path && !claims.HasRole(RoleAdmin) {
				render.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFrom returns the claims accepted by RequireRole.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}
