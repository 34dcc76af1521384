package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleViewer    Role = "viewer"
)

type contextKey string

const userContextKey contextKey = "user"

var (
	ErrTokenMissing = errors.New("authorization token is missing")
	ErrTokenInvalid = errors.New("authorization token is invalid")
)

// Authenticator verifies HS256 tokens issued by the tournament platform.
// With an empty secret every request passes and everyone may modify.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: []byte(secret), logger: logger.With(slog.String("component", "auth"))}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Authenticate puts the token claims into the request context. Requests
// without a token continue anonymously; a bad token is rejected.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after Authenticate.
func (a *Authenticator) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			userRole, err := GetUserRoleFromContext(r.Context())
			if err != nil {
				if errors.Is(err, ErrTokenMissing) {
					http.Error(w, ErrTokenMissing.Error(), http.StatusUnauthorized)
					return
				}
				http.Error(w, ErrTokenInvalid.Error(), http.StatusUnauthorized)
				return
			}
			userID, err := GetUserIDFromContext(r.Context())
			if err != nil {
				http.Error(w, ErrTokenInvalid.Error(), http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if role == userRole {
					a.logger.InfoContext(r.Context(), "operator request",
						slog.Int("user_id", userID),
						slog.String("role", string(userRole)),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("request_id", chiMiddleware.GetReqID(r.Context())))
					next.ServeHTTP(w, r)
					return
				}
			}

			a.logger.WarnContext(r.Context(), "operator request forbidden",
				slog.Int("user_id", userID),
				slog.String("role", string(userRole)),
				slog.String("path", r.URL.Path))
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// CanModify reports whether the request may change a schedule.
func (a *Authenticator) CanModify(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	role, err := GetUserRoleFromContext(r.Context())
	if err != nil {
		return false
	}
	return role == RoleAdmin || role == RoleOrganizer
}

func (a *Authenticator) ParseToken(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// IssueToken signs a token the way the platform does. Used by tooling and tests.
func IssueToken(secret string, userID int, role Role, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		jwtClaimUserID: userID,
		jwtClaimRole:   string(role),
		"exp":          time.Now().Add(ttl).Unix(),
		"iat":          time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Браузеры не умеют ставить заголовки на websocket, поэтому токен
// допускается и в query-параметре access_token.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
