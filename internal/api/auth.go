package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/cognee"
	"github.com/cognee-ai/cognee-go/internal/config"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// principalKey is the context key under which the authenticated user is stored.
type principalKey struct{}

// PrincipalFromContext returns the user resolved by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*accesscontrol.User, bool) {
	user, ok := ctx.Value(principalKey{}).(*accesscontrol.User)
	return user, ok
}

func withPrincipal(ctx context.Context, user *accesscontrol.User) context.Context {
	return context.WithValue(ctx, principalKey{}, user)
}

// authenticator resolves the calling principal once per request. With auth
// disabled every request runs as the configured default user; with auth
// enabled the bearer token's subject claim must name an existing user id.
type authenticator struct {
	store  accesscontrol.Store
	cfg    config.APIConfig
	logger *slog.Logger
}

func newAuthenticator(store accesscontrol.Store, cfg config.APIConfig, logger *slog.Logger) *authenticator {
	return &authenticator{store: store, cfg: cfg, logger: logger}
}

// Middleware attaches the resolved principal to the request context.
func (a *authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r)
		if err != nil {
			a.logger.Warn("authentication failed", "path", r.URL.Path, "error", err)
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), user)))
	})
}

func (a *authenticator) resolve(r *http.Request) (*accesscontrol.User, error) {
	ctx := r.Context()

	if !a.cfg.AuthEnabled {
		return cognee.EnsureUser(ctx, a.store, a.cfg.DefaultUserEmail)
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, types.NewError(types.ErrCodePermissionDenied, "missing authorization header")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, types.NewError(types.ErrCodePermissionDenied, "authorization header is not a bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, types.WrapError(types.ErrCodePermissionDenied, "invalid token", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, types.NewError(types.ErrCodePermissionDenied, "token has no subject claim")
	}
	userID, err := types.ParseID(subject)
	if err != nil {
		return nil, types.WrapError(types.ErrCodePermissionDenied, "token subject is not a user id", err)
	}

	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NewError(types.ErrCodePermissionDenied, "token subject is not a known user")
		}
		return nil, err
	}
	return user, nil
}

// writeAuthError maps resolution failures onto 401 for credential problems
// and the standard mapping for everything else.
func writeAuthError(w http.ResponseWriter, err error) {
	if types.IsPermissionDenied(err) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: err.Error()})
		return
	}
	writeError(w, err)
}
