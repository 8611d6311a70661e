package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/change-order-api/config"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// loginCacheTTL bounds how long a successful basic-auth check is reused
const loginCacheTTL = 5 * time.Minute

// MiddlewareDB is a struct that holds the database
type MiddlewareDB struct {
	DB     databases.UserDatabase
	Tokens *TokenService

	authenticator auth.Authenticator
}

// SetupGoGuardian sets up the go-guardian basic strategy used by the token endpoint
func (m *MiddlewareDB) SetupGoGuardian() {
	m.authenticator = auth.New()
	cache := store.NewFIFO(context.Background(), loginCacheTTL)
	basicStrategy := basic.New(m.ValidateUser, cache)

	m.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
}

// ValidateUser checks a username and password against the stored bcrypt hash
func (m *MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, username, password string) (auth.Info, error) {
	user, err := m.DB.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	return auth.NewDefaultUser(user.Details.Username, user.ID, []string{string(user.Details.Role)}, nil), nil
}

// CreateToken exchanges basic credentials for a bearer token
func (m *MiddlewareDB) CreateToken(w http.ResponseWriter, r *http.Request) {
	info, err := m.authenticator.Authenticate(r)
	if err != nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, models.ErrAuthRejected)
		return
	}

	identity := models.Identity{Username: info.UserName()}
	if groups := info.Groups(); len(groups) > 0 {
		identity.Role = models.Role(groups[0])
	}

	token, err := m.Tokens.Issue(identity)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.TokenResponse{Token: token, Username: identity.Username, Role: identity.Role})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// Middleware verifies the bearer token and stores the identity on the request
func (m *MiddlewareDB) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		identity, err := m.Tokens.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			zap.S().Infow("unauthorized",
				"url", r.URL.Path,
				"error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, models.ErrAuthRejected)
			return
		}
		zap.S().Debugw("user authenticated", "identity", identity.Username, "role", identity.Role)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireRole lets the request through only for the given roles. It must run
// after Middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, models.ErrAuthRejected)
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				config.ErrorStatus("forbidden", http.StatusForbidden, w, models.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
