package http

import (
	"net/http"
	"strings"

	"github.com/dvelasquez124/shopping-cart-app/internal/customer/application"
	"github.com/dvelasquez124/shopping-cart-app/internal/customer/domain"
	orderhttp "github.com/dvelasquez124/shopping-cart-app/internal/order/infrastructure/http"
)

// Auth turns session tokens into request users. Tokens travel as
// "Authorization: Bearer <token>".
type Auth struct {
	service *application.Service
}

func NewAuth(service *application.Service) *Auth {
	return &Auth{service: service}
}

func bearerToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// RequireUser rejects unauthenticated requests and installs the request
// user for downstream handlers.
func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := a.service.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := orderhttp.WithRequestUser(r.Context(), orderhttp.RequestUser{
			ID:    u.ID,
			Admin: u.Role == domain.RoleAdmin,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin additionally rejects non-admin users.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := orderhttp.RequestUserFrom(r.Context())
		if !ok || !u.Admin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
