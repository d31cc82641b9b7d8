package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dvelasquez124/shopping-cart-app/internal/customer/application"
	"github.com/dvelasquez124/shopping-cart-app/internal/customer/domain"
	orderapp "github.com/dvelasquez124/shopping-cart-app/internal/order/application"
	orderhttp "github.com/dvelasquez124/shopping-cart-app/internal/order/infrastructure/http"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	orders  *orderapp.Service
}

func NewHandler(log *slog.Logger, service *application.Service, orders *orderapp.Service) *Handler {
	return &Handler{log: log, service: service, orders: orders}
}

// AuthRoutes mounts the public session endpoints.
func (h *Handler) AuthRoutes() http.Handler {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	return r
}

// CustomerRoutes holds the admin-only account views, meant to be
// mounted under a /customers prefix.
func (h *Handler) CustomerRoutes(requireAdmin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requireAdmin)
	r.Get("/", h.listCustomers)
	r.Get("/{id}", h.getCustomer)
	r.Get("/{id}/orders", h.customerOrders)
	return r
}

type userResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResp(u domain.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	u, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Account created.", "user": toUserResp(u)})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	token, u, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": toUserResp(u)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.log.Error("logout failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	includeAdmins := r.URL.Query().Get("includeAdmins") == "true"
	users, err := h.service.ListCustomers(r.Context(), includeAdmins)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "customers": out})
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": toUserResp(u)})
}

// customerOrders is the admin view of one account's order history,
// newest first.
func (h *Handler) customerOrders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetUser(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	orders, err := h.orders.ListOrdersForUser(r.Context(), id)
	if err != nil {
		h.log.Error("listing customer orders failed", "err", err, "user_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderhttp.OrderPayload(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "orders": out})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr domain.ValidationError
		nfe  domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.As(err, &nfe):
		writeError(w, http.StatusNotFound, nfe.Error())
	default:
		h.log.Error("unexpected failure", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
