package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvelasquez124/shopping-cart-app/internal/order/application"
	"github.com/dvelasquez124/shopping-cart-app/internal/order/domain"
)

// RequestUser is how the auth middleware hands the authenticated
// requester to this handler.
type RequestUser struct {
	ID    string
	Admin bool
}

type userKeyType struct{}

var userKey userKeyType

func WithRequestUser(ctx context.Context, u RequestUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// RequestUserFrom reports the user installed by WithRequestUser, if any.
func RequestUserFrom(ctx context.Context) (RequestUser, bool) {
	u, ok := ctx.Value(userKey).(RequestUser)
	return u, ok
}

func requestUser(r *http.Request) (RequestUser, bool) {
	return RequestUserFrom(r.Context())
}

// IdempotencyGuard deduplicates placement retries; nil disables the
// guard.
type IdempotencyGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Handler struct {
	log     *slog.Logger
	service *application.Service
	idem    IdempotencyGuard
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, idem IdempotencyGuard) *Handler {
	return &Handler{
		log:     log,
		service: service,
		idem:    idem,
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes is meant to be mounted under an /orders prefix.
// requireUser/requireAdmin are the session middlewares; handlers trust
// the RequestUser they install.
func (h *Handler) Routes(requireUser, requireAdmin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.placeOrder)
		r.Get("/mine", h.myOrders)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Patch("/{id}/status", h.setStatus)
		r.Delete("/{id}", h.deleteOrder)
	})
	return r
}

type placeOrderReq struct {
	Items []application.ItemInput `json:"items"`
}

type orderLineResp struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	PriceAtPurchase int64  `json:"priceAtPurchase"`
	Quantity        int    `json:"quantity"`
}

type orderResp struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Items     []orderLineResp `json:"items"`
	Subtotal  int64           `json:"subtotal"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// OrderPayload renders an order in the API wire shape. Other handler
// packages that return orders (the admin customer views) use it so the
// shape stays in one place.
func OrderPayload(o domain.Order) any {
	return toOrderResp(o)
}

func toOrderResp(o domain.Order) orderResp {
	items := make([]orderLineResp, 0, len(o.Lines))
	for _, ln := range o.Lines {
		items = append(items, orderLineResp{
			ProductID:       ln.ProductID,
			Name:            ln.Name,
			PriceAtPurchase: ln.PriceCents,
			Quantity:        ln.Quantity,
		})
	}
	return orderResp{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Subtotal:  o.SubtotalCents,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrderHTTP")
	defer span.End()

	u, ok := requestUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		seen, err := h.idem.Seen(ctx, idemKey)
		if err != nil {
			h.log.Error("idempotency check failed", "err", err)
		} else if seen {
			writeError(w, http.StatusConflict, "duplicate request")
			return
		}
	}

	o, err := h.service.PlaceOrder(ctx, u.ID, req.Items)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			_ = h.idem.Release(ctx, idemKey)
		}
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": "Order placed.",
		"order":   toOrderResp(o),
	})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := requestUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.service.ListOrdersForUser(r.Context(), u.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"count": len(out), "orders": out})
}

type setStatusReq struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	o, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "Order updated.", "order": toOrderResp(o)})
}

type restockedResp struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	NewQuantity int    `json:"newQuantity"`
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	restocked, err := h.service.DeleteAndRestock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]restockedResp, 0, len(restocked))
	for _, it := range restocked {
		out = append(out, restockedResp{ProductID: it.ProductID, Name: it.Name, NewQuantity: it.NewQuantity})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "Order deleted.", "restocked": out})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr domain.ValidationError
		nfe  domain.NotFoundError
		ise  domain.InsufficientStockError
		perr domain.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nfe):
		writeError(w, http.StatusNotFound, nfe.Error())
	case errors.As(err, &ise):
		writeError(w, http.StatusConflict, ise.Error())
	case errors.As(err, &perr):
		h.log.Error("persistence failure", "err", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		h.log.Error("unexpected failure", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
