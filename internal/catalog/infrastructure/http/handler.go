package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/application"
	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

// Routes is meant to be mounted under a /products prefix; paths here
// are relative to it.
func (h *Handler) Routes(requireAdmin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/range", h.priceRange)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/restock", h.restock)
	})
	return r
}

type productResp struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	QuantityInStock int       `json:"quantityInStock"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toProductResp(p domain.Product) productResp {
	return productResp{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.PriceCents,
		QuantityInStock: p.QuantityInStock,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (h *Handler) writeProducts(w http.ResponseWriter, products []domain.Product) {
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) priceRange(w http.ResponseWriter, r *http.Request) {
	min, err1 := strconv.ParseInt(r.URL.Query().Get("min"), 10, 64)
	max, err2 := strconv.ParseInt(r.URL.Query().Get("max"), 10, 64)
	if err1 != nil {
		min = 0
	}
	if err2 != nil {
		max = int64(1) << 50
	}

	products, err := h.service.PriceRange(r.Context(), min, max)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toProductResp(p))
}

type createProductReq struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           int64  `json:"price"`
	QuantityInStock int    `json:"quantityInStock"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	p, err := h.service.Create(r.Context(), application.CreateProductInput{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.Price,
		QuantityInStock: req.QuantityInStock,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "Product created.", "product": toProductResp(p)})
}

type updateProductReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), domain.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.Price,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "Product updated.", "product": toProductResp(p)})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "Product deleted.", "product": toProductResp(p)})
}

type restockReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var req restockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	newQty, err := h.service.Restock(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "Product restocked.", "newQuantity": newQty})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr domain.ValidationError
		nfe  domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &nfe):
		writeError(w, http.StatusNotFound, nfe.Error())
	default:
		h.log.Error("catalog failure", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
