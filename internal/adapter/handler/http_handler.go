package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rl1809/pet-storefront/internal/core/domain"
	"github.com/rl1809/pet-storefront/internal/core/service"
	"github.com/rl1809/pet-storefront/internal/logger"
)

type HTTPHandler struct {
	storefront *service.StorefrontService
	log        *logger.Logger
}

type AddItemHTTPRequest struct {
	Slug     string `json:"slug"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type UpdateQuantityHTTPRequest struct {
	Quantity *int `json:"quantity"`
}

type UpdateSizeHTTPRequest struct {
	Size string `json:"size"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type SizeOptionResponse struct {
	Size        string `json:"size"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Status      string `json:"status"`
	MaxQuantity int    `json:"maxQuantity"`
}

type ProductResponse struct {
	ID               string               `json:"id"`
	Slug             string               `json:"slug"`
	Name             string               `json:"name"`
	Category         string               `json:"category"`
	ShortDescription string               `json:"shortDescription"`
	LongDescription  string               `json:"longDescription,omitempty"`
	ImageURL         string               `json:"imageUrl"`
	Images           []string             `json:"images,omitempty"`
	FromPrice        int64                `json:"fromPrice"`
	Tags             []string             `json:"tags,omitempty"`
	SEOTitle         string               `json:"seoTitle,omitempty"`
	SEODescription   string               `json:"seoDescription,omitempty"`
	Sizes            []SizeOptionResponse `json:"sizes,omitempty"`
	Related          []ProductResponse    `json:"related,omitempty"`
}

type CartLineResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Size     string `json:"size"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
	ImageURL string `json:"imageUrl"`
}

type SummaryResponse struct {
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	Total     int64 `json:"total"`
	ItemCount int   `json:"itemCount"`
}

type CartResponse struct {
	Items     []CartLineResponse `json:"items"`
	Total     int64              `json:"total"`
	ItemCount int                `json:"itemCount"`
	Summary   SummaryResponse    `json:"summary"`
}

func NewHTTPHandler(storefront *service.StorefrontService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{storefront: storefront, log: log.With("component", "http")}
}

// Router mounts every storefront route on a chi router.
func (h *HTTPHandler) Router(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{slug}", h.GetProduct)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{id}/{size}", h.UpdateQuantity)
			r.Put("/items/{id}/{size}/size", h.UpdateSize)
			r.Delete("/items/{id}/{size}", h.RemoveItem)
		})
	})
	return otelhttp.NewHandler(r, "storefront-http")
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.storefront.Catalog().Search(q.Get("q"), q.Get("category"))

	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.storefront.ProductDetail(chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := toProductResponse(detail.Product)
	for _, opt := range detail.Sizes {
		resp.Sizes = append(resp.Sizes, SizeOptionResponse{
			Size:        string(opt.Size),
			Price:       opt.Price,
			Stock:       opt.Stock,
			Status:      string(opt.Status),
			MaxQuantity: opt.MaxQuantity,
		})
	}
	for _, rel := range detail.Related {
		resp.Related = append(resp.Related, toProductResponse(rel))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.storefront.Catalog().Categories()
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCartResponse(h.storefront.Cart().Cart()))
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Slug == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "slug is required")
		return
	}
	size, err := domain.ParseSize(req.Size)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	cart, err := h.storefront.AddToCart(req.Slug, size, req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(cart))
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	size, err := domain.ParseSize(chi.URLParam(r, "size"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req UpdateQuantityHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	cart, err := h.storefront.SetQuantity(chi.URLParam(r, "id"), size, *req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *HTTPHandler) UpdateSize(w http.ResponseWriter, r *http.Request) {
	oldSize, err := domain.ParseSize(chi.URLParam(r, "size"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req UpdateSizeHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	newSize, err := domain.ParseSize(req.Size)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	cart, err := h.storefront.ChangeSize(chi.URLParam(r, "id"), oldSize, newSize)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	size, err := domain.ParseSize(chi.URLParam(r, "size"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	cart, err := h.storefront.RemoveFromCart(chi.URLParam(r, "id"), size)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.storefront.ClearCart()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidSize):
		writeError(w, http.StatusBadRequest, "invalid_size", err.Error())
	case errors.Is(err, service.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, service.ErrInvalidItem), errors.Is(err, service.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrOutOfStock):
		writeError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, service.ErrQuantityExceedsStock):
		writeError(w, http.StatusConflict, "quantity_exceeds_stock", err.Error())
	case errors.Is(err, service.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "cart is shutting down")
	default:
		h.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Slug:             p.Slug,
		Name:             p.Name,
		Category:         p.Category,
		ShortDescription: p.ShortDescription,
		LongDescription:  p.LongDescription,
		ImageURL:         p.ImageURL,
		Images:           p.Images,
		FromPrice:        p.LowestPrice(),
		Tags:             p.Tags,
		SEOTitle:         p.SEOTitle,
		SEODescription:   p.SEODescription,
	}
}

func toCartResponse(c domain.Cart) CartResponse {
	items := make([]CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, CartLineResponse{
			ID:       l.ProductID,
			Name:     l.ProductName,
			Slug:     l.Slug,
			Size:     string(l.Size),
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal(),
			ImageURL: l.ImageURL,
		})
	}
	s := domain.Summarize(c)
	return CartResponse{
		Items:     items,
		Total:     c.Total,
		ItemCount: c.ItemCount,
		Summary: SummaryResponse{
			Subtotal:  s.Subtotal,
			Shipping:  s.Shipping,
			Total:     s.Total,
			ItemCount: s.ItemCount,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
