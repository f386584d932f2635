package transport

import (
	"net/http"
	"strconv"
	"strings"

	"straus/internal/middleware"
	"straus/internal/repository"
	"straus/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the create and update payload. sold_items_count
// is derived and has no field here.
type ProductRequest struct {
	Name       string           `json:"name" validate:"required,max=200"`
	CategoryID int64            `json:"category_id" validate:"required,gt=0"`
	Price      *decimal.Decimal `json:"price" validate:"required"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Price:      *req.Price,
	}
}

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers product routes. Writes go through adminOnly.
func (h *ProductHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles the filtered, sorted and paginated product listing
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseProductFilter(r)
	if msg != "" {
		middleware.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductPageResponse{
		Items:    toProductResponses(page.Items),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeOrValidationError(w, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondError(w, h.logger, err, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update handles product changes. A new price flows into the totals of the
// orders holding the product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeOrValidationError(w, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		respondError(w, h.logger, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseProductFilter reads the listing query. A non-empty message reports
// the first invalid parameter.
func parseProductFilter(r *http.Request) (repository.ProductFilter, string) {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Query:  strings.TrimSpace(q.Get("q")),
		SortBy: q.Get("sort_by"),
	}

	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return filter, "category_id must be a positive integer"
		}
		filter.CategoryID = &id
	}

	for name, dst := range map[string]*int{"page": &filter.Page, "page_size": &filter.PageSize} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return filter, name + " must be a positive integer"
			}
			*dst = n
		}
	}

	switch filter.SortBy {
	case "", "name", "price", "created_at", "sold_items_count":
	default:
		return filter, "sort_by must be one of name, price, created_at, sold_items_count"
	}

	switch strings.ToLower(q.Get("sort_order")) {
	case "":
	case "asc":
		filter.SortOrder = repository.SortOrderAsc
	case "desc":
		filter.SortOrder = repository.SortOrderDesc
	default:
		return filter, "sort_order must be asc or desc"
	}

	return filter, ""
}
