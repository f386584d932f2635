package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"straus/internal/domain"
	"straus/internal/middleware"
	"straus/internal/repository"
	"straus/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const orderDateLayout = "2006-01-02"

// CategoryResponse is the public shape of a category
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductResponse is the public shape of a product. Money is a fixed two
// decimal string.
type ProductResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Category       CategoryResponse `json:"category"`
	Price          string           `json:"price"`
	SoldItemsCount int              `json:"sold_items_count"`
	CreatedAt      string           `json:"created_at"`
}

// ProductPageResponse is one page of a product listing
type ProductPageResponse struct {
	Items    []ProductResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// OrderResponse is the detail shape returned by order reads and writes
type OrderResponse struct {
	ID           int64             `json:"id"`
	CustomerName string            `json:"customer_name"`
	TotalAmount  string            `json:"total_amount"`
	OrderDate    string            `json:"order_date"`
	Products     []ProductResponse `json:"products"`
}

// OrderListItem is the slim shape used by the order listing
type OrderListItem struct {
	ID           int64              `json:"id"`
	CustomerName string             `json:"customer_name"`
	OrderDate    string             `json:"order_date"`
	Products     []OrderListProduct `json:"products"`
}

// OrderListProduct names a product and its category inside OrderListItem
type OrderListProduct struct {
	Name     string           `json:"name"`
	Category CategoryNameOnly `json:"category"`
}

type CategoryNameOnly struct {
	Name string `json:"name"`
}

func toCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}

func toProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       CategoryResponse{ID: p.CategoryID},
		Price:          p.Price.StringFixed(2),
		SoldItemsCount: p.SoldItemsCount,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Category != nil {
		resp.Category = toCategoryResponse(p.Category)
	}
	return resp
}

func toProductResponses(products []*domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		TotalAmount:  o.TotalAmount.StringFixed(2),
		OrderDate:    o.OrderDate.Format(orderDateLayout),
		Products:     toProductResponses(o.Products),
	}
}

func toOrderListItem(o *domain.Order) OrderListItem {
	products := make([]OrderListProduct, 0, len(o.Products))
	for _, p := range o.Products {
		item := OrderListProduct{Name: p.Name}
		if p.Category != nil {
			item.Category.Name = p.Category.Name
		}
		products = append(products, item)
	}

	return OrderListItem{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		OrderDate:    o.OrderDate.Format(orderDateLayout),
		Products:     products,
	}
}

// pathID parses a positive int64 URL parameter
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// missingProductsMessage renders ids the way clients of the shop API expect,
// e.g. "Products with ids [3, 7] do not exist."
func missingProductsMessage(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("Products with ids [%s] do not exist.", strings.Join(parts, ", "))
}

// respondError maps service and repository errors to HTTP responses.
// Anything unrecognised is logged and reported as a 500 with fallback.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var missing *repository.MissingProductsError
	switch {
	case errors.As(err, &missing):
		middleware.RespondWithErrorDetails(w, http.StatusNotFound, missingProductsMessage(missing.IDs),
			map[string]interface{}{"missing_ids": missing.IDs})

	case errors.Is(err, service.ErrInvalidProducts):
		middleware.RespondWithError(w, http.StatusBadRequest, "Field products should be a non empty list of ids")
	case errors.Is(err, service.ErrCustomerNameRequired):
		middleware.RespondWithError(w, http.StatusBadRequest, "Field customer_name not provided")
	case errors.Is(err, service.ErrCustomerNameTooLong),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrNameTooLong),
		errors.Is(err, service.ErrInvalidPrice):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, repository.ErrProductNotInOrder):
		middleware.RespondWithError(w, http.StatusNotFound, "product is not part of the order")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")

	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
