package transport

import (
	"bytes"
	"encoding/json"
	"net/http"

	"straus/internal/middleware"
	"straus/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderRequest represents the create, replace and add payloads. Products is
// kept raw so a malformed list is reported as such rather than as a broken
// body.
type OrderRequest struct {
	CustomerName *string         `json:"customer_name"`
	Products     json.RawMessage `json:"products"`
}

// productIDs returns the requested ids, or ErrInvalidProducts unless the
// field is a non-empty JSON array of integers.
func (req OrderRequest) productIDs() ([]int64, error) {
	raw := bytes.TrimSpace(req.Products)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, service.ErrInvalidProducts
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil || len(ids) == 0 {
		return nil, service.ErrInvalidProducts
	}
	return ids, nil
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)

			r.Post("/products", h.AddProducts)
			r.Delete("/products/{productId}", h.RemoveProduct)
		})
	})
}

// List handles listing orders in the slim list shape
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to list orders")
		return
	}

	out := make([]OrderListItem, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderListItem(o))
	}
	middleware.RespondWithJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to get order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order))
}

// Create handles order creation
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ids, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), service.OrderInput{
		CustomerName: req.CustomerName,
		ProductIDs:   ids,
	})
	if err != nil {
		respondError(w, h.logger, err, "failed to create order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Update handles PUT and PATCH. The product list is replaced and the
// customer name kept unless given.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	req, ids, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	order, err := h.orders.UpdateOrder(r.Context(), id, service.OrderInput{
		CustomerName: req.CustomerName,
		ProductIDs:   ids,
	})
	if err != nil {
		respondError(w, h.logger, err, "failed to update order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order))
}

// AddProducts handles linking more products to an order
func (h *OrderHandler) AddProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	_, ids, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	order, err := h.orders.AddProducts(r.Context(), id, ids)
	if err != nil {
		respondError(w, h.logger, err, "failed to add products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order))
}

// RemoveProduct handles unlinking one product from an order
func (h *OrderHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	productID, ok := pathID(r, "productId")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product is not part of the order")
		return
	}

	order, err := h.orders.RemoveProduct(r.Context(), id, productID)
	if err != nil {
		respondError(w, h.logger, err, "failed to remove product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeOrder reads an OrderRequest and its product ids, writing the 400
// itself when either is unusable.
func (h *OrderHandler) decodeOrder(w http.ResponseWriter, r *http.Request) (OrderRequest, []int64, bool) {
	var req OrderRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		h.logger.Debug("Order decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, nil, false
	}

	ids, err := req.productIDs()
	if err != nil {
		respondError(w, h.logger, err, "invalid products")
		return req, nil, false
	}

	return req, ids, true
}
