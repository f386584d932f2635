package transport

import (
	"net/http"

	"straus/internal/middleware"
	"straus/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler exposes maintenance operations
type AdminHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(orders service.OrderService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		orders: orders,
		logger: logger,
	}
}

// RegisterRoutes registers admin routes, all behind adminOnly
func (h *AdminHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/reconcile", h.Reconcile)
	})
}

// Reconcile recomputes every order total and sold count and reports how
// many rows had drifted
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.orders.Reconcile(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to reconcile counters")
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	h.logger.Info("Counters reconciled",
		zap.String("user_id", userID),
		zap.Int64("orders_updated", result.OrdersUpdated),
		zap.Int64("products_updated", result.ProductsUpdated),
	)

	middleware.RespondWithJSON(w, http.StatusOK, result)
}
