package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"straus/internal/domain"
	"straus/internal/events"
	"straus/internal/metrics"
	"straus/internal/repository"

	"go.uber.org/zap"
)

const maxCustomerNameLength = 100

var (
	ErrInvalidProducts      = errors.New("products should be a non empty list of ids")
	ErrCustomerNameRequired = errors.New("customer_name not provided")
	ErrCustomerNameTooLong  = errors.New("customer_name must be at most 100 characters")
)

// OrderInput is a create or replace request. A nil CustomerName keeps the
// current name on replace and is rejected on create.
type OrderInput struct {
	CustomerName *string
	ProductIDs   []int64
}

// OrderService defines the interface for order business logic
type OrderService interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	CreateOrder(ctx context.Context, input OrderInput) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id int64, input OrderInput) (*domain.Order, error)
	AddProducts(ctx context.Context, id int64, productIDs []int64) (*domain.Order, error)
	RemoveProduct(ctx context.Context, id, productID int64) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	Reconcile(ctx context.Context) (repository.ReconcileResult, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &orderService{
		orderRepo: orderRepo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *orderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// CreateOrder stores a new order. The total and the sold counts of its
// products are computed in the same transaction.
func (s *orderService) CreateOrder(ctx context.Context, input OrderInput) (*domain.Order, error) {
	if input.CustomerName == nil || strings.TrimSpace(*input.CustomerName) == "" {
		return nil, ErrCustomerNameRequired
	}
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	order := &domain.Order{CustomerName: strings.TrimSpace(*input.CustomerName)}
	if err := s.orderRepo.Create(ctx, order, input.ProductIDs); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
	)

	return s.committed(ctx, "create", events.EventTypeOrderCreated, order.ID)
}

// UpdateOrder replaces the product list and optionally the customer name
func (s *orderService) UpdateOrder(ctx context.Context, id int64, input OrderInput) (*domain.Order, error) {
	if input.CustomerName != nil && strings.TrimSpace(*input.CustomerName) == "" {
		return nil, ErrCustomerNameRequired
	}
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	var name *string
	if input.CustomerName != nil {
		trimmed := strings.TrimSpace(*input.CustomerName)
		name = &trimmed
	}

	if err := s.orderRepo.ReplaceProducts(ctx, id, name, input.ProductIDs); err != nil {
		return nil, err
	}

	return s.committed(ctx, "update", events.EventTypeOrderUpdated, id)
}

func (s *orderService) AddProducts(ctx context.Context, id int64, productIDs []int64) (*domain.Order, error) {
	if len(productIDs) == 0 {
		return nil, ErrInvalidProducts
	}

	if err := s.orderRepo.AddProducts(ctx, id, productIDs); err != nil {
		return nil, err
	}

	return s.committed(ctx, "add_products", events.EventTypeOrderUpdated, id)
}

func (s *orderService) RemoveProduct(ctx context.Context, id, productID int64) (*domain.Order, error) {
	if err := s.orderRepo.RemoveProduct(ctx, id, productID); err != nil {
		return nil, err
	}

	return s.committed(ctx, "remove_product", events.EventTypeOrderUpdated, id)
}

// DeleteOrder removes the order and releases one sale on each of its products
func (s *orderService) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	s.metrics.OrderMutation("delete")
	s.publish(ctx, events.NewOrderEvent(ctx, events.EventTypeOrderDeleted, &domain.Order{ID: id}))

	return nil
}

// Reconcile recomputes every derived counter
func (s *orderService) Reconcile(ctx context.Context) (repository.ReconcileResult, error) {
	result, err := s.orderRepo.Reconcile(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to reconcile counters: %w", err)
	}

	s.metrics.Reconciled(result.OrdersUpdated, result.ProductsUpdated)

	if result.OrdersUpdated > 0 || result.ProductsUpdated > 0 {
		s.logger.Warn("Derived counters repaired",
			zap.Int64("orders_updated", result.OrdersUpdated),
			zap.Int64("products_updated", result.ProductsUpdated),
		)
	}

	return result, nil
}

// committed reloads a just-written order, counts the mutation and publishes
// its event.
func (s *orderService) committed(ctx context.Context, action, eventType string, id int64) (*domain.Order, error) {
	s.metrics.OrderMutation(action)

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	s.publish(ctx, events.NewOrderEvent(ctx, eventType, order))
	return order, nil
}

// publish logs delivery failures and never fails the request
func (s *orderService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", event.EventType),
			zap.Int64("order_id", event.Payload.OrderID),
			zap.Error(err),
		)
	}
}

func validateOrderInput(input OrderInput) error {
	if len(input.ProductIDs) == 0 {
		return ErrInvalidProducts
	}
	if input.CustomerName != nil && len([]rune(strings.TrimSpace(*input.CustomerName))) > maxCustomerNameLength {
		return ErrCustomerNameTooLong
	}
	return nil
}
