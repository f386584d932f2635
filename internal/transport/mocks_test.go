package transport

import (
	"context"
	"net/http"
	"time"

	"straus/internal/domain"
	"straus/internal/middleware"
	"straus/internal/repository"
	"straus/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stub services. Unset functions panic so a test only wires what it expects
// to be called.

type stubOrderService struct {
	list      func(ctx context.Context) ([]*domain.Order, error)
	get       func(ctx context.Context, id int64) (*domain.Order, error)
	create    func(ctx context.Context, input service.OrderInput) (*domain.Order, error)
	update    func(ctx context.Context, id int64, input service.OrderInput) (*domain.Order, error)
	add       func(ctx context.Context, id int64, productIDs []int64) (*domain.Order, error)
	remove    func(ctx context.Context, id, productID int64) (*domain.Order, error)
	delete    func(ctx context.Context, id int64) error
	reconcile func(ctx context.Context) (repository.ReconcileResult, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.list(ctx)
}

func (s *stubOrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.get(ctx, id)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, input service.OrderInput) (*domain.Order, error) {
	return s.create(ctx, input)
}

func (s *stubOrderService) UpdateOrder(ctx context.Context, id int64, input service.OrderInput) (*domain.Order, error) {
	return s.update(ctx, id, input)
}

func (s *stubOrderService) AddProducts(ctx context.Context, id int64, productIDs []int64) (*domain.Order, error) {
	return s.add(ctx, id, productIDs)
}

func (s *stubOrderService) RemoveProduct(ctx context.Context, id, productID int64) (*domain.Order, error) {
	return s.remove(ctx, id, productID)
}

func (s *stubOrderService) DeleteOrder(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

func (s *stubOrderService) Reconcile(ctx context.Context) (repository.ReconcileResult, error) {
	return s.reconcile(ctx)
}

type stubCatalogService struct {
	listCategories func(ctx context.Context) ([]*domain.Category, error)
	getCategory    func(ctx context.Context, id int64) (*domain.Category, error)
	createCategory func(ctx context.Context, name string) (*domain.Category, error)
	updateCategory func(ctx context.Context, id int64, name string) (*domain.Category, error)
	deleteCategory func(ctx context.Context, id int64) error

	listProducts  func(ctx context.Context, filter repository.ProductFilter) (*service.ProductPage, error)
	getProduct    func(ctx context.Context, id int64) (*domain.Product, error)
	createProduct func(ctx context.Context, input service.ProductInput) (*domain.Product, error)
	updateProduct func(ctx context.Context, id int64, input service.ProductInput) (*domain.Product, error)
	deleteProduct func(ctx context.Context, id int64) error
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.listCategories(ctx)
}

func (s *stubCatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.getCategory(ctx, id)
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	return s.createCategory(ctx, name)
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	return s.updateCategory(ctx, id, name)
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteCategory(ctx, id)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*service.ProductPage, error) {
	return s.listProducts(ctx, filter)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.getProduct(ctx, id)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	return s.createProduct(ctx, input)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id int64, input service.ProductInput) (*domain.Product, error) {
	return s.updateProduct(ctx, id, input)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteProduct(ctx, id)
}

// Fixtures

var (
	pizzas  = &domain.Category{ID: 1, Name: "Pizza"}
	drinks  = &domain.Category{ID: 2, Name: "Drinks"}
	created = time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)
)

func fixtureProduct(id int64, name string, category *domain.Category, price string, sold int) *domain.Product {
	return &domain.Product{
		ID:             id,
		Name:           name,
		CategoryID:     category.ID,
		Category:       category,
		Price:          decimal.RequireFromString(price),
		SoldItemsCount: sold,
		CreatedAt:      created,
	}
}

func fixtureOrder(id int64, name string, products ...*domain.Product) *domain.Order {
	return &domain.Order{
		ID:           id,
		CustomerName: name,
		TotalAmount:  domain.ComputeTotal(products),
		OrderDate:    created,
		Products:     products,
	}
}

// allowAll stands in for the admin guard in handler tests
func allowAll(next http.Handler) http.Handler { return next }

// newRouter mounts handlers the way the server does
func newRouter(orders service.OrderService, catalog service.CatalogService, adminOnly func(http.Handler) http.Handler) http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	r.Use(middleware.ErrorHandlingMiddleware(logger))

	r.Route("/api/v1", func(r chi.Router) {
		if orders != nil {
			NewOrderHandler(orders, logger).RegisterRoutes(r)
			NewAdminHandler(orders, logger).RegisterRoutes(r, adminOnly)
		}
		if catalog != nil {
			NewCategoryHandler(catalog, logger).RegisterRoutes(r, adminOnly)
			NewProductHandler(catalog, logger).RegisterRoutes(r, adminOnly)
		}
	})

	return r
}
