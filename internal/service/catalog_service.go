package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"straus/internal/domain"
	"straus/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxCategoryNameLength = 100
	maxProductNameLength  = 200
)

var (
	ErrInvalidName  = errors.New("name is required")
	ErrNameTooLong  = errors.New("name is too long")
	ErrInvalidPrice = errors.New("price must be between 0 and 99999999.99 with at most 2 decimal places")
)

// maxPrice is the largest value a DECIMAL(10, 2) column holds
var maxPrice = decimal.RequireFromString("99999999.99")

// ProductInput carries the client-writable product fields
type ProductInput struct {
	Name       string
	CategoryID int64
	Price      decimal.Decimal
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Items    []*domain.Product
	Total    int
	Page     int
	PageSize int
}

// CatalogService defines the interface for category and product management
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	logger       *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		logger:       logger,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name, err := validateName(name, maxCategoryNameLength)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created", zap.Int64("category_id", category.ID))
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	name, err := validateName(name, maxCategoryNameLength)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{ID: id, Name: name}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// DeleteCategory removes the category and, through the cascade, its products
func (s *catalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Items:    products,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	product, err := newProduct(input)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("category_id", product.CategoryID),
	)

	return s.productRepo.FindByID(ctx, product.ID)
}

// UpdateProduct writes the client fields. Totals of orders holding the
// product follow a price change.
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, input ProductInput) (*domain.Product, error) {
	product, err := newProduct(input)
	if err != nil {
		return nil, err
	}
	product.ID = id

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func newProduct(input ProductInput) (*domain.Product, error) {
	name, err := validateName(input.Name, maxProductNameLength)
	if err != nil {
		return nil, err
	}

	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	return &domain.Product{
		Name:       name,
		CategoryID: input.CategoryID,
		Price:      input.Price,
	}, nil
}

func validateName(name string, maxLength int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	if len([]rune(name)) > maxLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() || price.GreaterThan(maxPrice) {
		return ErrInvalidPrice
	}
	if !price.Equal(price.Truncate(2)) {
		return ErrInvalidPrice
	}
	return nil
}
