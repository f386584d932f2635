package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"straus/internal/database"
	"straus/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows and pages a product listing
type ProductFilter struct {
	CategoryID *int64
	Query      string // case-insensitive name match
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.category_id, p.price, p.sold_items_count, p.created_at, c.id, c.name
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProduct reads productColumns. Any lead destinations are scanned first,
// for queries that select extra columns ahead of the product.
func scanProduct(row rowScanner, lead ...interface{}) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	dest := append(lead,
		&product.ID,
		&product.Name,
		&product.CategoryID,
		&product.Price,
		&product.SoldItemsCount,
		&product.CreatedAt,
		&product.Category.ID,
		&product.Category.Name,
	)
	return product, row.Scan(dest...)
}

// Create inserts a new product. The sold counter always starts at zero.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, category_id, price)
		VALUES ($1, $2, $3)
		RETURNING id, sold_items_count, created_at
	`

	err := r.db.QueryRowContext(ctx, query, product.Name, product.CategoryID, product.Price).
		Scan(&product.ID, &product.SoldItemsCount, &product.CreatedAt)

	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update writes name, category and price. When the price changes, every
// order containing the product gets its total recomputed.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var oldPrice decimal.Decimal
		err := tx.QueryRowContext(ctx, `SELECT price FROM products WHERE id = $1 FOR UPDATE`, product.ID).
			Scan(&oldPrice)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to lock product: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE products
			SET name = $2, category_id = $3, price = $4
			WHERE id = $1
			RETURNING sold_items_count, created_at
		`, product.ID, product.Name, product.CategoryID, product.Price).
			Scan(&product.SoldItemsCount, &product.CreatedAt)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("failed to update product: %w", err)
		}

		if oldPrice.Equal(product.Price) {
			return nil
		}

		orderIDs, err := ordersReferencing(ctx, tx, []int64{product.ID})
		if err != nil {
			return err
		}

		return recomputeOrderTotals(ctx, tx, orderIDs)
	})
}

// Delete removes a product. Orders that held it lose the association and get
// their totals recomputed.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		locked, err := lockProducts(ctx, tx, []int64{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrProductNotFound
		}

		orderIDs, err := ordersReferencing(ctx, tx, []int64{id})
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		return recomputeOrderTotals(ctx, tx, orderIDs)
	})
}

// FindByID retrieves a product with its category
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products with optional category and name filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":             true,
		"price":            true,
		"created_at":       true,
		"sold_items_count": true,
	}

	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at" // Default sort field
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc // Default sort order
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	// Build the WHERE clause
	var conditions []string
	args := []interface{}{}
	argIndex := 1

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", argIndex))
		args = append(args, "%"+q+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total products
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY p.%s %s, p.id ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}
