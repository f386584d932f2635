package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"straus/internal/database"
	"straus/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductsNotFound  = errors.New("products not found")
	ErrProductNotInOrder = errors.New("product not in order")
)

// MissingProductsError lists requested product ids that do not exist.
type MissingProductsError struct {
	IDs []int64
}

func (e *MissingProductsError) Error() string {
	return fmt.Sprintf("products with ids %v do not exist", e.IDs)
}

// Is reports a match against ErrProductsNotFound
func (e *MissingProductsError) Is(target error) bool {
	return target == ErrProductsNotFound
}

// OrderRepository defines the interface for order data access. Every method
// that changes which products an order holds keeps total_amount and
// sold_items_count consistent within the same transaction.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order, productIDs []int64) error
	ReplaceProducts(ctx context.Context, id int64, customerName *string, productIDs []int64) error
	AddProducts(ctx context.Context, id int64, productIDs []int64) error
	RemoveProduct(ctx context.Context, id, productID int64) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	Reconcile(ctx context.Context) (ReconcileResult, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order, links productIDs and fills in the generated id,
// order date and total.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order, productIDs []int64) error {
	productIDs = domain.UniqueIDs(productIDs)

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		found, err := lockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}
		if missing := domain.MissingIDs(productIDs, found); len(missing) > 0 {
			return &MissingProductsError{IDs: missing}
		}

		query := `
			INSERT INTO orders (customer_name)
			VALUES ($1)
			RETURNING id, order_date
		`
		if err := tx.QueryRowContext(ctx, query, order.CustomerName).Scan(&order.ID, &order.OrderDate); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := replaceOrderProducts(ctx, tx, order.ID, found); err != nil {
			return err
		}

		if err := recomputeSoldCounts(ctx, tx, found); err != nil {
			return err
		}

		return r.refreshTotal(ctx, tx, order)
	})
}

// ReplaceProducts swaps the order's product list for productIDs and renames
// the customer when customerName is set.
func (r *orderRepository) ReplaceProducts(ctx context.Context, id int64, customerName *string, productIDs []int64) error {
	return r.changeProducts(ctx, id, productIDs, customerName, func(current []int64) ([]int64, error) {
		return productIDs, nil
	})
}

// AddProducts links productIDs to the order. Products already linked are kept once.
func (r *orderRepository) AddProducts(ctx context.Context, id int64, productIDs []int64) error {
	return r.changeProducts(ctx, id, productIDs, nil, func(current []int64) ([]int64, error) {
		return append(append([]int64{}, current...), productIDs...), nil
	})
}

// RemoveProduct unlinks one product. Removing the last one leaves an empty
// order with a zero total.
func (r *orderRepository) RemoveProduct(ctx context.Context, id, productID int64) error {
	return r.changeProducts(ctx, id, nil, nil, func(current []int64) ([]int64, error) {
		next := make([]int64, 0, len(current))
		for _, pid := range current {
			if pid != productID {
				next = append(next, pid)
			}
		}
		if len(next) == len(current) {
			return nil, ErrProductNotInOrder
		}
		return next, nil
	})
}

// changeProducts is the single path for association changes. It locks the
// order, then every product that was or will be linked, rewrites the links
// and recomputes the counters of all of them.
func (r *orderRepository) changeProducts(
	ctx context.Context,
	id int64,
	requested []int64,
	customerName *string,
	next func(current []int64) ([]int64, error),
) error {
	requested = domain.UniqueIDs(requested)

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, id); err != nil {
			return err
		}

		current, err := orderProductIDs(ctx, tx, id)
		if err != nil {
			return err
		}

		touched := domain.UniqueIDs(append(append([]int64{}, current...), requested...))
		found, err := lockProducts(ctx, tx, touched)
		if err != nil {
			return err
		}
		if missing := domain.MissingIDs(requested, found); len(missing) > 0 {
			return &MissingProductsError{IDs: missing}
		}

		updated, err := next(current)
		if err != nil {
			return err
		}

		// a linked product may have been deleted while we waited for its lock
		if err := replaceOrderProducts(ctx, tx, id, intersect(domain.UniqueIDs(updated), found)); err != nil {
			return err
		}

		if customerName != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE orders SET customer_name = $2 WHERE id = $1`, id, *customerName); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
		}

		if err := recomputeSoldCounts(ctx, tx, found); err != nil {
			return err
		}

		return recomputeOrderTotals(ctx, tx, []int64{id})
	})
}

// Delete removes the order. Its products lose one sale each.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, id); err != nil {
			return err
		}

		productIDs, err := orderProductIDs(ctx, tx, id)
		if err != nil {
			return err
		}

		found, err := lockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}

		return recomputeSoldCounts(ctx, tx, found)
	})
}

// FindByID retrieves an order with its products and their categories
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT id, customer_name, total_amount, order_date
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&order.ID, &order.CustomerName, &order.TotalAmount, &order.OrderDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.loadProducts(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// List retrieves all orders in id order with their products
func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_name, total_amount, order_date
		FROM orders
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(&order.ID, &order.CustomerName, &order.TotalAmount, &order.OrderDate); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.loadProducts(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// Reconcile recomputes every derived counter from the association table
func (r *orderRepository) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		result, err = reconcileAll(ctx, tx)
		return err
	})
	return result, err
}

// loadProducts fills Products on every order with one query.
func (r *orderRepository) loadProducts(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		o.Products = []*domain.Product{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query := `
		SELECT op.order_id, ` + productColumns + `
		FROM order_products op
		JOIN products p ON p.id = op.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE op.order_id = ANY($1)
		ORDER BY op.order_id, p.id
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load order products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		product, err := scanProduct(rows, &orderID)
		if err != nil {
			return fmt.Errorf("failed to scan order product: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Products = append(o.Products, product)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order products: %w", err)
	}

	return nil
}

func (r *orderRepository) refreshTotal(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	if err := recomputeOrderTotals(ctx, tx, []int64{order.ID}); err != nil {
		return err
	}

	err := tx.QueryRowContext(ctx, `SELECT total_amount FROM orders WHERE id = $1`, order.ID).
		Scan(&order.TotalAmount)
	if err != nil {
		return fmt.Errorf("failed to read order total: %w", err)
	}

	return nil
}

func lockOrder(ctx context.Context, tx *sql.Tx, id int64) error {
	var locked int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to lock order: %w", err)
	}
	return nil
}

// intersect keeps the ids of a that also appear in b.
func intersect(a, b []int64) []int64 {
	in := make(map[int64]struct{}, len(b))
	for _, id := range b {
		in[id] = struct{}{}
	}

	out := make([]int64, 0, len(a))
	for _, id := range a {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
