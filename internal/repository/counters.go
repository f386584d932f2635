package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Derived counters are always recomputed from order_products, never
// incremented, so a single pass restores them whatever happened before.

// lockProducts takes row locks on the given products in id order and returns
// the ids that exist. Callers that change associations lock first so that
// concurrent recomputations of the same product serialize.
func lockProducts(ctx context.Context, tx *sql.Tx, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()

	found := make([]int64, 0, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		found = append(found, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locked products: %w", err)
	}

	return found, nil
}

// recomputeSoldCounts sets sold_items_count of the given products to the
// number of orders referencing each of them.
func recomputeSoldCounts(ctx context.Context, tx *sql.Tx, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE products p
		SET sold_items_count = (
			SELECT COUNT(*) FROM order_products op WHERE op.product_id = p.id
		)
		WHERE p.id = ANY($1)
	`, productIDs)
	if err != nil {
		return fmt.Errorf("failed to recompute sold counts: %w", err)
	}

	return nil
}

// recomputeOrderTotals sets total_amount of the given orders to the sum of
// their current product prices.
func recomputeOrderTotals(ctx context.Context, tx *sql.Tx, orderIDs []int64) error {
	if len(orderIDs) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE orders o
		SET total_amount = COALESCE((
			SELECT SUM(p.price)
			FROM order_products op
			JOIN products p ON p.id = op.product_id
			WHERE op.order_id = o.id
		), 0)
		WHERE o.id = ANY($1)
	`, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to recompute order totals: %w", err)
	}

	return nil
}

// ordersReferencing returns the orders that contain any of the given products.
func ordersReferencing(ctx context.Context, tx *sql.Tx, productIDs []int64) ([]int64, error) {
	return collectIDs(ctx, tx, `
		SELECT DISTINCT order_id
		FROM order_products
		WHERE product_id = ANY($1)
		ORDER BY order_id
	`, productIDs)
}

// orderProductIDs returns the products currently associated with an order.
func orderProductIDs(ctx context.Context, tx *sql.Tx, orderID int64) ([]int64, error) {
	return collectIDs(ctx, tx, `
		SELECT product_id
		FROM order_products
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
}

func collectIDs(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}

	return ids, nil
}

// replaceOrderProducts swaps the association rows of an order for productIDs.
func replaceOrderProducts(ctx context.Context, tx *sql.Tx, orderID int64, productIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_products WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear order products: %w", err)
	}

	if len(productIDs) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_products (order_id, product_id)
		SELECT $1::bigint, unnest($2::bigint[])
	`, orderID, productIDs)
	if err != nil {
		return fmt.Errorf("failed to insert order products: %w", err)
	}

	return nil
}

// ReconcileResult reports how many rows held a drifted counter.
type ReconcileResult struct {
	OrdersUpdated   int64 `json:"orders_updated"`
	ProductsUpdated int64 `json:"products_updated"`
}

// reconcileAll recomputes every derived counter and reports the rows whose
// stored value differed. order_products is share-locked for the duration so
// no association change interleaves.
func reconcileAll(ctx context.Context, tx *sql.Tx) (ReconcileResult, error) {
	var result ReconcileResult

	if _, err := tx.ExecContext(ctx, `LOCK TABLE order_products IN SHARE MODE`); err != nil {
		return result, fmt.Errorf("failed to lock order_products: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		WITH sums AS (
			SELECT o.id, COALESCE(SUM(p.price), 0) AS total
			FROM orders o
			LEFT JOIN order_products op ON op.order_id = o.id
			LEFT JOIN products p ON p.id = op.product_id
			GROUP BY o.id
		)
		UPDATE orders o
		SET total_amount = sums.total
		FROM sums
		WHERE sums.id = o.id AND o.total_amount <> sums.total
	`)
	if err != nil {
		return result, fmt.Errorf("failed to reconcile order totals: %w", err)
	}
	if result.OrdersUpdated, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to get rows affected: %w", err)
	}

	res, err = tx.ExecContext(ctx, `
		WITH counts AS (
			SELECT p.id, COUNT(op.order_id) AS sold
			FROM products p
			LEFT JOIN order_products op ON op.product_id = p.id
			GROUP BY p.id
		)
		UPDATE products p
		SET sold_items_count = counts.sold
		FROM counts
		WHERE counts.id = p.id AND p.sold_items_count <> counts.sold
	`)
	if err != nil {
		return result, fmt.Errorf("failed to reconcile sold counts: %w", err)
	}
	if result.ProductsUpdated, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return result, nil
}
