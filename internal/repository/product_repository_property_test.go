package repository

import (
	"context"
	"errors"
	"testing"

	"straus/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	return gopter.NewProperties(parameters)
}

// Property 1: Product creation preserves attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	resetDB(t)

	productRepo := NewProductRepository(testDB)
	category := seedCategory(t, "Property Category")

	properties := dbProperties()

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, cents int64) bool {
			ctx := context.Background()

			product := &domain.Product{
				Name:       name,
				CategoryID: category.ID,
				Price:      decimal.New(cents, -2),
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != name {
				t.Logf("FAIL: Name mismatch. Expected %s, got %s", name, retrieved.Name)
				return false
			}

			if !retrieved.Price.Equal(product.Price) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.Price, retrieved.Price)
				return false
			}

			if retrieved.Category == nil || retrieved.Category.ID != category.ID {
				t.Logf("FAIL: Category not joined for product %d", product.ID)
				return false
			}

			// A new product has never been sold
			if retrieved.SoldItemsCount != 0 {
				t.Logf("FAIL: SoldItemsCount should start at 0, got %d", retrieved.SoldItemsCount)
				return false
			}

			if retrieved.CreatedAt.IsZero() {
				t.Logf("FAIL: CreatedAt is zero")
				return false
			}

			_ = productRepo.Delete(ctx, product.ID)

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`), // name
		gen.Int64Range(0, 99999999),         // price in cents
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property 2: Product updates never touch the sold counter
func TestProperty_ProductUpdateKeepsSoldCount(t *testing.T) {
	resetDB(t)

	productRepo := NewProductRepository(testDB)
	orderRepo := NewOrderRepository(testDB)
	category := seedCategory(t, "Property Category")

	properties := dbProperties()

	properties.Property("updating name and price leaves sold_items_count derived", prop.ForAll(
		func(name string, cents1 int64, cents2 int64, orders int) bool {
			ctx := context.Background()

			product := &domain.Product{
				Name:       "initial",
				CategoryID: category.ID,
				Price:      decimal.New(cents1, -2),
			}
			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			for i := 0; i < orders; i++ {
				if err := orderRepo.Create(ctx, &domain.Order{CustomerName: "buyer"}, []int64{product.ID}); err != nil {
					t.Logf("FAIL: Failed to create order: %v", err)
					return false
				}
			}

			// A caller-supplied counter must be ignored
			product.Name = name
			product.Price = decimal.New(cents2, -2)
			product.SoldItemsCount = 12345

			if err := productRepo.Update(ctx, product); err != nil {
				t.Logf("FAIL: Failed to update product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != name || !retrieved.Price.Equal(decimal.New(cents2, -2)) {
				t.Logf("FAIL: Update not reflected: %+v", retrieved)
				return false
			}

			if retrieved.SoldItemsCount != orders {
				t.Logf("FAIL: SoldItemsCount expected %d, got %d", orders, retrieved.SoldItemsCount)
				return false
			}

			if o, p := counterDrift(t); o != 0 || p != 0 {
				t.Logf("FAIL: counters drifted after price change: orders=%d products=%d", o, p)
				return false
			}

			_ = productRepo.Delete(ctx, product.ID)

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`), // name
		gen.Int64Range(0, 999999),           // price1 in cents
		gen.Int64Range(0, 999999),           // price2 in cents
		gen.IntRange(0, 4),                  // orders containing the product
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property 3: Product deletion removes from catalog
func TestProperty_ProductDeletionRemovesFromCatalog(t *testing.T) {
	resetDB(t)

	productRepo := NewProductRepository(testDB)
	category := seedCategory(t, "Property Category")

	properties := dbProperties()

	properties.Property("deleting a product makes it not retrievable", prop.ForAll(
		func(name string, cents int64) bool {
			ctx := context.Background()

			product := &domain.Product{
				Name:       name,
				CategoryID: category.ID,
				Price:      decimal.New(cents, -2),
			}
			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			if err := productRepo.Delete(ctx, product.ID); err != nil {
				t.Logf("FAIL: Failed to delete product: %v", err)
				return false
			}

			_, err := productRepo.FindByID(ctx, product.ID)
			if !errors.Is(err, ErrProductNotFound) {
				t.Logf("FAIL: Expected ErrProductNotFound after deletion, got: %v", err)
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.Int64Range(0, 99999999),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductCreateWithUnknownCategory(t *testing.T) {
	resetDB(t)

	err := NewProductRepository(testDB).Create(context.Background(), &domain.Product{
		Name:       "orphan",
		CategoryID: 999,
		Price:      decimal.NewFromInt(1),
	})

	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestProductUpdateAndDeleteMissing(t *testing.T) {
	resetDB(t)

	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	err := productRepo.Update(ctx, &domain.Product{ID: 42, Name: "ghost", CategoryID: 1, Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, productRepo.Delete(ctx, 42), ErrProductNotFound)
}

func TestProductListFiltersAndPages(t *testing.T) {
	resetDB(t)

	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	pizza := seedCategory(t, "Pizza")
	drinks := seedCategory(t, "Drinks")

	seedProduct(t, pizza.ID, "Margherita", "9.50")
	seedProduct(t, pizza.ID, "Pepperoni", "11.00")
	seedProduct(t, pizza.ID, "Quattro Formaggi", "12.25")
	seedProduct(t, drinks.ID, "Cola", "2.00")

	t.Run("by category sorted by price", func(t *testing.T) {
		products, total, err := productRepo.List(ctx, ProductFilter{
			CategoryID: &pizza.ID,
			SortBy:     "price",
			SortOrder:  SortOrderAsc,
		})
		require.NoError(t, err)

		assert.Equal(t, 3, total)
		require.Len(t, products, 3)
		assert.Equal(t, "Margherita", products[0].Name)
		assert.Equal(t, "Quattro Formaggi", products[2].Name)
		assert.Equal(t, "Pizza", products[0].Category.Name)
	})

	t.Run("name search is case-insensitive", func(t *testing.T) {
		products, total, err := productRepo.List(ctx, ProductFilter{Query: "PEPP"})
		require.NoError(t, err)

		assert.Equal(t, 1, total)
		require.Len(t, products, 1)
		assert.Equal(t, "Pepperoni", products[0].Name)
	})

	t.Run("pagination keeps the full total", func(t *testing.T) {
		products, total, err := productRepo.List(ctx, ProductFilter{
			Page:      2,
			PageSize:  3,
			SortBy:    "name",
			SortOrder: SortOrderAsc,
		})
		require.NoError(t, err)

		assert.Equal(t, 4, total)
		require.Len(t, products, 1)
		assert.Equal(t, "Quattro Formaggi", products[0].Name)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		products, total, err := productRepo.List(ctx, ProductFilter{SortBy: "price; DROP TABLE products"})
		require.NoError(t, err)

		assert.Equal(t, 4, total)
		assert.Len(t, products, 4)
	})
}

func TestCategoryCRUD(t *testing.T) {
	resetDB(t)

	categoryRepo := NewCategoryRepository(testDB)
	ctx := context.Background()

	category := seedCategory(t, "Salads")

	category.Name = "Fresh Salads"
	require.NoError(t, categoryRepo.Update(ctx, category))

	found, err := categoryRepo.FindByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Salads", found.Name)

	seedCategory(t, "Desserts")
	all, err := categoryRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Desserts", all[0].Name)

	assert.ErrorIs(t, categoryRepo.Update(ctx, &domain.Category{ID: 999, Name: "x"}), ErrCategoryNotFound)
	assert.ErrorIs(t, categoryRepo.Delete(ctx, 999), ErrCategoryNotFound)

	_, err = categoryRepo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
