// Package seed fills an empty catalog with demo categories and products.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"

	"straus/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog is the demo data: eight products in each of five categories
var Catalog = []struct {
	Category string
	Products []string
}{
	{"cloth", []string{"T-shirt", "Jeans", "Dress", "Sweater", "Jacket", "Skirt", "Shorts", "Hoodie"}},
	{"jewel", []string{"Necklace", "Ring", "Earrings", "Bracelet", "Brooch", "Watch", "Anklet", "Cufflinks"}},
	{"shoes", []string{"Sneakers", "Boots", "Sandals", "Flats", "Heels", "Loafers", "Oxfords", "Slippers"}},
	{"accessory", []string{"Handbag", "Hat", "Scarf", "Sunglasses", "Gloves", "Belt", "Wallet", "Umbrella"}},
	{"electronics", []string{"Smartphone", "Laptop", "Smartwatch", "Headphones", "Tablet", "Camera", "Fitness Tracker", "Bluetooth Speaker"}},
}

// Result counts what a run created
type Result struct {
	Categories int
	Products   int
	Skipped    bool
}

// Seeder writes Catalog through the catalog service so seeded rows pass the
// same validation as API writes.
type Seeder struct {
	catalog service.CatalogService
	rng     *rand.Rand
	logger  *zap.Logger
}

// New creates a Seeder. The same seed always yields the same prices.
func New(catalog service.CatalogService, seed uint64, logger *zap.Logger) *Seeder {
	return &Seeder{
		catalog: catalog,
		rng:     rand.New(rand.NewPCG(seed, seed)),
		logger:  logger,
	}
}

// Run seeds the catalog. A catalog that already has categories is left
// alone unless force is set.
func (s *Seeder) Run(ctx context.Context, force bool) (Result, error) {
	var result Result

	if !force {
		existing, err := s.catalog.ListCategories(ctx)
		if err != nil {
			return result, err
		}
		if len(existing) > 0 {
			s.logger.Info("Catalog already populated, skipping seed", zap.Int("categories", len(existing)))
			result.Skipped = true
			return result, nil
		}
	}

	for _, entry := range Catalog {
		category, err := s.catalog.CreateCategory(ctx, entry.Category)
		if err != nil {
			return result, fmt.Errorf("failed to create category %q: %w", entry.Category, err)
		}
		result.Categories++

		for _, name := range entry.Products {
			_, err := s.catalog.CreateProduct(ctx, service.ProductInput{
				Name:       name,
				CategoryID: category.ID,
				Price:      s.price(),
			})
			if err != nil {
				return result, fmt.Errorf("failed to create product %q: %w", name, err)
			}
			result.Products++
		}

		s.logger.Debug("Seeded category",
			zap.String("category", category.Name),
			zap.Int("products", len(entry.Products)),
		)
	}

	return result, nil
}

// price is a whole amount between 1 and 100 inclusive
func (s *Seeder) price() decimal.Decimal {
	return decimal.NewFromInt(s.rng.Int64N(100) + 1)
}
