package service

import (
	"context"
	"sort"
	"sync"

	"straus/internal/domain"
	"straus/internal/events"
	"straus/internal/repository"
)

// Mock repositories for testing

type mockCategoryRepository struct {
	categories map[int64]*domain.Category
	nextID     int64
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[int64]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.nextID++
	category.ID = m.nextID
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

type mockProductRepository struct {
	products   map[int64]*domain.Product
	categories *mockCategoryRepository
	nextID     int64
	lastFilter repository.ProductFilter
}

func newMockProductRepository(categories *mockCategoryRepository) *mockProductRepository {
	return &mockProductRepository{
		products:   make(map[int64]*domain.Product),
		categories: categories,
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, ok := m.categories.categories[product.CategoryID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.nextID++
	product.ID = m.nextID
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	existing, ok := m.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.SoldItemsCount = existing.SoldItemsCount
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.lastFilter = filter
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

// mockOrderRepository keeps the derived counters the way the database does
type mockOrderRepository struct {
	mu       sync.Mutex
	orders   map[int64]*domain.Order
	products map[int64]*domain.Product
	nextID   int64
	err      error
}

func newMockOrderRepository(products ...*domain.Product) *mockOrderRepository {
	m := &mockOrderRepository{
		orders:   make(map[int64]*domain.Order),
		products: make(map[int64]*domain.Product),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockOrderRepository) resolve(ids []int64) ([]*domain.Product, error) {
	ids = domain.UniqueIDs(ids)
	found := make([]int64, 0, len(ids))
	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			found = append(found, id)
			out = append(out, p)
		}
	}
	if missing := domain.MissingIDs(ids, found); len(missing) > 0 {
		return nil, &repository.MissingProductsError{IDs: missing}
	}
	return out, nil
}

func (m *mockOrderRepository) recount() {
	for _, p := range m.products {
		p.SoldItemsCount = 0
	}
	for _, o := range m.orders {
		o.TotalAmount = domain.ComputeTotal(o.Products)
		for _, p := range o.Products {
			p.SoldItemsCount++
		}
	}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order, productIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	products, err := m.resolve(productIDs)
	if err != nil {
		return err
	}

	m.nextID++
	order.ID = m.nextID
	order.Products = products
	m.orders[order.ID] = order
	m.recount()
	return nil
}

func (m *mockOrderRepository) ReplaceProducts(ctx context.Context, id int64, customerName *string, productIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}

	products, err := m.resolve(productIDs)
	if err != nil {
		return err
	}

	order.Products = products
	if customerName != nil {
		order.CustomerName = *customerName
	}
	m.recount()
	return nil
}

func (m *mockOrderRepository) AddProducts(ctx context.Context, id int64, productIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}

	products, err := m.resolve(append(order.ProductIDs(), productIDs...))
	if err != nil {
		return err
	}

	order.Products = products
	m.recount()
	return nil
}

func (m *mockOrderRepository) RemoveProduct(ctx context.Context, id, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}

	kept := make([]*domain.Product, 0, len(order.Products))
	for _, p := range order.Products {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(order.Products) {
		return repository.ErrProductNotInOrder
	}

	order.Products = kept
	m.recount()
	return nil
}

func (m *mockOrderRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	m.recount()
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockOrderRepository) Reconcile(ctx context.Context) (repository.ReconcileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recount()
	return repository.ReconcileResult{}, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) IsHealthy() bool { return p.err == nil }
func (p *recordingPublisher) Close() error    { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}
