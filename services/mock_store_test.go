package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nathangtg/coffee-single-tenant-sub000/events"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
)

// memData is the whole database. Transactions hold memStore.mu for their
// duration, which makes them serializable; rollback restores a snapshot.
type memData struct {
	items            map[uuid.UUID]models.Item
	options          map[uuid.UUID]models.ItemOption
	orders           map[uuid.UUID]models.Order
	orderItems       map[uuid.UUID]models.OrderItem
	orderItemOptions map[uuid.UUID]models.OrderItemOption
	payments         map[uuid.UUID]models.Payment
	numbers          map[string]uuid.UUID
	seq              int
}

func newMemData() *memData {
	return &memData{
		items:            map[uuid.UUID]models.Item{},
		options:          map[uuid.UUID]models.ItemOption{},
		orders:           map[uuid.UUID]models.Order{},
		orderItems:       map[uuid.UUID]models.OrderItem{},
		orderItemOptions: map[uuid.UUID]models.OrderItemOption{},
		payments:         map[uuid.UUID]models.Payment{},
		numbers:          map[string]uuid.UUID{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		items:            cloneMap(d.items),
		options:          cloneMap(d.options),
		orders:           cloneMap(d.orders),
		orderItems:       cloneMap(d.orderItems),
		orderItemOptions: cloneMap(d.orderItemOptions),
		payments:         cloneMap(d.payments),
		numbers:          cloneMap(d.numbers),
		seq:              d.seq,
	}
}

type memHooks struct {
	// hideNumbers makes ExistsByNumber always report free, so collisions are
	// only caught by the unique check on insert.
	hideNumbers      bool
	failUpdateStatus error
	failCreateOrder  error
	failDeleteItem   error
}

type memStore struct {
	mu    *sync.Mutex
	data  *memData
	hooks *memHooks
	inTx  bool
}

func newMemStore() *memStore {
	return &memStore{mu: &sync.Mutex{}, data: newMemData(), hooks: &memHooks{}}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memStore{mu: s.mu, data: s.data, hooks: s.hooks, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return ctx.Err()
}

func (s *memStore) do(fn func()) {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

func (s *memStore) Catalog() repository.CatalogRepository  { return memCatalog{s} }
func (s *memStore) Orders() repository.OrderRepository     { return memOrders{s} }
func (s *memStore) Payments() repository.PaymentRepository { return memPayments{s} }

// seeding helpers

func (s *memStore) addItem(name, price string, available bool) uuid.UUID {
	id := uuid.New()
	s.do(func() {
		s.data.items[id] = models.Item{ID: id, Name: name, Price: decimal.RequireFromString(price), IsAvailable: available}
	})
	return id
}

func (s *memStore) addOption(itemID uuid.UUID, name, modifier string) uuid.UUID {
	id := uuid.New()
	s.do(func() {
		s.data.options[id] = models.ItemOption{ID: id, ItemID: itemID, Name: name, PriceModifier: decimal.RequireFromString(modifier)}
	})
	return id
}

func (s *memStore) setPrice(itemID uuid.UUID, price string) {
	s.do(func() {
		it := s.data.items[itemID]
		it.Price = decimal.RequireFromString(price)
		s.data.items[itemID] = it
	})
}

func (s *memStore) setAvailable(itemID uuid.UUID, available bool) {
	s.do(func() {
		it := s.data.items[itemID]
		it.IsAvailable = available
		s.data.items[itemID] = it
	})
}

func (s *memStore) counts() (orders, items, options, payments int) {
	s.do(func() {
		orders = len(s.data.orders)
		items = len(s.data.orderItems)
		options = len(s.data.orderItemOptions)
		payments = len(s.data.payments)
	})
	return
}

func (s *memStore) orderStatus(id uuid.UUID) models.OrderStatus {
	var st models.OrderStatus
	s.do(func() { st = s.data.orders[id].Status })
	return st
}

func (s *memStore) payment(id uuid.UUID) models.Payment {
	var p models.Payment
	s.do(func() { p = s.data.payments[id] })
	return p
}

// catalog

type memCatalog struct{ s *memStore }

func (c memCatalog) GetItem(_ context.Context, id uuid.UUID) (out *models.Item, err error) {
	c.s.do(func() {
		it, ok := c.s.data.items[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		out = &it
	})
	return
}

func (c memCatalog) GetOption(_ context.Context, id uuid.UUID) (out *models.ItemOption, err error) {
	c.s.do(func() {
		o, ok := c.s.data.options[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		out = &o
	})
	return
}

func (c memCatalog) ListMenu(_ context.Context) (out []models.Item, err error) {
	c.s.do(func() {
		for _, it := range c.s.data.items {
			if !it.IsAvailable {
				continue
			}
			for _, o := range c.s.data.options {
				if o.ItemID == it.ID {
					it.Options = append(it.Options, o)
				}
			}
			out = append(out, it)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return
}

// orders

type memOrders struct{ s *memStore }

func (r memOrders) Create(_ context.Context, order *models.Order) (err error) {
	r.s.do(func() {
		if r.s.hooks.failCreateOrder != nil {
			err = r.s.hooks.failCreateOrder
			return
		}
		if _, taken := r.s.data.numbers[order.OrderNumber]; taken {
			err = repository.ErrDuplicate
			return
		}
		d := r.s.data
		d.seq++
		order.CreatedAt = time.Unix(int64(d.seq), 0)
		order.UpdatedAt = order.CreatedAt

		row := *order
		row.OrderItems = nil
		row.Payment = nil
		d.orders[order.ID] = row
		d.numbers[order.OrderNumber] = order.ID
		for _, oi := range order.OrderItems {
			irow := oi
			irow.Options = nil
			d.orderItems[oi.ID] = irow
			for _, o := range oi.Options {
				d.orderItemOptions[o.ID] = o
			}
		}
	})
	return
}

func (r memOrders) ExistsByNumber(_ context.Context, number string) (exists bool, err error) {
	r.s.do(func() {
		if r.s.hooks.hideNumbers {
			return
		}
		_, exists = r.s.data.numbers[number]
	})
	return
}

// assemble must run under the lock.
func (r memOrders) assemble(id uuid.UUID) (*models.Order, error) {
	d := r.s.data
	o, ok := d.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.OrderItems = []models.OrderItem{}
	for _, oi := range d.orderItems {
		if oi.OrderID != id {
			continue
		}
		oi.Options = []models.OrderItemOption{}
		for _, opt := range d.orderItemOptions {
			if opt.OrderItemID == oi.ID {
				oi.Options = append(oi.Options, opt)
			}
		}
		o.OrderItems = append(o.OrderItems, oi)
	}
	sort.Slice(o.OrderItems, func(i, j int) bool { return o.OrderItems[i].ID.String() < o.OrderItems[j].ID.String() })
	for _, p := range d.payments {
		if p.OrderID == id {
			pp := p
			o.Payment = &pp
		}
	}
	return &o, nil
}

func (r memOrders) FindByID(_ context.Context, id uuid.UUID) (out *models.Order, err error) {
	r.s.do(func() { out, err = r.assemble(id) })
	return
}

func (r memOrders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.FindByID(ctx, id)
}

func (r memOrders) List(_ context.Context, userID *uuid.UUID, page, limit int) (out []models.Order, total int64, err error) {
	r.s.do(func() {
		var all []models.Order
		for id, o := range r.s.data.orders {
			if userID != nil && o.UserID != *userID {
				continue
			}
			full, _ := r.assemble(id)
			all = append(all, *full)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		total = int64(len(all))
		start := (page - 1) * limit
		if start >= len(all) {
			return
		}
		end := start + limit
		if end > len(all) {
			end = len(all)
		}
		out = all[start:end]
	})
	return
}

func (r memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus, completedAt *time.Time) (err error) {
	r.s.do(func() {
		if r.s.hooks.failUpdateStatus != nil {
			err = r.s.hooks.failUpdateStatus
			return
		}
		o, ok := r.s.data.orders[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		o.Status = status
		if completedAt != nil {
			o.CompletedAt = completedAt
		}
		r.s.data.orders[id] = o
	})
	return
}

func (r memOrders) UpdateTotals(_ context.Context, id uuid.UUID, total, tax decimal.Decimal) (err error) {
	r.s.do(func() {
		o, ok := r.s.data.orders[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		o.TotalAmount = total
		o.Tax = tax
		r.s.data.orders[id] = o
	})
	return
}

func (r memOrders) FindItem(_ context.Context, itemID uuid.UUID) (out *models.OrderItem, err error) {
	r.s.do(func() {
		oi, ok := r.s.data.orderItems[itemID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		for _, opt := range r.s.data.orderItemOptions {
			if opt.OrderItemID == itemID {
				oi.Options = append(oi.Options, opt)
			}
		}
		out = &oi
	})
	return
}

func (r memOrders) DeleteItem(_ context.Context, itemID uuid.UUID) (err error) {
	r.s.do(func() {
		if r.s.hooks.failDeleteItem != nil {
			err = r.s.hooks.failDeleteItem
			return
		}
		if _, ok := r.s.data.orderItems[itemID]; !ok {
			err = repository.ErrNotFound
			return
		}
		for id, opt := range r.s.data.orderItemOptions {
			if opt.OrderItemID == itemID {
				delete(r.s.data.orderItemOptions, id)
			}
		}
		delete(r.s.data.orderItems, itemID)
	})
	return
}

// payments

type memPayments struct{ s *memStore }

func (r memPayments) Create(_ context.Context, p *models.Payment) (err error) {
	r.s.do(func() {
		for _, existing := range r.s.data.payments {
			if existing.OrderID == p.OrderID {
				err = repository.ErrDuplicate
				return
			}
		}
		row := *p
		row.ClientSecret = nil
		r.s.data.payments[p.ID] = row
	})
	return
}

func (r memPayments) find(match func(models.Payment) bool) (out *models.Payment, err error) {
	r.s.do(func() {
		for _, p := range r.s.data.payments {
			if match(p) {
				pp := p
				out = &pp
				return
			}
		}
		err = repository.ErrNotFound
	})
	return
}

func (r memPayments) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.ID == id })
}

func (r memPayments) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r memPayments) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.OrderID == orderID })
}

func (r memPayments) FindByTransactionID(_ context.Context, txID string) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.TransactionID != nil && *p.TransactionID == txID })
}

func (r memPayments) Update(_ context.Context, p *models.Payment) (err error) {
	r.s.do(func() {
		if _, ok := r.s.data.payments[p.ID]; !ok {
			err = repository.ErrNotFound
			return
		}
		row := *p
		row.ClientSecret = nil
		r.s.data.payments[p.ID] = row
	})
	return
}

func (r memPayments) Delete(_ context.Context, id uuid.UUID) (err error) {
	r.s.do(func() {
		if _, ok := r.s.data.payments[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		delete(r.s.data.payments, id)
	})
	return
}

// carts

type memCarts struct {
	mu    sync.Mutex
	carts map[string]models.Cart
	idem  map[string]string
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string]models.Cart{}, idem: map[string]string{}}
}

func (m *memCarts) GetCart(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c, nil
}

func (m *memCarts) SaveCart(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart.UpdatedAt = time.Now()
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	m.carts[cart.UserID] = c
	return nil
}

func (m *memCarts) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func (m *memCarts) GetIdempotency(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idem[key], nil
}

func (m *memCarts) SetIdempotency(_ context.Context, key, orderID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idem[key] = orderID
	return nil
}

// side effects

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *recordingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[name]++
	return nil
}

func (m *recordingMetrics) RecordValue(context.Context, string, float64, map[string]string) error {
	return nil
}

type fakeGateway struct {
	calls int
	err   error
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, _ decimal.Decimal, _ string, _ map[string]string) (string, string, error) {
	g.calls++
	if g.err != nil {
		return "", "", g.err
	}
	return "pi_test_123", "pi_test_123_secret", nil
}
