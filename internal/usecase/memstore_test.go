package usecase_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"
)

// テスト用のインメモリDB。WithinTxはエラー時にスナップショットへ戻す
type memData struct {
	seq         int64
	users       map[int64]model.User
	categories  map[int64]model.Category
	products    map[int64]model.Product
	carts       map[int64]model.Cart
	cartItems   map[int64]model.CartItem
	orders      map[int64]model.Order
	orderItems  map[int64]model.OrderItem
	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog
}

func (d *memData) clone() *memData {
	c := &memData{
		seq:         d.seq,
		users:       map[int64]model.User{},
		categories:  map[int64]model.Category{},
		products:    map[int64]model.Product{},
		carts:       map[int64]model.Cart{},
		cartItems:   map[int64]model.CartItem{},
		orders:      map[int64]model.Order{},
		orderItems:  map[int64]model.OrderItem{},
		adjustments: append([]model.InventoryAdjustment(nil), d.adjustments...),
		audits:      append([]model.AuditLog(nil), d.audits...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.products {
		v.Variants = append([]model.ProductVariant(nil), v.Variants...)
		c.products[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = v
	}
	for k, v := range d.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.orderItems {
		c.orderItems[k] = v
	}
	return c
}

type memStore struct {
	mu sync.Mutex
	d  *memData

	// 指定回数目のCreateAdjustmentで失敗させる（0なら無効）
	failAdjustmentAt int
	adjustmentCalls  int

	// 呼び出し順を見るテスト用
	calls []string
}

func newMemStore() *memStore {
	return &memStore{d: (&memData{}).clone()}
}

func (s *memStore) nextID() int64 {
	s.d.seq++
	return s.d.seq
}

// ---- TransactionManager / TxRepos ----

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) Orders() repo.OrderRepository              { return memOrders{s} }
func (s *memStore) OrderItems() repo.OrderItemRepository      { return memOrderItems{s} }
func (s *memStore) Carts() repo.CartRepository                { return memCarts{s} }
func (s *memStore) CartItems() repo.CartItemRepository        { return memCartItems{s} }
func (s *memStore) Inventory() repo.InventoryRepository       { return memInventory{s} }
func (s *memStore) Products() repo.ProductRepository          { return memProducts{s} }
func (s *memStore) ProductLinks() repo.CategoryProductLinker  { return memProducts{s} }
func (s *memStore) Categories() repo.CategoryRepository       { return memCategories{s} }
func (s *memStore) AuditLogs() repo.AuditLogRepository        { return memAudits{s} }

// ---- seed helpers ----

func (s *memStore) addProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	if !p.IsActive {
		p.IsActive = true
	}
	for i := range p.Variants {
		p.Variants[i].ID = s.nextID()
		p.Variants[i].ProductID = p.ID
	}
	s.d.products[p.ID] = p
	return p
}

func (s *memStore) addInactiveProduct(p model.Product) model.Product {
	p = s.addProduct(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	p.IsActive = false
	s.d.products[p.ID] = p
	return p
}

func (s *memStore) addCategory(c model.Category) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID()
	if c.Status == "" {
		c.Status = model.CategoryStatusActive
	}
	s.d.categories[c.ID] = c
	return c
}

func (s *memStore) product(id int64) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.products[id]
}

func (s *memStore) order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.orders[id]
}

func (s *memStore) setOrderStatus(id int64, st model.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.d.orders[id]
	o.Status = st
	s.d.orders[id] = o
}

func (s *memStore) counts() (orders, orderItems, cartItems, adjustments, audits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.orders), len(s.d.orderItems), len(s.d.cartItems), len(s.d.adjustments), len(s.d.audits)
}

func (s *memStore) auditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.d.audits...)
}

func (s *memStore) adjustmentRows() []model.InventoryAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InventoryAdjustment(nil), s.d.adjustments...)
}

// ---- products / linker ----

type memProducts struct{ s *memStore }

func (r memProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.d.products {
		if !p.IsActive {
			continue
		}
		if q.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *q.CategoryID) {
			continue
		}
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	p.Variants = append([]model.ProductVariant(nil), p.Variants...)
	return p, nil
}

func (r memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.CategoryID != nil {
		if _, ok := r.s.d.categories[*p.CategoryID]; !ok {
			return model.Product{}, repo.ErrInvalidReference
		}
	}
	p.ID = r.s.nextID()
	for i := range p.Variants {
		p.Variants[i].ID = r.s.nextID()
		p.Variants[i].ProductID = p.ID
	}
	r.s.d.products[p.ID] = p
	return p, nil
}

func (r memProducts) Update(ctx context.Context, p model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.d.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if p.CategoryID != nil {
		if _, ok := r.s.d.categories[*p.CategoryID]; !ok {
			return repo.ErrInvalidReference
		}
	}
	cur.CategoryID = p.CategoryID
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.Unit = p.Unit
	cur.IsActive = p.IsActive
	r.s.d.products[p.ID] = cur
	return nil
}

func (r memProducts) ReplaceVariants(ctx context.Context, productID int64, variants []model.ProductVariant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.d.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Variants = nil
	for _, v := range variants {
		v.ID = r.s.nextID()
		v.ProductID = productID
		cur.Variants = append(cur.Variants, v)
	}
	r.s.d.products[productID] = cur
	return nil
}

func (r memProducts) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.products[id]; !ok {
		return repo.ErrNotFound
	}
	r.s.deleteProductLocked(id)
	return nil
}

// FKの動き：order_itemsはNULL、cart_itemsは削除
func (s *memStore) deleteProductLocked(id int64) {
	delete(s.d.products, id)
	for k, it := range s.d.orderItems {
		if it.ProductID != nil && *it.ProductID == id {
			it.ProductID = nil
			s.d.orderItems[k] = it
		}
	}
	for k, it := range s.d.cartItems {
		if it.ProductID == id {
			delete(s.d.cartItems, k)
		}
	}
}

func (r memProducts) IncrementSoldCount(ctx context.Context, productID int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.SoldCount += qty
	r.s.d.products[productID] = p
	return nil
}

func (r memProducts) LockSoldCounts(ctx context.Context) (map[int64]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls = append(r.s.calls, "LockSoldCounts")
	out := map[int64]int64{}
	for id, p := range r.s.d.products {
		out[id] = p.SoldCount
	}
	return out, nil
}

func (r memProducts) SetSoldCount(ctx context.Context, productID int64, soldCount int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.SoldCount = soldCount
	r.s.d.products[productID] = p
	return nil
}

func (r memProducts) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.d.products {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (r memProducts) ReassignCategory(ctx context.Context, fromCategoryID int64, toCategoryID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.d.products {
		if p.CategoryID != nil && *p.CategoryID == fromCategoryID {
			to := toCategoryID
			p.CategoryID = &to
			r.s.d.products[id] = p
			n++
		}
	}
	return n, nil
}

func (r memProducts) DeleteByCategory(ctx context.Context, categoryID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for id, p := range r.s.d.products {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		r.s.deleteProductLocked(id)
	}
	return int64(len(ids)), nil
}

// ---- inventory ----

type memInventory struct{ s *memStore }

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.products[productID]
	if !ok || p.Stock < qty {
		return 0, false, nil
	}
	p.Stock -= qty
	r.s.d.products[productID] = p
	return p.Stock, true, nil
}

func (r memInventory) DecreaseVariantStockIfEnough(ctx context.Context, variantID int64, qty int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for pid, p := range r.s.d.products {
		for i, v := range p.Variants {
			if v.ID != variantID {
				continue
			}
			if v.Stock < qty {
				return 0, false, nil
			}
			p.Variants[i].Stock -= qty
			r.s.d.products[pid] = p
			return p.Variants[i].Stock, true, nil
		}
	}
	return 0, false, nil
}

func (r memInventory) IncreaseStock(ctx context.Context, productID int64, qty int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.products[productID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	p.Stock += qty
	r.s.d.products[productID] = p
	return p.Stock, nil
}

func (r memInventory) IncreaseVariantStock(ctx context.Context, variantID int64, qty int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for pid, p := range r.s.d.products {
		for i, v := range p.Variants {
			if v.ID == variantID {
				p.Variants[i].Stock += qty
				r.s.d.products[pid] = p
				return p.Variants[i].Stock, nil
			}
		}
	}
	return 0, repo.ErrNotFound
}

func (r memInventory) SetStock(ctx context.Context, productID int64, newStock int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.s.d.products[productID] = p
	return nil
}

func (r memInventory) CreateAdjustment(ctx context.Context, a model.InventoryAdjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.adjustmentCalls++
	if r.s.failAdjustmentAt > 0 && r.s.adjustmentCalls == r.s.failAdjustmentAt {
		return errors.New("adjustment insert failed")
	}
	a.ID = r.s.nextID()
	r.s.d.adjustments = append(r.s.d.adjustments, a)
	return nil
}

// ---- carts ----

type memCarts struct{ s *memStore }

func (r memCarts) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.d.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	c := model.Cart{ID: r.s.nextID(), UserID: userID}
	r.s.d.carts[c.ID] = c
	return c, nil
}

func (r memCarts) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.d.carts[cartID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

type memCartItems struct{ s *memStore }

func (r memCartItems) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.CartItem{}
	for _, it := range r.s.d.cartItems {
		if it.CartID != cartID {
			continue
		}
		if p, ok := r.s.d.products[it.ProductID]; ok {
			pp := p
			it.Product = &pp
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCartItems) FindByCartProductUnitForUpdate(ctx context.Context, cartID, productID int64, unit string) (model.CartItem, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.d.cartItems {
		if it.CartID == cartID && it.ProductID == productID && it.Unit == unit {
			return it, true, nil
		}
	}
	return model.CartItem{}, false, nil
}

func (r memCartItems) FindByIDForUpdate(ctx context.Context, id int64) (model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.d.cartItems[id]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (r memCartItems) Create(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.d.cartItems {
		if it.CartID == item.CartID && it.ProductID == item.ProductID && it.Unit == item.Unit {
			return model.CartItem{}, repo.ErrDuplicate
		}
	}
	item.ID = r.s.nextID()
	r.s.d.cartItems[item.ID] = item
	return item, nil
}

func (r memCartItems) UpdateQuantity(ctx context.Context, id int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.d.cartItems[id]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	r.s.d.cartItems[id] = it
	return nil
}

func (r memCartItems) DeleteByID(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.cartItems[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.d.cartItems, id)
	return nil
}

func (r memCartItems) DeleteByCartID(ctx context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.d.cartItems {
		if it.CartID == cartID {
			delete(r.s.d.cartItems, id)
		}
	}
	return nil
}

// ---- orders ----

type memOrders struct{ s *memStore }

func (r memOrders) withItemsLocked(o model.Order) model.Order {
	o.Items = nil
	for _, it := range r.s.d.orderItems {
		if it.OrderID == o.ID {
			o.Items = append(o.Items, it)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID < o.Items[j].ID })
	return o
}

func (r memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.d.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return r.withItemsLocked(o), nil
}

func (r memOrders) FindByIDForUpdate(ctx context.Context, id int64) (model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r memOrders) FindByGatewayOrderIDForUpdate(ctx context.Context, gatewayOrderID string) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.d.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return r.withItemsLocked(o), nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r memOrders) ListByUserID(ctx context.Context, userID int64, page, limit int) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Order
	for _, o := range r.s.d.orders {
		if o.UserID == userID {
			all = append(all, r.withItemsLocked(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Order
	for _, o := range r.s.d.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.Q != "" && !strings.Contains(o.OrderCode+o.FullName+o.Phone+o.Email, f.Q) {
			continue
		}
		all = append(all, r.withItemsLocked(o))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func paginate(all []model.Order, page, limit int) []model.Order {
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Order{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (r memOrders) Create(ctx context.Context, o model.Order) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = r.s.nextID()
	o.Items = nil
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.s.d.orders[o.ID] = o
	return o.ID, nil
}

func (r memOrders) update(id int64, fn func(o *model.Order)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.d.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(&o)
	o.UpdatedAt = time.Now()
	r.s.d.orders[id] = o
	return nil
}

func (r memOrders) UpdateOrderCode(ctx context.Context, id int64, code string) error {
	return r.update(id, func(o *model.Order) { o.OrderCode = code })
}

func (r memOrders) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return r.update(id, func(o *model.Order) { o.Status = status })
}

func (r memOrders) UpdatePayment(ctx context.Context, id int64, u repo.PaymentUpdate) error {
	return r.update(id, func(o *model.Order) {
		if u.Status != "" {
			o.PaymentStatus = u.Status
		}
		if u.GatewayOrderID != "" {
			o.GatewayOrderID = u.GatewayOrderID
		}
		if u.GatewayRequestID != "" {
			o.GatewayRequestID = u.GatewayRequestID
		}
		if u.GatewayTransID != "" {
			o.GatewayTransID = u.GatewayTransID
		}
	})
}

func (r memOrders) Stats(ctx context.Context) (repo.OrderStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := repo.OrderStats{ByStatus: map[model.OrderStatus]int64{}}
	for _, s := range model.AllOrderStatuses {
		st.ByStatus[s] = 0
	}
	for _, o := range r.s.d.orders {
		st.TotalOrders++
		st.ByStatus[o.Status]++
		if o.Status != model.OrderStatusCancelled {
			st.TotalRevenue += o.TotalAmount
		}
	}
	return st, nil
}

type memOrderItems struct{ s *memStore }

func (r memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range items {
		items[i].ID = r.s.nextID()
		items[i].OrderID = orderID
		r.s.d.orderItems[items[i].ID] = items[i]
	}
	return nil
}

func (r memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	o, err := memOrders(r).FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Items, nil
}

func (r memOrderItems) SumDeliveredQuantities(ctx context.Context) (map[int64]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calls = append(r.s.calls, "SumDeliveredQuantities")
	out := map[int64]int64{}
	for _, it := range r.s.d.orderItems {
		if it.ProductID == nil {
			continue
		}
		if r.s.d.orders[it.OrderID].Status == model.OrderStatusDelivered {
			out[*it.ProductID] += it.Quantity
		}
	}
	return out, nil
}

// ---- categories ----

type memCategories struct{ s *memStore }

func (r memCategories) List(ctx context.Context, q repo.CategoryListQuery) ([]model.Category, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Category
	for _, c := range r.s.d.categories {
		if q.Status != "" && string(c.Status) != q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Description), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memCategories) ListByStatus(ctx context.Context, status model.CategoryStatus) ([]model.Category, error) {
	items, _, err := r.List(ctx, repo.CategoryListQuery{Status: string(status)})
	return items, err
}

func (r memCategories) FindByID(ctx context.Context, id int64) (model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.d.categories[id]
	if !ok {
		return model.Category{}, repo.ErrNotFound
	}
	return c, nil
}

func (r memCategories) FindByIDForUpdate(ctx context.Context, id int64) (model.Category, error) {
	return r.FindByID(ctx, id)
}

func (r memCategories) Create(ctx context.Context, c model.Category) (model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.d.categories {
		if cur.Name == c.Name {
			return model.Category{}, repo.ErrDuplicate
		}
	}
	c.ID = r.s.nextID()
	r.s.d.categories[c.ID] = c
	return c, nil
}

func (r memCategories) Update(ctx context.Context, c model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.categories[c.ID]; !ok {
		return repo.ErrNotFound
	}
	for _, cur := range r.s.d.categories {
		if cur.ID != c.ID && cur.Name == c.Name {
			return repo.ErrDuplicate
		}
	}
	r.s.d.categories[c.ID] = c
	return nil
}

func (r memCategories) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.categories[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.d.categories, id)
	return nil
}

// ---- audit logs ----

type memAudits struct{ s *memStore }

func (r memAudits) Create(ctx context.Context, l model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.nextID()
	r.s.d.audits = append(r.s.d.audits, l)
	return nil
}

func (r memAudits) List(ctx context.Context, f repo.AuditLogListFilter) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var hit []model.AuditLog
	for i := len(r.s.d.audits) - 1; i >= 0; i-- {
		l := r.s.d.audits[i]
		switch {
		case f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID,
			f.Action != "" && string(l.Action) != f.Action,
			f.ResourceType != "" && string(l.ResourceType) != f.ResourceType,
			f.ResourceID != nil && l.ResourceID != *f.ResourceID,
			f.From != nil && l.CreatedAt.Before(*f.From),
			f.To != nil && l.CreatedAt.After(*f.To):
			continue
		}
		hit = append(hit, l)
	}

	total := int64(len(hit))
	start := (f.Page - 1) * f.Limit
	if start >= len(hit) {
		return []model.AuditLog{}, total, nil
	}
	end := start + f.Limit
	if end > len(hit) {
		end = len(hit)
	}
	return hit[start:end], total, nil
}
