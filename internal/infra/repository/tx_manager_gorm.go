package repository

import (
	"context"

	repo "ecapp/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     *OrderGormRepository
	orderItems *OrderItemGormRepository
	carts      *CartGormRepository
	cartItems  *CartItemGormRepository
	inventory  *InventoryGormRepository
	products   *ProductGormRepository
	categories *CategoryGormRepository
	auditLogs  *AuditLogGormRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository     { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository               { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository       { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository         { return r.products }
func (r *txReposGorm) ProductLinks() repo.CategoryProductLinker { return r.products }
func (r *txReposGorm) Categories() repo.CategoryRepository      { return r.categories }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository       { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:     NewOrderGormRepository(tx),
			orderItems: NewOrderItemGormRepository(tx),
			carts:      NewCartGormRepository(tx),
			cartItems:  NewCartItemGormRepository(tx),
			inventory:  NewInventoryGormRepository(tx),
			products:   NewProductGormRepository(tx),
			categories: NewCategoryGormRepository(tx),
			auditLogs:  NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}

// コンパイル時に実装漏れを検出
var (
	_ repo.OrderRepository       = (*OrderGormRepository)(nil)
	_ repo.OrderItemRepository   = (*OrderItemGormRepository)(nil)
	_ repo.CartRepository        = (*CartGormRepository)(nil)
	_ repo.CartItemRepository    = (*CartItemGormRepository)(nil)
	_ repo.InventoryRepository   = (*InventoryGormRepository)(nil)
	_ repo.ProductRepository     = (*ProductGormRepository)(nil)
	_ repo.CategoryProductLinker = (*ProductGormRepository)(nil)
	_ repo.CategoryRepository    = (*CategoryGormRepository)(nil)
	_ repo.AuditLogRepository    = (*AuditLogGormRepository)(nil)
	_ repo.TransactionManager    = (*TxManagerGorm)(nil)
)
