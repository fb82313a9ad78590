package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecapp/internal/authz"
	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"

	"go.uber.org/zap"
)

type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	log         *zap.Logger
}

// DI
func NewProductUsecase(tx repo.TransactionManager, productRepo repo.ProductRepository, log *zap.Logger) *ProductUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductUsecase{tx: tx, productRepo: productRepo, log: log}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *int64
	MaxPrice   *int64
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.CategoryID != nil && *in.CategoryID <= 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid category_id")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "best_selling":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, errDB(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 非公開の商品は存在しない扱い
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, errDB(err)
	}

	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

type VariantInput struct {
	Size  string
	Price int64
	Stock int64
}

type AdminProductInput struct {
	CategoryID  *int64
	Name        string
	Description string
	Price       int64
	Stock       int64
	Unit        string
	IsActive    bool
	// nilなら更新時にvariantsを触らない
	Variants []VariantInput
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, p authz.Principal, in AdminProductInput) (model.Product, error) {
	if err := requireAdmin(p); err != nil {
		return model.Product{}, err
	}
	variants, err := validateProductInput(in)
	if err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Unit:        strings.TrimSpace(in.Unit),
		IsActive:    in.IsActive,
		Variants:    variants,
	})
	if err != nil {
		return model.Product{}, productWriteError(err)
	}
	return created, nil
}

// 在庫はAdminUpdateInventoryで変える
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, p authz.Principal, productID int64, in AdminProductInput) (model.Product, error) {
	if err := requireAdmin(p); err != nil {
		return model.Product{}, err
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	variants, err := validateProductInput(in)
	if err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Products().Update(ctx, model.Product{
			ID:          productID,
			CategoryID:  in.CategoryID,
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Price:       in.Price,
			Unit:        strings.TrimSpace(in.Unit),
			IsActive:    in.IsActive,
		})
		if err != nil {
			return productWriteError(err)
		}
		if in.Variants != nil {
			if err := r.Products().ReplaceVariants(ctx, productID, variants); err != nil {
				return productWriteError(err)
			}
		}
		updated, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return updated, nil
}

// 物理削除。注文明細はスナップショットで残る
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, p authz.Principal, productID int64) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.productRepo.Delete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return errDB(err)
	}
	u.log.Info("product deleted", zap.Int64("product_id", productID), zap.Int64("actor_user_id", p.UserID))
	return nil
}

func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, p authz.Principal, productID int64, newStock int64, reason string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		prod, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB(err)
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB(err)
		}

		//台帳（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			ActorUserID: p.UserID,
			Delta:       newStock - prod.Stock,
			StockBefore: prod.Stock,
			StockAfter:  newStock,
			Reason:      model.InventoryReasonAdminSet,
			Note:        strings.TrimSpace(reason),
		}); err != nil {
			return errDB(err)
		}

		//監査ログ（在庫更新）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, prod.Stock),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, newStock),
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB(err)
		}
		return nil
	})
}

func validateProductInput(in AdminProductInput) ([]model.ProductVariant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.CategoryID != nil && *in.CategoryID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid category_id")
	}
	if in.Price < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.Stock < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}

	seen := map[string]bool{}
	variants := make([]model.ProductVariant, 0, len(in.Variants))
	for i, v := range in.Variants {
		size := strings.TrimSpace(v.Size)
		if size == "" {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: size required", i))
		}
		if seen[strings.ToLower(size)] {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: duplicate size %s", i, size))
		}
		seen[strings.ToLower(size)] = true
		if v.Price < 0 || v.Stock < 0 {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: price and stock must be >= 0", i))
		}
		variants = append(variants, model.ProductVariant{Size: size, Price: v.Price, Stock: v.Stock})
	}
	return variants, nil
}

func productWriteError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrInvalidReference):
		return NewHTTPError(http.StatusBadRequest, "category not found")
	case errors.Is(err, repo.ErrDuplicate):
		return NewHTTPError(http.StatusConflict, "duplicate variant size")
	}
	return errDB(err)
}
