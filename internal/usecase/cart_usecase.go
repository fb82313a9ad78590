package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"
)

// /cart の業務ロジック
// 追加・変更は1トランザクションで、既存明細は行ロックしてから数量を足す
type CartUsecase struct {
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	ledger       *InventoryLedger
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	ledger *InventoryLedger,
) *CartUsecase {
	return &CartUsecase{
		tx:           tx,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		ledger:       ledger,
	}
}

// price は追加時点の価格
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// 合計は保存せずに毎回計算
type CartResponse struct {
	ID            int64              `json:"id"`
	Items         []CartItemResponse `json:"items"`
	TotalPrice    int64              `json:"total_price"`
	TotalQuantity int64              `json:"total_quantity"`
}

type AddCartInput struct {
	ProductID int64
	Unit      string
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// カート取得（無ければ空を作る）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, errDB(err)
	}
	return u.buildCartResponse(ctx, cart.ID)
}

// 同じ商品+サイズは数量を加算。合計数量で在庫を確認する
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	unit := strings.TrimSpace(in.Unit)

	var cartID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errDB(err)
		}
		cartID = cart.ID

		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return errDB(err)
		}
		if !p.IsActive {
			return NewHTTPError(http.StatusBadRequest, "product is not available")
		}

		// variantのサイズ表記にそろえる
		if v, ok := p.VariantBySize(unit); ok && unit != "" {
			unit = v.Size
		}

		existing, found, err := r.CartItems().FindByCartProductUnitForUpdate(ctx, cart.ID, p.ID, unit)
		if err != nil {
			return errDB(err)
		}

		combined := in.Quantity
		if found {
			combined += existing.Quantity
		}
		ok, err := u.ledger.CheckAvailable(p, unit, combined)
		if err != nil {
			return stockHTTPError(err, p, unit)
		}
		if !ok {
			return NewHTTPErrorWithDetails(http.StatusBadRequest, "stock exceeded", map[string]any{
				"product_id": p.ID,
				"unit":       unit,
				"requested":  combined,
			})
		}

		if found {
			// 価格は最初に入れた時のまま
			if err := r.CartItems().UpdateQuantity(ctx, existing.ID, combined); err != nil {
				return errDB(err)
			}
			return nil
		}

		price, err := u.ledger.UnitPrice(p, unit)
		if err != nil {
			return stockHTTPError(err, p, unit)
		}
		_, err = r.CartItems().Create(ctx, model.CartItem{
			CartID:            cart.ID,
			ProductID:         p.ID,
			Unit:              unit,
			Quantity:          in.Quantity,
			UnitPriceSnapshot: price,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			// 同時に同じ明細が作られた
			return NewHTTPError(http.StatusConflict, "cart was modified concurrently, please retry")
		}
		if err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}

	return u.buildCartResponse(ctx, cartID)
}

// 数量を置き換える
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var cartID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := u.lockOwnItem(ctx, r, userID, cartItemID)
		if err != nil {
			return err
		}
		cartID = item.CartID

		p, err := r.Products().FindByID(ctx, item.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return errDB(err)
		}

		ok, err := u.ledger.CheckAvailable(p, item.Unit, in.Quantity)
		if err != nil {
			return stockHTTPError(err, p, item.Unit)
		}
		if !ok {
			return NewHTTPErrorWithDetails(http.StatusBadRequest, "stock exceeded", map[string]any{
				"product_id": p.ID,
				"unit":       item.Unit,
				"requested":  in.Quantity,
			})
		}

		if err := r.CartItems().UpdateQuantity(ctx, item.ID, in.Quantity); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}

	return u.buildCartResponse(ctx, cartID)
}

func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var cartID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := u.lockOwnItem(ctx, r, userID, cartItemID)
		if err != nil {
			return err
		}
		cartID = item.CartID

		if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}

	return u.buildCartResponse(ctx, cartID)
}

// 明細を一括削除。カート自体は残す
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var cartID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errDB(err)
		}
		cartID = cart.ID

		if err := r.CartItems().DeleteByCartID(ctx, cart.ID); err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return CartResponse{}, err
	}

	return CartResponse{ID: cartID, Items: []CartItemResponse{}}, nil
}

// 自分のカートの明細だけ触れる。他人の明細は403
func (u *CartUsecase) lockOwnItem(ctx context.Context, r repo.TxRepos, userID int64, cartItemID int64) (model.CartItem, error) {
	cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return model.CartItem{}, errDB(err)
	}

	item, err := r.CartItems().FindByIDForUpdate(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.CartItem{}, errDB(err)
	}

	if item.CartID != cart.ID {
		return model.CartItem{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return item, nil
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, errDB(err)
	}
	return toCartResponse(cartID, items), nil
}

func toCartResponse(cartID int64, items []model.CartItem) CartResponse {
	out := CartResponse{ID: cartID, Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		name := ""
		if it.Product != nil {
			name = it.Product.Name
		}
		line := it.UnitPriceSnapshot * it.Quantity
		out.Items = append(out.Items, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      name,
			Unit:      it.Unit,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: line,
		})
		out.TotalPrice += line
		out.TotalQuantity += it.Quantity
	}
	return out
}
