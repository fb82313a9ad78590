package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"ecapp/internal/authz"
	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"

	"go.uber.org/zap"
)

type SoldCountUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewSoldCountUsecase(tx repo.TransactionManager, log *zap.Logger) *SoldCountUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &SoldCountUsecase{tx: tx, log: log}
}

type SoldCountChange struct {
	ProductID int64 `json:"product_id"`
	Before    int64 `json:"before"`
	After     int64 `json:"after"`
}

type SoldCountRecalcOutput struct {
	ProductsChecked int               `json:"products_checked"`
	ProductsUpdated int               `json:"products_updated"`
	Changes         []SoldCountChange `json:"changes"`
}

// 配達済み注文の明細からsold_countを作り直す。差分がある商品だけ更新
func (u *SoldCountUsecase) Recalculate(ctx context.Context, p authz.Principal) (SoldCountRecalcOutput, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return SoldCountRecalcOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}

	out := SoldCountRecalcOutput{Changes: []SoldCountChange{}}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 先に商品行をロックする。配達確定の加算はロック解除まで待つ
		current, err := r.Products().LockSoldCounts(ctx)
		if err != nil {
			return errDB(err)
		}
		delivered, err := r.OrderItems().SumDeliveredQuantities(ctx)
		if err != nil {
			return errDB(err)
		}
		out.ProductsChecked = len(current)

		ids := make([]int64, 0, len(current))
		for id := range current {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			want := delivered[id]
			if current[id] == want {
				continue
			}
			if err := r.Products().SetSoldCount(ctx, id, want); err != nil {
				return passOrDB(err)
			}
			out.Changes = append(out.Changes, SoldCountChange{ProductID: id, Before: current[id], After: want})
		}
		out.ProductsUpdated = len(out.Changes)

		if out.ProductsUpdated == 0 {
			return nil
		}
		changesJSON, _ := json.Marshal(out.Changes)
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionRecalculateSoldCount,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   0,
			AfterJSON:    string(changesJSON),
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return SoldCountRecalcOutput{}, err
	}

	u.log.Info("sold_count recalculated",
		zap.Int("products_checked", out.ProductsChecked),
		zap.Int("products_updated", out.ProductsUpdated),
	)
	return out, nil
}
