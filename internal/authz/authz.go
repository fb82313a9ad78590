package authz

import (
	"errors"

	"ecapp/internal/domain/model"
)

var ErrForbidden = errors.New("forbidden")

// 認証済みの呼び出し元
type Principal struct {
	UserID  int64
	Role    model.Role
	IsStaff bool
}

// 管理操作の可否はここだけで判断する
func CanAdminister(p Principal) bool {
	if p.UserID < 0 {
		return false
	}
	return p.IsStaff || p.Role == model.RoleAdmin
}

func RequireAdmin(p Principal) error {
	if !CanAdminister(p) {
		return ErrForbidden
	}
	return nil
}

// 本人か管理者
func CanAccessOwned(p Principal, ownerID int64) bool {
	return (p.UserID > 0 && p.UserID == ownerID) || CanAdminister(p)
}

// バッチ処理用。監査ログのactorは0になる
func System() Principal {
	return Principal{UserID: 0, Role: model.RoleAdmin, IsStaff: true}
}
