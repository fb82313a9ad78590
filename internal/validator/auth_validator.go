package validator

import (
	"context"
	"errors"
	"net/http"

	"ecapp/internal/repository"
	"ecapp/internal/usecase"
)

type authValidator struct {
	users repository.UserRepository
	v     *Validator
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository, v *Validator) usecase.AuthValidator {
	if v == nil {
		v = New()
	}
	return &authValidator{users: users, v: v}
}

// サインアップの入力を検証
func (a *authValidator) ValidateRegister(ctx context.Context, req usecase.AuthRegisterRequest) error {
	if err := a.v.Validate(req); err != nil {
		return err
	}

	// email重複チェック（DBが必要）
	_, err := a.users.FindByEmail(ctx, req.Email)
	if err == nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already used")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// ログインの入力を検証
func (a *authValidator) ValidateLogin(_ context.Context, req usecase.AuthLoginRequest) error {
	return a.v.Validate(req)
}
