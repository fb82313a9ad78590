package handler

import (
	"net/http"

	"ecapp/internal/config"
	"ecapp/internal/middleware"
	"ecapp/internal/repository"
	"ecapp/internal/usecase"

	"github.com/labstack/echo/v4"
)

type VariantRequest struct {
	Size  string `json:"size" validate:"required,max=50"`
	Price int64  `json:"price" validate:"gte=0"`
	Stock int64  `json:"stock" validate:"gte=0"`
}

type ProductWriteRequest struct {
	CategoryID  *int64           `json:"category_id" validate:"omitempty,gt=0"`
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description"`
	Price       int64            `json:"price" validate:"gte=0"`
	Stock       int64            `json:"stock" validate:"gte=0"`
	Unit        string           `json:"unit" validate:"max=50"`
	IsActive    *bool            `json:"is_active"`
	Variants    []VariantRequest `json:"variants" validate:"omitempty,dive"`
}

// 在庫更新の入力
type InventoryUpdateRequest struct {
	Stock  int64  `json:"stock" validate:"gte=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

// /admin/products・/admin/inventory・/admin/sold-counts をまとめる
type AdminProductHandler struct {
	uc        *usecase.ProductUsecase
	soldCount *usecase.SoldCountUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, soldCount *usecase.SoldCountUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, soldCount: soldCount}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.PUT("/inventory/:product_id", h.updateInventory)
	admin.POST("/sold-counts/recalculate", h.recalculateSoldCounts)
}

func (r ProductWriteRequest) toInput() usecase.AdminProductInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	in := usecase.AdminProductInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Unit:        r.Unit,
		IsActive:    active,
	}
	if r.Variants != nil {
		in.Variants = make([]usecase.VariantInput, 0, len(r.Variants))
		for _, v := range r.Variants {
			in.Variants = append(in.Variants, usecase.VariantInput{Size: v.Size, Price: v.Price, Stock: v.Stock})
		}
	}
	return in
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ProductWriteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminCreateProduct(c.Request().Context(), p, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req ProductWriteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminUpdateProduct(c.Request().Context(), p, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "product deleted"})
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := pathID(c, "product_id")
	if err != nil {
		return writeError(c, err)
	}

	var req InventoryUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.AdminUpdateInventory(c.Request().Context(), p, id, req.Stock, req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "stock updated"})
}

func (h *AdminProductHandler) recalculateSoldCounts(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.soldCount.Recalculate(c.Request().Context(), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
