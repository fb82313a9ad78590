package server

import (
	"ecapp/internal/config"
	"ecapp/internal/handler"
	"ecapp/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth          *handler.AuthHandler
	Product       *handler.ProductHandler
	Category      *handler.CategoryHandler
	Cart          *handler.CartHandler
	Order         *handler.OrderHandler
	Payment       *handler.PaymentHandler
	AdminOrder    *handler.AdminOrderHandler
	AdminProduct  *handler.AdminProductHandler
	AdminCategory *handler.AdminCategoryHandler
	AdminAuditLog *handler.AdminAuditLogHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	// 公開
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Product.RegisterRoutes(e)
	h.Category.RegisterRoutes(e)
	h.Payment.RegisterRoutes(e)

	// ログイン必須
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)

	// 管理者
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.AdminProduct.RegisterRoutes(e, cfg, userRepo)
	h.AdminCategory.RegisterRoutes(e, cfg, userRepo)
	h.AdminAuditLog.RegisterRoutes(e, cfg, userRepo)
}
