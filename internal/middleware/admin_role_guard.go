package middleware

import (
	"net/http"

	"ecapp/internal/authz"

	"github.com/labstack/echo/v4"
)

// 管理操作の可否はauthz.CanAdministerで判断する（is_staff または role=admin）
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if !authz.CanAdminister(p) {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
			return next(c)
		}
	}
}
