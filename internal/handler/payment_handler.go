package handler

import (
	"net/http"

	"ecapp/internal/infra/momo"
	"ecapp/internal/usecase"

	"github.com/labstack/echo/v4"
)

// MoMoからのIPN。認証なし（署名で検証）
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payments/momo/callback", h.momoCallback)
}

func (h *PaymentHandler) momoCallback(c echo.Context) error {
	var payload momo.CallbackPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.HandleCallback(c.Request().Context(), payload); err != nil {
		return writeError(c, err)
	}

	// MoMoは204で受領とみなす
	return c.NoContent(http.StatusNoContent)
}
