package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/swap"
)

type SwapHandler struct {
	client *swap.Client
}

func NewSwapHandler(client *swap.Client) *SwapHandler {
	return &SwapHandler{client: client}
}

func (h *SwapHandler) Prices(c *gin.Context) {
	var req model.SwapPriceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest(err.Error()))
		return
	}
	dir, err := swap.ParseDirection(req.Direction)
	if err != nil {
		fail(c, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		fail(c, apperrors.NewInvalidRequest("amount must be a decimal number"))
		return
	}
	resp, err := h.client.Prices(c.Request.Context(), swap.PriceQuery{Direction: dir, Amount: amount})
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}

func (h *SwapHandler) Transaction(c *gin.Context) {
	var req model.SwapBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest(err.Error()))
		return
	}
	dir, err := swap.ParseDirection(req.Direction)
	if err != nil {
		fail(c, err)
		return
	}
	resp, err := h.client.BuildTransaction(c.Request.Context(), swap.BuildRequest{
		Direction:   dir,
		UserAddress: req.UserAddress,
		PriceRoute:  req.PriceRoute,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		fail(c, err)
		return
	}
	relay(c, resp)
}
