package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/chain"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

type BalanceHandler struct {
	svc *chain.BalanceService
}

func NewBalanceHandler(svc *chain.BalanceService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

// Get returns one address's balances, or with ?wallet=true the owner plus
// its custodial Safe.
func (h *BalanceHandler) Get(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		fail(c, apperrors.NewInvalidRequest("invalid address"))
		return
	}
	addr := common.HexToAddress(raw)

	if c.Query("wallet") == "true" {
		out, err := h.svc.FetchWallet(c.Request.Context(), addr)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}

	snap, err := h.svc.Fetch(c.Request.Context(), addr)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.AddAuditContext(c, "rpc_endpoint", snap.Endpoint)
	c.JSON(http.StatusOK, snap)
}
