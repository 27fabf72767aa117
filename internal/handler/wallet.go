package handler

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/GoPolymarket/polyrelay/internal/chain"
	"github.com/GoPolymarket/polyrelay/internal/middleware"
	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

type WalletHandler struct {
	executor   *chain.SafeExecutor // nil unless chain.owner_private_key is set
	deriveSafe func(common.Address) (common.Address, error)
}

func NewWalletHandler(executor *chain.SafeExecutor, deriveSafe func(common.Address) (common.Address, error)) *WalletHandler {
	return &WalletHandler{executor: executor, deriveSafe: deriveSafe}
}

// Exec builds a pre-approved execTransaction call for the owner's Safe and,
// when asked and configured, submits it with the owner key.
func (h *WalletHandler) Exec(c *gin.Context) {
	var req model.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest(err.Error()))
		return
	}
	tx, err := toSafeTransaction(req)
	if err != nil {
		fail(c, err)
		return
	}

	if req.Submit {
		if err := serverCredentials(c, "Safe owner key"); err != nil {
			fail(c, err)
			return
		}
		if h.executor == nil {
			fail(c, apperrors.NewConfiguration("safe owner key not configured; submission disabled"))
			return
		}
		res, err := h.executor.Submit(c.Request.Context(), tx)
		if err != nil {
			fail(c, err)
			return
		}
		middleware.AddAuditContext(c, "tx_hash", res.TxHash)
		c.JSON(http.StatusOK, res)
		return
	}

	var call *chain.SafeCall
	switch {
	case req.Owner != "":
		if !common.IsHexAddress(req.Owner) {
			fail(c, apperrors.NewInvalidRequest("invalid owner address"))
			return
		}
		owner := common.HexToAddress(req.Owner)
		safe, err := h.deriveSafe(owner)
		if err != nil {
			fail(c, apperrors.New(apperrors.ErrInvalidRequest, "failed to derive safe wallet", err))
			return
		}
		call, err = chain.BuildExecTransaction(safe, owner, tx)
		if err != nil {
			fail(c, err)
			return
		}
	case h.executor != nil:
		call, err = h.executor.Build(tx)
		if err != nil {
			fail(c, err)
			return
		}
	default:
		fail(c, apperrors.NewInvalidRequest("owner is required"))
		return
	}
	c.JSON(http.StatusOK, call)
}

func toSafeTransaction(req model.ExecRequest) (chain.SafeTransaction, error) {
	if !common.IsHexAddress(req.To) {
		return chain.SafeTransaction{}, apperrors.NewInvalidRequest("invalid to address")
	}
	tx := chain.SafeTransaction{To: common.HexToAddress(req.To), Operation: req.Operation, Value: new(big.Int)}
	if req.Value != "" {
		v, ok := new(big.Int).SetString(req.Value, 10)
		if !ok || v.Sign() < 0 {
			return chain.SafeTransaction{}, apperrors.NewInvalidRequest("value must be a non-negative wei amount")
		}
		tx.Value = v
	}
	if req.Data != "" {
		data, err := hexutil.Decode(req.Data)
		if err != nil {
			return chain.SafeTransaction{}, apperrors.NewInvalidRequest("data must be 0x-prefixed hex")
		}
		tx.Data = data
	}
	return tx, nil
}
