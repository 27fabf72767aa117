package model

import (
	"encoding/json"
)

// L1SignRequest asks the relay to sign a ClobAuth header set server-side.
type L1SignRequest struct {
	Nonce int64 `json:"nonce"`
}

// ExecRequest wraps one inner call for the custodial Safe.
type ExecRequest struct {
	To        string `json:"to" binding:"required"`
	Value     string `json:"value,omitempty"` // wei, decimal string
	Data      string `json:"data,omitempty"`  // 0x-prefixed calldata
	Operation uint8  `json:"operation,omitempty"`
	Submit    bool   `json:"submit,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

type SwapPriceRequest struct {
	Direction string `form:"direction" binding:"required"`
	Amount    string `form:"amount" binding:"required"` // human units, e.g. "12.5"
}

type SwapBuildRequest struct {
	Direction   string          `json:"direction" binding:"required"`
	UserAddress string          `json:"userAddress" binding:"required"`
	PriceRoute  json.RawMessage `json:"priceRoute" binding:"required"`
	SlippageBps int             `json:"slippageBps,omitempty"`
}
