package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

const tokenDecimals = 6

// Direction selects which leg of the USDC / USDC.e pair is sold.
type Direction string

const (
	USDCToUSDCe Direction = "usdc_to_usdce"
	USDCeToUSDC Direction = "usdce_to_usdc"
)

func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(USDCToUSDCe), "to_usdce":
		return USDCToUSDCe, nil
	case string(USDCeToUSDC), "to_usdc":
		return USDCeToUSDC, nil
	}
	return "", apperrors.NewInvalidRequest("direction must be usdc_to_usdce or usdce_to_usdc")
}

type Config struct {
	BaseURL      string
	ChainID      int64
	Partner      string
	SlippageBps  int
	USDCAddress  string
	USDCeAddress string
	Timeout      time.Duration
}

// Client quotes and builds swaps between the two stablecoins through the
// ParaSwap aggregator.
type Client struct {
	client *resty.Client
	cfg    Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 137
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{client: client, cfg: cfg}
}

func (c *Client) pair(d Direction) (src, dest string) {
	if d == USDCeToUSDC {
		return c.cfg.USDCeAddress, c.cfg.USDCAddress
	}
	return c.cfg.USDCAddress, c.cfg.USDCeAddress
}

// PriceQuery asks for a quote selling Amount (human units) of the source token.
type PriceQuery struct {
	Direction Direction
	Amount    decimal.Decimal
}

func (c *Client) Prices(ctx context.Context, q PriceQuery) (*dispatch.Response, error) {
	if !q.Amount.IsPositive() {
		return nil, apperrors.NewInvalidRequest("amount must be positive")
	}
	src, dest := c.pair(q.Direction)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"srcToken":     src,
			"destToken":    dest,
			"srcDecimals":  strconv.Itoa(tokenDecimals),
			"destDecimals": strconv.Itoa(tokenDecimals),
			"amount":       ToBaseUnits(q.Amount),
			"side":         "SELL",
			"network":      strconv.FormatInt(c.cfg.ChainID, 10),
			"partner":      c.cfg.Partner,
		}).
		Get("/prices")
	return toResponse(resp, err)
}

// BuildRequest turns a previously quoted priceRoute into calldata.
type BuildRequest struct {
	Direction   Direction
	UserAddress string
	PriceRoute  json.RawMessage
	SlippageBps int
}

type priceRouteAmounts struct {
	SrcAmount  string `json:"srcAmount"`
	DestAmount string `json:"destAmount"`
}

func (c *Client) BuildTransaction(ctx context.Context, req BuildRequest) (*dispatch.Response, error) {
	if req.UserAddress == "" {
		return nil, apperrors.NewInvalidRequest("userAddress is required")
	}
	if len(req.PriceRoute) == 0 {
		return nil, apperrors.NewInvalidRequest("priceRoute is required")
	}
	var amounts priceRouteAmounts
	if err := json.Unmarshal(req.PriceRoute, &amounts); err != nil || amounts.SrcAmount == "" {
		return nil, apperrors.NewInvalidRequest("priceRoute must include srcAmount")
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = c.cfg.SlippageBps
	}

	src, dest := c.pair(req.Direction)
	body := map[string]any{
		"srcToken":     src,
		"destToken":    dest,
		"srcAmount":    amounts.SrcAmount,
		"srcDecimals":  tokenDecimals,
		"destDecimals": tokenDecimals,
		"slippage":     slippage,
		"priceRoute":   req.PriceRoute,
		"userAddress":  req.UserAddress,
		"partner":      c.cfg.Partner,
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("ignoreChecks", "true").
		SetBody(body).
		Post(fmt.Sprintf("/transactions/%d", c.cfg.ChainID))
	return toResponse(resp, err)
}

// ToBaseUnits converts a human amount to the token's integer base units.
func ToBaseUnits(amount decimal.Decimal) string {
	return amount.Shift(tokenDecimals).Truncate(0).String()
}

func toResponse(resp *resty.Response, err error) (*dispatch.Response, error) {
	if err != nil {
		return nil, apperrors.NewTransport(err)
	}
	return &dispatch.Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Route:      dispatch.RouteDirect,
	}, nil
}
