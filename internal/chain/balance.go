package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

const (
	nativeDecimals = 18
	usdcDecimals   = 6
)

const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

// BalanceSnapshot is the aggregated on-chain balance of one address.
type BalanceSnapshot struct {
	Address   string          `json:"address"`
	Native    decimal.Decimal `json:"native"`
	USDC      decimal.Decimal `json:"usdc"`
	USDCe     decimal.Decimal `json:"usdc_e"`
	Total     decimal.Decimal `json:"total_usd"`
	Endpoint  string          `json:"rpc_endpoint"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// WalletBalances covers an owner and its derived custodial Safe.
type WalletBalances struct {
	Owner    *BalanceSnapshot  `json:"owner,omitempty"`
	Safe     *BalanceSnapshot  `json:"safe,omitempty"`
	SafeAddr string            `json:"safe_address,omitempty"`
	Total    decimal.Decimal   `json:"total_usd"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type BalanceConfig struct {
	ChainID      int64
	USDCAddress  string
	USDCeAddress string
	Timeout      time.Duration
}

// BalanceService reads balances through the RPC fallback ladder.
type BalanceService struct {
	ladder     *dispatch.Ladder
	pool       *ClientPool
	erc20      abi.ABI
	usdc       common.Address
	usdce      common.Address
	chainID    int64
	timeout    time.Duration
	deriveSafe func(common.Address) (common.Address, error)
}

func NewBalanceService(ladder *dispatch.Ladder, pool *ClientPool, cfg BalanceConfig) (*BalanceService, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	if !common.IsHexAddress(cfg.USDCAddress) || !common.IsHexAddress(cfg.USDCeAddress) {
		return nil, apperrors.NewConfiguration("invalid stablecoin token address")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	svc := &BalanceService{
		ladder:  ladder,
		pool:    pool,
		erc20:   parsed,
		usdc:    common.HexToAddress(cfg.USDCAddress),
		usdce:   common.HexToAddress(cfg.USDCeAddress),
		chainID: cfg.ChainID,
		timeout: cfg.Timeout,
	}
	svc.deriveSafe = svc.defaultDeriveSafe
	return svc, nil
}

func (s *BalanceService) defaultDeriveSafe(owner common.Address) (common.Address, error) {
	safe, err := auth.DeriveSafeWalletForChain(owner, s.chainID)
	if err != nil && s.chainID == 0 {
		safe, err = auth.DeriveSafeWallet(owner)
	}
	return safe, err
}

// DeriveSafe returns the custodial Safe address for owner.
func (s *BalanceService) DeriveSafe(owner common.Address) (common.Address, error) {
	return s.deriveSafe(owner)
}

// Fetch returns the balances of one address from the first RPC endpoint that
// answers all three reads.
func (s *BalanceService) Fetch(ctx context.Context, addr common.Address) (*BalanceSnapshot, error) {
	snap, _, err := dispatch.Walk(ctx, s.ladder, func(ctx context.Context, ep dispatch.Endpoint) (*BalanceSnapshot, error) {
		return s.fetchFrom(ctx, ep, addr)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *BalanceService) fetchFrom(ctx context.Context, ep dispatch.Endpoint, addr common.Address) (*BalanceSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := s.pool.Get(ctx, ep.URL)
	if err != nil {
		return nil, err
	}

	var native, usdc, usdce *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := client.BalanceAt(gctx, addr, nil)
		native = v
		return err
	})
	g.Go(func() error {
		v, err := s.tokenBalance(gctx, client, s.usdc, addr)
		usdc = v
		return err
	})
	g.Go(func() error {
		v, err := s.tokenBalance(gctx, client, s.usdce, addr)
		usdce = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &BalanceSnapshot{
		Address:   addr.Hex(),
		Native:    decimal.NewFromBigInt(native, -nativeDecimals),
		USDC:      decimal.NewFromBigInt(usdc, -usdcDecimals),
		USDCe:     decimal.NewFromBigInt(usdce, -usdcDecimals),
		Endpoint:  ep.Host(),
		FetchedAt: time.Now().UTC(),
	}
	snap.Total = snap.USDC.Add(snap.USDCe)
	return snap, nil
}

func (s *BalanceService) tokenBalance(ctx context.Context, client Backend, token, owner common.Address) (*big.Int, error) {
	data, err := s.erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}
	values, err := s.erc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("decode balanceOf %s: %w", token.Hex(), err)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output for %s", token.Hex())
	}
	return v, nil
}

// FetchWallet fetches the owner and its custodial Safe concurrently. A
// failure on one side is reported in Errors; both failing is an error.
func (s *BalanceService) FetchWallet(ctx context.Context, owner common.Address) (*WalletBalances, error) {
	safe, err := s.deriveSafe(owner)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "failed to derive safe wallet", err)
	}

	var ownerSnap, safeSnap *BalanceSnapshot
	var ownerErr, safeErr error
	var g errgroup.Group
	g.Go(func() error {
		ownerSnap, ownerErr = s.Fetch(ctx, owner)
		return nil
	})
	g.Go(func() error {
		safeSnap, safeErr = s.Fetch(ctx, safe)
		return nil
	})
	_ = g.Wait()

	if ownerErr != nil && safeErr != nil {
		return nil, safeErr
	}

	out := &WalletBalances{
		Owner:    ownerSnap,
		Safe:     safeSnap,
		SafeAddr: safe.Hex(),
		Total:    decimal.Zero,
	}
	if ownerSnap != nil {
		out.Total = out.Total.Add(ownerSnap.Total)
	}
	if safeSnap != nil {
		out.Total = out.Total.Add(safeSnap.Total)
	}
	if ownerErr != nil {
		out.Errors = map[string]string{"owner": ownerErr.Error()}
	}
	if safeErr != nil {
		out.Errors = map[string]string{"safe": safeErr.Error()}
	}
	return out, nil
}
