package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/manager"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/signer"
)

const safeExecTransactionABI = `[{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},{"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},{"name":"signatures","type":"bytes"}],"name":"execTransaction","outputs":[{"name":"success","type":"bool"}],"stateMutability":"payable","type":"function"}]`

const (
	OperationCall         uint8 = 0
	OperationDelegateCall uint8 = 1
)

// SafeTransaction is the inner call a Safe executes.
type SafeTransaction struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation uint8
}

// SafeCall is a ready-to-send execTransaction call on a single-owner Safe.
type SafeCall struct {
	Safe      common.Address `json:"safe"`
	Owner     common.Address `json:"owner"`
	Data      hexutil.Bytes  `json:"data"`
	Signature hexutil.Bytes  `json:"signature"`
}

// BuildExecTransaction encodes execTransaction with every gas and refund
// parameter zeroed and the owner's pre-approved signature. The call only
// succeeds when sent by owner itself.
func BuildExecTransaction(safe, owner common.Address, tx SafeTransaction) (*SafeCall, error) {
	if tx.Operation > OperationDelegateCall {
		return nil, apperrors.NewInvalidRequest("operation must be 0 (call) or 1 (delegatecall)")
	}
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}

	parsed, err := abi.JSON(strings.NewReader(safeExecTransactionABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi")
	}
	sig := signer.PreApprovedSignature(owner)
	calldata, err := parsed.Pack("execTransaction",
		tx.To,
		value,
		data,
		tx.Operation,
		big.NewInt(0), // safeTxGas
		big.NewInt(0), // baseGas
		big.NewInt(0), // gasPrice
		common.Address{},
		common.Address{},
		sig,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack call data: %w", err)
	}
	return &SafeCall{Safe: safe, Owner: owner, Data: calldata, Signature: sig}, nil
}

// SubmitResult describes a broadcast Safe transaction.
type SubmitResult struct {
	TxHash   string `json:"tx_hash"`
	Safe     string `json:"safe"`
	Nonce    uint64 `json:"nonce"`
	Endpoint string `json:"rpc_endpoint"`
}

// SafeExecutor signs execTransaction calls with the Safe owner's key and
// broadcasts them through the RPC ladder.
type SafeExecutor struct {
	ladder  *dispatch.Ladder
	pool    *ClientPool
	key     *ecdsa.PrivateKey
	owner   common.Address
	safe    common.Address
	chainID *big.Int
	nonces  *manager.NonceManager

	// Serializes reserve, sign and broadcast. A failed send resyncs the
	// nonce before the next submit reserves one.
	submitMu sync.Mutex
}

func NewSafeExecutor(ladder *dispatch.Ladder, pool *ClientPool, ownerKeyHex string, chainID int64, deriveSafe func(common.Address) (common.Address, error)) (*SafeExecutor, error) {
	if ownerKeyHex == "" {
		return nil, apperrors.NewConfiguration("safe owner private key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(ownerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid owner private key: %v", err)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)
	safe, err := deriveSafe(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to derive safe wallet: %w", err)
	}
	return &SafeExecutor{
		ladder:  ladder,
		pool:    pool,
		key:     key,
		owner:   owner,
		safe:    safe,
		chainID: big.NewInt(chainID),
		nonces:  manager.NewNonceManager(&ladderNonceSource{ladder: ladder, pool: pool}),
	}, nil
}

func (e *SafeExecutor) Owner() common.Address { return e.owner }
func (e *SafeExecutor) Safe() common.Address { return e.safe }

// Build returns the unsigned execTransaction call for this executor's Safe.
func (e *SafeExecutor) Build(tx SafeTransaction) (*SafeCall, error) {
	return BuildExecTransaction(e.safe, e.owner, tx)
}

func (e *SafeExecutor) Submit(ctx context.Context, tx SafeTransaction) (*SubmitResult, error) {
	call, err := e.Build(tx)
	if err != nil {
		return nil, err
	}
	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	nonce, err := e.nonces.ReserveTxNonce(ctx, e.owner)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, err.Error(), err)
	}

	txHash, ep, err := dispatch.Walk(ctx, e.ladder, func(ctx context.Context, ep dispatch.Endpoint) (common.Hash, error) {
		client, err := e.pool.Get(ctx, ep.URL)
		if err != nil {
			return common.Hash{}, err
		}
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
		}
		gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: e.owner, To: &e.safe, Data: call.Data})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
		}
		signed, err := types.SignTx(types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &e.safe,
			Value:    new(big.Int),
			Gas:      gas + gas/5,
			GasPrice: gasPrice,
			Data:     call.Data,
		}), types.LatestSignerForChainID(e.chainID), e.key)
		if err != nil {
			return common.Hash{}, err
		}
		if err := client.SendTransaction(ctx, signed); err != nil {
			return common.Hash{}, err
		}
		return signed.Hash(), nil
	})
	if err != nil {
		// The reserved nonce was not used; resync so it is not skipped.
		if rerr := e.nonces.ResetTxNonce(ctx, e.owner); rerr != nil {
			logger.Warn("nonce resync failed", "owner", e.owner.Hex(), "error", rerr)
		}
		return nil, err
	}

	logger.Info("safe transaction submitted", "safe", e.safe.Hex(), "tx_hash", txHash.Hex(), "nonce", nonce, "rpc", ep.Host())
	return &SubmitResult{
		TxHash:   txHash.Hex(),
		Safe:     e.safe.Hex(),
		Nonce:    nonce,
		Endpoint: ep.Host(),
	}, nil
}

type ladderNonceSource struct {
	ladder *dispatch.Ladder
	pool   *ClientPool
}

func (s *ladderNonceSource) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n, _, err := dispatch.Walk(ctx, s.ladder, func(ctx context.Context, ep dispatch.Endpoint) (uint64, error) {
		client, err := s.pool.Get(ctx, ep.URL)
		if err != nil {
			return 0, err
		}
		return client.PendingNonceAt(ctx, account)
	})
	return n, err
}
