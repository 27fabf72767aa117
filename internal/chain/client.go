package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of an RPC client used for balance reads and Safe
// submission. *ethclient.Client satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

func EthDialer(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rpc: %w", err)
	}
	return client, nil
}

// ClientPool dials each RPC URL once and reuses the connection.
type ClientPool struct {
	dial    Dialer
	mu      sync.Mutex
	clients map[string]Backend
}

func NewClientPool(dial Dialer) *ClientPool {
	if dial == nil {
		dial = EthDialer
	}
	return &ClientPool{dial: dial, clients: make(map[string]Backend)}
}

func (p *ClientPool) Get(ctx context.Context, rpcURL string) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[rpcURL]; ok {
		return c, nil
	}
	c, err := p.dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	p.clients[rpcURL] = c
	return c, nil
}
