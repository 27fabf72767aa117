package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeBackend struct {
	mu       sync.Mutex
	err      error
	native   *big.Int
	tokens   map[common.Address]*big.Int
	nonce    uint64
	sent     []*types.Transaction
	sendErr  error
	calls    int
	gasPrice *big.Int

	sendDelay time.Duration
}

func (f *fakeBackend) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.native, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	v, ok := f.tokens[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return common.LeftPadBytes(v.Bytes(), 32), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	if err := f.hit(); err != nil {
		return 0, err
	}
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	if f.gasPrice == nil {
		return big.NewInt(30_000_000_000), nil
	}
	return f.gasPrice, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if err := f.hit(); err != nil {
		return 0, err
	}
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if err := f.hit(); err != nil {
		return err
	}
	if f.sendDelay > 0 {
		time.Sleep(f.sendDelay)
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	f.mu.Unlock()
	return nil
}

// fakeDialer serves fixed backends by URL and records every dial.
type fakeDialer struct {
	mu       sync.Mutex
	backends map[string]*fakeBackend
	dialed   []string
}

func (d *fakeDialer) Dial(_ context.Context, rpcURL string) (Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, rpcURL)
	b, ok := d.backends[rpcURL]
	if !ok {
		return nil, errors.New("dial " + rpcURL + ": connection refused")
	}
	return b, nil
}
