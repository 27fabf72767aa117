package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
)

// NonceSource reports an account's pending transaction nonce.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// NonceManager tracks transaction nonces optimistically so back-to-back Safe
// submissions from the owner key do not collide.
type NonceManager struct {
	source NonceSource

	txNonces map[common.Address]uint64
	txMu     sync.Mutex
}

func NewNonceManager(source NonceSource) *NonceManager {
	return &NonceManager{
		source:   source,
		txNonces: make(map[common.Address]uint64),
	}
}

// ReserveTxNonce hands out the next nonce for addr and advances the local
// counter under one lock, so concurrent callers never share a nonce. The
// first call for an address fetches the pending nonce from chain.
func (m *NonceManager) ReserveTxNonce(ctx context.Context, addr common.Address) (uint64, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	nonce, ok := m.txNonces[addr]
	if !ok {
		// Pending accounts for the mempool.
		fetched, err := m.source.PendingNonceAt(ctx, addr)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch pending nonce: %w", err)
		}
		nonce = fetched
	}
	m.txNonces[addr] = nonce + 1
	return nonce, nil
}

// ResetTxNonce forces a re-sync from the chain. Call it when a reserved
// nonce was not broadcast or the node rejected it.
func (m *NonceManager) ResetTxNonce(ctx context.Context, addr common.Address) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	fetched, err := m.source.PendingNonceAt(ctx, addr)
	if err != nil {
		delete(m.txNonces, addr)
		return err
	}
	m.txNonces[addr] = fetched
	logger.Info("Reset TX nonce", "address", addr.Hex(), "nonce", fetched)
	return nil
}
