package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	nonce uint64
	err   error
	calls int
}

func (f *fakeSource) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.calls++
	return f.nonce, f.err
}

func TestNonceManager_ReserveAdvances(t *testing.T) {
	src := &fakeSource{nonce: 5}
	m := NewNonceManager(src)
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	n, err := m.ReserveTxNonce(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	n, err = m.ReserveTxNonce(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), n)
	assert.Equal(t, 1, src.calls)
}

func TestNonceManager_ConcurrentReservationsAreUnique(t *testing.T) {
	m := NewNonceManager(&fakeSource{nonce: 10})
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	const workers = 20
	var wg sync.WaitGroup
	got := make(chan uint64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.ReserveTxNonce(context.Background(), addr)
			assert.NoError(t, err)
			got <- n
		}()
	}
	wg.Wait()
	close(got)

	seen := make(map[uint64]bool)
	for n := range got {
		assert.False(t, seen[n], "nonce %d handed out twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestNonceManager_Reset(t *testing.T) {
	src := &fakeSource{nonce: 5}
	m := NewNonceManager(src)
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	_, _ = m.ReserveTxNonce(context.Background(), addr)

	src.nonce = 9
	require.NoError(t, m.ResetTxNonce(context.Background(), addr))
	n, _ := m.ReserveTxNonce(context.Background(), addr)
	assert.Equal(t, uint64(9), n)

	src.err = errors.New("rpc down")
	assert.Error(t, m.ResetTxNonce(context.Background(), addr))
	_, err := m.ReserveTxNonce(context.Background(), addr)
	assert.Error(t, err)
}
