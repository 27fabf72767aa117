package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/signer"
)

func TestBuildExecTransaction(t *testing.T) {
	safe := common.HexToAddress("0x3333333333333333333333333333333333333333")
	target := common.HexToAddress(testUSDC)
	inner := []byte{0xa9, 0x05, 0x9c, 0xbb}

	call, err := BuildExecTransaction(safe, testOwner, SafeTransaction{To: target, Data: inner})
	require.NoError(t, err)

	parsed, err := abi.JSON(strings.NewReader(safeExecTransactionABI))
	require.NoError(t, err)
	method := parsed.Methods["execTransaction"]
	assert.Equal(t, method.ID, []byte(call.Data[:4]))

	args, err := method.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, target, args[0].(common.Address))
	assert.Equal(t, 0, args[1].(*big.Int).Sign())
	assert.Equal(t, inner, args[2].([]byte))
	assert.Equal(t, OperationCall, args[3].(uint8))
	for i := 4; i <= 6; i++ {
		assert.Equal(t, 0, args[i].(*big.Int).Sign())
	}
	assert.Equal(t, common.Address{}, args[7].(common.Address))
	assert.Equal(t, common.Address{}, args[8].(common.Address))
	assert.Equal(t, signer.PreApprovedSignature(testOwner), args[9].([]byte))
}

func TestBuildExecTransaction_BadOperation(t *testing.T) {
	_, err := BuildExecTransaction(common.Address{}, testOwner, SafeTransaction{Operation: 2})
	assert.Error(t, err)
}

func TestSafeExecutor_Submit(t *testing.T) {
	key, _ := crypto.GenerateKey()
	keyHex := common.Bytes2Hex(crypto.FromECDSA(key))
	safe := common.HexToAddress("0x3333333333333333333333333333333333333333")

	good := &fakeBackend{nonce: 4}
	d := &fakeDialer{backends: map[string]*fakeBackend{
		"https://rpc-a": {err: errors.New("gateway timeout")},
		"https://rpc-b": good,
	}}
	ladder := dispatch.NewLadder([]string{"https://rpc-a", "https://rpc-b"})
	exec, err := NewSafeExecutor(ladder, NewClientPool(d.Dial), keyHex, 137, func(common.Address) (common.Address, error) {
		return safe, nil
	})
	require.NoError(t, err)

	res, err := exec.Submit(context.Background(), SafeTransaction{To: common.HexToAddress(testUSDC), Data: []byte{0x01}})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Nonce)
	assert.Equal(t, "https://rpc-b", res.Endpoint)
	require.Len(t, good.sent, 1)

	tx := good.sent[0]
	assert.Equal(t, safe, *tx.To())
	assert.Equal(t, uint64(120_000), tx.Gas())
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(137)), tx)
	require.NoError(t, err)
	assert.Equal(t, exec.Owner(), from)

	res, err = exec.Submit(context.Background(), SafeTransaction{To: common.HexToAddress(testUSDC)})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.Nonce)
}

func newTestExecutor(t *testing.T, backend *fakeBackend) *SafeExecutor {
	key, _ := crypto.GenerateKey()
	safe := common.HexToAddress("0x3333333333333333333333333333333333333333")
	d := &fakeDialer{backends: map[string]*fakeBackend{"https://rpc-a": backend}}
	exec, err := NewSafeExecutor(dispatch.NewLadder([]string{"https://rpc-a"}), NewClientPool(d.Dial), common.Bytes2Hex(crypto.FromECDSA(key)), 137, func(common.Address) (common.Address, error) {
		return safe, nil
	})
	require.NoError(t, err)
	return exec
}

func TestSafeExecutor_ConcurrentSubmitsUseDistinctNonces(t *testing.T) {
	backend := &fakeBackend{nonce: 4, sendDelay: 50 * time.Millisecond}
	exec := newTestExecutor(t, backend)

	var wg sync.WaitGroup
	results := make([]*SubmitResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := exec.Submit(context.Background(), SafeTransaction{To: common.HexToAddress(testUSDC), Data: []byte{byte(i)}})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.ElementsMatch(t, []uint64{4, 5}, []uint64{results[0].Nonce, results[1].Nonce})
	assert.NotEqual(t, results[0].TxHash, results[1].TxHash)
	require.Len(t, backend.sent, 2)
	assert.NotEqual(t, backend.sent[0].Nonce(), backend.sent[1].Nonce())
}

func TestSafeExecutor_FailedSendResyncsNonce(t *testing.T) {
	backend := &fakeBackend{nonce: 7, sendErr: errors.New("insufficient funds for gas")}
	exec := newTestExecutor(t, backend)

	_, err := exec.Submit(context.Background(), SafeTransaction{To: common.HexToAddress(testUSDC)})
	require.Error(t, err)

	backend.sendErr = nil
	res, err := exec.Submit(context.Background(), SafeTransaction{To: common.HexToAddress(testUSDC)})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.Nonce)
}

func TestNewSafeExecutor_RequiresKey(t *testing.T) {
	_, err := NewSafeExecutor(dispatch.NewLadder(nil), NewClientPool(nil), "", 137, nil)
	assert.Error(t, err)
}
