package signer

import (
	"github.com/ethereum/go-ethereum/common"
)

// PreApprovedSignature returns the 65-byte Safe "approved hash" signature for
// a transaction sent by the Safe's sole owner: r = owner, s = 0, v = 1.
// The Safe accepts it without ECDSA recovery when msg.sender == owner.
func PreApprovedSignature(owner common.Address) []byte {
	sig := make([]byte, 65)
	copy(sig[0:32], common.LeftPadBytes(owner.Bytes(), 32))
	sig[64] = 1
	return sig
}
