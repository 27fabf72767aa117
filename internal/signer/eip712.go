package signer

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// ClobAuth EIP-712 constants used for L1 api-key lifecycle calls.
const (
	ClobAuthDomainName    = "ClobAuthDomain"
	ClobAuthDomainVersion = "1"
	ClobAuthMessage       = "This message attests that I control the given wallet"
)

var (
	// "EIP712Domain(string name,string version,uint256 chainId)"
	ClobAuthDomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId)"))

	// "ClobAuth(address address,string timestamp,uint256 nonce,string message)"
	ClobAuthTypeHash = crypto.Keccak256Hash([]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"))
)
