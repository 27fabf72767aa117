package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// ClobAuthSigner produces L1 signatures for the CLOB api-key endpoints.
type ClobAuthSigner struct {
	key             *ecdsa.PrivateKey
	address         common.Address
	chainID         *big.Int
	domainSeparator common.Hash
}

// NewClobAuthSigner creates a ClobAuth signer with a pre-calculated domain separator
func NewClobAuthSigner(privateKeyHex string, chainID int64) (*ClobAuthSigner, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	publicKey := key.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	// keccak256(abi.encode(typeHash, keccak256(name), keccak256(version), chainId))
	domainData := make([]byte, 32*4)
	copy(domainData[0:32], ClobAuthDomainTypeHash.Bytes())
	copy(domainData[32:64], crypto.Keccak256([]byte(ClobAuthDomainName)))
	copy(domainData[64:96], crypto.Keccak256([]byte(ClobAuthDomainVersion)))
	copy(domainData[96:128], math.U256Bytes(big.NewInt(chainID)))

	return &ClobAuthSigner{
		key:             key,
		address:         address,
		chainID:         big.NewInt(chainID),
		domainSeparator: crypto.Keccak256Hash(domainData),
	}, nil
}

// Sign returns the 0x-prefixed ClobAuth signature for the given timestamp and nonce.
func (s *ClobAuthSigner) Sign(timestamp int64, nonce int64) (string, error) {
	hashStruct := s.hashClobAuth(timestamp, nonce)
	finalHash := crypto.Keccak256([]byte{0x19, 0x01}, s.domainSeparator.Bytes(), hashStruct)

	signature, err := crypto.Sign(finalHash, s.key)
	if err != nil {
		return "", err
	}
	// crypto.Sign yields V in {0,1}; the CLOB verifier expects 27/28.
	if signature[64] < 27 {
		signature[64] += 27
	}
	return "0x" + common.Bytes2Hex(signature), nil
}

// Headers signs and returns the full L1 header set.
func (s *ClobAuthSigner) Headers(timestamp int64, nonce int64) (*L1Headers, error) {
	sig, err := s.Sign(timestamp, nonce)
	if err != nil {
		return nil, err
	}
	return &L1Headers{
		Address:   s.address.Hex(),
		Signature: sig,
		Timestamp: strconv.FormatInt(timestamp, 10),
		Nonce:     strconv.FormatInt(nonce, 10),
	}, nil
}

func (s *ClobAuthSigner) hashClobAuth(timestamp int64, nonce int64) []byte {
	data := make([]byte, 32*5)
	copy(data[0:32], ClobAuthTypeHash.Bytes())
	copy(data[32+12:64], s.address.Bytes())
	copy(data[64:96], crypto.Keccak256([]byte(strconv.FormatInt(timestamp, 10))))
	copy(data[96:128], math.U256Bytes(big.NewInt(nonce)))
	copy(data[128:160], crypto.Keccak256([]byte(ClobAuthMessage)))
	return crypto.Keccak256(data)
}

func (s *ClobAuthSigner) Address() common.Address {
	return s.address
}

func (s *ClobAuthSigner) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}
