package signer

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

// L1Headers authenticate api-key lifecycle calls (create, derive, delete).
type L1Headers struct {
	Address   string `json:"POLY_ADDRESS"`
	Signature string `json:"POLY_SIGNATURE"`
	Timestamp string `json:"POLY_TIMESTAMP"`
	Nonce     string `json:"POLY_NONCE"`
}

// Header returns the underscore-named wire headers. Keys are assigned
// directly so net/http does not canonicalize them.
func (h *L1Headers) Header() http.Header {
	return http.Header{
		"POLY_ADDRESS":   {h.Address},
		"POLY_SIGNATURE": {h.Signature},
		"POLY_TIMESTAMP": {h.Timestamp},
		"POLY_NONCE":     {h.Nonce},
	}
}

// L2Headers is one signed request's HMAC header set.
type L2Headers struct {
	Address    string
	Signature  string
	Timestamp  string
	APIKey     string
	Passphrase string
}

// OrderHeader uses the underscore names accepted by POST /order.
func (h *L2Headers) OrderHeader() http.Header {
	return http.Header{
		"POLY_ADDRESS":    {h.Address},
		"POLY_SIGNATURE":  {h.Signature},
		"POLY_TIMESTAMP":  {h.Timestamp},
		"POLY_API_KEY":    {h.APIKey},
		"POLY_PASSPHRASE": {h.Passphrase},
	}
}

// BalanceHeader uses the hyphenated names accepted by GET /balance-allowance.
func (h *L2Headers) BalanceHeader() http.Header {
	return http.Header{
		"POLY-ADDRESS":    {h.Address},
		"POLY-API-KEY":    {h.APIKey},
		"POLY-SIGNATURE":  {h.Signature},
		"POLY-TIMESTAMP":  {h.Timestamp},
		"POLY-PASSPHRASE": {h.Passphrase},
	}
}

// SignedRequest captures the inputs of one L2 signature.
type SignedRequest struct {
	Method    string
	Path      string
	Body      *string
	Timestamp int64
	Signature string
}

// NewL2Headers validates creds and signs method+path+body at timestamp.
func NewL2Headers(creds auth.APIKey, address string, timestamp int64, method, path string, body *string) (*L2Headers, *SignedRequest, error) {
	if creds.Key == "" || creds.Secret == "" || creds.Passphrase == "" {
		return nil, nil, apperrors.NewConfiguration("missing L2 api credentials")
	}
	if address == "" {
		return nil, nil, apperrors.NewConfiguration("missing signer address")
	}

	sig, err := SignL2(creds.Secret, timestamp, method, path, body)
	if err != nil {
		return nil, nil, err
	}

	ts := strconv.FormatInt(timestamp, 10)
	return &L2Headers{
			Address:    address,
			Signature:  sig,
			Timestamp:  ts,
			APIKey:     creds.Key,
			Passphrase: creds.Passphrase,
		}, &SignedRequest{
			Method:    method,
			Path:      path,
			Body:      body,
			Timestamp: timestamp,
			Signature: sig,
		}, nil
}
