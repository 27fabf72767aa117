package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
)

// SignL2 computes the CLOB L2 HMAC signature over timestamp+method+path[+body].
//
// The secret may be standard or URL-safe base64. The digest is returned in
// URL-safe form with padding kept, which is what the CLOB verifier expects.
// A nil body contributes nothing to the message; an empty body is identical.
func SignL2(secret string, timestamp int64, method string, path string, body *string) (string, error) {
	message := strconv.FormatInt(timestamp, 10) + method + path
	if body != nil {
		message += *body
	}

	key, err := decodeSecret(secret)
	if err != nil {
		metrics.SignerFailures.WithLabelValues("decode_secret").Inc()
		return "", apperrors.NewDecode("invalid api secret", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	sig = strings.ReplaceAll(sig, "+", "-")
	sig = strings.ReplaceAll(sig, "/", "_")
	return sig, nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ReplaceAll(secret, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	return base64.StdEncoding.DecodeString(s)
}
