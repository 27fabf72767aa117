package signer

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
)

const testSecret = "cG9seXJlbGF5LXRlc3Qtc2VjcmV0LTAxMjM0NTY3ODk="

func strPtr(s string) *string { return &s }

func TestSignL2_KnownVectors(t *testing.T) {
	sig, err := SignL2(testSecret, 1700000000, "GET", "/balance-allowance", nil)
	require.NoError(t, err)
	assert.Equal(t, "k7qWt9b1Ir5Iq7uTWifuiUcBI39B74CD53Wnc1W4lFU=", sig)

	body := `{"order":{"salt":1},"owner":"k","orderType":"GTC"}`
	sig, err = SignL2(testSecret, 1700000000, "POST", "/order", &body)
	require.NoError(t, err)
	assert.Equal(t, "1okbEi-bDuN5dGrKJ6DF3D8nkgCfLc85QJn1msd1Z6k=", sig)
}

func TestSignL2_Deterministic(t *testing.T) {
	cases := []struct {
		method string
		path   string
		body   *string
	}{
		{"GET", "/balance-allowance", nil},
		{"POST", "/order", strPtr(`{"order":{}}`)},
		{"DELETE", "/order", strPtr("")},
	}

	for _, tc := range cases {
		a, err := SignL2(testSecret, 1712345678, tc.method, tc.path, tc.body)
		require.NoError(t, err)
		b, err := SignL2(testSecret, 1712345678, tc.method, tc.path, tc.body)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestSignL2_URLSafeAlphabet(t *testing.T) {
	for ts := int64(1700000000); ts < 1700000200; ts++ {
		sig, err := SignL2(testSecret, ts, "POST", "/order", strPtr(`{"x":1}`))
		require.NoError(t, err)
		assert.False(t, strings.ContainsAny(sig, "+/"), sig)
	}
}

func TestSignL2_AcceptsURLSafeSecret(t *testing.T) {
	raw := []byte(strings.Repeat("\xfb\xff\xfe", 11))
	std := base64.StdEncoding.EncodeToString(raw)
	require.True(t, strings.ContainsAny(std, "+/"))
	urlSafe := base64.URLEncoding.EncodeToString(raw)

	a, err := SignL2(std, 1700000000, "GET", "/time", nil)
	require.NoError(t, err)
	b, err := SignL2(urlSafe, 1700000000, "GET", "/time", nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignL2_BodyChangesSignature(t *testing.T) {
	a, _ := SignL2(testSecret, 1700000000, "POST", "/order", nil)
	b, _ := SignL2(testSecret, 1700000000, "POST", "/order", strPtr("{}"))
	assert.NotEqual(t, a, b)
}

func TestSignL2_MalformedSecret(t *testing.T) {
	_, err := SignL2("not base64!!", 1700000000, "GET", "/time", nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
}
