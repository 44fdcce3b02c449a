package crypstyx

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base64("topsecret")
const testSecret = "dG9wc2VjcmV0"

func fixedSecurity(nonce int64) *Security {
	s := NewSecurity("apikey123", testSecret)
	s.nonce = nonce
	s.clock = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func expectedHeader(t *testing.T, s *Security, method, url, body string) string {
	t.Helper()
	secretBytes, err := base64.StdEncoding.DecodeString(testSecret)
	require.NoError(t, err)

	timestamp := s.clock().UTC().Unix()
	bodyMD5 := md5.Sum([]byte(body))
	payload := s.key + strings.ToUpper(method) + strings.ToLower(url) +
		fmt.Sprintf("%d%d", timestamp, s.nonce) +
		base64.StdEncoding.EncodeToString(bodyMD5[:])

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(payload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("amx %s:%s:%d:%d", s.key, sig, s.nonce, timestamp)
}

func TestHeaderFormat(t *testing.T) {
	s := fixedSecurity(7)
	header, err := s.Header("GET", "https://api.crypstyx.com/api/tickers/1", "")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(header, "amx "))
	parts := strings.Split(strings.TrimPrefix(header, "amx "), ":")
	require.Len(t, parts, 4)
	assert.Equal(t, "apikey123", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Equal(t, "7", parts[2])
	assert.Equal(t, "1717243200", parts[3])

	assert.Equal(t, expectedHeader(t, s, "GET", "https://api.crypstyx.com/api/tickers/1", ""), header)
}

func TestHeaderNormalisesMethodAndURL(t *testing.T) {
	s := fixedSecurity(1)
	lower, err := s.Header("get", "https://api.crypstyx.com/API/Tickers/1", "")
	require.NoError(t, err)
	upper, err := s.Header("GET", "https://api.crypstyx.com/api/tickers/1", "")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
}

func TestHeaderBodyAffectsSignature(t *testing.T) {
	s := fixedSecurity(1)
	empty, err := s.Header("POST", "https://api.crypstyx.com/api/orders", "")
	require.NoError(t, err)
	withBody, err := s.Header("POST", "https://api.crypstyx.com/api/orders", `{"a":1}`)
	require.NoError(t, err)
	assert.NotEqual(t, empty, withBody)
}

func TestHeaderRejectsBadSecret(t *testing.T) {
	s := NewSecurity("apikey123", "not base64 !!!")
	_, err := s.Header("GET", "https://api.crypstyx.com/api/tickers/1", "")
	assert.Error(t, err)
}
