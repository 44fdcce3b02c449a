package crypstyx

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Security builds the "amx" Authorization header the venue expects. The
// signed string is the API key, upper-cased method, lower-cased URL, unix
// timestamp, nonce and the base64 of the body's MD5, authenticated with
// HMAC-SHA256 under the base64-decoded secret.
type Security struct {
	key    string
	secret string
	nonce  int64
	clock  func() time.Time
}

// NewSecurity builds a signer for the given credentials.
func NewSecurity(key, secret string) *Security {
	return &Security{key: key, secret: secret, clock: time.Now}
}

// Header signs one request. Body is the raw payload, empty for GET.
func (s *Security) Header(method, url, body string) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(s.secret)
	if err != nil {
		return "", fmt.Errorf("crypstyx: decode secret: %w", err)
	}
	timestamp := s.clock().UTC().Unix()

	bodyMD5 := md5.Sum([]byte(body))
	bodyB64 := base64.StdEncoding.EncodeToString(bodyMD5[:])

	payload := s.key + strings.ToUpper(method) + strings.ToLower(url) +
		fmt.Sprintf("%d%d", timestamp, s.nonce) + bodyB64

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(payload))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("amx %s:%s:%d:%d", s.key, signature, s.nonce, timestamp), nil
}
