package hyperliquid

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Throwaway key used only for deterministic signing tests.
const testPrivateKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func TestNewPrivateKeySignerDerivesAddress(t *testing.T) {
	signer, err := NewPrivateKeySigner(testPrivateKey)
	require.NoError(t, err)

	addr := signer.Address()
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Equal(t, strings.ToLower(addr), addr)
	assert.Len(t, addr, 42)

	// Same key without the 0x prefix yields the same address.
	bare, err := NewPrivateKeySigner(strings.TrimPrefix(testPrivateKey, "0x"))
	require.NoError(t, err)
	assert.Equal(t, addr, bare.Address())
}

func TestNewPrivateKeySignerRejectsBadInput(t *testing.T) {
	_, err := NewPrivateKeySigner("")
	assert.Error(t, err)
	_, err = NewPrivateKeySigner("0xzz")
	assert.Error(t, err)
}

func TestSignRejectsBadDigestLength(t *testing.T) {
	signer, err := NewPrivateKeySigner(testPrivateKey)
	require.NoError(t, err)
	_, err = signer.Sign(make([]byte, 31))
	assert.Error(t, err)
}

func TestActionDigestDeterministic(t *testing.T) {
	action := Action{
		Type:     ActionTypeOrder,
		Grouping: "na",
		Orders: []orderPayload{{
			Asset:     3,
			IsBuy:     true,
			LimitPx:   "65000",
			Sz:        "0.01",
			OrderType: orderTypePayload{Limit: &limitOrderPayload{TIF: "Gtc"}},
		}},
	}

	first, err := actionDigest(action, 1717243200000, true)
	require.NoError(t, err)
	require.Len(t, first, 32)

	second, err := actionDigest(action, 1717243200000, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	otherNonce, err := actionDigest(action, 1717243200001, true)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherNonce)

	testnet, err := actionDigest(action, 1717243200000, false)
	require.NoError(t, err)
	assert.NotEqual(t, first, testnet)
}

func TestActionDigestRejectsNonPositiveNonce(t *testing.T) {
	_, err := actionDigest(Action{Type: ActionTypeCancel}, 0, true)
	assert.Error(t, err)
}

func TestSignActionProducesRecoverableSignature(t *testing.T) {
	signer, err := NewPrivateKeySigner(testPrivateKey)
	require.NoError(t, err)

	action := Action{
		Type:    ActionTypeCancel,
		Cancels: []cancelPayload{{Asset: 1, Oid: 42}},
	}
	const nonce = int64(1717243200000)

	req, err := signAction(action, signer, nonce, true)
	require.NoError(t, err)
	assert.Equal(t, nonce, req.Nonce)
	require.GreaterOrEqual(t, req.Signature.V, 27)

	digest, err := actionDigest(action, nonce, true)
	require.NoError(t, err)

	r, err := hex.DecodeString(strings.TrimPrefix(req.Signature.R, "0x"))
	require.NoError(t, err)
	s, err := hex.DecodeString(strings.TrimPrefix(req.Signature.S, "0x"))
	require.NoError(t, err)
	sig := make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):64], s)
	sig[64] = byte(req.Signature.V - 27)

	pub, err := crypto.SigToPub(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()))
}

func TestSignActionRequiresSigner(t *testing.T) {
	_, err := signAction(Action{Type: ActionTypeOrder}, nil, 1, true)
	assert.Error(t, err)
}
