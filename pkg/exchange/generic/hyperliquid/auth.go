package hyperliquid

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	mathhex "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"
)

const verifyingContractHex = "0x0000000000000000000000000000000000000000"

// Signer produces signatures for exchange actions.
type Signer interface {
	Sign(digest []byte) (*Signature, error)
	Address() string
}

// PrivateKeySigner signs action digests with an ECDSA private key.
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewPrivateKeySigner constructs a signer from a hex-encoded private key.
func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return nil, errors.New("hyperliquid: empty private key")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: decode private key: %w", err)
	}
	return &PrivateKeySigner{
		privateKey: key,
		address:    strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}, nil
}

func (s *PrivateKeySigner) Sign(digest []byte) (*Signature, error) {
	if s == nil || s.privateKey == nil {
		return nil, errors.New("hyperliquid: signer not initialised")
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("hyperliquid: expected 32-byte digest, got %d bytes", len(digest))
	}
	sigBytes, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: sign digest: %w", err)
	}
	return &Signature{
		R: "0x" + hex.EncodeToString(sigBytes[:32]),
		S: "0x" + hex.EncodeToString(sigBytes[32:64]),
		V: int(sigBytes[64]) + 27,
	}, nil
}

func (s *PrivateKeySigner) Address() string {
	if s == nil {
		return ""
	}
	return s.address
}

// signAction hashes the action with the agent EIP-712 schema and wraps it in
// a signed request envelope.
func signAction(action Action, signer Signer, nonce int64, isMainnet bool) (*ExchangeRequest, error) {
	if signer == nil {
		return nil, errors.New("hyperliquid: signer required")
	}
	digest, err := actionDigest(action, nonce, isMainnet)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, err
	}
	return &ExchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: *sig,
	}, nil
}

// actionDigest derives the connection id from the msgpack-encoded action and
// the nonce, then hashes it under the Agent typed-data schema.
func actionDigest(action Action, nonce int64, isMainnet bool) ([]byte, error) {
	if nonce <= 0 {
		return nil, errors.New("hyperliquid: nonce must be positive")
	}
	actionBytes, err := msgpack.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: msgpack encode action: %w", err)
	}

	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], uint64(nonce))

	payload := make([]byte, 0, len(actionBytes)+common.AddressLength+len(nonceBytes))
	payload = append(payload, actionBytes...)
	payload = append(payload, make([]byte, common.AddressLength)...)
	payload = append(payload, nonceBytes[:]...)
	connectionID := crypto.Keccak256(payload)

	source := "a"
	chainID := int64(1337)
	if !isMainnet {
		source = "b"
		chainID = 1338
	}
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           mathhex.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContractHex,
		},
		Message: map[string]interface{}{
			"source":       source,
			"connectionId": connectionID,
		},
	}
	return typedDataHash(typedData)
}

func typedDataHash(td apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: hash domain: %w", err)
	}
	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: hash primary type: %w", err)
	}
	raw := make([]byte, 0, 2+len(domainSeparator)+len(messageHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, messageHash...)
	return crypto.Keccak256(raw), nil
}
