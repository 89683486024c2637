// Package crypto provides the secp256k1 key handling and address
// derivation used to identify validators and sign consensus artifacts.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/emerald-consensus/emerald/types"
)

// KeyPair is a secp256k1 key pair.
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Public  *secp256k1.PublicKey
}

// GenerateKeyPair generates a new secp256k1 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// Sign signs the keccak256 hash of message, returning a DER-encoded
// ECDSA signature.
func (kp *KeyPair) Sign(message []byte) ([]byte, error) {
	hash := Keccak256(message)
	sig := ecdsa.Sign(kp.Private, hash)
	return sig.Serialize(), nil
}

// PublicKeyBytes returns the uncompressed (65-byte) public key encoding.
func (kp *KeyPair) PublicKeyBytes() []byte {
	return kp.Public.SerializeUncompressed()
}

// PublicKeyFromBytes parses an uncompressed or compressed secp256k1
// public key.
func PublicKeyFromBytes(data []byte) (*secp256k1.PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("invalid public key bytes: %w", err)
	}
	return pub, nil
}

// Keccak256 computes the Ethereum-style keccak256 hash of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hex computes Keccak256 and returns it hex-encoded.
func Keccak256Hex(data ...[]byte) string {
	return hex.EncodeToString(Keccak256(data...))
}

// AddressFromPublicKey derives the 20-byte Ethereum-style address from
// an uncompressed secp256k1 public key: keccak256(pubkey[1:])[12:].
func AddressFromPublicKey(uncompressed []byte) (types.Address, error) {
	if len(uncompressed) != 65 || uncompressed[0] != 0x04 {
		return types.Address{}, fmt.Errorf("expected 65-byte uncompressed public key, got %d bytes", len(uncompressed))
	}
	hash := Keccak256(uncompressed[1:])
	var addr types.Address
	copy(addr[:], hash[12:])
	return addr, nil
}

// ValidatorID returns the canonical identifier for a validator: its
// uncompressed public key bytes.
func ValidatorID(publicKey []byte) []byte {
	out := make([]byte, len(publicKey))
	copy(out, publicKey)
	return out
}

// RandomBytes generates n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}

// Signer signs on behalf of the local validator.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() []byte
	Address() types.Address
}

// DefaultSigner implements Signer over a KeyPair.
type DefaultSigner struct {
	keyPair *KeyPair
	address types.Address
}

// NewDefaultSigner generates a fresh key pair and wraps it as a Signer.
func NewDefaultSigner() (*DefaultSigner, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return NewDefaultSignerFromKeyPair(kp)
}

// NewDefaultSignerFromKeyPair wraps an existing key pair as a Signer.
func NewDefaultSignerFromKeyPair(kp *KeyPair) (*DefaultSigner, error) {
	addr, err := AddressFromPublicKey(kp.PublicKeyBytes())
	if err != nil {
		return nil, err
	}
	return &DefaultSigner{keyPair: kp, address: addr}, nil
}

func (s *DefaultSigner) Sign(message []byte) ([]byte, error) {
	return s.keyPair.Sign(message)
}

func (s *DefaultSigner) PublicKey() []byte {
	return s.keyPair.PublicKeyBytes()
}

func (s *DefaultSigner) Address() types.Address {
	return s.address
}

// VerifyWithPublicKey verifies a DER-encoded ECDSA signature against
// message using the given uncompressed public key.
func VerifyWithPublicKey(publicKeyBytes, message, signatureBytes []byte) (bool, error) {
	pub, err := PublicKeyFromBytes(publicKeyBytes)
	if err != nil {
		return false, err
	}
	sig, err := ecdsa.ParseDERSignature(signatureBytes)
	if err != nil {
		return false, fmt.Errorf("invalid signature: %w", err)
	}
	hash := Keccak256(message)
	return sig.Verify(hash, pub), nil
}
