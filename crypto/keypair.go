package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/BOCK-CHAIN/BallotChain/types"
)

// PrivateKey wraps an ECDSA P-256 private key.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

func (k PrivateKey) Sign(data []byte) (*Signature, error) {
	r, s, err := ecdsa.Sign(rand.Reader, k.key, data)
	if err != nil {
		return nil, err
	}

	return &Signature{R: r, S: s}, nil
}

func NewPrivateKeyFromReader(r io.Reader) PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), r)
	if err != nil {
		panic(err)
	}

	return PrivateKey{key: key}
}

func GeneratePrivateKey() PrivateKey {
	return NewPrivateKeyFromReader(rand.Reader)
}

func (k PrivateKey) PublicKey() PublicKey {
	return elliptic.MarshalCompressed(k.key.PublicKey.Curve, k.key.PublicKey.X, k.key.PublicKey.Y)
}

// PublicKey is the compressed-point encoding of an ECDSA P-256 public key.
type PublicKey []byte

func (k PublicKey) String() string {
	return hex.EncodeToString(k)
}

// Identity derives the 32-byte voter identity bound into ballot
// commitments: the SHA-256 digest of the compressed point. Deterministic
// per key, fixed width regardless of curve encoding.
func (k PublicKey) Identity() types.Hash {
	return types.Hash(sha256.Sum256(k))
}

// MarshalJSON renders the key as a hex string.
func (k PublicKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses a hex-string key.
func (k *PublicKey) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("public key must be a JSON string")
	}
	parsed, err := PublicKeyFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PublicKeyFromString parses a hex-encoded compressed public key.
func PublicKeyFromString(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return PublicKey(b), nil
}

type Signature struct {
	S, R *big.Int
}

func (sig Signature) Verify(pubKey PublicKey, data []byte) bool {
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), pubKey)
	if x == nil {
		return false
	}
	key := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     x,
		Y:     y,
	}

	return ecdsa.Verify(key, data, sig.R, sig.S)
}
