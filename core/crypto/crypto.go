package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"

	"github.com/drip/core/address"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidKey       = errors.New("invalid private key")
	ErrInvalidPubkey    = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
)

const pemPrivateKey = "EC PRIVATE KEY"

var (
	chainElliptic = elliptic.P256()
)

// ChainElliptic returns the curve of every signing key.
func ChainElliptic() elliptic.Curve { return chainElliptic }

// Hash is blake2b-256 over the concatenation of data.
func Hash(data ...[]byte) []byte {
	d, _ := blake2b.New256(nil)
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(chainElliptic, rand.Reader)
}

// FromECDSAPub returns the 33 byte compressed encoding of pub.
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.MarshalCompressed(chainElliptic, pub.X, pub.Y)
}

// PubkeyToAddress is the blake2b-256 hash of the compressed public key.
func PubkeyToAddress(p ecdsa.PublicKey) address.Address {
	return address.FromPublicKey(FromECDSAPub(&p))
}

func PrivKeyToAddress(p ecdsa.PrivateKey) address.Address {
	return PubkeyToAddress(p.PublicKey)
}

func PublicKeyToString(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(FromECDSAPub(pub))
}

func PublicKeyFromString(s string) (*ecdsa.PublicKey, error) {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	x, y := elliptic.UnmarshalCompressed(chainElliptic, decoded)
	if x == nil || y == nil {
		return nil, ErrInvalidPubkey
	}
	return &ecdsa.PublicKey{Curve: chainElliptic, X: x, Y: y}, nil
}

// Sign returns an ASN.1 signature of digest.
func Sign(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	if priv == nil || priv.D == nil {
		return nil, ErrInvalidKey
	}
	return ecdsa.SignASN1(rand.Reader, priv, digest)
}

func Verify(pub *ecdsa.PublicKey, digest, sig []byte) error {
	if pub == nil || !ecdsa.VerifyASN1(pub, digest, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// EncodePrivateKey returns priv as a PEM block.
func EncodePrivateKey(priv *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

func DecodePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemPrivateKey {
		return nil, fmt.Errorf("%w: no %s block", ErrInvalidKey, pemPrivateKey)
	}
	priv, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if priv.Curve != chainElliptic {
		return nil, fmt.Errorf("%w: unexpected curve %s", ErrInvalidKey, priv.Curve.Params().Name)
	}
	return priv, nil
}

// NewMnemonic generates a fresh 24-word phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// KeyFromMnemonic derives the signing key of a mnemonic and passphrase.
// The bip32 master secret is reduced into the curve's scalar range.
func KeyFromMnemonic(mnemonic, passphrase string) (*ecdsa.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	n1 := new(big.Int).Sub(chainElliptic.Params().N, big.NewInt(1))
	d := new(big.Int).SetBytes(master.Key)
	d.Mod(d, n1).Add(d, big.NewInt(1))

	priv := &ecdsa.PrivateKey{D: d}
	priv.Curve = chainElliptic
	priv.X, priv.Y = chainElliptic.ScalarBaseMult(d.FillBytes(make([]byte, 32)))
	return priv, nil
}

func AddressFromMnemonic(mnemonic, passphrase string) (address.Address, error) {
	priv, err := KeyFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return address.Zero, err
	}
	return PrivKeyToAddress(*priv), nil
}
