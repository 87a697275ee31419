// Package bridgesig signs and verifies bridge envelopes.
//
// Two signature algorithms are supported: ed25519 and dilithium3. Key
// strings are "<alg>:" + base64(pubkey); a receiving controller pins the
// key string of its peer, so an envelope from anyone else fails closed.
package bridgesig

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Signer produces sealed-envelope signatures under one key.
type Signer interface {
	// Key returns the "<alg>:base64" key string verifiers pin.
	Key() string
	Sign(message []byte) ([]byte, error)
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	key  string
}

// NewEd25519Signer wraps an Ed25519 private key. Signatures cover
// sha256(message).
func NewEd25519Signer(priv ed25519.PrivateKey) (Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &ed25519Signer{
		priv: priv,
		key:  AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub),
	}, nil
}

func (s *ed25519Signer) Key() string { return s.key }

func (s *ed25519Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ed25519.Sign(s.priv, digest[:]), nil
}

type dilithiumSigner struct {
	priv    *mode3.PrivateKey
	key     string
	hashAlg string
}

// NewDilithium3Signer wraps a Dilithium3 private key. hashAlg must be one
// of: sha256, sha512, sha3-256.
func NewDilithium3Signer(pub *mode3.PublicKey, priv *mode3.PrivateKey, hashAlg string) (Signer, error) {
	if priv == nil || pub == nil {
		return nil, fmt.Errorf("missing keypair")
	}
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	packed := make([]byte, mode3.PublicKeySize)
	pub.Pack((*[mode3.PublicKeySize]byte)(packed))
	return &dilithiumSigner{
		priv:    priv,
		key:     AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(packed),
		hashAlg: hashAlg,
	}, nil
}

func (s *dilithiumSigner) Key() string { return s.key }

func (s *dilithiumSigner) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor(s.hashAlg, message)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return sig, nil
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// Verify checks sig over message against a "<alg>:base64" key string.
//
// Dilithium3 verification accepts any supported digest; the digest choice is
// recovered by trial since the key string does not pin one.
func Verify(key string, message, sig []byte) error {
	alg, b64, ok := strings.Cut(key, ":")
	if !ok {
		return fmt.Errorf("malformed key string %q", key)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("malformed key encoding: %v", err)
	}
	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		digest := sha256.Sum256(message)
		if !ed25519.Verify(ed25519.PublicKey(raw), digest[:], sig) {
			return fmt.Errorf("ed25519 signature invalid")
		}
		return nil
	case AlgDilithium3:
		if len(raw) != mode3.PublicKeySize {
			return fmt.Errorf("dilithium3 public key must be %d bytes, got %d", mode3.PublicKeySize, len(raw))
		}
		var pub mode3.PublicKey
		pub.Unpack((*[mode3.PublicKeySize]byte)(raw))
		for _, hashAlg := range []string{"sha256", "sha512", "sha3-256"} {
			digest, derr := digestFor(hashAlg, message)
			if derr != nil {
				continue
			}
			if mode3.Verify(&pub, digest, sig) {
				return nil
			}
		}
		return fmt.Errorf("dilithium3 signature invalid")
	default:
		return fmt.Errorf("unsupported signature algorithm %q", alg)
	}
}
