package bridgesig

import (
	"crypto/ed25519"
	"math/rand"
	"strings"
	"testing"
)

func testSeed(b byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	return seed
}

func TestEd25519SignVerify(t *testing.T) {
	s, err := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed(0xA1)))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	if !strings.HasPrefix(s.Key(), AlgEd25519+":") {
		t.Fatalf("key string %q", s.Key())
	}
	msg := []byte("envelope bytes")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(s.Key(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 1
	if err := Verify(s.Key(), tampered, sig); err == nil {
		t.Fatal("tampered message verified")
	}
	badSig := append([]byte(nil), sig...)
	badSig[0] ^= 1
	if err := Verify(s.Key(), msg, badSig); err == nil {
		t.Fatal("tampered signature verified")
	}
}

func TestDilithium3SignVerify(t *testing.T) {
	pub, priv, err := GenerateDilithium3Keypair(rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	for _, hashAlg := range []string{"sha256", "sha512", "sha3-256"} {
		s, err := NewDilithium3Signer(pub, priv, hashAlg)
		if err != nil {
			t.Fatalf("NewDilithium3Signer(%s): %v", hashAlg, err)
		}
		msg := []byte("envelope bytes " + hashAlg)
		sig, err := s.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := Verify(s.Key(), msg, sig); err != nil {
			t.Fatalf("Verify(%s): %v", hashAlg, err)
		}
		if err := Verify(s.Key(), append(msg, 'x'), sig); err == nil {
			t.Fatalf("tampered message verified (%s)", hashAlg)
		}
	}
}

func TestDilithium3SignerRejectsUnknownDigest(t *testing.T) {
	pub, priv, err := GenerateDilithium3Keypair(rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	if _, err := NewDilithium3Signer(pub, priv, "md5"); err == nil {
		t.Fatal("md5 accepted")
	}
}

func TestVerifyRejectsMalformedKeys(t *testing.T) {
	for _, key := range []string{"", "ed25519", "ed25519:!!!", "rsa:AAAA", "ed25519:AAAA"} {
		if err := Verify(key, []byte("m"), []byte("s")); err == nil {
			t.Errorf("key %q verified", key)
		}
	}
}

func TestCrossAlgorithmVerifyFails(t *testing.T) {
	s1, _ := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed(0x01)))
	s2, _ := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed(0x02)))
	msg := []byte("envelope bytes")
	sig, _ := s1.Sign(msg)
	if err := Verify(s2.Key(), msg, sig); err == nil {
		t.Fatal("signature verified under the wrong key")
	}
}
