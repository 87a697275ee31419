package wire

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"namechain.dev/registry/types"
)

// Kind discriminates bridge message payloads.
type Kind uint8

const (
	KindEjection Kind = iota + 1
	KindMigration
)

func (k Kind) Valid() bool { return k == KindEjection || k == KindMigration }

// Envelope is the unit the bridge carries. Nonce is assigned by the sending
// controller's outbox; (Source, Nonce) is unique per envelope and the
// message identity hashes over the canonical envelope bytes.
type Envelope struct {
	Kind    Kind
	Nonce   uint64
	Source  types.ChainID
	Payload []byte
}

var envelopeArgs = abi.Arguments{
	{Name: "kind", Type: typeUint8},
	{Name: "nonce", Type: typeUint64},
	{Name: "source", Type: typeString},
	{Name: "payload", Type: typeBytes},
}

func EncodeEnvelope(e Envelope) ([]byte, error) {
	return envelopeArgs.Pack(uint8(e.Kind), e.Nonce, string(e.Source), e.Payload)
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	vals, err := envelopeArgs.Unpack(data)
	if err != nil {
		return Envelope{}, types.Errorf(types.ErrUnsupportedFormat, "envelope: %v", err)
	}
	e := Envelope{
		Kind:    Kind(vals[0].(uint8)),
		Nonce:   vals[1].(uint64),
		Source:  types.ChainID(vals[2].(string)),
		Payload: vals[3].([]byte),
	}
	if !e.Kind.Valid() {
		return Envelope{}, types.Errorf(types.ErrUnsupportedFormat, "unknown envelope kind %d", e.Kind)
	}
	if !e.Source.Valid() {
		return Envelope{}, types.Errorf(types.ErrUnsupportedFormat, "unknown source chain %q", e.Source)
	}
	return e, nil
}

// SealedEnvelope binds an envelope to its signer.
type SealedEnvelope struct {
	Envelope []byte
	Key      string
	Sig      []byte
}

var sealedArgs = abi.Arguments{
	{Name: "envelope", Type: typeBytes},
	{Name: "key", Type: typeString},
	{Name: "sig", Type: typeBytes},
}

func EncodeSealedEnvelope(s SealedEnvelope) ([]byte, error) {
	return sealedArgs.Pack(s.Envelope, s.Key, s.Sig)
}

func DecodeSealedEnvelope(data []byte) (SealedEnvelope, error) {
	vals, err := sealedArgs.Unpack(data)
	if err != nil {
		return SealedEnvelope{}, types.Errorf(types.ErrUnsupportedFormat, "sealed envelope: %v", err)
	}
	return SealedEnvelope{
		Envelope: vals[0].([]byte),
		Key:      vals[1].(string),
		Sig:      vals[2].([]byte),
	}, nil
}
