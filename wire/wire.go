// Package wire defines the ABI-encoded payloads carried by token-transfer
// hooks and bridge messages.
//
// Every codec round-trips; decoders reject malformed bytes with an
// UNSUPPORTED_FORMAT coded error and never panic on attacker-supplied input.
package wire

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
)

// TransferData describes a name to create or update on the receiving side
// of an ejection.
type TransferData struct {
	Label       string
	Owner       common.Address
	Subregistry common.Address
	Resolver    common.Address
	Roles       roles.Bitmap
	Expiry      uint64
}

// MigrationData wraps a TransferData with migration routing.
type MigrationData struct {
	Transfer TransferData
	ToL1     bool
	Salt     [32]byte
}

// LockedMigrationData is the minimal payload for already-immutable legacy
// names. It deliberately carries no role bitmask: the destination roles are
// derived from the legacy fuses alone. Name is the dns-encoded
// fully-qualified name; the controller recomputes Node from it and rejects
// a mismatch.
type LockedMigrationData struct {
	Name     []byte
	Node     [32]byte
	Owner    common.Address
	Resolver common.Address
	Salt     [32]byte
}

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("wire: bad abi type %q: %v", t, err))
	}
	return ty
}

var (
	typeString  = mustType("string")
	typeAddress = mustType("address")
	typeUint64  = mustType("uint64")
	typeUint8   = mustType("uint8")
	typeBool    = mustType("bool")
	typeBytes   = mustType("bytes")
	typeBytes32 = mustType("bytes32")
	typeBytesN  = mustType("bytes[]")
)

var transferArgs = abi.Arguments{
	{Name: "label", Type: typeString},
	{Name: "owner", Type: typeAddress},
	{Name: "subregistry", Type: typeAddress},
	{Name: "resolver", Type: typeAddress},
	{Name: "roleBitmap", Type: typeUint64},
	{Name: "expires", Type: typeUint64},
}

func EncodeTransferData(td TransferData) ([]byte, error) {
	return transferArgs.Pack(td.Label, td.Owner, td.Subregistry, td.Resolver, uint64(td.Roles), td.Expiry)
}

func DecodeTransferData(data []byte) (TransferData, error) {
	vals, err := transferArgs.Unpack(data)
	if err != nil {
		return TransferData{}, types.Errorf(types.ErrUnsupportedFormat, "transfer data: %v", err)
	}
	return TransferData{
		Label:       vals[0].(string),
		Owner:       vals[1].(common.Address),
		Subregistry: vals[2].(common.Address),
		Resolver:    vals[3].(common.Address),
		Roles:       roles.Bitmap(vals[4].(uint64)),
		Expiry:      vals[5].(uint64),
	}, nil
}

var migrationArgs = abi.Arguments{
	{Name: "transferData", Type: typeBytes},
	{Name: "toL1", Type: typeBool},
	{Name: "salt", Type: typeBytes32},
}

func EncodeMigrationData(md MigrationData) ([]byte, error) {
	inner, err := EncodeTransferData(md.Transfer)
	if err != nil {
		return nil, err
	}
	return migrationArgs.Pack(inner, md.ToL1, md.Salt)
}

func DecodeMigrationData(data []byte) (MigrationData, error) {
	vals, err := migrationArgs.Unpack(data)
	if err != nil {
		return MigrationData{}, types.Errorf(types.ErrUnsupportedFormat, "migration data: %v", err)
	}
	td, err := DecodeTransferData(vals[0].([]byte))
	if err != nil {
		return MigrationData{}, err
	}
	return MigrationData{
		Transfer: td,
		ToL1:     vals[1].(bool),
		Salt:     vals[2].([32]byte),
	}, nil
}

var lockedArgs = abi.Arguments{
	{Name: "name", Type: typeBytes},
	{Name: "node", Type: typeBytes32},
	{Name: "owner", Type: typeAddress},
	{Name: "resolver", Type: typeAddress},
	{Name: "salt", Type: typeBytes32},
}

func EncodeLockedMigrationData(ld LockedMigrationData) ([]byte, error) {
	return lockedArgs.Pack(ld.Name, ld.Node, ld.Owner, ld.Resolver, ld.Salt)
}

func DecodeLockedMigrationData(data []byte) (LockedMigrationData, error) {
	vals, err := lockedArgs.Unpack(data)
	if err != nil {
		return LockedMigrationData{}, types.Errorf(types.ErrUnsupportedFormat, "locked migration data: %v", err)
	}
	return LockedMigrationData{
		Name:     vals[0].([]byte),
		Node:     vals[1].([32]byte),
		Owner:    vals[2].(common.Address),
		Resolver: vals[3].(common.Address),
		Salt:     vals[4].([32]byte),
	}, nil
}

var batchArgs = abi.Arguments{
	{Name: "items", Type: typeBytesN},
}

// EncodeBatch wraps per-token payloads into one batch payload.
func EncodeBatch(items [][]byte) ([]byte, error) {
	return batchArgs.Pack(items)
}

func DecodeBatch(data []byte) ([][]byte, error) {
	vals, err := batchArgs.Unpack(data)
	if err != nil {
		return nil, types.Errorf(types.ErrUnsupportedFormat, "batch payload: %v", err)
	}
	return vals[0].([][]byte), nil
}
