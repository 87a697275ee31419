// Package namehash implements the label and name hashing scheme used to key
// registry entries.
package namehash

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"namechain.dev/registry/types"
)

// LabelHash returns keccak256 of the UTF-8 bytes of a single label.
func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// NameHash returns the recursive hash of a fully-qualified dot-separated
// name. The empty name hashes to zero.
func NameHash(name string) common.Hash {
	if name == "" {
		return common.Hash{}
	}
	labels := strings.Split(name, ".")
	labelHash := crypto.Keccak256([]byte(labels[len(labels)-1]))
	remainderHash := NameHash(strings.Join(labels[:len(labels)-1], ".")).Bytes()
	return crypto.Keccak256Hash(append(remainderHash, labelHash...))
}

// Subnode derives the node of a child label under a parent node.
func Subnode(parent common.Hash, label string) common.Hash {
	return crypto.Keccak256Hash(append(parent.Bytes(), crypto.Keccak256([]byte(label))...))
}

// CanonicalID returns the canonical (version-zero) token id for a label.
func CanonicalID(label string) types.TokenID {
	return types.TokenIDFromHash(LabelHash(label))
}

// DNSEncode encodes a dot-separated name as length-prefixed labels followed
// by a zero terminator.
func DNSEncode(name string) []byte {
	if name == "" {
		return []byte{0}
	}
	labels := strings.Split(name, ".")
	out := make([]byte, 0, len(name)+len(labels)+1)
	for _, l := range labels {
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}
	return append(out, 0)
}

// DNSDecode is the inverse of DNSEncode. It rejects truncated input and
// labels longer than 63 bytes.
func DNSDecode(enc []byte) (string, error) {
	var labels []string
	i := 0
	for {
		if i >= len(enc) {
			return "", types.NewError(types.ErrUnsupportedFormat, "dns-encoded name missing terminator")
		}
		n := int(enc[i])
		if n == 0 {
			if i != len(enc)-1 {
				return "", types.NewError(types.ErrUnsupportedFormat, "trailing bytes after dns-encoded name")
			}
			return strings.Join(labels, "."), nil
		}
		if n > 63 {
			return "", types.Errorf(types.ErrUnsupportedFormat, "label length %d exceeds 63", n)
		}
		i++
		if i+n > len(enc) {
			return "", types.NewError(types.ErrUnsupportedFormat, "truncated dns-encoded label")
		}
		labels = append(labels, string(enc[i:i+n]))
		i += n
	}
}
