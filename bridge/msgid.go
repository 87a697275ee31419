package bridge

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// MessageID derives the identity of an envelope from its canonical bytes:
// a CIDv1 with the raw codec over a sha2-256 multihash. Replay detection
// and receipts key on this string.
func MessageID(envelope []byte) string {
	sum, err := multihash.Sum(envelope, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum cannot fail for SHA2_256 with default length.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}
