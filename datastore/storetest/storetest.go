// Package storetest runs the NameStore conformance suite against any
// implementation.
package storetest

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/datastore"
	"namechain.dev/registry/namehash"
)

// NewStore constructs a fresh, empty store for a test. The returned store
// MUST be isolated from other tests.
type NewStore func(t *testing.T) datastore.NameStore

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	regA := common.HexToAddress("0xA000000000000000000000000000000000000001")
	regB := common.HexToAddress("0xB000000000000000000000000000000000000002")
	owner := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	id := namehash.CanonicalID("conformance")

	t.Run("EntryRoundTrip", func(t *testing.T) {
		s := newStore(t)
		if _, ok := s.Entry(regA, id); ok {
			t.Fatalf("Entry reported ok for an unwritten id")
		}
		want := datastore.NewRecord(owner, 1234, 7)
		s.SetEntry(regA, id, want)
		got, ok := s.Entry(regA, id)
		if !ok {
			t.Fatalf("Entry not found after SetEntry")
		}
		if got != want {
			t.Fatalf("Entry mismatch: got %v want %v", got, want)
		}
	})

	t.Run("NamespaceIsolation", func(t *testing.T) {
		s := newStore(t)
		s.SetEntry(regA, id, datastore.NewRecord(owner, 1, 1))
		if _, ok := s.Entry(regB, id); ok {
			t.Fatalf("write to one registry's namespace visible in another")
		}
		s.SetSubregistry(regA, id, regB)
		if got := s.Subregistry(regB, id); got != (common.Address{}) {
			t.Fatalf("subregistry pointer leaked across namespaces: %s", got)
		}
	})

	t.Run("CanonicalKeying", func(t *testing.T) {
		s := newStore(t)
		want := datastore.NewRecord(owner, 99, 3)
		s.SetEntry(regA, id, want)
		versioned := id.WithVersion(3)
		got, ok := s.Entry(regA, versioned)
		if !ok || got != want {
			t.Fatalf("lookup by versioned id must hit the canonical slot")
		}
	})

	t.Run("PointerOverwrite", func(t *testing.T) {
		s := newStore(t)
		s.SetResolver(regA, id, owner)
		if got := s.Resolver(regA, id); got != owner {
			t.Fatalf("resolver not stored: %s", got)
		}
		s.SetResolver(regA, id, common.Address{})
		if got := s.Resolver(regA, id); got != (common.Address{}) {
			t.Fatalf("resolver not cleared: %s", got)
		}
	})
}
