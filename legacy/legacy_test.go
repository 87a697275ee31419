package legacy

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"pgregory.net/rapid"

	"namechain.dev/registry/namehash"
)

func TestIs2LD(t *testing.T) {
	cases := []struct {
		name  string
		label string
		ok    bool
	}{
		{"vault.eth", "vault", true},
		{"sub.vault.eth", "", false},
		{"vault", "", false},
		{"vault.com", "", false},
		{"eth", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		label, ok := Is2LD(tc.name)
		if ok != tc.ok || label != tc.label {
			t.Errorf("Is2LD(%q) = (%q, %v), want (%q, %v)", tc.name, label, ok, tc.label, tc.ok)
		}
	}
}

func TestNodeMatchesNameHash(t *testing.T) {
	if Node("vault") != namehash.NameHash("vault.eth") {
		t.Fatal("Node must equal the namehash of label.eth")
	}
	if EthNode != namehash.NameHash("eth") {
		t.Fatal("EthNode must equal the namehash of the TLD")
	}
}

func TestMemWrapperFusesMonotonic(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	rapid.Check(t, func(r *rapid.T) {
		w := NewMemWrapper(common.HexToAddress("0x0000000000000000000000000000000000001e95"))
		node := Node("vault")
		initial := Fuses(rapid.Uint32().Draw(r, "initial"))
		w.Wrap(node, owner, initial, 2_000_000, common.Address{})

		burn := Fuses(rapid.Uint32().Draw(r, "burn"))
		before := initial
		err := w.BurnFuses(node, burn)
		_, after, _ := w.GetData(node)
		if err != nil {
			if after != before {
				t.Fatal("failed burn changed the fuses")
			}
			return
		}
		if after&before != before {
			t.Fatalf("burn cleared fuses: %#x -> %#x", uint32(before), uint32(after))
		}
		if !after.Has(burn) {
			t.Fatalf("burn did not set requested fuses: %#x + %#x -> %#x", uint32(before), uint32(burn), uint32(after))
		}
	})
}

func TestMemWrapperResolverLock(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	resolver := common.HexToAddress("0x00000000000000000000000000000000000000f0")
	w := NewMemWrapper(common.HexToAddress("0x0000000000000000000000000000000000001e95"))
	node := Node("vault")
	w.Wrap(node, owner, 0, 2_000_000, resolver)

	if err := w.SetResolver(node, common.Address{}); err != nil {
		t.Fatalf("SetResolver while unlocked: %v", err)
	}
	if err := w.BurnFuses(node, CannotSetResolver); err != nil {
		t.Fatalf("BurnFuses: %v", err)
	}
	if err := w.SetResolver(node, resolver); err == nil {
		t.Fatal("SetResolver must fail once the fuse is burned")
	}
}
