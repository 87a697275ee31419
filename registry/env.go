package registry

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/datastore"
	"namechain.dev/registry/types"
)

// Env is the execution environment of one chain: the shared datastore, the
// clock, and the table of addresses that accept token transfers.
type Env struct {
	Chain ChainID
	Store datastore.NameStore

	// Now returns the chain's current unix time. Tests substitute a fixed
	// clock.
	Now func() uint64

	nodes     map[common.Address]*Registry
	receivers map[common.Address]TokenReceiver
}

// ChainID aliases the shared chain identifier.
type ChainID = types.ChainID

func NewEnv(chain ChainID, store datastore.NameStore) *Env {
	return &Env{
		Chain: chain,
		Store: store,
		Now:   func() uint64 { return uint64(time.Now().Unix()) },

		nodes:     make(map[common.Address]*Registry),
		receivers: make(map[common.Address]TokenReceiver),
	}
}

// Node returns the registry instance at addr, if one exists on this chain.
func (e *Env) Node(addr common.Address) (*Registry, bool) {
	r, ok := e.nodes[addr]
	return r, ok
}

// BindReceiver registers the token-transfer hook for addr. Transfers to an
// unbound address complete without a hook call.
func (e *Env) BindReceiver(addr common.Address, rcv TokenReceiver) {
	e.receivers[addr] = rcv
}

func (e *Env) receiver(addr common.Address) (TokenReceiver, bool) {
	rcv, ok := e.receivers[addr]
	return rcv, ok
}
