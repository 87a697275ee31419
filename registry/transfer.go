package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/datastore"
	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
)

// Approve lets the current owner appoint one operator for a specific
// versioned token id. The approval dies with the version.
func (r *Registry) Approve(caller common.Address, id types.TokenID, operator common.Address) error {
	rec, ok := r.resolve(id)
	if !ok || r.expired(rec) {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not live", id)
	}
	if rec.Owner() != caller {
		return types.Errorf(types.ErrAccessDenied, "%s is not the owner of %s", caller, id)
	}
	full := id.Canonical().WithVersion(rec.Version())
	if operator == (common.Address{}) {
		delete(r.approvals, full)
		return nil
	}
	r.approvals[full] = operator
	return nil
}

// Approved returns the operator approved for the versioned id, if any.
func (r *Registry) Approved(id types.TokenID) common.Address {
	return r.approvals[id]
}

func (r *Registry) canMove(caller common.Address, id types.TokenID, rec datastore.Record) bool {
	if rec.Owner() == caller {
		return true
	}
	return r.approvals[id.Canonical().WithVersion(rec.Version())] == caller
}

// transfer moves ownership of one token, returning the pre-transfer record
// for rollback by payload-carrying transfers.
func (r *Registry) transfer(caller, from, to common.Address, id types.TokenID) (datastore.Record, error) {
	rec, ok := r.resolve(id)
	if !ok || r.expired(rec) {
		return datastore.Record{}, types.Errorf(types.ErrNameNotAvailable, "token %s is not live", id)
	}
	if rec.HasFlag(datastore.FlagNonTransferable) {
		return datastore.Record{}, types.Errorf(types.ErrNonTransferable, "token %s is parked with a controller", id)
	}
	if rec.Owner() != from {
		return datastore.Record{}, types.Errorf(types.ErrAccessDenied, "%s does not own %s", from, id)
	}
	if !r.canMove(caller, id, rec) {
		return datastore.Record{}, types.Errorf(types.ErrAccessDenied, "%s is neither owner nor approved for %s", caller, id)
	}
	if to == (common.Address{}) {
		return datastore.Record{}, types.NewError(types.ErrZeroRecipient, "transfer to the zero address")
	}
	r.env.Store.SetEntry(r.addr, id, rec.WithOwner(to))
	delete(r.approvals, id.Canonical().WithVersion(rec.Version()))
	// The owner's resource-scoped bitmap follows the token.
	moved := r.roles.Get(id, from)
	r.roles.Seed(id, from, 0)
	r.roles.Seed(id, to, moved|r.roles.Get(id, to))
	return rec, nil
}

// restore undoes a transfer after a rejected receiver hook.
func (r *Registry) restore(id types.TokenID, prev datastore.Record, to common.Address) {
	r.env.Store.SetEntry(r.addr, id, prev)
	moved := r.roles.Get(id, to)
	r.roles.Seed(id, to, 0)
	r.roles.Seed(id, prev.Owner(), moved|r.roles.Get(id, prev.Owner()))
}

// Transfer moves ownership of a name token. Transfer is the only way
// ownership changes outside of Register.
func (r *Registry) Transfer(caller, from, to common.Address, id types.TokenID) error {
	_, err := r.transfer(caller, from, to, id)
	return err
}

// SafeTransferWithPayload transfers one token and invokes the recipient's
// OnTokenReceived hook with the payload. A hook rejection unwinds the
// transfer, so a failed ejection or migration never strands the token with
// the controller.
func (r *Registry) SafeTransferWithPayload(caller, from, to common.Address, id types.TokenID, payload []byte) error {
	prev, err := r.transfer(caller, from, to, id)
	if err != nil {
		return err
	}
	rcv, ok := r.env.receiver(to)
	if !ok {
		return nil
	}
	if err := rcv.OnTokenReceived(from, id, 1, payload); err != nil {
		r.restore(id, prev, to)
		return err
	}
	return nil
}

// SafeBatchTransferWithPayload is the batch form. Array lengths are checked
// before any token moves, and a hook rejection unwinds every transfer in
// the batch.
func (r *Registry) SafeBatchTransferWithPayload(caller, from, to common.Address, ids []types.TokenID, amounts []uint64, payload []byte) error {
	if len(ids) != len(amounts) {
		return types.Errorf(types.ErrLengthMismatch, "ids length %d != amounts length %d", len(ids), len(amounts))
	}
	for _, amt := range amounts {
		if amt != 1 {
			return types.Errorf(types.ErrInvalidAmount, "name tokens transfer in amounts of exactly one, got %d", amt)
		}
	}
	prev := make([]datastore.Record, 0, len(ids))
	for i, id := range ids {
		rec, err := r.transfer(caller, from, to, id)
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				r.restore(ids[j], prev[j], to)
			}
			return err
		}
		prev = append(prev, rec)
	}
	rcv, ok := r.env.receiver(to)
	if !ok {
		return nil
	}
	if err := rcv.OnBatchTokensReceived(from, ids, amounts, payload); err != nil {
		for j := len(prev) - 1; j >= 0; j-- {
			r.restore(ids[j], prev[j], to)
		}
		return err
	}
	return nil
}

// controller-only state mutation: park and release keep a name resident but
// non-transferable while its authoritative record lives on the other chain.

// Park marks id held-by-controller. Only the current owner (the controller
// itself, after a transfer-in) may park.
func (r *Registry) Park(caller common.Address, id types.TokenID) error {
	rec, ok := r.resolve(id)
	if !ok {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not registered", id)
	}
	if rec.Owner() != caller {
		return types.Errorf(types.ErrAccessDenied, "%s does not own %s", caller, id)
	}
	r.env.Store.SetEntry(r.addr, id, rec.WithFlag(datastore.FlagNonTransferable, true))
	return nil
}

// Release clears the parked flag, hands the token to a new owner and
// reassigns the resource-scoped bitmap to them. Only the parking controller
// may release.
func (r *Registry) Release(caller common.Address, id types.TokenID, to common.Address, bm roles.Bitmap) error {
	rec, ok := r.resolve(id)
	if !ok {
		return types.Errorf(types.ErrNameNotAvailable, "token %s is not registered", id)
	}
	if rec.Owner() != caller {
		return types.Errorf(types.ErrAccessDenied, "%s does not own %s", caller, id)
	}
	if to == (common.Address{}) {
		return types.NewError(types.ErrZeroRecipient, "release to the zero address")
	}
	r.env.Store.SetEntry(r.addr, id, rec.WithOwner(to).WithFlag(datastore.FlagNonTransferable, false))
	r.roles.Seed(id, caller, 0)
	r.roles.Seed(id, to, bm)
	return nil
}
