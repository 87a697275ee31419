package bridge

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/bridgesig"
	"namechain.dev/registry/factory"
	"namechain.dev/registry/namehash"
	"namechain.dev/registry/registry"
	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
	"namechain.dev/registry/wire"
)

// Config wires a Controller to its chain.
type Config struct {
	Chain    types.ChainID
	Env      *registry.Env
	Registry *registry.Registry
	// Address is the controller's identity: the owner of parked names and
	// the transfer target that triggers ejection.
	Address common.Address
	Signer  bridgesig.Signer
	// PeerKey pins the remote controller's key string. Empty disables the
	// pin (tests only).
	PeerKey string
	// Factory, when set, deploys deterministic subregistries for inbound
	// migrations that carry a salt instead of a subregistry address.
	Factory *factory.SubregistryFactory
}

// Controller is the landing contract for ejection on one chain.
type Controller struct {
	cfg       Config
	transport Bridge
	outbox    *Outbox
	inbox     *Inbox

	mu    sync.Mutex
	nonce uint64
}

var _ registry.TokenReceiver = (*Controller)(nil)

func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg:    cfg,
		outbox: NewOutbox(),
		inbox:  NewInbox(),
	}
	cfg.Env.BindReceiver(cfg.Address, c)
	return c
}

// SetTransport installs the outbound side. Separate from construction so
// two controllers can be cross-wired.
func (c *Controller) SetTransport(t Bridge) { c.transport = t }

func (c *Controller) Address() common.Address { return c.cfg.Address }
func (c *Controller) Outbox() *Outbox         { return c.outbox }
func (c *Controller) Inbox() *Inbox           { return c.inbox }

// ControllerRoles is the root-scoped bitmap a controller needs on its
// registry to complete inbound credits.
func ControllerRoles() roles.Bitmap {
	return roles.Registrar | roles.Renew | roles.SetResolver | roles.SetSubregistry
}

func (c *Controller) nextNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonce++
	return c.nonce
}

// send seals an envelope and pushes it through the transport, maintaining
// the outbox record for nonce.
func (c *Controller) send(kind wire.Kind, payload []byte, nonce uint64) error {
	envBytes, err := wire.EncodeEnvelope(wire.Envelope{
		Kind:    kind,
		Nonce:   nonce,
		Source:  c.cfg.Chain,
		Payload: payload,
	})
	if err != nil {
		c.outbox.update(nonce, OutboxRejected, "", err.Error())
		return err
	}
	msgID := MessageID(envBytes)
	if c.transport == nil || c.cfg.Signer == nil {
		err := types.NewError(types.ErrInternal, "controller has no transport or signer")
		c.outbox.update(nonce, OutboxRejected, msgID, err.Error())
		return err
	}
	sig, err := c.cfg.Signer.Sign(envBytes)
	if err != nil {
		c.outbox.update(nonce, OutboxRejected, msgID, err.Error())
		return err
	}
	sealed, err := wire.EncodeSealedEnvelope(wire.SealedEnvelope{
		Envelope: envBytes,
		Key:      c.cfg.Signer.Key(),
		Sig:      sig,
	})
	if err != nil {
		c.outbox.update(nonce, OutboxRejected, msgID, err.Error())
		return err
	}
	if err := c.transport.SendMessage(context.Background(), sealed); err != nil {
		c.outbox.update(nonce, OutboxRejected, msgID, err.Error())
		return err
	}
	c.outbox.update(nonce, OutboxCommitted, msgID, "")
	return nil
}

// validateEjection checks one payload against the token it rode in on.
func (c *Controller) validateEjection(id types.TokenID, payload []byte) (wire.TransferData, error) {
	td, err := wire.DecodeTransferData(payload)
	if err != nil {
		return wire.TransferData{}, err
	}
	if namehash.CanonicalID(td.Label) != id.Canonical() {
		return wire.TransferData{}, types.Errorf(types.ErrTokenIDMismatch,
			"payload label %q does not hash to token %s", td.Label, id)
	}
	return td, nil
}

// OnTokenReceived handles a single-token transfer into the controller: the
// ejection trigger. The registry has already handed the token to the
// controller; an error return before the park unwinds that transfer. Past
// the park the debit is final: a send failure leaves the token parked
// behind a Rejected outbox record, recoverable only through Reclaim.
func (c *Controller) OnTokenReceived(from common.Address, id types.TokenID, amount uint64, payload []byte) error {
	if amount != 1 {
		return types.Errorf(types.ErrInvalidAmount, "ejection moves exactly one token, got %d", amount)
	}
	td, err := c.validateEjection(id, payload)
	if err != nil {
		return err
	}
	if err := c.cfg.Registry.Park(c.cfg.Address, id); err != nil {
		return err
	}
	nonce := c.nextNonce()
	c.outbox.append(OutboxRecord{Nonce: nonce, Token: id, Label: td.Label, Status: OutboxValidating})
	_ = c.send(wire.KindEjection, payload, nonce)
	return nil
}

// OnBatchTokensReceived is the batch ejection trigger. Everything is
// validated before any token is parked, and an error up to that point
// unwinds the whole batch. Once the first envelope is handed to the
// transport the debits are final: a later send failure leaves its token
// parked behind a Rejected outbox record instead of erroring back, because
// unwinding would revive names the other chain may already have credited.
func (c *Controller) OnBatchTokensReceived(from common.Address, ids []types.TokenID, amounts []uint64, payload []byte) error {
	items, err := wire.DecodeBatch(payload)
	if err != nil {
		return err
	}
	if len(items) != len(ids) || len(ids) != len(amounts) {
		return types.Errorf(types.ErrLengthMismatch,
			"batch of %d tokens with %d payloads and %d amounts", len(ids), len(items), len(amounts))
	}
	tds := make([]wire.TransferData, len(ids))
	for i, id := range ids {
		if amounts[i] != 1 {
			return types.Errorf(types.ErrInvalidAmount, "ejection moves exactly one token, got %d", amounts[i])
		}
		td, err := c.validateEjection(id, items[i])
		if err != nil {
			return err
		}
		tds[i] = td
	}
	for _, id := range ids {
		if err := c.cfg.Registry.Park(c.cfg.Address, id); err != nil {
			return err
		}
	}
	for i, id := range ids {
		nonce := c.nextNonce()
		c.outbox.append(OutboxRecord{Nonce: nonce, Token: id, Label: tds[i].Label, Status: OutboxValidating})
		// send records the Rejected outcome in the outbox itself; the error
		// must not reach the registry's batch rollback.
		_ = c.send(wire.KindEjection, items[i], nonce)
	}
	return nil
}

// RelayMigration ships a migration produced on this chain to the other one.
// Used by the unlocked migration path when the destination flag points
// across the bridge.
func (c *Controller) RelayMigration(md wire.MigrationData) error {
	payload, err := wire.EncodeMigrationData(md)
	if err != nil {
		return err
	}
	nonce := c.nextNonce()
	c.outbox.append(OutboxRecord{
		Nonce:  nonce,
		Token:  namehash.CanonicalID(md.Transfer.Label),
		Label:  md.Transfer.Label,
		Status: OutboxValidating,
	})
	return c.send(wire.KindMigration, payload, nonce)
}

// Deliver is the inbound entry point. Validation failures of the envelope
// itself (bad signature, wrong peer, malformed framing) return errors;
// everything past that point is a terminal receipt, because the source-side
// debit has already committed and cannot be unwound from here.
func (c *Controller) Deliver(ctx context.Context, raw []byte) (Receipt, error) {
	_ = ctx
	sealed, err := wire.DecodeSealedEnvelope(raw)
	if err != nil {
		return Receipt{}, err
	}
	if c.cfg.PeerKey != "" && sealed.Key != c.cfg.PeerKey {
		return Receipt{}, types.Errorf(types.ErrUnauthorizedCaller, "envelope signed by %q, expected peer", sealed.Key)
	}
	if err := bridgesig.Verify(sealed.Key, sealed.Envelope, sealed.Sig); err != nil {
		return Receipt{}, types.Errorf(types.ErrUnauthorizedCaller, "envelope signature: %v", err)
	}
	msgID := MessageID(sealed.Envelope)
	if rcpt, ok := c.inbox.Seen(msgID); ok {
		rcpt.Replayed = true
		return rcpt, nil
	}

	env, err := wire.DecodeEnvelope(sealed.Envelope)
	if err != nil {
		return Receipt{}, err
	}
	if env.Source != c.cfg.Chain.Other() {
		return Receipt{}, types.Errorf(types.ErrUnauthorizedCaller, "envelope from %q cannot land on %q", env.Source, c.cfg.Chain)
	}

	var rcpt Receipt
	switch env.Kind {
	case wire.KindEjection:
		td, derr := wire.DecodeTransferData(env.Payload)
		if derr != nil {
			rcpt = Receipt{MsgID: msgID, Status: ReceiptBounced, Reason: derr.Error()}
		} else {
			rcpt = c.credit(msgID, td)
		}
	case wire.KindMigration:
		md, derr := wire.DecodeMigrationData(env.Payload)
		if derr != nil {
			rcpt = Receipt{MsgID: msgID, Status: ReceiptBounced, Reason: derr.Error()}
			break
		}
		td := md.Transfer
		if td.Subregistry == (common.Address{}) && md.Salt != ([32]byte{}) && c.cfg.Factory != nil {
			sub := c.cfg.Factory.Deploy(c.cfg.Address, md.Salt, td.Owner)
			td.Subregistry = sub.Address()
		}
		rcpt = c.credit(msgID, td)
	default:
		return Receipt{}, types.Errorf(types.ErrUnsupportedFormat, "unknown envelope kind %d", env.Kind)
	}
	c.inbox.record(rcpt)
	return rcpt, nil
}

// credit lands one TransferData on the local registry. Failures bounce;
// they never error back through the transport.
func (c *Controller) credit(msgID string, td wire.TransferData) Receipt {
	rcpt := Receipt{MsgID: msgID, Label: td.Label, Owner: td.Owner}
	if td.Owner == (common.Address{}) {
		rcpt.Status = ReceiptBounced
		rcpt.Reason = "zero recipient"
		return rcpt
	}
	reg := c.cfg.Registry
	canonical := namehash.CanonicalID(td.Label)

	if nd, ok := reg.NameData(canonical); ok && nd.Owner == c.cfg.Address {
		// The name round-tripped: it was parked here when it ejected.
		if err := reg.Release(c.cfg.Address, canonical, td.Owner, td.Roles); err != nil {
			rcpt.Status = ReceiptBounced
			rcpt.Reason = err.Error()
			return rcpt
		}
		if err := reg.SetResolver(c.cfg.Address, canonical, td.Resolver); err != nil {
			rcpt.Status = ReceiptBounced
			rcpt.Reason = err.Error()
			return rcpt
		}
		if err := reg.SetSubregistry(c.cfg.Address, canonical, td.Subregistry); err != nil {
			rcpt.Status = ReceiptBounced
			rcpt.Reason = err.Error()
			return rcpt
		}
		if td.Expiry > nd.Expiry {
			if err := reg.Renew(c.cfg.Address, canonical, td.Expiry); err != nil {
				rcpt.Status = ReceiptBounced
				rcpt.Reason = err.Error()
				return rcpt
			}
		}
		rcpt.Status = ReceiptApplied
		return rcpt
	}

	if _, err := reg.Register(c.cfg.Address, td.Label, td.Owner, td.Subregistry, td.Resolver, td.Roles, td.Expiry); err != nil {
		rcpt.Status = ReceiptBounced
		rcpt.Reason = err.Error()
		return rcpt
	}
	rcpt.Status = ReceiptApplied
	return rcpt
}

// Reclaim hands a parked or bounced name to a recovery owner. Guarded by
// the root-scoped UpgradeAdmin role: this is the manual-reconciliation
// escape hatch for terminal bounces, not a user operation.
func (c *Controller) Reclaim(caller common.Address, id types.TokenID, to common.Address, bm roles.Bitmap) error {
	if !c.cfg.Registry.Roles().Has(roles.RootResource, caller, roles.UpgradeAdmin) {
		return types.Errorf(types.ErrAccessDenied, "%s lacks upgrade-admin for reclaim", caller)
	}
	return c.cfg.Registry.Release(c.cfg.Address, id, to, bm)
}
