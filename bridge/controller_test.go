package bridge_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/bridge"
	"namechain.dev/registry/bridge/bridgekit"
	"namechain.dev/registry/bridgesig"
	"namechain.dev/registry/datastore"
	"namechain.dev/registry/factory"
	"namechain.dev/registry/namehash"
	"namechain.dev/registry/registry"
	"namechain.dev/registry/roles"
	"namechain.dev/registry/types"
	"namechain.dev/registry/wire"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	recovery = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	resolver = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	subreg   = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

const testNow = uint64(1_000_000)

type chainFixture struct {
	env    *registry.Env
	reg    *registry.Registry
	ctrl   *bridge.Controller
	signer bridgesig.Signer
}

func testSigner(t *testing.T, seed byte) bridgesig.Signer {
	t.Helper()
	s, err := bridgesig.NewEd25519Signer(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

func newChain(t *testing.T, chain types.ChainID, signer bridgesig.Signer, peerKey string) *chainFixture {
	t.Helper()
	env := registry.NewEnv(chain, datastore.NewMemStore())
	env.Now = func() uint64 { return testNow }
	regAddr := common.HexToAddress("0x0000000000000000000000000000000000000e40")
	ctrlAddr := common.HexToAddress("0x0000000000000000000000000000000000000c40")
	reg := registry.New(env, regAddr, admin)
	ctrl := bridge.NewController(bridge.Config{
		Chain:    chain,
		Env:      env,
		Registry: reg,
		Address:  ctrlAddr,
		Signer:   signer,
		PeerKey:  peerKey,
		Factory:  factory.New(env),
	})
	if err := reg.Roles().Grant(admin, roles.RootResource, ctrlAddr, bridge.ControllerRoles()); err != nil {
		t.Fatalf("grant controller roles: %v", err)
	}
	return &chainFixture{env: env, reg: reg, ctrl: ctrl, signer: signer}
}

// newWorld builds both chains and cross-wires their controllers with
// synchronous loopback transports.
func newWorld(t *testing.T) (l1, l2 *chainFixture) {
	t.Helper()
	s1 := testSigner(t, 0x11)
	s2 := testSigner(t, 0x22)
	l1 = newChain(t, types.ChainL1, s1, s2.Key())
	l2 = newChain(t, types.ChainL2, s2, s1.Key())
	bridgekit.Wire(l1.ctrl, l2.ctrl)
	return l1, l2
}

func register(t *testing.T, c *chainFixture, label string, owner common.Address, expiry uint64) types.TokenID {
	t.Helper()
	id, err := c.reg.Register(admin, label, owner, subreg, resolver, roles.All.Capabilities(), expiry)
	if err != nil {
		t.Fatalf("Register(%q): %v", label, err)
	}
	return id
}

func eject(t *testing.T, c *chainFixture, owner common.Address, id types.TokenID, td wire.TransferData) {
	t.Helper()
	payload, err := wire.EncodeTransferData(td)
	if err != nil {
		t.Fatalf("EncodeTransferData: %v", err)
	}
	if err := c.reg.SafeTransferWithPayload(owner, owner, c.ctrl.Address(), id, payload); err != nil {
		t.Fatalf("eject %q: %v", td.Label, err)
	}
}

func TestEjectionRoundTrip(t *testing.T) {
	l1, l2 := newWorld(t)
	id := register(t, l1, "vault", alice, 2_000_000)

	td := wire.TransferData{
		Label:       "vault",
		Owner:       bob,
		Subregistry: subreg,
		Resolver:    resolver,
		Roles:       roles.All.Capabilities(),
		Expiry:      2_000_000,
	}
	eject(t, l1, alice, id, td)

	// While ejected, the source copy is parked with the controller.
	if got := l1.reg.OwnerOf(id); got != l1.ctrl.Address() {
		t.Fatalf("parked owner = %s", got)
	}
	if err := l1.reg.Transfer(l1.ctrl.Address(), l1.ctrl.Address(), alice, id); !types.IsCode(err, types.ErrNonTransferable) {
		t.Fatalf("parked token moved: %v", err)
	}

	nd, ok := l2.reg.NameData(id.Canonical())
	if !ok {
		t.Fatal("name did not land on the target chain")
	}
	if nd.Owner != bob || nd.Resolver != resolver || nd.Subregistry != subreg || nd.Expiry != 2_000_000 {
		t.Fatalf("landed NameData: %+v", nd)
	}

	// Eject back: the name must reactivate in place on the source chain.
	back := td
	back.Owner = alice
	l2id, _ := l2.reg.LatestTokenID(id.Canonical())
	eject(t, l2, bob, l2id, back)

	nd, ok = l1.reg.NameData(id.Canonical())
	if !ok {
		t.Fatal("name did not return")
	}
	if nd.Owner != alice || nd.Resolver != resolver || nd.Subregistry != subreg || nd.Expiry != 2_000_000 {
		t.Fatalf("round-tripped NameData: %+v", nd)
	}
	latest, ok := l1.reg.LatestTokenID(id.Canonical())
	if !ok || latest != id {
		t.Fatalf("round trip bumped the version: %s", latest)
	}
	if err := l1.reg.Transfer(alice, alice, bob, id); err != nil {
		t.Fatalf("returned token should transfer: %v", err)
	}
}

func TestEjectionCarriesLongerExpiry(t *testing.T) {
	l1, l2 := newWorld(t)
	id := register(t, l1, "vault", alice, 2_000_000)

	td := wire.TransferData{Label: "vault", Owner: bob, Roles: roles.Renew, Expiry: 2_000_000}
	eject(t, l1, alice, id, td)

	// Renewed on the target chain, then sent home with the longer expiry.
	l2id, _ := l2.reg.LatestTokenID(id.Canonical())
	if err := l2.reg.Renew(bob, l2id, 3_000_000); err != nil {
		t.Fatalf("Renew on target: %v", err)
	}
	back := wire.TransferData{Label: "vault", Owner: alice, Roles: roles.Renew, Expiry: 3_000_000}
	eject(t, l2, bob, l2id, back)

	nd, _ := l1.reg.NameData(id.Canonical())
	if nd.Expiry != 3_000_000 {
		t.Fatalf("expiry did not follow the token home: %d", nd.Expiry)
	}
}

func TestEjectionRejectsLabelMismatch(t *testing.T) {
	l1, _ := newWorld(t)
	id := register(t, l1, "vault", alice, 2_000_000)

	payload, err := wire.EncodeTransferData(wire.TransferData{Label: "other", Owner: bob, Expiry: 2_000_000})
	if err != nil {
		t.Fatalf("EncodeTransferData: %v", err)
	}
	err = l1.reg.SafeTransferWithPayload(alice, alice, l1.ctrl.Address(), id, payload)
	if !types.IsCode(err, types.ErrTokenIDMismatch) {
		t.Fatalf("want TOKEN_ID_MISMATCH, got %v", err)
	}
	// The rejected hook unwound the transfer.
	if got := l1.reg.OwnerOf(id); got != alice {
		t.Fatalf("owner after rejected ejection = %s", got)
	}
	if err := l1.reg.Transfer(alice, alice, bob, id); err != nil {
		t.Fatalf("token should remain transferable: %v", err)
	}
}

func TestEjectionBouncesZeroRecipient(t *testing.T) {
	l1, l2 := newWorld(t)
	id := register(t, l1, "vault", alice, 2_000_000)

	eject(t, l1, alice, id, wire.TransferData{Label: "vault", Expiry: 2_000_000})

	bounced := l2.ctrl.Inbox().Bounced()
	if len(bounced) != 1 {
		t.Fatalf("bounced receipts = %d", len(bounced))
	}
	if bounced[0].Reason != "zero recipient" {
		t.Fatalf("bounce reason = %q", bounced[0].Reason)
	}
	if _, ok := l2.reg.NameData(id.Canonical()); ok {
		t.Fatal("bounced name must not land")
	}
	// The source copy stays parked pending manual reconciliation.
	if got := l1.reg.OwnerOf(id); got != l1.ctrl.Address() {
		t.Fatalf("source owner after bounce = %s", got)
	}
}

func TestReclaimRequiresUpgradeAdmin(t *testing.T) {
	l1, _ := newWorld(t)
	id := register(t, l1, "vault", alice, 2_000_000)
	eject(t, l1, alice, id, wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})

	if err := l1.ctrl.Reclaim(alice, id, recovery, roles.All.Capabilities()); !types.IsCode(err, types.ErrAccessDenied) {
		t.Fatalf("want ACCESS_DENIED, got %v", err)
	}
	if err := l1.ctrl.Reclaim(admin, id, recovery, roles.All.Capabilities()); err != nil {
		t.Fatalf("Reclaim: %v", err)
	}
	if got := l1.reg.OwnerOf(id); got != recovery {
		t.Fatalf("reclaimed owner = %s", got)
	}
	if err := l1.reg.Transfer(recovery, recovery, bob, id); err != nil {
		t.Fatalf("reclaimed token should transfer: %v", err)
	}
}

func TestDeliverReplayReturnsStoredReceipt(t *testing.T) {
	s1 := testSigner(t, 0x11)
	s2 := testSigner(t, 0x22)
	l1 := newChain(t, types.ChainL1, s1, s2.Key())
	l2 := newChain(t, types.ChainL2, s2, s1.Key())
	q := bridgekit.NewQueue()
	l1.ctrl.SetTransport(q)

	id := register(t, l1, "vault", alice, 2_000_000)
	eject(t, l1, alice, id, wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})

	msgs := q.Messages()
	if len(msgs) != 1 {
		t.Fatalf("queued messages = %d", len(msgs))
	}
	receipts, err := q.Drain(context.Background(), l2.ctrl)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(receipts) != 1 || receipts[0].Status != bridge.ReceiptApplied || receipts[0].Replayed {
		t.Fatalf("first delivery: %+v", receipts)
	}

	// Delivering the same raw message again must be a no-op.
	rcpt, err := l2.ctrl.Deliver(context.Background(), msgs[0])
	if err != nil {
		t.Fatalf("replay Deliver: %v", err)
	}
	if !rcpt.Replayed || rcpt.Status != bridge.ReceiptApplied {
		t.Fatalf("replay receipt: %+v", rcpt)
	}
	latest, ok := l2.reg.LatestTokenID(id.Canonical())
	if !ok || latest.Version() != 1 {
		t.Fatalf("replay re-registered the name: %s", latest)
	}
	if got := l2.reg.OwnerOf(id.Canonical()); got != bob {
		t.Fatalf("owner after replay = %s", got)
	}
}

func TestDeliverRejectsForeignKey(t *testing.T) {
	l1, l2 := newWorld(t)
	rogue := testSigner(t, 0x33)

	envBytes, err := wire.EncodeEnvelope(wire.Envelope{
		Kind:   wire.KindEjection,
		Nonce:  1,
		Source: types.ChainL1,
	})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	sig, err := rogue.Sign(envBytes)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Unknown key string: rejected by the peer pin.
	sealed, err := wire.EncodeSealedEnvelope(wire.SealedEnvelope{Envelope: envBytes, Key: rogue.Key(), Sig: sig})
	if err != nil {
		t.Fatalf("EncodeSealedEnvelope: %v", err)
	}
	if _, err := l2.ctrl.Deliver(context.Background(), sealed); !types.IsCode(err, types.ErrUnauthorizedCaller) {
		t.Fatalf("want UNAUTHORIZED_CALLER for foreign key, got %v", err)
	}

	// Claimed peer key with a signature from the wrong private key.
	sealed, err = wire.EncodeSealedEnvelope(wire.SealedEnvelope{Envelope: envBytes, Key: l1.signer.Key(), Sig: sig})
	if err != nil {
		t.Fatalf("EncodeSealedEnvelope: %v", err)
	}
	if _, err := l2.ctrl.Deliver(context.Background(), sealed); !types.IsCode(err, types.ErrUnauthorizedCaller) {
		t.Fatalf("want UNAUTHORIZED_CALLER for forged signature, got %v", err)
	}
}

func TestDeliverRejectsWrongSource(t *testing.T) {
	l1, l2 := newWorld(t)

	// A well-signed envelope claiming to originate on the receiving chain.
	envBytes, err := wire.EncodeEnvelope(wire.Envelope{
		Kind:   wire.KindEjection,
		Nonce:  1,
		Source: types.ChainL2,
	})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	sig, err := l1.signer.Sign(envBytes)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sealed, err := wire.EncodeSealedEnvelope(wire.SealedEnvelope{Envelope: envBytes, Key: l1.signer.Key(), Sig: sig})
	if err != nil {
		t.Fatalf("EncodeSealedEnvelope: %v", err)
	}
	if _, err := l2.ctrl.Deliver(context.Background(), sealed); !types.IsCode(err, types.ErrUnauthorizedCaller) {
		t.Fatalf("want UNAUTHORIZED_CALLER, got %v", err)
	}
}

func TestBatchEjection(t *testing.T) {
	l1, l2 := newWorld(t)
	idA := register(t, l1, "vault", alice, 2_000_000)
	idB := register(t, l1, "forge", alice, 2_500_000)

	pa, _ := wire.EncodeTransferData(wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})
	pb, _ := wire.EncodeTransferData(wire.TransferData{Label: "forge", Owner: bob, Expiry: 2_500_000})
	batch, err := wire.EncodeBatch([][]byte{pa, pb})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	err = l1.reg.SafeBatchTransferWithPayload(alice, alice, l1.ctrl.Address(),
		[]types.TokenID{idA, idB}, []uint64{1, 1}, batch)
	if err != nil {
		t.Fatalf("batch eject: %v", err)
	}

	for _, label := range []string{"vault", "forge"} {
		if got := l2.reg.OwnerOf(namehash.CanonicalID(label)); got != bob {
			t.Fatalf("owner of %q on target = %s", label, got)
		}
	}
	for _, rec := range l1.ctrl.Outbox().Records() {
		if rec.Status != bridge.OutboxCommitted || rec.MsgID == "" {
			t.Fatalf("outbox record not committed: %+v", rec)
		}
	}
}

func TestBatchEjectionLengthMismatch(t *testing.T) {
	l1, l2 := newWorld(t)
	idA := register(t, l1, "vault", alice, 2_000_000)
	idB := register(t, l1, "forge", alice, 2_500_000)

	pa, _ := wire.EncodeTransferData(wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})
	batch, err := wire.EncodeBatch([][]byte{pa})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	err = l1.reg.SafeBatchTransferWithPayload(alice, alice, l1.ctrl.Address(),
		[]types.TokenID{idA, idB}, []uint64{1, 1}, batch)
	if !types.IsCode(err, types.ErrLengthMismatch) {
		t.Fatalf("want LENGTH_MISMATCH, got %v", err)
	}
	// Nothing moved, nothing landed.
	if l1.reg.OwnerOf(idA) != alice || l1.reg.OwnerOf(idB) != alice {
		t.Fatal("rejected batch must not move tokens")
	}
	if _, ok := l2.reg.NameData(idA.Canonical()); ok {
		t.Fatal("rejected batch must not land")
	}
}

func TestBatchEjectionTransportFailureKeepsDebits(t *testing.T) {
	s1 := testSigner(t, 0x11)
	s2 := testSigner(t, 0x22)
	l1 := newChain(t, types.ChainL1, s1, s2.Key())
	l2 := newChain(t, types.ChainL2, s2, s1.Key())

	// The link delivers the first message and drops the rest.
	var sent int
	l1.ctrl.SetTransport(bridge.BridgeFunc(func(ctx context.Context, msg []byte) error {
		sent++
		if sent > 1 {
			return errors.New("link down")
		}
		_, err := l2.ctrl.Deliver(ctx, msg)
		return err
	}))

	idA := register(t, l1, "vault", alice, 2_000_000)
	idB := register(t, l1, "forge", alice, 2_500_000)
	pa, _ := wire.EncodeTransferData(wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})
	pb, _ := wire.EncodeTransferData(wire.TransferData{Label: "forge", Owner: bob, Expiry: 2_500_000})
	batch, err := wire.EncodeBatch([][]byte{pa, pb})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	err = l1.reg.SafeBatchTransferWithPayload(alice, alice, l1.ctrl.Address(),
		[]types.TokenID{idA, idB}, []uint64{1, 1}, batch)
	if err != nil {
		t.Fatalf("batch eject over a failing link: %v", err)
	}

	// The delivered name is live on the target and must stay dead at home:
	// the send failure on the second item cannot unwind the first.
	if got := l2.reg.OwnerOf(idA.Canonical()); got != bob {
		t.Fatalf("owner of delivered name on target = %s", got)
	}
	for _, id := range []types.TokenID{idA, idB} {
		if got := l1.reg.OwnerOf(id); got != l1.ctrl.Address() {
			t.Fatalf("source owner after partial send = %s", got)
		}
	}
	if err := l1.reg.Transfer(l1.ctrl.Address(), l1.ctrl.Address(), alice, idA); !types.IsCode(err, types.ErrNonTransferable) {
		t.Fatalf("delivered name moved on the source chain: %v", err)
	}

	recs := l1.ctrl.Outbox().Records()
	if len(recs) != 2 {
		t.Fatalf("outbox records = %d", len(recs))
	}
	if recs[0].Status != bridge.OutboxCommitted {
		t.Fatalf("delivered record: %+v", recs[0])
	}
	if recs[1].Status != bridge.OutboxRejected {
		t.Fatalf("dropped record: %+v", recs[1])
	}
	if _, ok := l2.reg.NameData(idB.Canonical()); ok {
		t.Fatal("dropped message landed anyway")
	}

	// The stranded name comes back through manual reconciliation only.
	if err := l1.ctrl.Reclaim(admin, idB, alice, roles.All.Capabilities()); err != nil {
		t.Fatalf("Reclaim: %v", err)
	}
	if got := l1.reg.OwnerOf(idB); got != alice {
		t.Fatalf("reclaimed owner = %s", got)
	}
}

func TestEjectionSendFailureLeavesTokenParked(t *testing.T) {
	l1 := newChain(t, types.ChainL1, testSigner(t, 0x11), "")
	l1.ctrl.SetTransport(bridge.BridgeFunc(func(ctx context.Context, msg []byte) error {
		return errors.New("link down")
	}))
	id := register(t, l1, "vault", alice, 2_000_000)

	eject(t, l1, alice, id, wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})

	if got := l1.reg.OwnerOf(id); got != l1.ctrl.Address() {
		t.Fatalf("owner after failed send = %s", got)
	}
	recs := l1.ctrl.Outbox().Records()
	if len(recs) != 1 || recs[0].Status != bridge.OutboxRejected {
		t.Fatalf("outbox after failed send: %+v", recs)
	}
}

func TestOutboxTracksEjections(t *testing.T) {
	l1, _ := newWorld(t)
	id := register(t, l1, "vault", alice, 2_000_000)
	eject(t, l1, alice, id, wire.TransferData{Label: "vault", Owner: bob, Expiry: 2_000_000})

	recs := l1.ctrl.Outbox().Records()
	if len(recs) != 1 {
		t.Fatalf("outbox records = %d", len(recs))
	}
	rec := recs[0]
	if rec.Status != bridge.OutboxCommitted || rec.Label != "vault" || rec.Token != id.Canonical() || rec.MsgID == "" {
		t.Fatalf("outbox record: %+v", rec)
	}
	got, ok := l1.ctrl.Outbox().Record(rec.Nonce)
	if !ok || got.MsgID != rec.MsgID {
		t.Fatalf("Record(%d): %+v ok=%v", rec.Nonce, got, ok)
	}
}

func TestMigrationDeploysSaltedSubregistry(t *testing.T) {
	l1, l2 := newWorld(t)

	salt := [32]byte{0x5a}
	md := wire.MigrationData{
		Transfer: wire.TransferData{
			Label:  "fresh",
			Owner:  bob,
			Roles:  roles.All.Capabilities(),
			Expiry: 2_000_000,
		},
		Salt: salt,
	}
	if err := l1.ctrl.RelayMigration(md); err != nil {
		t.Fatalf("RelayMigration: %v", err)
	}

	canonical := namehash.CanonicalID("fresh")
	nd, ok := l2.reg.NameData(canonical)
	if !ok {
		t.Fatal("migrated name did not land")
	}
	want := factory.AddressOf(l2.ctrl.Address(), salt)
	if nd.Subregistry != want {
		t.Fatalf("subregistry = %s, want deterministic %s", nd.Subregistry, want)
	}
	if _, ok := l2.env.Node(want); !ok {
		t.Fatal("deployed subregistry is not a live node")
	}
	if nd.Owner != bob {
		t.Fatalf("migrated owner = %s", nd.Owner)
	}
}
