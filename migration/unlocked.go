package migration

import (
	"github.com/ethereum/go-ethereum/common"

	"namechain.dev/registry/bridge"
	"namechain.dev/registry/factory"
	"namechain.dev/registry/legacy"
	"namechain.dev/registry/namehash"
	"namechain.dev/registry/registry"
	"namechain.dev/registry/types"
	"namechain.dev/registry/wire"
)

// UnlockedController migrates legacy holdings that are still fully mutable:
// unwrapped registrar tokens, and wrapped tokens whose cannot-unwrap fuse is
// clear. Because the mover could have changed anything about the legacy name
// anyway, the caller-supplied role bitmask is honored verbatim.
type UnlockedController struct {
	addr      common.Address
	chain     types.ChainID
	registrar legacy.Registrar
	wrapper   legacy.NameWrapper
	dest      *registry.Registry
	factory   *factory.SubregistryFactory
	relay     *bridge.Controller
}

func NewUnlockedController(addr common.Address, chain types.ChainID, registrar legacy.Registrar, wrapper legacy.NameWrapper, dest *registry.Registry, f *factory.SubregistryFactory, relay *bridge.Controller) *UnlockedController {
	return &UnlockedController{
		addr:      addr,
		chain:     chain,
		registrar: registrar,
		wrapper:   wrapper,
		dest:      dest,
		factory:   f,
		relay:     relay,
	}
}

func (c *UnlockedController) Address() common.Address { return c.addr }

// migrate lands one validated migration either locally or across the
// bridge, per the payload's destination flag. The legacy expiry always wins
// over whatever the payload claims.
func (c *UnlockedController) migrate(md wire.MigrationData, expiry uint64) error {
	md.Transfer.Expiry = expiry
	local := md.ToL1 == (c.chain == types.ChainL1)
	if !local {
		if c.relay == nil {
			return types.NewError(types.ErrInternal, "no bridge controller wired for cross-chain migration")
		}
		return c.relay.RelayMigration(md)
	}
	td := md.Transfer
	if td.Subregistry == (common.Address{}) && md.Salt != ([32]byte{}) && c.factory != nil {
		td.Subregistry = c.factory.Deploy(c.addr, md.Salt, td.Owner).Address()
	}
	_, err := c.dest.Register(c.addr, td.Label, td.Owner, td.Subregistry, td.Resolver, td.Roles, expiry)
	return err
}

func (c *UnlockedController) decode(payload []byte) (wire.MigrationData, string, error) {
	md, err := wire.DecodeMigrationData(payload)
	if err != nil {
		return wire.MigrationData{}, "", err
	}
	label, ok := legacy.Is2LD(md.Transfer.Label + "." + legacy.TLD)
	if !ok {
		return wire.MigrationData{}, "", types.Errorf(types.ErrNameNotETH2LD,
			"%q is not a bare second-level label", md.Transfer.Label)
	}
	if md.Transfer.Owner == (common.Address{}) {
		return wire.MigrationData{}, "", types.NewError(types.ErrZeroRecipient, "owner must be non-zero")
	}
	return md, label, nil
}

// OnRegistrarTokenReceived is the trigger for an unwrapped legacy token:
// the registrar token id is the label hash.
func (c *UnlockedController) OnRegistrarTokenReceived(from common.Address, labelHash common.Hash, payload []byte) error {
	md, label, err := c.decode(payload)
	if err != nil {
		return err
	}
	if namehash.LabelHash(label) != labelHash {
		return types.Errorf(types.ErrTokenIDMismatch,
			"payload label %q does not hash to registrar token %s", label, labelHash)
	}
	return c.migrate(md, c.registrar.NameExpires(labelHash))
}

type wrappedItem struct {
	md     wire.MigrationData
	expiry uint64
}

// validateWrapped checks one payload item against the wrapper token that
// carried it. Nothing is mutated here.
func (c *UnlockedController) validateWrapped(node common.Hash, amount uint64, payload []byte) (wrappedItem, error) {
	if amount != 1 {
		return wrappedItem{}, types.Errorf(types.ErrInvalidAmount, "migration moves exactly one token, got %d", amount)
	}
	md, label, err := c.decode(payload)
	if err != nil {
		return wrappedItem{}, err
	}
	if legacy.Node(label) != node {
		return wrappedItem{}, types.Errorf(types.ErrTokenIDMismatch,
			"payload label %q does not hash to wrapper token %s", label, node)
	}
	_, fuses, _ := c.wrapper.GetData(node)
	if fuses.Has(legacy.CannotUnwrap) {
		return wrappedItem{}, types.Errorf(types.ErrNameIsLocked, "%q has cannot-unwrap burned; use the locked path", label)
	}
	return wrappedItem{md: md, expiry: c.registrar.NameExpires(namehash.LabelHash(label))}, nil
}

// OnWrappedTokenReceived is the trigger for a wrapped-but-unlocked token:
// the wrapper token id is the .eth node.
func (c *UnlockedController) OnWrappedTokenReceived(from common.Address, node common.Hash, amount uint64, payload []byte) error {
	item, err := c.validateWrapped(node, amount, payload)
	if err != nil {
		return err
	}
	return c.migrate(item.md, item.expiry)
}

// OnWrappedBatchReceived is the batch trigger for wrapped-but-unlocked
// tokens. Every item is validated before any migrates, so a bad batch
// applies nothing.
func (c *UnlockedController) OnWrappedBatchReceived(from common.Address, nodes []common.Hash, amounts []uint64, payload []byte) error {
	items, err := wire.DecodeBatch(payload)
	if err != nil {
		return err
	}
	if len(items) != len(nodes) || len(nodes) != len(amounts) {
		return types.Errorf(types.ErrLengthMismatch,
			"batch of %d tokens with %d payloads and %d amounts", len(nodes), len(items), len(amounts))
	}
	validated := make([]wrappedItem, len(nodes))
	for i := range nodes {
		item, err := c.validateWrapped(nodes[i], amounts[i], items[i])
		if err != nil {
			return err
		}
		validated[i] = item
	}
	for _, item := range validated {
		if err := c.migrate(item.md, item.expiry); err != nil {
			return err
		}
	}
	return nil
}
