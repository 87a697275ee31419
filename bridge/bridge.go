// Package bridge implements the cross-chain ejection protocol: the
// BridgeController each chain runs, its durable outbox, and the idempotent
// inbox that lands messages from the other side.
//
// Ejection is a non-atomic two-phase commit. Phase one (the source debit)
// parks the name with the local controller and commits an outbox record
// before the message leaves the chain; phase two (the destination credit)
// lands independently and possibly much later. The only rollback primitive
// is the terminal bounce receipt: an undeliverable credit is recorded, not
// retried and not silently dropped.
package bridge

import "context"

// Bridge is the opaque message transport between the two controllers.
// Retries, ordering and delivery guarantees are the transport's problem.
type Bridge interface {
	SendMessage(ctx context.Context, msg []byte) error
}

// BridgeFunc adapts a function to the Bridge interface.
type BridgeFunc func(ctx context.Context, msg []byte) error

func (f BridgeFunc) SendMessage(ctx context.Context, msg []byte) error { return f(ctx, msg) }
