// Package bridgekit provides in-process Bridge implementations for tests
// and single-binary demos.
package bridgekit

import (
	"context"
	"sync"

	"namechain.dev/registry/bridge"
)

// Loopback delivers each message synchronously to the target controller.
type Loopback struct {
	Target *bridge.Controller

	mu       sync.Mutex
	receipts []bridge.Receipt
}

var _ bridge.Bridge = (*Loopback)(nil)

func NewLoopback(target *bridge.Controller) *Loopback {
	return &Loopback{Target: target}
}

func (l *Loopback) SendMessage(ctx context.Context, msg []byte) error {
	rcpt, err := l.Target.Deliver(ctx, msg)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.receipts = append(l.receipts, rcpt)
	l.mu.Unlock()
	return nil
}

// Receipts returns delivery receipts in order.
func (l *Loopback) Receipts() []bridge.Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bridge.Receipt, len(l.receipts))
	copy(out, l.receipts)
	return out
}

// Wire cross-connects two controllers with loopback transports, modelling
// both chains in one process.
func Wire(a, b *bridge.Controller) (*Loopback, *Loopback) {
	toB := NewLoopback(b)
	toA := NewLoopback(a)
	a.SetTransport(toB)
	b.SetTransport(toA)
	return toB, toA
}

// Queue is a Bridge that parks messages until the test pumps them, for
// exercising delayed, replayed, or dropped delivery.
type Queue struct {
	mu   sync.Mutex
	msgs [][]byte
}

var _ bridge.Bridge = (*Queue)(nil)

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) SendMessage(ctx context.Context, msg []byte) error {
	_ = ctx
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := make([]byte, len(msg))
	copy(cp, msg)
	q.msgs = append(q.msgs, cp)
	return nil
}

// Messages returns the queued raw messages without draining them.
func (q *Queue) Messages() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.msgs))
	copy(out, q.msgs)
	return out
}

// Drain delivers every queued message to target, in order.
func (q *Queue) Drain(ctx context.Context, target *bridge.Controller) ([]bridge.Receipt, error) {
	q.mu.Lock()
	msgs := q.msgs
	q.msgs = nil
	q.mu.Unlock()

	var receipts []bridge.Receipt
	for _, m := range msgs {
		rcpt, err := target.Deliver(ctx, m)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, rcpt)
	}
	return receipts, nil
}
