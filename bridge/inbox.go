package bridge

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ReceiptStatus is the terminal outcome of one delivered message.
type ReceiptStatus string

const (
	// ReceiptApplied: the credit landed and the name is live locally.
	ReceiptApplied ReceiptStatus = "Applied"
	// ReceiptBounced: the credit was rejected. The source debit has already
	// committed, so the message parks here for operator reconciliation; no
	// automatic return-to-sender exists.
	ReceiptBounced ReceiptStatus = "Bounced"
)

// Receipt records the outcome of an inbound message.
type Receipt struct {
	MsgID  string
	Status ReceiptStatus
	Reason string
	Label  string
	Owner  common.Address

	// Replayed is set on the copy returned for a re-delivered message. The
	// stored receipt is never mutated by a replay.
	Replayed bool
}

// Inbox is the idempotency ledger: one receipt per message identity,
// written exactly once.
type Inbox struct {
	mu       sync.Mutex
	receipts map[string]Receipt
}

func NewInbox() *Inbox {
	return &Inbox{receipts: make(map[string]Receipt)}
}

// Seen returns the stored receipt for a message identity.
func (i *Inbox) Seen(msgID string) (Receipt, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	r, ok := i.receipts[msgID]
	return r, ok
}

func (i *Inbox) record(r Receipt) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.receipts[r.MsgID]; ok {
		return
	}
	i.receipts[r.MsgID] = r
}

// Bounced returns every bounce receipt, for the reconciliation surface.
func (i *Inbox) Bounced() []Receipt {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []Receipt
	for _, r := range i.receipts {
		if r.Status == ReceiptBounced {
			out = append(out, r)
		}
	}
	return out
}
