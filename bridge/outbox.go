package bridge

import (
	"sync"

	"namechain.dev/registry/types"
)

// OutboxStatus tracks one ejection through its state machine.
type OutboxStatus string

const (
	OutboxValidating OutboxStatus = "Validating"
	OutboxCommitted  OutboxStatus = "Committed"
	OutboxRejected   OutboxStatus = "Rejected"
)

// OutboxRecord is the durable source-side trace of one outbound message.
type OutboxRecord struct {
	MsgID  string
	Nonce  uint64
	Token  types.TokenID
	Label  string
	Status OutboxStatus
	Reason string
}

// Outbox holds outbound records in commit order.
type Outbox struct {
	mu      sync.Mutex
	records []OutboxRecord
	byNonce map[uint64]int
}

func NewOutbox() *Outbox {
	return &Outbox{byNonce: make(map[uint64]int)}
}

func (o *Outbox) append(rec OutboxRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byNonce[rec.Nonce] = len(o.records)
	o.records = append(o.records, rec)
}

func (o *Outbox) update(nonce uint64, status OutboxStatus, msgID, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i, ok := o.byNonce[nonce]
	if !ok {
		return
	}
	o.records[i].Status = status
	o.records[i].MsgID = msgID
	o.records[i].Reason = reason
}

// Record returns the record for a nonce.
func (o *Outbox) Record(nonce uint64) (OutboxRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i, ok := o.byNonce[nonce]
	if !ok {
		return OutboxRecord{}, false
	}
	return o.records[i], true
}

// Records returns a copy of all records in commit order.
func (o *Outbox) Records() []OutboxRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OutboxRecord, len(o.records))
	copy(out, o.records)
	return out
}
