package sales

import (
	"context"
	"encoding/json"
	"time"
)

// Sale is one queued sale. Payload is opaque compact JSON.
type Sale struct {
	ID      string
	Payload json.RawMessage
}

// MarshalJSON renders the sale exactly as it was enqueued.
func (s Sale) MarshalJSON() ([]byte, error) {
	if len(s.Payload) == 0 {
		return []byte("null"), nil
	}
	return s.Payload, nil
}

// AuditEntry proves a sale left the queue in a drain.
type AuditEntry struct {
	DrainedAt time.Time       `json:"drained_at"`
	Position  int             `json:"position"`
	Sale      json.RawMessage `json:"sale"`
}

// Store persists the per-centre sales queue and its audit trail.
//
// DrainWithAudit must read the whole queue, write one audit entry per sale
// stamped with drainedAt, and clear the queue as one indivisible operation.
// On error the queue is left as it was.
type Store interface {
	Append(ctx context.Context, centre string, sale Sale) error
	DrainWithAudit(ctx context.Context, centre string, drainedAt time.Time) ([]Sale, error)
	AuditTrail(ctx context.Context, centre, saleID string) ([]AuditEntry, error)
	Depth(ctx context.Context, centre string) (int64, error)
}
