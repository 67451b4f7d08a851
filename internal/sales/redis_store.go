package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	pkgredis "github.com/angelmondragon/posrelay/pkg/redis"
)

type redisQueue interface {
	EnqueueSale(ctx context.Context, centre string, sale pkgredis.QueuedSale) error
	DrainSales(ctx context.Context, centre string, drainedAt time.Time) ([]pkgredis.QueuedSale, error)
	QueueDepth(ctx context.Context, centre string) (int64, error)
	SortedMembers(ctx context.Context, key string) ([]string, error)
	AuditKey(centre, saleID string) string
}

// RedisStore keeps the queue in a redis list and drains it with a server-side script.
// Appending also registers the centre.
type RedisStore struct {
	client redisQueue
}

// NewRedisStore binds the store to a redis client.
func NewRedisStore(client redisQueue) *RedisStore {
	return &RedisStore{client: client}
}

type auditMember struct {
	Drain     int64           `json:"drain"`
	DrainedAt int64           `json:"drained_at"`
	Position  int             `json:"position"`
	Sale      json.RawMessage `json:"sale"`
}

func (s *RedisStore) Append(ctx context.Context, centre string, sale Sale) error {
	return s.client.EnqueueSale(ctx, centre, pkgredis.QueuedSale{ID: sale.ID, Payload: sale.Payload})
}

func (s *RedisStore) DrainWithAudit(ctx context.Context, centre string, drainedAt time.Time) ([]Sale, error) {
	queued, err := s.client.DrainSales(ctx, centre, drainedAt)
	if err != nil {
		return nil, err
	}
	sales := make([]Sale, 0, len(queued))
	for _, q := range queued {
		sales = append(sales, Sale{ID: q.ID, Payload: q.Payload})
	}
	return sales, nil
}

func (s *RedisStore) AuditTrail(ctx context.Context, centre, saleID string) ([]AuditEntry, error) {
	members, err := s.client.SortedMembers(ctx, s.client.AuditKey(centre, saleID))
	if err != nil {
		return nil, err
	}
	decoded := make([]auditMember, 0, len(members))
	for _, member := range members {
		var m auditMember
		if err := json.Unmarshal([]byte(member), &m); err != nil {
			return nil, fmt.Errorf("decode audit member: %w", err)
		}
		decoded = append(decoded, m)
	}
	// members sharing a score come back in byte order, which misorders drain 10 before drain 9
	sort.SliceStable(decoded, func(i, j int) bool {
		if decoded[i].DrainedAt != decoded[j].DrainedAt {
			return decoded[i].DrainedAt < decoded[j].DrainedAt
		}
		return decoded[i].Drain < decoded[j].Drain
	})
	entries := make([]AuditEntry, 0, len(decoded))
	for _, m := range decoded {
		entries = append(entries, AuditEntry{
			DrainedAt: time.UnixMilli(m.DrainedAt).UTC(),
			Position:  m.Position,
			Sale:      m.Sale,
		})
	}
	return entries, nil
}

func (s *RedisStore) Depth(ctx context.Context, centre string) (int64, error) {
	return s.client.QueueDepth(ctx, centre)
}
