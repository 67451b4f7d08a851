package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	salesQueueSuffix = "sales"
	auditSuffix      = "audit"
	drainSeqSuffix   = "drain_seq"
	historySuffix    = "history"

	frameSeparator = "\n"
)

// drainScript reads the whole queue and validates every frame and every
// target audit key before its first write, so a rejected drain leaves the
// queue untouched. It then numbers the drain, clears the queue and writes one
// audit member per frame. The drain number keeps members of repeated drains
// within the same millisecond distinct.
//
// KEYS[1] queue list, KEYS[2] drain counter, ARGV[1] audit key prefix,
// ARGV[2] drain time (unix ms).
var drainScript = redis.NewScript(`
local frames = redis.call('LRANGE', KEYS[1], 0, -1)
if #frames == 0 then
  return frames
end
local ids = {}
local sales = {}
for i, raw in ipairs(frames) do
  local sep = string.find(raw, '\n', 1, true)
  if not sep or sep == 1 or sep == #raw then
    return redis.error_reply('corrupt queue frame at position ' .. i)
  end
  ids[i] = string.sub(raw, 1, sep - 1)
  sales[i] = string.sub(raw, sep + 1)
  local kind = redis.call('TYPE', ARGV[1] .. ids[i]).ok
  if kind ~= 'none' and kind ~= 'zset' then
    return redis.error_reply('audit key conflict at position ' .. i)
  end
end
local drain = redis.call('INCR', KEYS[2])
redis.call('DEL', KEYS[1])
for i = 1, #frames do
  local member = '{"drain":' .. drain .. ',"drained_at":' .. ARGV[2] .. ',"position":' .. (i - 1) .. ',"sale":' .. sales[i] .. '}'
  redis.call('ZADD', ARGV[1] .. ids[i], ARGV[2], member)
end
return frames
`)

var (
	// ErrCorruptFrame is returned when a queued entry cannot be split into id and payload.
	ErrCorruptFrame = errors.New("corrupt sales queue frame")
	// ErrAuditConflict is returned when a sale's audit key holds a non-audit value.
	ErrAuditConflict = errors.New("sale audit key holds a foreign value")
	// ErrInvalidKeyPart is returned for centre or sale ids that cannot be used as key parts.
	ErrInvalidKeyPart = errors.New("invalid key part")
)

// QueuedSale is one entry of a centre's sales queue.
type QueuedSale struct {
	ID      string
	Payload []byte
}

// HistoryEntry is one stored version of a customer or booking. Revision
// tells apart identical writes made within the same millisecond.
type HistoryEntry struct {
	RecordedAt int64           `json:"recorded_at"`
	Revision   string          `json:"revision"`
	Value      json.RawMessage `json:"value"`
}

// Batch queues writes that are committed together in one MULTI/EXEC.
type Batch struct {
	ctx    context.Context
	client *Client
	pipe   redis.Pipeliner
}

// Register adds the centre to the known centres set.
func (b *Batch) Register(centre string) {
	b.pipe.SAdd(b.ctx, b.client.CentresKey(), centre)
}

// SetValue stores a plain string value.
func (b *Batch) SetValue(key string, value []byte) {
	b.pipe.Set(b.ctx, key, value, 0)
}

// HashSet stores field=value in the hash at key.
func (b *Batch) HashSet(key, field string, value []byte) {
	b.pipe.HSet(b.ctx, key, field, value)
}

// RecordHistory appends a timestamped version to the history at key.
func (b *Batch) RecordHistory(key string, at time.Time, value []byte) {
	ms := at.UnixMilli()
	b.pipe.ZAdd(b.ctx, key, redis.Z{Score: float64(ms), Member: historyMember(ms, uuid.NewString(), value)})
}

// Atomic runs fn against a transactional pipeline.
func (c *Client) Atomic(ctx context.Context, fn func(*Batch)) error {
	if c.store == nil {
		return errNotInitialized
	}
	_, err := c.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fn(&Batch{ctx: ctx, client: c, pipe: pipe})
		return nil
	})
	return err
}

// CentreExists reports whether the centre has ever been written to.
func (c *Client) CentreExists(ctx context.Context, centre string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SIsMember(ctx, c.CentresKey(), centre).Result()
}

// Centres lists every registered centre, sorted.
func (c *Client) Centres(ctx context.Context) ([]string, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	centres, err := c.store.SMembers(ctx, c.CentresKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(centres)
	return centres, nil
}

// HashGet returns a single hash field. Missing fields yield redis.Nil.
func (c *Client) HashGet(ctx context.Context, key, field string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.HGet(ctx, key, field).Result()
}

// HashExists reports whether the hash at key holds field.
func (c *Client) HashExists(ctx context.Context, key, field string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.HExists(ctx, key, field).Result()
}

// HashValuesByField returns every value of the hash ordered by field name.
func (c *Client) HashValuesByField(ctx context.Context, key string) ([]string, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	all, err := c.store.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(all))
	for field := range all {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	values := make([]string, 0, len(fields))
	for _, field := range fields {
		values = append(values, all[field])
	}
	return values, nil
}

// RecordHistory appends a single timestamped version outside of a batch.
func (c *Client) RecordHistory(ctx context.Context, key string, at time.Time, value []byte) error {
	return c.Atomic(ctx, func(b *Batch) {
		b.RecordHistory(key, at, value)
	})
}

// History returns the versions stored at key, oldest first.
func (c *Client) History(ctx context.Context, key string) ([]HistoryEntry, error) {
	members, err := c.SortedMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(members))
	for _, member := range members {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			return nil, fmt.Errorf("decode history member: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SortedMembers returns every member of the sorted set at key in score order.
func (c *Client) SortedMembers(ctx context.Context, key string) ([]string, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	return c.store.ZRange(ctx, key, 0, -1).Result()
}

// DrainSeqKey counts the drains of a centre queue.
func (c *Client) DrainSeqKey(centre string) string {
	return c.CentreKey(centre, drainSeqSuffix)
}

// SalesQueueKey is the list holding a centre's pending sales.
func (c *Client) SalesQueueKey(centre string) string {
	return c.CentreKey(centre, salesQueueSuffix)
}

// AuditKey is the sorted set holding the audit trail of one sale.
func (c *Client) AuditKey(centre, saleID string) string {
	return c.auditPrefix(centre) + saleID
}

func (c *Client) auditPrefix(centre string) string {
	return c.CentreKey(centre, auditSuffix) + ":"
}

// HistoryKey is the sorted set of versions of one record.
func (c *Client) HistoryKey(centre, collection, id string) string {
	return c.CentreKey(centre, collection, id, historySuffix)
}

// EnqueueSale appends a sale at the tail of the centre queue and registers the centre.
func (c *Client) EnqueueSale(ctx context.Context, centre string, sale QueuedSale) error {
	if err := checkKeyPart("centre", centre); err != nil {
		return err
	}
	if err := checkKeyPart("sale id", sale.ID); err != nil {
		return err
	}
	if strings.Contains(sale.ID, frameSeparator) || sale.ID == "" {
		return fmt.Errorf("%w: invalid sale id %q", ErrCorruptFrame, sale.ID)
	}
	if len(sale.Payload) == 0 || strings.Contains(string(sale.Payload), frameSeparator) {
		return fmt.Errorf("%w: payload must be compact json", ErrCorruptFrame)
	}
	frame := sale.ID + frameSeparator + string(sale.Payload)
	return c.Atomic(ctx, func(b *Batch) {
		b.Register(centre)
		b.pipe.RPush(b.ctx, c.SalesQueueKey(centre), frame)
	})
}

// DrainSales empties the centre queue and writes its audit trail in one script run.
func (c *Client) DrainSales(ctx context.Context, centre string, drainedAt time.Time) ([]QueuedSale, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	if err := checkKeyPart("centre", centre); err != nil {
		return nil, err
	}
	ms := strconv.FormatInt(drainedAt.UnixMilli(), 10)
	keys := []string{c.SalesQueueKey(centre), c.DrainSeqKey(centre)}
	frames, err := drainScript.Run(ctx, c.store, keys, c.auditPrefix(centre), ms).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []QueuedSale{}, nil
		}
		if strings.Contains(err.Error(), "corrupt queue frame") {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
		}
		if strings.Contains(err.Error(), "audit key conflict") {
			return nil, fmt.Errorf("%w: %v", ErrAuditConflict, err)
		}
		return nil, err
	}
	sales := make([]QueuedSale, 0, len(frames))
	for _, frame := range frames {
		id, payload, ok := strings.Cut(frame, frameSeparator)
		if !ok {
			return nil, ErrCorruptFrame
		}
		sales = append(sales, QueuedSale{ID: id, Payload: []byte(payload)})
	}
	return sales, nil
}

// QueueDepth returns the number of sales waiting for the next drain.
func (c *Client) QueueDepth(ctx context.Context, centre string) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.LLen(ctx, c.SalesQueueKey(centre)).Result()
}

func historyMember(ms int64, revision string, value []byte) string {
	return `{"recorded_at":` + strconv.FormatInt(ms, 10) + `,"revision":"` + revision + `","value":` + string(value) + `}`
}

func checkKeyPart(kind, part string) error {
	if part == "" || strings.Contains(part, keySeparator) {
		return fmt.Errorf("%w: %s %q", ErrInvalidKeyPart, kind, part)
	}
	return nil
}
