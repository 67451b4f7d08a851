package centres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgredis "github.com/angelmondragon/posrelay/pkg/redis"
	"github.com/redis/go-redis/v9"
)

// Repository persists centre data in redis.
type Repository interface {
	Exists(ctx context.Context, centre string) (bool, error)
	Register(ctx context.Context, centre string) error
	SetConfig(ctx context.Context, centre string, cfg []byte) error
	Config(ctx context.Context, centre string) ([]byte, bool, error)
	List(ctx context.Context, centre string, c Collection) ([]json.RawMessage, error)
	Has(ctx context.Context, centre string, c Collection, id string) (bool, error)
	Put(ctx context.Context, centre string, c Collection, id string, body []byte, at time.Time) error
	History(ctx context.Context, centre string, c Collection, id string) ([]pkgredis.HistoryEntry, error)
}

type redisStore interface {
	Atomic(ctx context.Context, fn func(*pkgredis.Batch)) error
	CentreExists(ctx context.Context, centre string) (bool, error)
	CentreKey(centre string, parts ...string) string
	HistoryKey(centre, collection, id string) string
	Get(ctx context.Context, key string) (string, error)
	HashExists(ctx context.Context, key, field string) (bool, error)
	HashValuesByField(ctx context.Context, key string) ([]string, error)
	History(ctx context.Context, key string) ([]pkgredis.HistoryEntry, error)
}

type repositoryImpl struct {
	store redisStore
}

// NewRepository returns a centre repository backed by the redis client.
func NewRepository(store redisStore) Repository {
	return &repositoryImpl{store: store}
}

func (r *repositoryImpl) Exists(ctx context.Context, centre string) (bool, error) {
	return r.store.CentreExists(ctx, centre)
}

func (r *repositoryImpl) Register(ctx context.Context, centre string) error {
	return r.store.Atomic(ctx, func(b *pkgredis.Batch) {
		b.Register(centre)
	})
}

func (r *repositoryImpl) SetConfig(ctx context.Context, centre string, cfg []byte) error {
	return r.store.Atomic(ctx, func(b *pkgredis.Batch) {
		b.Register(centre)
		b.SetValue(r.store.CentreKey(centre, "config"), cfg)
	})
}

func (r *repositoryImpl) Config(ctx context.Context, centre string) ([]byte, bool, error) {
	value, err := r.store.Get(ctx, r.store.CentreKey(centre, "config"))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (r *repositoryImpl) List(ctx context.Context, centre string, c Collection) ([]json.RawMessage, error) {
	values, err := r.store.HashValuesByField(ctx, r.store.CentreKey(centre, c.Name))
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

func (r *repositoryImpl) Has(ctx context.Context, centre string, c Collection, id string) (bool, error) {
	return r.store.HashExists(ctx, r.store.CentreKey(centre, c.Name), id)
}

// Put writes the record, registers the centre and, for tracked collections,
// appends the version to its history in the same transaction.
func (r *repositoryImpl) Put(ctx context.Context, centre string, c Collection, id string, body []byte, at time.Time) error {
	return r.store.Atomic(ctx, func(b *pkgredis.Batch) {
		b.Register(centre)
		b.HashSet(r.store.CentreKey(centre, c.Name), id, body)
		if c.Tracked {
			b.RecordHistory(r.store.HistoryKey(centre, c.Name, id), at, body)
		}
	})
}

func (r *repositoryImpl) History(ctx context.Context, centre string, c Collection, id string) ([]pkgredis.HistoryEntry, error) {
	return r.store.History(ctx, r.store.HistoryKey(centre, c.Name, id))
}
