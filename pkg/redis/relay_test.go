package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainSalesReturnsFIFOAndWritesAudit(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	require.NoError(t, client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "s1", Payload: []byte(`{"id":"s1"}`)}))
	require.NoError(t, client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "s2", Payload: []byte(`{"id":"s2"}`)}))

	depth, err := client.QueueDepth(ctx, "centreA")
	require.NoError(t, err)
	assert.EqualValues(t, 2, depth)

	drainedAt := time.UnixMilli(1700000000123)
	sales, err := client.DrainSales(ctx, "centreA", drainedAt)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "s1", sales[0].ID)
	assert.JSONEq(t, `{"id":"s1"}`, string(sales[0].Payload))
	assert.Equal(t, "s2", sales[1].ID)

	assert.False(t, srv.Exists(client.SalesQueueKey("centreA")))

	members, err := client.SortedMembers(ctx, client.AuditKey("centreA", "s2"))
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.JSONEq(t, `{"drain":1,"drained_at":1700000000123,"position":1,"sale":{"id":"s2"}}`, members[0])

	score, err := srv.ZScore(client.AuditKey("centreA", "s1"), members[0])
	if err == nil {
		t.Fatalf("audit member of s2 should not live under s1, got score %v", score)
	}

	again, err := client.DrainSales(ctx, "centreA", drainedAt.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDrainSalesEmptyQueueIsNoop(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	sales, err := client.DrainSales(ctx, "centreA", time.Now())
	require.NoError(t, err)
	assert.NotNil(t, sales)
	assert.Empty(t, sales)
	assert.Empty(t, srv.Keys())
}

func TestDrainSalesCorruptFrameLeavesQueueUntouched(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	require.NoError(t, client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "s1", Payload: []byte(`{"id":"s1"}`)}))
	_, err := srv.Push(client.SalesQueueKey("centreA"), "no-separator")
	require.NoError(t, err)

	_, err = client.DrainSales(ctx, "centreA", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptFrame), "got %v", err)

	list, err := srv.List(client.SalesQueueKey("centreA"))
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.False(t, srv.Exists(client.AuditKey("centreA", "s1")))
}

func TestEnqueueSaleRejectsUnframeableInput(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	err := client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "a\nb", Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrCorruptFrame)

	err = client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "s1", Payload: []byte("{\n}")})
	assert.ErrorIs(t, err, ErrCorruptFrame)

	exists, err := client.CentreExists(ctx, "centreA")
	require.NoError(t, err)
	assert.False(t, exists, "rejected enqueue must not register the centre")
}

func TestDrainSalesClosedClient(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	require.NoError(t, client.Close())

	_, err := client.DrainSales(ctx, "centreA", time.Now())
	assert.Error(t, err)
}

func TestConcurrentProducersAndDrainersNeverLoseOrDuplicate(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	const producers, perProducer, drainers = 8, 25, 4
	var (
		mu      sync.Mutex
		drained = map[string]int{}
		wg      sync.WaitGroup
		done    = make(chan struct{})
	)

	record := func(batch []QueuedSale) {
		mu.Lock()
		defer mu.Unlock()
		for _, sale := range batch {
			drained[sale.ID]++
		}
	}

	var drainWG sync.WaitGroup
	for d := 0; d < drainers; d++ {
		drainWG.Add(1)
		go func() {
			defer drainWG.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				batch, err := client.DrainSales(ctx, "centreA", time.Now())
				if err != nil {
					t.Errorf("drain: %v", err)
					return
				}
				record(batch)
			}
		}()
	}

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := fmt.Sprintf("p%d-%d", p, i)
				if err := client.EnqueueSale(ctx, "centreA", QueuedSale{ID: id, Payload: []byte(`{"id":"` + id + `"}`)}); err != nil {
					t.Errorf("enqueue: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	close(done)
	drainWG.Wait()

	rest, err := client.DrainSales(ctx, "centreA", time.Now())
	require.NoError(t, err)
	record(rest)

	require.Len(t, drained, producers*perProducer)
	for id, n := range drained {
		if n != 1 {
			t.Fatalf("sale %s drained %d times", id, n)
		}
	}
}

func TestAtomicRegistersCentreWithWrite(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	err := client.Atomic(ctx, func(b *Batch) {
		b.Register("centreB")
		b.Register("centreA")
		b.SetValue(client.CentreKey("centreA", "config"), []byte(`{"lanes":4}`))
		b.HashSet(client.CentreKey("centreA", "items"), "b", []byte(`{"item_id":"b"}`))
		b.HashSet(client.CentreKey("centreA", "items"), "a", []byte(`{"item_id":"a"}`))
	})
	require.NoError(t, err)

	exists, err := client.CentreExists(ctx, "centreA")
	require.NoError(t, err)
	assert.True(t, exists)

	centres, err := client.Centres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"centreA", "centreB"}, centres)

	cfg, err := client.Get(ctx, client.CentreKey("centreA", "config"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"lanes":4}`, cfg)

	values, err := client.HashValuesByField(ctx, client.CentreKey("centreA", "items"))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"item_id":"a"}`, `{"item_id":"b"}`}, values)

	ok, err := client.HashExists(ctx, client.CentreKey("centreA", "items"), "a")
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := client.HashGet(ctx, client.CentreKey("centreA", "items"), "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"item_id":"b"}`, item)
}

func TestRecordHistoryOrdersByTimestamp(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	key := client.HistoryKey("centreA", "customers", "c-1")

	base := time.UnixMilli(1700000000000)
	require.NoError(t, client.RecordHistory(ctx, key, base.Add(2*time.Second), []byte(`{"name":"second"}`)))
	require.NoError(t, client.RecordHistory(ctx, key, base, []byte(`{"name":"first"}`)))

	entries, err := client.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, base.UnixMilli(), entries[0].RecordedAt)

	var first map[string]string
	require.NoError(t, json.Unmarshal(entries[0].Value, &first))
	assert.Equal(t, "first", first["name"])
	assert.JSONEq(t, `{"name":"second"}`, string(entries[1].Value))
}

func TestDrainSalesAuditConflictLeavesQueueUntouched(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	require.NoError(t, client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "s1", Payload: []byte(`{"id":"s1"}`)}))
	require.NoError(t, client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "config", Payload: []byte(`{"id":"config"}`)}))
	require.NoError(t, srv.Set(client.AuditKey("centreA", "config"), `{"lanes":4}`))

	_, err := client.DrainSales(ctx, "centreA", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuditConflict)

	list, err := srv.List(client.SalesQueueKey("centreA"))
	require.NoError(t, err)
	assert.Len(t, list, 2, "rejected drain must keep every sale queued")
	assert.False(t, srv.Exists(client.AuditKey("centreA", "s1")))
	assert.False(t, srv.Exists(client.DrainSeqKey("centreA")))

	value, err := srv.Get(client.AuditKey("centreA", "config"))
	require.NoError(t, err)
	assert.Equal(t, `{"lanes":4}`, value)
}

func TestKeySeparatorIsRejectedInIDs(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	err := client.EnqueueSale(ctx, "a:audit", QueuedSale{ID: "s1", Payload: []byte(`{"id":"s1"}`)})
	assert.ErrorIs(t, err, ErrInvalidKeyPart)

	err = client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "audit:s1", Payload: []byte(`{"id":"s1"}`)})
	assert.ErrorIs(t, err, ErrInvalidKeyPart)

	_, err = client.DrainSales(ctx, "a:audit", time.Now())
	assert.ErrorIs(t, err, ErrInvalidKeyPart)

	assert.Empty(t, srv.Keys())
}

func TestRepeatedDrainsWithinOneMillisecondKeepEveryAudit(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	drainedAt := time.UnixMilli(1700000000123)

	for i := 0; i < 2; i++ {
		require.NoError(t, client.EnqueueSale(ctx, "centreA", QueuedSale{ID: "s1", Payload: []byte(`{"id":"s1"}`)}))
		sales, err := client.DrainSales(ctx, "centreA", drainedAt)
		require.NoError(t, err)
		require.Len(t, sales, 1)
	}

	members, err := client.SortedMembers(ctx, client.AuditKey("centreA", "s1"))
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestIdenticalHistoryWritesWithinOneMillisecondAreKept(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	key := client.HistoryKey("centreA", "customers", "c-1")
	at := time.UnixMilli(1700000000000)

	require.NoError(t, client.RecordHistory(ctx, key, at, []byte(`{"name":"same"}`)))
	require.NoError(t, client.RecordHistory(ctx, key, at, []byte(`{"name":"same"}`)))

	entries, err := client.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Revision, entries[1].Revision)
}
