package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type jsonSerde struct{}

func (jsonSerde) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonSerde) Decode(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

type fakeProducerClient struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (c *fakeProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res kgo.ProduceResults
	for _, r := range rs {
		c.records = append(c.records, r)
		res = append(res, kgo.ProduceResult{Record: r, Err: c.err})
	}
	return res
}

func (c *fakeProducerClient) Close() {}

func (c *fakeProducerClient) produced() []*kgo.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*kgo.Record(nil), c.records...)
}

type reloadRecorder struct {
	mu    sync.Mutex
	calls int
}

func (r *reloadRecorder) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *reloadRecorder) loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func fetchesWith(rs ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic: "test-topic",
			Partitions: []kgo.FetchPartition{{
				Records: rs,
			}},
		}},
	}}
}

func TestAuditProducer_Append(t *testing.T) {

	newAuditProducer := func(cl ProducerClient) AuditProducer {
		opPrefix := "AuditProducer"
		return AuditProducer{
			producer: producer{opPrefix: opPrefix, cl: cl},
			encoder:  jsonSerde{},
			opPrefix: opPrefix,
		}
	}

	t.Run("StockFlushKeyedByProduct", func(t *testing.T) {
		cl := &fakeProducerClient{}
		p := newAuditProducer(cl)

		e := domain.AuditEntry{
			EventID:    "ev-1",
			Kind:       domain.AuditStockFlush,
			ProductID:  "p-coffee",
			StockDelta: -2,
			Stock:      3,
			Actor:      "cashier-1",
			OccurredAt: time.Now(),
		}
		require.NoError(t, p.Append(t.Context(), e))

		rs := cl.produced()
		require.Len(t, rs, 1)
		assert.Equal(t, "p-coffee", string(rs[0].Key))

		var got schema.AuditEntryV1
		require.NoError(t, json.Unmarshal(rs[0].Value, &got))
		assert.Equal(t, "ev-1", got.EventID)
		assert.Equal(t, domain.AuditStockFlush, got.Kind)
		assert.Equal(t, -2, got.StockDelta)
		assert.Equal(t, 3, got.Stock)
	})

	t.Run("SaleCommitKeyedBySale", func(t *testing.T) {
		cl := &fakeProducerClient{}
		p := newAuditProducer(cl)

		e := domain.AuditEntry{
			EventID:    "ev-2",
			Kind:       domain.AuditSaleCommit,
			SaleID:     "s-1",
			Actor:      "cashier-1",
			OccurredAt: time.Now(),
		}
		require.NoError(t, p.Append(t.Context(), e))

		rs := cl.produced()
		require.Len(t, rs, 1)
		assert.Equal(t, "s-1", string(rs[0].Key))
	})

	t.Run("ProduceError", func(t *testing.T) {
		cl := &fakeProducerClient{err: assert.AnError}
		p := newAuditProducer(cl)

		err := p.Append(t.Context(), domain.AuditEntry{EventID: "ev-3"})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestProductChangeConsumer_ProcessFetches(t *testing.T) {

	newConsumer := func(rr *reloadRecorder) ProductChangeConsumer {
		return ProductChangeConsumer{
			opPrefix: "ProductChangeConsumer",
			reloader: rr,
			ownerID:  "cashier-1",
			decoder:  jsonSerde{},
		}
	}

	record := func(t *testing.T, ownerID string) *kgo.Record {
		t.Helper()
		b, err := json.Marshal(schema.ProductChangeV1{
			ProductID:  "p-coffee",
			OwnerID:    ownerID,
			Kind:       schema.ProductChangeUpdated,
			OccurredAt: time.Now(),
		})
		require.NoError(t, err)
		return &kgo.Record{Key: []byte("p-coffee"), Value: b}
	}

	t.Run("OwnChangeTriggersReload", func(t *testing.T) {
		rr := &reloadRecorder{}
		c := newConsumer(rr)

		fetches := fetchesWith(record(t, "cashier-1"))
		require.NoError(t, c.processFetches(t.Context(), fetches))
		assert.Equal(t, 1, rr.loads())
	})

	t.Run("ForeignChangeIsIgnored", func(t *testing.T) {
		rr := &reloadRecorder{}
		c := newConsumer(rr)

		fetches := fetchesWith(record(t, "cashier-other"))
		require.NoError(t, c.processFetches(t.Context(), fetches))
		assert.Equal(t, 0, rr.loads())
	})

	t.Run("BatchReloadsOnce", func(t *testing.T) {
		rr := &reloadRecorder{}
		c := newConsumer(rr)

		fetches := fetchesWith(
			record(t, "cashier-1"),
			record(t, "cashier-1"),
			record(t, "cashier-other"),
		)
		require.NoError(t, c.processFetches(t.Context(), fetches))
		assert.Equal(t, 1, rr.loads())
	})

	t.Run("UndecodableRecordIsSkipped", func(t *testing.T) {
		rr := &reloadRecorder{}
		c := newConsumer(rr)

		fetches := fetchesWith(&kgo.Record{Value: []byte("not avro")})
		require.NoError(t, c.processFetches(t.Context(), fetches))
		assert.Equal(t, 0, rr.loads())
	})
}
