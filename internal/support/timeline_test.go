package support

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/redisx"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

type fakeTimelineCache struct {
	store  map[string]string
	getErr error
	setErr error
	delErr error
	dels   int
}

func newFakeTimelineCache() *fakeTimelineCache {
	return &fakeTimelineCache{store: map[string]string{}}
}

func (f *fakeTimelineCache) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	val, ok := f.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeTimelineCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		f.store[key] = string(v)
	case string:
		f.store[key] = v
	}
	return cmd
}

func (f *fakeTimelineCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.delErr != nil {
		cmd.SetErr(f.delErr)
		return cmd
	}
	f.dels++
	for _, key := range keys {
		delete(f.store, key)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *fakeTimelineCache) IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}

func (f *fakeTimelineCache) DecrBy(ctx context.Context, key string, value int64) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}

func (f *fakeTimelineCache) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	return redis.NewBoolCmd(ctx)
}

type downstream struct {
	order       *httptest.Server
	payment     *httptest.Server
	fulfillment *httptest.Server
	orderHits   atomic.Int64
	paymentHits atomic.Int64
	orderFail   atomic.Bool
}

func newDownstream(t *testing.T) *downstream {
	t.Helper()
	d := &downstream{}

	orderMux := http.NewServeMux()
	orderMux.HandleFunc("/orders/42", func(w http.ResponseWriter, r *http.Request) {
		d.orderHits.Add(1)
		if d.orderFail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"status":"shipped","grandTotal":"99.95","updatedAt":"2026-08-01T10:00:00Z"}`))
	})
	orderMux.HandleFunc("/orders/42/events", func(w http.ResponseWriter, r *http.Request) {
		d.orderHits.Add(1)
		if d.orderFail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"type":"order.created","payload":{"status":"pending"},"createdAt":"2026-07-30T09:00:00Z"}]`))
	})
	d.order = httptest.NewServer(orderMux)
	t.Cleanup(d.order.Close)

	paymentMux := http.NewServeMux()
	paymentMux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		d.paymentHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":7,"orderId":42,"status":"captured","amount":"99.95","createdAt":"2026-07-31T08:00:00Z"}],"total":1}`))
	})
	paymentMux.HandleFunc("/payments/7", func(w http.ResponseWriter, r *http.Request) {
		d.paymentHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"orderId":42,"status":"captured","amount":"99.95","createdAt":"2026-07-31T08:00:00Z"}`))
	})
	d.payment = httptest.NewServer(paymentMux)
	t.Cleanup(d.payment.Close)

	fulfillmentMux := http.NewServeMux()
	fulfillmentMux.HandleFunc("/fulfillment/shipments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":3,"orderId":42,"status":"shipped","trackingNumber":"TRK-42-ABCD","updatedAt":"2026-08-01T11:00:00Z"}],"total":1}`))
	})
	fulfillmentMux.HandleFunc("/fulfillment/shipments/3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":3,"orderId":42,"status":"delivered","trackingNumber":"TRK-42-ABCD","updatedAt":"2026-08-02T09:00:00Z"}`))
	})
	d.fulfillment = httptest.NewServer(fulfillmentMux)
	t.Cleanup(d.fulfillment.Close)

	return d
}

func newTestAggregator(t *testing.T, d *downstream, cache *fakeTimelineCache) *TimelineAggregator {
	t.Helper()
	var cmd redisx.Cmd
	if cache != nil {
		cmd = cache
	}
	return NewTimelineAggregator(
		d.order.Client(),
		cmd,
		time.Minute,
		d.order.URL,
		d.payment.URL,
		d.fulfillment.URL,
		testutil.Logger(t),
		observability.NewForTest(),
	)
}

func orderTicket() *SupportTicket {
	return &SupportTicket{
		ID:          "tick-1",
		Subject:     "Where is my order",
		Channel:     "email",
		ContextJSON: strPtr(`[{"type":"order","orderId":"order-42"}]`),
	}
}

func entryTypes(entries []map[string]interface{}) []string {
	types := make([]string, 0, len(entries))
	for _, entry := range entries {
		types = append(types, entry["type"].(string))
	}
	return types
}

func TestTimelineCollectFansOut(t *testing.T) {
	d := newDownstream(t)
	cache := newFakeTimelineCache()
	aggregator := newTestAggregator(t, d, cache)

	entries := aggregator.Collect(context.Background(), orderTicket())
	require.Len(t, entries, 4)
	types := entryTypes(entries)
	assert.Contains(t, types, "order")
	assert.Contains(t, types, "order-event")
	assert.Contains(t, types, "payment")
	assert.Contains(t, types, "shipment")

	// The result landed in the cache.
	assert.Contains(t, cache.store, "support:timeline:tick-1")
}

func TestTimelineCacheHitSkipsRefetch(t *testing.T) {
	d := newDownstream(t)
	cache := newFakeTimelineCache()
	aggregator := newTestAggregator(t, d, cache)
	ticket := orderTicket()

	first := aggregator.Collect(context.Background(), ticket)
	hitsAfterFirst := d.orderHits.Load() + d.paymentHits.Load()

	second := aggregator.Collect(context.Background(), ticket)
	assert.Equal(t, first, second)
	assert.Equal(t, hitsAfterFirst, d.orderHits.Load()+d.paymentHits.Load())
}

func TestTimelineExplicitRefsFetchByID(t *testing.T) {
	d := newDownstream(t)
	aggregator := newTestAggregator(t, d, nil)
	ticket := &SupportTicket{
		ID:          "tick-2",
		ContextJSON: strPtr(`[{"type":"payment","paymentId":7},{"type":"shipment","shipmentId":3}]`),
	}

	entries := aggregator.Collect(context.Background(), ticket)
	require.Len(t, entries, 2)
	types := entryTypes(entries)
	assert.Contains(t, types, "payment")
	assert.Contains(t, types, "shipment")
	// No order reference, so the order service is never called.
	assert.Equal(t, int64(0), d.orderHits.Load())
}

func TestTimelineFailsOpenOnCacheErrors(t *testing.T) {
	d := newDownstream(t)
	cache := newFakeTimelineCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	aggregator := newTestAggregator(t, d, cache)

	entries := aggregator.Collect(context.Background(), orderTicket())
	assert.Len(t, entries, 4)
}

func TestTimelineCorruptCacheIsDropped(t *testing.T) {
	d := newDownstream(t)
	cache := newFakeTimelineCache()
	cache.store["support:timeline:tick-1"] = "{corrupt"
	aggregator := newTestAggregator(t, d, cache)

	entries := aggregator.Collect(context.Background(), orderTicket())
	assert.Len(t, entries, 4)
	assert.GreaterOrEqual(t, cache.dels, 1)
}

func TestTimelineIsolatesDownstreamFailures(t *testing.T) {
	d := newDownstream(t)
	d.orderFail.Store(true)
	aggregator := newTestAggregator(t, d, nil)

	entries := aggregator.Collect(context.Background(), orderTicket())
	require.Len(t, entries, 2)
	types := entryTypes(entries)
	assert.Contains(t, types, "payment")
	assert.Contains(t, types, "shipment")
}

func TestTimelineNoRefsReturnsEmpty(t *testing.T) {
	d := newDownstream(t)
	aggregator := newTestAggregator(t, d, nil)
	ticket := &SupportTicket{ID: "tick-3", ContextJSON: strPtr(`{"note":"no linked resources"}`)}

	entries := aggregator.Collect(context.Background(), ticket)
	assert.Empty(t, entries)
	assert.Equal(t, int64(0), d.orderHits.Load())
	assert.Equal(t, int64(0), d.paymentHits.Load())
}

func TestTimelineInvalidate(t *testing.T) {
	d := newDownstream(t)
	cache := newFakeTimelineCache()
	cache.store["support:timeline:tick-1"] = "[]"
	aggregator := newTestAggregator(t, d, cache)

	aggregator.Invalidate(context.Background(), "tick-1")
	assert.NotContains(t, cache.store, "support:timeline:tick-1")
}
