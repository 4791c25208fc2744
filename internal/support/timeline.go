package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/redisx"
)

// TimelineAggregator pulls order, payment and shipment history for the
// references found in a ticket's context. All failures degrade to a smaller
// timeline, never to an error: remote services and the cache are both
// best-effort.
type TimelineAggregator struct {
	client          *http.Client
	cache           redisx.Cmd
	cacheTTL        time.Duration
	orderBase       string
	paymentBase     string
	fulfillmentBase string
	log             *logger.Logger
	metrics         *observability.Metrics
}

func NewTimelineAggregator(
	client *http.Client,
	cache redisx.Cmd,
	cacheTTL time.Duration,
	orderBase, paymentBase, fulfillmentBase string,
	baseLog *logger.Logger,
	metrics *observability.Metrics,
) *TimelineAggregator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TimelineAggregator{
		client:          client,
		cache:           cache,
		cacheTTL:        cacheTTL,
		orderBase:       strings.TrimRight(orderBase, "/"),
		paymentBase:     strings.TrimRight(paymentBase, "/"),
		fulfillmentBase: strings.TrimRight(fulfillmentBase, "/"),
		log:             baseLog.With("service", "TimelineAggregator"),
		metrics:         metrics,
	}
}

func timelineCacheKey(ticketID string) string {
	return "support:timeline:" + ticketID
}

// Collect returns external timeline entries for the ticket, serving from the
// redis cache when possible.
func (ta *TimelineAggregator) Collect(ctx context.Context, ticket *SupportTicket) []map[string]interface{} {
	if ta == nil {
		return []map[string]interface{}{}
	}
	key := timelineCacheKey(ticket.ID)

	if ta.cache != nil && ta.cacheTTL > 0 {
		cacheStart := time.Now()
		cached, err := ta.cache.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			ta.metrics.IncTimelineCache("miss")
		case err != nil:
			ta.metrics.IncTimelineFailure("cache")
			ta.metrics.IncTimelineCache("error")
			ta.metrics.IncTimelineCache("miss")
			ta.log.Warn("timeline cache read failed", "ticketId", ticket.ID, "error", err)
		case cached == "":
			ta.metrics.IncTimelineCache("miss")
		default:
			var entries []map[string]interface{}
			if err := json.Unmarshal([]byte(cached), &entries); err != nil {
				ta.metrics.IncTimelineFailure("cache_decode")
				_ = ta.cache.Del(ctx, key).Err()
				ta.metrics.IncTimelineCache("miss")
			} else {
				ta.metrics.IncTimelineCache("hit")
				ta.metrics.ObserveTimelineCollect("cache", time.Since(cacheStart))
				return entries
			}
		}
	}

	remoteStart := time.Now()
	entries := ta.buildEntries(ctx, ticket)
	ta.metrics.ObserveTimelineCollect("remote", time.Since(remoteStart))

	if ta.cache != nil && ta.cacheTTL > 0 {
		data, err := json.Marshal(entries)
		if err == nil {
			err = ta.cache.Set(ctx, key, data, ta.cacheTTL).Err()
		}
		if err != nil {
			ta.metrics.IncTimelineFailure("cache")
			ta.metrics.IncTimelineCache("error")
			ta.log.Warn("timeline cache write failed", "ticketId", ticket.ID, "error", err)
		} else {
			ta.metrics.IncTimelineCache("write")
		}
	}
	return entries
}

// Invalidate drops the cached timeline for a ticket.
func (ta *TimelineAggregator) Invalidate(ctx context.Context, ticketID string) {
	if ta == nil || ta.cache == nil || ta.cacheTTL <= 0 {
		return
	}
	if err := ta.cache.Del(ctx, timelineCacheKey(ticketID)).Err(); err != nil {
		ta.metrics.IncTimelineFailure("cache")
		ta.metrics.IncTimelineCache("error")
		ta.log.Warn("timeline cache invalidate failed", "ticketId", ticketID, "error", err)
		return
	}
	ta.metrics.IncTimelineCache("invalidate")
}

type timelineRefs struct {
	orderID     int64
	hasOrder    bool
	paymentIDs  []int64
	shipmentIDs []int64
}

// coerceRefID extracts an integer id from a context value. Strings have
// non-digit characters stripped so values like "order-42" still resolve.
func coerceRefID(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		var digits strings.Builder
		for _, ch := range v {
			if ch >= '0' && ch <= '9' {
				digits.WriteRune(ch)
			}
		}
		if digits.Len() == 0 {
			return 0, false
		}
		var parsed int64
		if _, err := fmt.Sscanf(digits.String(), "%d", &parsed); err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func extractRefs(entries []map[string]interface{}) timelineRefs {
	refs := timelineRefs{}
	paymentSeen := map[int64]bool{}
	shipmentSeen := map[int64]bool{}
	for _, entry := range entries {
		entryType := strings.ToLower(fmt.Sprint(entry["type"]))
		switch entryType {
		case "order":
			if id, ok := firstRefID(entry, "orderId", "id"); ok {
				refs.orderID = id
				refs.hasOrder = true
			}
		case "payment":
			if id, ok := firstRefID(entry, "paymentId", "id"); ok && !paymentSeen[id] {
				paymentSeen[id] = true
				refs.paymentIDs = append(refs.paymentIDs, id)
			}
		case "shipment":
			if id, ok := firstRefID(entry, "shipmentId", "id"); ok && !shipmentSeen[id] {
				shipmentSeen[id] = true
				refs.shipmentIDs = append(refs.shipmentIDs, id)
			}
		}
	}
	sort.Slice(refs.paymentIDs, func(i, j int) bool { return refs.paymentIDs[i] < refs.paymentIDs[j] })
	sort.Slice(refs.shipmentIDs, func(i, j int) bool { return refs.shipmentIDs[i] < refs.shipmentIDs[j] })
	return refs
}

func firstRefID(entry map[string]interface{}, keys ...string) (int64, bool) {
	for _, key := range keys {
		if raw, ok := entry[key]; ok {
			if id, ok := coerceRefID(raw); ok {
				return id, true
			}
		}
	}
	return 0, false
}

type fetchTask func(ctx context.Context) ([]map[string]interface{}, error)

func (ta *TimelineAggregator) buildEntries(ctx context.Context, ticket *SupportTicket) []map[string]interface{} {
	refs := extractRefs(parseContextEntries(ticket.ContextJSON))

	var tasks []fetchTask
	if refs.hasOrder && ta.orderBase != "" {
		tasks = append(tasks, func(ctx context.Context) ([]map[string]interface{}, error) {
			return ta.fetchOrderData(ctx, refs.orderID)
		})
	}
	if ta.paymentBase != "" {
		switch {
		case len(refs.paymentIDs) > 0:
			tasks = append(tasks, func(ctx context.Context) ([]map[string]interface{}, error) {
				return ta.fetchPaymentsByIDs(ctx, refs.paymentIDs)
			})
		case refs.hasOrder:
			tasks = append(tasks, func(ctx context.Context) ([]map[string]interface{}, error) {
				return ta.fetchPaymentsForOrder(ctx, refs.orderID)
			})
		}
	}
	if ta.fulfillmentBase != "" {
		switch {
		case len(refs.shipmentIDs) > 0:
			tasks = append(tasks, func(ctx context.Context) ([]map[string]interface{}, error) {
				return ta.fetchShipmentsByIDs(ctx, refs.shipmentIDs)
			})
		case refs.hasOrder:
			tasks = append(tasks, func(ctx context.Context) ([]map[string]interface{}, error) {
				return ta.fetchShipmentsForOrder(ctx, refs.orderID)
			})
		}
	}

	if len(tasks) == 0 {
		return []map[string]interface{}{}
	}

	results := make([][]map[string]interface{}, len(tasks))
	g, groupCtx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			entries, err := task(groupCtx)
			if err != nil {
				ta.metrics.IncTimelineFailure("aggregate")
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	aggregated := []map[string]interface{}{}
	for _, entries := range results {
		aggregated = append(aggregated, entries...)
	}
	return aggregated
}

func (ta *TimelineAggregator) fetchOrderData(ctx context.Context, orderID int64) ([]map[string]interface{}, error) {
	entries := []map[string]interface{}{}
	order := ta.getJSON(ctx, fmt.Sprintf("%s/orders/%d", ta.orderBase, orderID))
	if data, ok := order.(map[string]interface{}); ok {
		entries = append(entries, map[string]interface{}{
			"source":    "order-service",
			"type":      "order",
			"orderId":   data["id"],
			"status":    data["status"],
			"total":     data["grandTotal"],
			"timestamp": pickTimestamp(data),
		})
	}
	events := ta.getJSON(ctx, fmt.Sprintf("%s/orders/%d/events", ta.orderBase, orderID))
	if list, ok := events.([]interface{}); ok {
		for _, item := range list {
			if event, ok := item.(map[string]interface{}); ok {
				entries = append(entries, map[string]interface{}{
					"source":    "order-service",
					"type":      "order-event",
					"eventType": event["type"],
					"payload":   event["payload"],
					"timestamp": event["createdAt"],
				})
			}
		}
	}
	return entries, nil
}

func (ta *TimelineAggregator) fetchPaymentsByIDs(ctx context.Context, paymentIDs []int64) ([]map[string]interface{}, error) {
	entries := []map[string]interface{}{}
	for _, paymentID := range paymentIDs {
		payload := ta.getJSON(ctx, fmt.Sprintf("%s/payments/%d", ta.paymentBase, paymentID))
		if data, ok := payload.(map[string]interface{}); ok {
			entries = append(entries, formatPaymentEntry(data))
		}
	}
	return entries, nil
}

func (ta *TimelineAggregator) fetchPaymentsForOrder(ctx context.Context, orderID int64) ([]map[string]interface{}, error) {
	payload := ta.getJSON(ctx, fmt.Sprintf("%s/payments?orderId=%d&limit=50", ta.paymentBase, orderID))
	return formatListEntries(payload, formatPaymentEntry), nil
}

func (ta *TimelineAggregator) fetchShipmentsByIDs(ctx context.Context, shipmentIDs []int64) ([]map[string]interface{}, error) {
	entries := []map[string]interface{}{}
	for _, shipmentID := range shipmentIDs {
		payload := ta.getJSON(ctx, fmt.Sprintf("%s/fulfillment/shipments/%d", ta.fulfillmentBase, shipmentID))
		if data, ok := payload.(map[string]interface{}); ok {
			entries = append(entries, formatShipmentEntry(data))
		}
	}
	return entries, nil
}

func (ta *TimelineAggregator) fetchShipmentsForOrder(ctx context.Context, orderID int64) ([]map[string]interface{}, error) {
	payload := ta.getJSON(ctx, fmt.Sprintf("%s/fulfillment/shipments?orderId=%d&limit=50", ta.fulfillmentBase, orderID))
	return formatListEntries(payload, formatShipmentEntry), nil
}

func formatListEntries(payload interface{}, format func(map[string]interface{}) map[string]interface{}) []map[string]interface{} {
	entries := []map[string]interface{}{}
	envelope, ok := payload.(map[string]interface{})
	if !ok {
		return entries
	}
	items, ok := envelope["items"].([]interface{})
	if !ok {
		return entries
	}
	for _, item := range items {
		if data, ok := item.(map[string]interface{}); ok {
			entries = append(entries, format(data))
		}
	}
	return entries
}

func formatPaymentEntry(data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"source":    "payment-service",
		"type":      "payment",
		"paymentId": data["id"],
		"orderId":   data["orderId"],
		"status":    data["status"],
		"amount":    data["amount"],
		"timestamp": pickTimestamp(data),
	}
}

func formatShipmentEntry(data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"source":         "fulfillment-service",
		"type":           "shipment",
		"shipmentId":     data["id"],
		"orderId":        data["orderId"],
		"status":         data["status"],
		"trackingNumber": data["trackingNumber"],
		"timestamp":      pickTimestamp(data),
	}
}

func pickTimestamp(data map[string]interface{}) interface{} {
	if updated, ok := data["updatedAt"].(string); ok && updated != "" {
		return updated
	}
	if created, ok := data["createdAt"].(string); ok && created != "" {
		return created
	}
	return nil
}

// getJSON fetches and decodes one downstream resource. Any transport, status
// or decode problem counts as an http-stage failure and reads as nil.
func (ta *TimelineAggregator) getJSON(ctx context.Context, url string) interface{} {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		ta.metrics.IncTimelineFailure("http")
		return nil
	}
	resp, err := ta.client.Do(req)
	if err != nil {
		ta.metrics.IncTimelineFailure("http")
		ta.log.Warn("timeline fetch failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		ta.metrics.IncTimelineFailure("http")
		return nil
	}
	var payload interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		ta.metrics.IncTimelineFailure("http")
		return nil
	}
	return payload
}
