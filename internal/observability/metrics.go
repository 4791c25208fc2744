package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	ordersCreated      *Counter
	orderStatusChanges *CounterVec
	paymentEvents      *CounterVec
	inventoryEvents    *CounterVec
	stockConflicts     *CounterVec
	shipmentsCreated   *Counter
	shipmentTransition *CounterVec
	priceResolutions   *CounterVec

	notificationsSent       *CounterVec
	notificationFailures    *CounterVec
	notificationRateLimited *CounterVec
	notificationSendLatency *HistogramVec
	preferenceUpdates       *Counter
	eventsProcessed         *CounterVec
	eventsDropped           *CounterVec
	rateLimiterErrors       *CounterVec

	ticketsCreated       *CounterVec
	ticketStatusChanges  *CounterVec
	conversationMessages *CounterVec
	timelineCache        *CounterVec
	timelineLatency      *HistogramVec
	timelineFailures     *CounterVec
	attachmentsStored    *Counter
	attachmentBacklog    *GaugeVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return true
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics registry initialized")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cb_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cb_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("cb_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("cb_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("cb_api_requests_error_total", "Total API requests ending in 5xx."),

		ordersCreated:      NewCounter("cb_orders_created_total", "Orders created."),
		orderStatusChanges: NewCounterVec("cb_order_status_changes_total", "Order status changes by target status.", []string{"status"}),
		paymentEvents:      NewCounterVec("cb_payment_events_total", "Payment lifecycle events by type.", []string{"type"}),
		inventoryEvents:    NewCounterVec("cb_inventory_events_total", "Inventory lifecycle events by type.", []string{"type"}),
		stockConflicts:     NewCounterVec("cb_inventory_stock_conflicts_total", "Rejected stock operations by operation.", []string{"operation"}),
		shipmentsCreated:   NewCounter("cb_shipments_created_total", "Shipments created."),
		shipmentTransition: NewCounterVec("cb_shipment_transitions_total", "Shipment status transitions by target status.", []string{"status"}),
		priceResolutions:   NewCounterVec("cb_price_resolutions_total", "Price resolutions by outcome.", []string{"outcome"}),

		notificationsSent:       NewCounterVec("cb_notifications_sent_total", "Notifications sent by channel.", []string{"channel"}),
		notificationFailures:    NewCounterVec("cb_notification_failures_total", "Notification send failures by channel.", []string{"channel"}),
		notificationRateLimited: NewCounterVec("cb_notification_rate_limited_total", "Notification sends denied by the rate limiter, by channel.", []string{"channel"}),
		notificationSendLatency: NewHistogramVec(
			"cb_notification_send_duration_seconds",
			"Notification provider send latency in seconds by channel.",
			[]string{"channel"},
			[]float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		),
		preferenceUpdates: NewCounter("cb_notification_preference_updates_total", "Notification preference upserts."),
		eventsProcessed:   NewCounterVec("cb_notification_events_processed_total", "Broker events handled by topic.", []string{"topic"}),
		eventsDropped:     NewCounterVec("cb_notification_events_dropped_total", "Broker events dropped by topic/reason.", []string{"topic", "reason"}),
		rateLimiterErrors: NewCounterVec("cb_rate_limiter_errors_total", "Rate limiter redis errors by operation.", []string{"operation"}),

		ticketsCreated:       NewCounterVec("cb_support_tickets_created_total", "Support tickets created by channel.", []string{"channel"}),
		ticketStatusChanges:  NewCounterVec("cb_support_status_changes_total", "Support ticket status changes by target status.", []string{"status"}),
		conversationMessages: NewCounterVec("cb_support_messages_total", "Support conversation messages by author type.", []string{"author"}),
		timelineCache:        NewCounterVec("cb_support_timeline_cache_total", "Timeline cache events (hit/miss/write/error/invalidate).", []string{"event"}),
		timelineLatency: NewHistogramVec(
			"cb_support_timeline_collect_duration_seconds",
			"Timeline collection latency in seconds by source.",
			[]string{"source"},
			[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		timelineFailures:  NewCounterVec("cb_support_timeline_failures_total", "Timeline collection failures by stage.", []string{"stage"}),
		attachmentsStored: NewCounter("cb_support_attachments_stored_total", "Support attachments written to storage."),
		attachmentBacklog: NewGaugeVec("cb_support_attachment_backlog", "Attachment backlog by dimension (files/bytes).", []string{"dimension"}),

		dbStats:   NewGaugeVec("cb_db_stats", "Database connection pool stats.", []string{"stat"}),
		redisUp:   NewGauge("cb_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("cb_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

// NewForTest returns a registry not bound to the process singleton.
func NewForTest() *Metrics {
	return newMetrics()
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.ordersCreated, m.orderStatusChanges, m.paymentEvents,
		m.inventoryEvents, m.stockConflicts,
		m.shipmentsCreated, m.shipmentTransition, m.priceResolutions,
		m.notificationsSent, m.notificationFailures, m.notificationRateLimited,
		m.notificationSendLatency, m.preferenceUpdates,
		m.eventsProcessed, m.eventsDropped, m.rateLimiterErrors,
		m.ticketsCreated, m.ticketStatusChanges, m.conversationMessages,
		m.timelineCache, m.timelineLatency, m.timelineFailures,
		m.attachmentsStored, m.attachmentBacklog,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) IncOrderStatusChange(status string) {
	if m == nil {
		return
	}
	m.orderStatusChanges.Inc(status)
}

func (m *Metrics) IncPaymentEvent(eventType string) {
	if m == nil {
		return
	}
	m.paymentEvents.Inc(eventType)
}

func (m *Metrics) IncInventoryEvent(eventType string) {
	if m == nil {
		return
	}
	m.inventoryEvents.Inc(eventType)
}

func (m *Metrics) IncStockConflict(operation string) {
	if m == nil {
		return
	}
	m.stockConflicts.Inc(operation)
}

func (m *Metrics) IncShipmentCreated() {
	if m == nil {
		return
	}
	m.shipmentsCreated.Inc()
}

func (m *Metrics) IncShipmentTransition(status string) {
	if m == nil {
		return
	}
	m.shipmentTransition.Inc(status)
}

func (m *Metrics) IncPriceResolution(outcome string) {
	if m == nil {
		return
	}
	m.priceResolutions.Inc(outcome)
}

func (m *Metrics) IncNotificationSent(channel string) {
	if m == nil {
		return
	}
	m.notificationsSent.Inc(channel)
}

func (m *Metrics) IncNotificationFailure(channel string) {
	if m == nil {
		return
	}
	m.notificationFailures.Inc(channel)
}

func (m *Metrics) IncNotificationRateLimited(channel string) {
	if m == nil {
		return
	}
	m.notificationRateLimited.Inc(channel)
}

func (m *Metrics) ObserveNotificationSend(channel string, dur time.Duration) {
	if m == nil {
		return
	}
	m.notificationSendLatency.Observe(dur.Seconds(), channel)
}

func (m *Metrics) IncPreferenceUpdate() {
	if m == nil {
		return
	}
	m.preferenceUpdates.Inc()
}

func (m *Metrics) IncEventProcessed(topic string) {
	if m == nil {
		return
	}
	m.eventsProcessed.Inc(topic)
}

func (m *Metrics) IncEventDropped(topic, reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.Inc(topic, reason)
}

func (m *Metrics) IncRateLimiterError(operation string) {
	if m == nil {
		return
	}
	m.rateLimiterErrors.Inc(operation)
}

func (m *Metrics) IncTicketCreated(channel string) {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc(channel)
}

func (m *Metrics) IncTicketStatusChange(status string) {
	if m == nil {
		return
	}
	m.ticketStatusChanges.Inc(status)
}

func (m *Metrics) IncConversationMessage(author string) {
	if m == nil {
		return
	}
	m.conversationMessages.Inc(author)
}

func (m *Metrics) IncTimelineCache(event string) {
	if m == nil {
		return
	}
	m.timelineCache.Inc(event)
}

func (m *Metrics) ObserveTimelineCollect(source string, dur time.Duration) {
	if m == nil {
		return
	}
	m.timelineLatency.Observe(dur.Seconds(), source)
}

func (m *Metrics) IncTimelineFailure(stage string) {
	if m == nil {
		return
	}
	m.timelineFailures.Inc(stage)
}

func (m *Metrics) IncAttachmentStored() {
	if m == nil {
		return
	}
	m.attachmentsStored.Inc()
}

func (m *Metrics) SetAttachmentBacklog(files, bytes float64) {
	if m == nil {
		return
	}
	m.attachmentBacklog.Set(files, "files")
	m.attachmentBacklog.Set(bytes, "bytes")
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, client *redis.Client) {
	if m == nil || client == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := client.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	if len(status) < 3 {
		return false
	}
	return status[0] == '5'
}
