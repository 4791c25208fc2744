package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

// Provider delivers a notification over its channel. Implementations wrap
// an email or SMS gateway.
type Provider interface {
	Send(ctx context.Context, recipient, channel string, subject *string, body string, metadata map[string]interface{}) error
}

type Service interface {
	CreateNotification(ctx context.Context, req CreateNotificationRequest) (*NotificationView, error)
	GetNotification(ctx context.Context, notificationID uint) (*NotificationView, error)
	ListNotifications(ctx context.Context, filter ListNotificationsFilter) ([]NotificationView, int64, error)
	SendNotification(ctx context.Context, notificationID uint) (*NotificationView, error)
	FailNotification(ctx context.Context, notificationID uint, reason string) (*NotificationView, error)
	RescheduleNotification(ctx context.Context, notificationID uint, sendAfter *time.Time) (*NotificationView, error)
	GetEvents(ctx context.Context, notificationID uint) ([]EventView, error)
	DeleteNotification(ctx context.Context, notificationID uint) error
	ScheduleBatch(ctx context.Context, req BatchRequest) (*JobView, error)

	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*TemplateView, error)
	GetTemplate(ctx context.Context, templateID string) (*TemplateView, error)
	ListTemplates(ctx context.Context, filter ListTemplatesFilter) ([]TemplateView, int64, error)
	UpdateTemplate(ctx context.Context, templateID string, req UpdateTemplateRequest) (*TemplateView, error)
	DeleteTemplate(ctx context.Context, templateID string) error

	ListJobs(ctx context.Context, filter ListJobsFilter) ([]JobView, int64, error)
	GetJob(ctx context.Context, jobID uint) (*JobView, error)

	GetPreferences(ctx context.Context, customerID int64) (*PreferencesView, error)
	UpdatePreferences(ctx context.Context, customerID int64, entries []PreferenceEntry) (*PreferencesView, error)
}

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     NotificationRepo
	metrics  *observability.Metrics
	limiter  *RateLimiter
	provider Provider
	producer broker.Producer
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo NotificationRepo, metrics *observability.Metrics, limiter *RateLimiter, provider Provider, producer broker.Producer) Service {
	return &service{
		db:       db,
		log:      baseLog.With("service", "NotificationService"),
		repo:     repo,
		metrics:  metrics,
		limiter:  limiter,
		provider: provider,
		producer: producer,
	}
}

func (s *service) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*NotificationView, error) {
	recipient := strings.TrimSpace(req.Recipient)
	channel := strings.TrimSpace(req.Channel)
	if recipient == "" || len(recipient) > 255 {
		return nil, apierr.BadRequest("validation_error", errors.New("recipient must be non-empty"))
	}
	if channel == "" || len(channel) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("channel must be non-empty"))
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("body must be non-empty"))
	}

	notification := &Notification{
		Recipient: recipient,
		Channel:   channel,
		Subject:   req.Subject,
		Body:      req.Body,
		Template:  req.Template,
		Metadata:  req.Metadata,
		Status:    "pending",
		SendAfter: req.SendAfter,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Create(ctx, tx, notification); err != nil {
			return err
		}
		return s.repo.AddEvent(ctx, tx, notification.ID, "created", notification.Status)
	})
	if err != nil {
		return nil, err
	}
	view := NewNotificationView(notification)
	return &view, nil
}

func (s *service) GetNotification(ctx context.Context, notificationID uint) (*NotificationView, error) {
	notification, err := s.requireNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	view := NewNotificationView(notification)
	return &view, nil
}

func (s *service) ListNotifications(ctx context.Context, filter ListNotificationsFilter) ([]NotificationView, int64, error) {
	notifications, total, err := s.repo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]NotificationView, 0, len(notifications))
	for _, notification := range notifications {
		views = append(views, NewNotificationView(notification))
	}
	return views, total, nil
}

func (s *service) SendNotification(ctx context.Context, notificationID uint) (*NotificationView, error) {
	notification, err := s.requireNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.Status == "sent" {
		return nil, apierr.Conflict("already_sent", errors.New("Notification already sent"))
	}
	return s.deliver(ctx, notification)
}

// deliver runs the rate limit check, pushes through the provider and
// records the sent state.
func (s *service) deliver(ctx context.Context, notification *Notification) (*NotificationView, error) {
	start := time.Now()
	if !s.allow(ctx, notification.Channel, 1) {
		return nil, apierr.TooManyRequests("rate_limit_exceeded", errors.New("Rate limit exceeded"))
	}
	if s.provider != nil {
		err := s.provider.Send(ctx, notification.Recipient, notification.Channel, notification.Subject, notification.Body, notification.Metadata)
		if err != nil {
			return nil, err
		}
	}

	sentAt := time.Now().UTC()
	notification.Status = "sent"
	notification.SentAt = &sentAt
	notification.ErrorMessage = nil
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, notification.ID, "sent", sentAt.Format(time.RFC3339)); err != nil {
			return err
		}
		_, err := s.repo.Save(ctx, tx, notification)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncNotificationSent(notification.Channel)
	s.metrics.ObserveNotificationSend(notification.Channel, time.Since(start))
	s.publish(ctx, "notification.sent.v1", map[string]interface{}{
		"notification": notificationEventPayload(notification),
		"status":       notification.Status,
	})

	updated, err := s.repo.GetByID(ctx, nil, notification.ID)
	if err != nil {
		return nil, err
	}
	view := NewNotificationView(updated)
	return &view, nil
}

func (s *service) FailNotification(ctx context.Context, notificationID uint, reason string) (*NotificationView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 255 {
		return nil, apierr.BadRequest("validation_error", errors.New("message must be non-empty"))
	}
	notification, err := s.requireNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	notification.Status = "failed"
	notification.SentAt = nil
	notification.ErrorMessage = &reason
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, notification.ID, "failed", reason); err != nil {
			return err
		}
		_, err := s.repo.Save(ctx, tx, notification)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncNotificationFailure(notification.Channel)
	s.publish(ctx, "notification.failed.v1", map[string]interface{}{
		"notification": notificationEventPayload(notification),
		"status":       notification.Status,
		"reason":       reason,
	})

	updated, err := s.repo.GetByID(ctx, nil, notification.ID)
	if err != nil {
		return nil, err
	}
	view := NewNotificationView(updated)
	return &view, nil
}

func (s *service) RescheduleNotification(ctx context.Context, notificationID uint, sendAfter *time.Time) (*NotificationView, error) {
	notification, err := s.requireNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	payload := "cleared"
	if sendAfter != nil {
		payload = sendAfter.UTC().Format(time.RFC3339)
	}
	notification.SendAfter = sendAfter
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, notification.ID, "rescheduled", payload); err != nil {
			return err
		}
		_, err := s.repo.Save(ctx, tx, notification)
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, nil, notification.ID)
	if err != nil {
		return nil, err
	}
	view := NewNotificationView(updated)
	return &view, nil
}

func (s *service) GetEvents(ctx context.Context, notificationID uint) ([]EventView, error) {
	notification, err := s.requireNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	return NewEventViews(notification.Events), nil
}

func (s *service) DeleteNotification(ctx context.Context, notificationID uint) error {
	notification, err := s.repo.GetByID(ctx, nil, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.repo.Delete(ctx, nil, notification)
}

func (s *service) ScheduleBatch(ctx context.Context, req BatchRequest) (*JobView, error) {
	template, err := s.repo.GetTemplate(ctx, nil, strings.TrimSpace(req.TemplateID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("template_not_found", errors.New("Template not found"))
		}
		return nil, err
	}
	if len(req.Recipients) == 0 {
		return nil, apierr.BadRequest("empty_batch", errors.New("recipients required"))
	}
	for i, entry := range req.Recipients {
		if strings.TrimSpace(entry.Recipient) == "" {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("recipients[%d] must be non-empty", i))
		}
	}
	if !s.allow(ctx, template.Channel, int64(len(req.Recipients))) {
		return nil, apierr.TooManyRequests("rate_limit_exceeded", errors.New("Rate limit exceeded"))
	}

	job := &NotificationJob{
		TemplateID:   &template.ID,
		Status:       "processing",
		ScheduledFor: req.ScheduledFor,
		TotalCount:   len(req.Recipients),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CreateJob(ctx, tx, job); err != nil {
			return err
		}
		for _, entry := range req.Recipients {
			metadata := map[string]interface{}{}
			for key, value := range template.Metadata {
				metadata[key] = value
			}
			for key, value := range entry.Metadata {
				metadata[key] = value
			}
			rendered := &Notification{
				Recipient: strings.TrimSpace(entry.Recipient),
				Channel:   template.Channel,
				Subject:   renderOptional(template.Subject, metadata),
				Body:      renderTemplate(template.Body, metadata),
				Template:  &template.ID,
				Metadata:  metadata,
				Status:    "pending",
				SendAfter: req.ScheduledFor,
				JobID:     &job.ID,
			}
			if _, err := s.repo.Create(ctx, tx, rendered); err != nil {
				return err
			}
		}
		job.Status = "completed"
		job.ProcessedCount = len(req.Recipients)
		_, err := s.repo.SaveJob(ctx, tx, job)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("batch scheduled",
		"job_id", job.ID,
		"template_id", template.ID,
		"recipients", len(req.Recipients))
	view := NewJobView(job, false)
	return &view, nil
}

func (s *service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*TemplateView, error) {
	name := strings.TrimSpace(req.Name)
	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	if name == "" || len(name) > 64 {
		return nil, apierr.BadRequest("validation_error", errors.New("name must be non-empty"))
	}
	if channel == "" || len(channel) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("channel must be non-empty"))
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("body must be non-empty"))
	}
	locale := "en-us"
	if req.Locale != nil {
		cleaned := strings.ToLower(strings.TrimSpace(*req.Locale))
		if len(cleaned) < 2 || len(cleaned) > 10 {
			return nil, apierr.BadRequest("validation_error", errors.New("locale must be between 2 and 10 characters"))
		}
		locale = cleaned
	}
	version := 1
	if req.Version != nil {
		if *req.Version < 1 {
			return nil, apierr.BadRequest("validation_error", errors.New("version must be positive"))
		}
		version = *req.Version
	}

	if _, err := s.repo.FindTemplateVersion(ctx, nil, name, locale, version); err == nil {
		return nil, apierr.Conflict("template_exists", errors.New("Template already exists"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	template := &NotificationTemplate{
		ID:       uuid.NewString(),
		Name:     name,
		Channel:  channel,
		Locale:   locale,
		Version:  version,
		Subject:  req.Subject,
		Body:     req.Body,
		Metadata: req.Metadata,
	}
	if _, err := s.repo.CreateTemplate(ctx, nil, template); err != nil {
		return nil, err
	}
	s.log.Info("template created", "template_id", template.ID, "name", name, "version", version)
	view := NewTemplateView(template)
	return &view, nil
}

func (s *service) GetTemplate(ctx context.Context, templateID string) (*TemplateView, error) {
	template, err := s.requireTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	view := NewTemplateView(template)
	return &view, nil
}

func (s *service) ListTemplates(ctx context.Context, filter ListTemplatesFilter) ([]TemplateView, int64, error) {
	filter.Channel = strings.ToLower(strings.TrimSpace(filter.Channel))
	filter.Locale = strings.ToLower(strings.TrimSpace(filter.Locale))
	templates, total, err := s.repo.ListTemplates(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]TemplateView, 0, len(templates))
	for _, template := range templates {
		views = append(views, NewTemplateView(template))
	}
	return views, total, nil
}

func (s *service) UpdateTemplate(ctx context.Context, templateID string, req UpdateTemplateRequest) (*TemplateView, error) {
	template, err := s.requireTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		cleaned := strings.TrimSpace(*req.Name)
		if cleaned == "" || len(cleaned) > 64 {
			return nil, apierr.BadRequest("validation_error", errors.New("name must be non-empty"))
		}
		template.Name = cleaned
	}
	if req.Channel != nil {
		cleaned := strings.ToLower(strings.TrimSpace(*req.Channel))
		if cleaned == "" || len(cleaned) > 32 {
			return nil, apierr.BadRequest("validation_error", errors.New("channel must be non-empty"))
		}
		template.Channel = cleaned
	}
	if req.Locale != nil {
		cleaned := strings.ToLower(strings.TrimSpace(*req.Locale))
		if len(cleaned) < 2 || len(cleaned) > 10 {
			return nil, apierr.BadRequest("validation_error", errors.New("locale must be between 2 and 10 characters"))
		}
		template.Locale = cleaned
	}
	if req.Version != nil {
		if *req.Version < 1 {
			return nil, apierr.BadRequest("validation_error", errors.New("version must be positive"))
		}
		template.Version = *req.Version
	}
	if req.Subject != nil {
		template.Subject = req.Subject
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" {
			return nil, apierr.BadRequest("validation_error", errors.New("body must be non-empty"))
		}
		template.Body = *req.Body
	}
	if req.Metadata != nil {
		template.Metadata = *req.Metadata
	}

	if existing, err := s.repo.FindTemplateVersion(ctx, nil, template.Name, template.Locale, template.Version); err == nil {
		if existing.ID != template.ID {
			return nil, apierr.Conflict("template_exists", errors.New("Template already exists"))
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.repo.SaveTemplate(ctx, nil, template); err != nil {
		return nil, err
	}
	view := NewTemplateView(template)
	return &view, nil
}

func (s *service) DeleteTemplate(ctx context.Context, templateID string) error {
	template, err := s.requireTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	return s.repo.DeleteTemplate(ctx, nil, template)
}

func (s *service) ListJobs(ctx context.Context, filter ListJobsFilter) ([]JobView, int64, error) {
	jobs, total, err := s.repo.ListJobs(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, NewJobView(job, false))
	}
	return views, total, nil
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*JobView, error) {
	job, err := s.repo.GetJob(ctx, nil, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job_not_found", errors.New("Job not found"))
		}
		return nil, err
	}
	view := NewJobView(job, true)
	return &view, nil
}

func (s *service) GetPreferences(ctx context.Context, customerID int64) (*PreferencesView, error) {
	preferences, err := s.repo.GetPreferences(ctx, nil, customerID)
	if err != nil {
		return nil, err
	}
	return &PreferencesView{
		CustomerID:  customerID,
		Preferences: preferenceEntries(preferences),
	}, nil
}

func (s *service) UpdatePreferences(ctx context.Context, customerID int64, entries []PreferenceEntry) (*PreferencesView, error) {
	seen := map[string]bool{}
	for _, entry := range entries {
		channel := strings.ToLower(strings.TrimSpace(entry.Channel))
		if channel == "" || len(channel) > 32 {
			return nil, apierr.BadRequest("validation_error", errors.New("channel must be non-empty"))
		}
		if seen[channel] {
			return nil, apierr.BadRequest("duplicate_channel", errors.New("duplicate channel entries are not allowed"))
		}
		seen[channel] = true
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			pref := &Preference{
				CustomerID: customerID,
				Channel:    strings.ToLower(strings.TrimSpace(entry.Channel)),
				OptIn:      entry.OptIn,
			}
			if err := s.repo.UpsertPreference(ctx, tx, pref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetPreferences(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for range updated.Preferences {
		s.metrics.IncPreferenceUpdate()
	}
	prefs := make([]map[string]interface{}, 0, len(updated.Preferences))
	for _, entry := range updated.Preferences {
		prefs = append(prefs, map[string]interface{}{
			"channel": entry.Channel,
			"optIn":   entry.OptIn,
		})
	}
	s.publish(ctx, "notification.preference.updated.v1", map[string]interface{}{
		"customer_id": customerID,
		"preferences": prefs,
	})
	return updated, nil
}

func (s *service) requireNotification(ctx context.Context, notificationID uint) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, nil, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("notification_not_found", errors.New("Notification not found"))
		}
		return nil, err
	}
	return notification, nil
}

func (s *service) requireTemplate(ctx context.Context, templateID string) (*NotificationTemplate, error) {
	template, err := s.repo.GetTemplate(ctx, nil, strings.TrimSpace(templateID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("template_not_found", errors.New("Template not found"))
		}
		return nil, err
	}
	return template, nil
}

func (s *service) allow(ctx context.Context, channel string, amount int64) bool {
	if s.limiter == nil {
		return true
	}
	if s.limiter.Allow(ctx, channel, amount) {
		return true
	}
	s.metrics.IncNotificationRateLimited(channel)
	return false
}

func (s *service) publish(ctx context.Context, topic string, payload map[string]interface{}) {
	if s.producer == nil {
		return
	}
	s.producer.Publish(ctx, topic, payload)
}

func notificationEventPayload(n *Notification) map[string]interface{} {
	return map[string]interface{}{
		"id":        n.ID,
		"channel":   n.Channel,
		"recipient": maskRecipient(n.Recipient),
		"template":  n.Template,
		"sendAfter": n.SendAfter,
		"sentAt":    n.SentAt,
	}
}

func preferenceEntries(preferences []Preference) []PreferenceEntry {
	entries := make([]PreferenceEntry, 0, len(preferences))
	for _, pref := range preferences {
		updatedAt := pref.UpdatedAt.UTC()
		entries = append(entries, PreferenceEntry{
			Channel:   pref.Channel,
			OptIn:     pref.OptIn,
			UpdatedAt: &updatedAt,
		})
	}
	return entries
}

// renderTemplate substitutes {key} placeholders from metadata. Unknown
// keys are left literal so a bad template never drops content.
func renderTemplate(value string, metadata map[string]interface{}) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); {
		open := strings.IndexByte(value[i:], '{')
		if open < 0 {
			b.WriteString(value[i:])
			break
		}
		open += i
		b.WriteString(value[i:open])
		closing := strings.IndexByte(value[open:], '}')
		if closing < 0 {
			b.WriteString(value[open:])
			break
		}
		closing += open
		key := value[open+1 : closing]
		if replacement, ok := metadata[key]; ok && key != "" {
			b.WriteString(fmt.Sprint(replacement))
		} else {
			b.WriteString(value[open : closing+1])
		}
		i = closing + 1
	}
	return b.String()
}

func renderOptional(value *string, metadata map[string]interface{}) *string {
	if value == nil {
		return nil
	}
	rendered := renderTemplate(*value, metadata)
	return &rendered
}
