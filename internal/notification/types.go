package notification

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID           uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	Recipient    string             `gorm:"size:255;not null;index" json:"recipient"`
	Channel      string             `gorm:"size:32;not null;index" json:"channel"`
	Subject      *string            `gorm:"size:255" json:"subject"`
	Body         string             `gorm:"type:text;not null" json:"body"`
	Template     *string            `gorm:"size:128" json:"template"`
	Metadata     datatypes.JSONMap  `gorm:"column:metadata_json" json:"metadata"`
	Status       string             `gorm:"size:32;not null;default:pending" json:"status"`
	ErrorMessage *string            `gorm:"column:error_message;size:255" json:"error_message"`
	SendAfter    *time.Time         `gorm:"column:send_after" json:"send_after"`
	SentAt       *time.Time         `gorm:"column:sent_at" json:"sent_at"`
	JobID        *uint              `gorm:"column:job_id;index" json:"job_id"`
	Events       []NotificationEvent `gorm:"constraint:OnDelete:CASCADE;foreignKey:NotificationID;references:ID" json:"events"`
	CreatedAt    time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

type NotificationEvent struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	NotificationID uint      `gorm:"column:notification_id;not null;index" json:"notification_id"`
	Type           string    `gorm:"size:64;not null" json:"type"`
	Payload        string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (NotificationEvent) TableName() string { return "notification_events" }

type NotificationTemplate struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	Name      string            `gorm:"size:64;not null;uniqueIndex:uq_notification_template_version" json:"name"`
	Channel   string            `gorm:"size:32;not null;index" json:"channel"`
	Locale    string            `gorm:"size:10;not null;default:en-us;uniqueIndex:uq_notification_template_version" json:"locale"`
	Version   int               `gorm:"not null;default:1;uniqueIndex:uq_notification_template_version" json:"version"`
	Subject   *string           `gorm:"type:text" json:"subject"`
	Body      string            `gorm:"type:text;not null" json:"body"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata_json" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (NotificationTemplate) TableName() string { return "notification_templates" }

type NotificationJob struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	TemplateID     *string        `gorm:"column:template_id;size:36;index" json:"template_id"`
	Status         string         `gorm:"size:32;not null;default:queued" json:"status"`
	ScheduledFor   *time.Time     `gorm:"column:scheduled_for" json:"scheduled_for"`
	TotalCount     int            `gorm:"column:total_count;not null;default:0" json:"total_count"`
	ProcessedCount int            `gorm:"column:processed_count;not null;default:0" json:"processed_count"`
	ErrorMessage   *string        `gorm:"column:error_message;size:255" json:"error_message"`
	Notifications  []Notification `gorm:"foreignKey:JobID;references:ID" json:"notifications"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (NotificationJob) TableName() string { return "notification_jobs" }

type Preference struct {
	CustomerID int64     `gorm:"column:customer_id;primaryKey" json:"customer_id"`
	Channel    string    `gorm:"size:32;primaryKey" json:"channel"`
	OptIn      bool      `gorm:"column:opt_in;not null;default:true" json:"opt_in"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Preference) TableName() string { return "notification_preferences" }

type CreateNotificationRequest struct {
	Recipient string                 `json:"recipient"`
	Channel   string                 `json:"channel"`
	Subject   *string                `json:"subject"`
	Body      string                 `json:"body"`
	Template  *string                `json:"template"`
	Metadata  map[string]interface{} `json:"metadata"`
	SendAfter *time.Time             `json:"sendAfter"`
}

type FailRequest struct {
	Message string `json:"message"`
}

type RescheduleRequest struct {
	SendAfter *time.Time `json:"sendAfter"`
}

type BatchRecipient struct {
	Recipient string                 `json:"recipient"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type BatchRequest struct {
	TemplateID   string           `json:"templateId"`
	Recipients   []BatchRecipient `json:"recipients"`
	ScheduledFor *time.Time       `json:"scheduledFor"`
}

type CreateTemplateRequest struct {
	Name     string                 `json:"name"`
	Channel  string                 `json:"channel"`
	Locale   *string                `json:"locale"`
	Version  *int                   `json:"version"`
	Subject  *string                `json:"subject"`
	Body     string                 `json:"body"`
	Metadata map[string]interface{} `json:"metadata"`
}

type UpdateTemplateRequest struct {
	Name     *string                 `json:"name"`
	Channel  *string                 `json:"channel"`
	Locale   *string                 `json:"locale"`
	Version  *int                    `json:"version"`
	Subject  *string                 `json:"subject"`
	Body     *string                 `json:"body"`
	Metadata *map[string]interface{} `json:"metadata"`
}

type PreferenceEntry struct {
	Channel   string     `json:"channel"`
	OptIn     bool       `json:"optIn"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type UpdatePreferencesRequest struct {
	Preferences []PreferenceEntry `json:"preferences"`
}

type NotificationView struct {
	ID           uint                   `json:"id"`
	Recipient    string                 `json:"recipient"`
	Channel      string                 `json:"channel"`
	Subject      *string                `json:"subject"`
	Body         string                 `json:"body"`
	Template     *string                `json:"template"`
	Metadata     map[string]interface{} `json:"metadata"`
	Status       string                 `json:"status"`
	ErrorMessage *string                `json:"errorMessage"`
	SendAfter    *time.Time             `json:"sendAfter"`
	SentAt       *time.Time             `json:"sentAt"`
	JobID        *uint                  `json:"jobId"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

type EventView struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

type TemplateView struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Channel   string                 `json:"channel"`
	Locale    string                 `json:"locale"`
	Version   int                    `json:"version"`
	Subject   *string                `json:"subject"`
	Body      string                 `json:"body"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

type JobView struct {
	ID             uint               `json:"id"`
	TemplateID     *string            `json:"templateId"`
	Status         string             `json:"status"`
	ScheduledFor   *time.Time         `json:"scheduledFor"`
	TotalCount     int                `json:"totalCount"`
	ProcessedCount int                `json:"processedCount"`
	ErrorMessage   *string            `json:"errorMessage"`
	Notifications  []NotificationView `json:"notifications,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type PreferencesView struct {
	CustomerID  int64             `json:"customerId"`
	Preferences []PreferenceEntry `json:"preferences"`
}

func NewNotificationView(n *Notification) NotificationView {
	return NotificationView{
		ID:           n.ID,
		Recipient:    n.Recipient,
		Channel:      n.Channel,
		Subject:      n.Subject,
		Body:         n.Body,
		Template:     n.Template,
		Metadata:     n.Metadata,
		Status:       n.Status,
		ErrorMessage: n.ErrorMessage,
		SendAfter:    n.SendAfter,
		SentAt:       n.SentAt,
		JobID:        n.JobID,
		CreatedAt:    n.CreatedAt.UTC(),
		UpdatedAt:    n.UpdatedAt.UTC(),
	}
}

func NewEventViews(events []NotificationEvent) []EventView {
	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, EventView{
			ID:        event.ID,
			Type:      event.Type,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt.UTC(),
		})
	}
	return views
}

func NewTemplateView(t *NotificationTemplate) TemplateView {
	return TemplateView{
		ID:        t.ID,
		Name:      t.Name,
		Channel:   t.Channel,
		Locale:    t.Locale,
		Version:   t.Version,
		Subject:   t.Subject,
		Body:      t.Body,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func NewJobView(j *NotificationJob, includeNotifications bool) JobView {
	view := JobView{
		ID:             j.ID,
		TemplateID:     j.TemplateID,
		Status:         j.Status,
		ScheduledFor:   j.ScheduledFor,
		TotalCount:     j.TotalCount,
		ProcessedCount: j.ProcessedCount,
		ErrorMessage:   j.ErrorMessage,
		CreatedAt:      j.CreatedAt.UTC(),
		UpdatedAt:      j.UpdatedAt.UTC(),
	}
	if includeNotifications {
		views := make([]NotificationView, 0, len(j.Notifications))
		for i := range j.Notifications {
			views = append(views, NewNotificationView(&j.Notifications[i]))
		}
		view.Notifications = views
	}
	return view
}

// maskRecipient hides most of the local part of an email address so
// published events never carry a full contact.
func maskRecipient(recipient string) string {
	at := strings.Index(recipient, "@")
	if at < 1 {
		return recipient
	}
	name, domain := recipient[:at], recipient[at+1:]
	if len(name) <= 2 {
		return name[:1] + "*@" + domain
	}
	return name[:1] + strings.Repeat("*", len(name)-2) + name[len(name)-1:] + "@" + domain
}
