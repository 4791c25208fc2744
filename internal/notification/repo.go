package notification

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListNotificationsFilter struct {
	Recipient string
	Channel   string
	Status    string
	Limit     int
	Offset    int
}

type ListTemplatesFilter struct {
	Name    string
	Channel string
	Locale  string
	Limit   int
	Offset  int
}

type ListJobsFilter struct {
	Status     string
	TemplateID string
	Limit      int
	Offset     int
}

type NotificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, notification *Notification) (*Notification, error)
	GetByID(ctx context.Context, tx *gorm.DB, notificationID uint) (*Notification, error)
	List(ctx context.Context, tx *gorm.DB, filter ListNotificationsFilter) ([]*Notification, int64, error)
	Save(ctx context.Context, tx *gorm.DB, notification *Notification) (*Notification, error)
	AddEvent(ctx context.Context, tx *gorm.DB, notificationID uint, eventType, payload string) error
	Delete(ctx context.Context, tx *gorm.DB, notification *Notification) error

	CreateTemplate(ctx context.Context, tx *gorm.DB, template *NotificationTemplate) (*NotificationTemplate, error)
	GetTemplate(ctx context.Context, tx *gorm.DB, templateID string) (*NotificationTemplate, error)
	FindTemplateVersion(ctx context.Context, tx *gorm.DB, name, locale string, version int) (*NotificationTemplate, error)
	ListTemplates(ctx context.Context, tx *gorm.DB, filter ListTemplatesFilter) ([]*NotificationTemplate, int64, error)
	SaveTemplate(ctx context.Context, tx *gorm.DB, template *NotificationTemplate) (*NotificationTemplate, error)
	DeleteTemplate(ctx context.Context, tx *gorm.DB, template *NotificationTemplate) error

	CreateJob(ctx context.Context, tx *gorm.DB, job *NotificationJob) (*NotificationJob, error)
	GetJob(ctx context.Context, tx *gorm.DB, jobID uint) (*NotificationJob, error)
	ListJobs(ctx context.Context, tx *gorm.DB, filter ListJobsFilter) ([]*NotificationJob, int64, error)
	SaveJob(ctx context.Context, tx *gorm.DB, job *NotificationJob) (*NotificationJob, error)

	GetPreferences(ctx context.Context, tx *gorm.DB, customerID int64) ([]Preference, error)
	UpsertPreference(ctx context.Context, tx *gorm.DB, pref *Preference) error
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	repoLog := baseLog.With("repo", "NotificationRepo")
	return &notificationRepo{db: db, log: repoLog}
}

func (nr *notificationRepo) Create(ctx context.Context, tx *gorm.DB, notification *Notification) (*Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (nr *notificationRepo) GetByID(ctx context.Context, tx *gorm.DB, notificationID uint) (*Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var result Notification
	if err := transaction.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("notification_events.id") }).
		Where("id = ?", notificationID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (nr *notificationRepo) List(ctx context.Context, tx *gorm.DB, filter ListNotificationsFilter) ([]*Notification, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	query := transaction.WithContext(ctx).Model(&Notification{})
	if filter.Recipient != "" {
		query = query.Where("recipient = ?", filter.Recipient)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*Notification
	if err := query.
		Order("notifications.id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (nr *notificationRepo) Save(ctx context.Context, tx *gorm.DB, notification *Notification) (*Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).
		Omit("Events").
		Save(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (nr *notificationRepo) AddEvent(ctx context.Context, tx *gorm.DB, notificationID uint, eventType, payload string) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	event := NotificationEvent{NotificationID: notificationID, Type: eventType, Payload: payload}
	return transaction.WithContext(ctx).Create(&event).Error
}

func (nr *notificationRepo) Delete(ctx context.Context, tx *gorm.DB, notification *Notification) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).
		Where("notification_id = ?", notification.ID).
		Delete(&NotificationEvent{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(notification).Error
}

func (nr *notificationRepo) CreateTemplate(ctx context.Context, tx *gorm.DB, template *NotificationTemplate) (*NotificationTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).Create(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

func (nr *notificationRepo) GetTemplate(ctx context.Context, tx *gorm.DB, templateID string) (*NotificationTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var result NotificationTemplate
	if err := transaction.WithContext(ctx).
		Where("id = ?", templateID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (nr *notificationRepo) FindTemplateVersion(ctx context.Context, tx *gorm.DB, name, locale string, version int) (*NotificationTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var result NotificationTemplate
	if err := transaction.WithContext(ctx).
		Where("name = ? AND locale = ? AND version = ?", name, locale, version).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (nr *notificationRepo) ListTemplates(ctx context.Context, tx *gorm.DB, filter ListTemplatesFilter) ([]*NotificationTemplate, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	query := transaction.WithContext(ctx).Model(&NotificationTemplate{})
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Locale != "" {
		query = query.Where("locale = ?", filter.Locale)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*NotificationTemplate
	if err := query.
		Order("name").
		Order("version DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (nr *notificationRepo) SaveTemplate(ctx context.Context, tx *gorm.DB, template *NotificationTemplate) (*NotificationTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).Save(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

func (nr *notificationRepo) DeleteTemplate(ctx context.Context, tx *gorm.DB, template *NotificationTemplate) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	return transaction.WithContext(ctx).Delete(template).Error
}

func (nr *notificationRepo) CreateJob(ctx context.Context, tx *gorm.DB, job *NotificationJob) (*NotificationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).Omit("Notifications").Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (nr *notificationRepo) GetJob(ctx context.Context, tx *gorm.DB, jobID uint) (*NotificationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var result NotificationJob
	if err := transaction.WithContext(ctx).
		Preload("Notifications", func(db *gorm.DB) *gorm.DB { return db.Order("notifications.id") }).
		Where("id = ?", jobID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (nr *notificationRepo) ListJobs(ctx context.Context, tx *gorm.DB, filter ListJobsFilter) ([]*NotificationJob, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	query := transaction.WithContext(ctx).Model(&NotificationJob{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TemplateID != "" {
		query = query.Where("template_id = ?", filter.TemplateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*NotificationJob
	if err := query.
		Order("notification_jobs.id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (nr *notificationRepo) SaveJob(ctx context.Context, tx *gorm.DB, job *NotificationJob) (*NotificationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if err := transaction.WithContext(ctx).Omit("Notifications").Save(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (nr *notificationRepo) GetPreferences(ctx context.Context, tx *gorm.DB, customerID int64) ([]Preference, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var results []Preference
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("channel").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *notificationRepo) UpsertPreference(ctx context.Context, tx *gorm.DB, pref *Preference) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	var existing Preference
	err := transaction.WithContext(ctx).
		Where("customer_id = ? AND channel = ?", pref.CustomerID, pref.Channel).
		First(&existing).Error
	if err == nil {
		existing.OptIn = pref.OptIn
		return transaction.WithContext(ctx).Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return transaction.WithContext(ctx).Create(pref).Error
}
