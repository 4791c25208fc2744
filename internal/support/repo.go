package support

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type SupportRepo interface {
	CreateTicket(ctx context.Context, tx *gorm.DB, ticket *SupportTicket) (*SupportTicket, error)
	GetTicket(ctx context.Context, tx *gorm.DB, ticketID string) (*SupportTicket, error)
	SaveTicket(ctx context.Context, tx *gorm.DB, ticket *SupportTicket) (*SupportTicket, error)
	AddConversation(ctx context.Context, tx *gorm.DB, conversation *SupportConversation) (*SupportConversation, error)
	AgentWorkload(ctx context.Context, tx *gorm.DB, agentID string) (map[string]int64, error)
	AddAttachment(ctx context.Context, tx *gorm.DB, attachment *SupportAttachment) (*SupportAttachment, error)
	ListAttachments(ctx context.Context, tx *gorm.DB, ticketID string) ([]*SupportAttachment, error)
}

type supportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSupportRepo(db *gorm.DB, baseLog *logger.Logger) SupportRepo {
	repoLog := baseLog.With("repo", "SupportRepo")
	return &supportRepo{db: db, log: repoLog}
}

func (sr *supportRepo) CreateTicket(ctx context.Context, tx *gorm.DB, ticket *SupportTicket) (*SupportTicket, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Omit("Conversations", "Attachments").Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func (sr *supportRepo) GetTicket(ctx context.Context, tx *gorm.DB, ticketID string) (*SupportTicket, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result SupportTicket
	if err := transaction.WithContext(ctx).
		Preload("Conversations", func(db *gorm.DB) *gorm.DB {
			return db.Order("support_conversations.created_at ASC")
		}).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("support_attachments.created_at ASC")
		}).
		First(&result, "id = ?", ticketID).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *supportRepo) SaveTicket(ctx context.Context, tx *gorm.DB, ticket *SupportTicket) (*SupportTicket, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Omit("Conversations", "Attachments").Save(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

func (sr *supportRepo) AddConversation(ctx context.Context, tx *gorm.DB, conversation *SupportConversation) (*SupportConversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}

func (sr *supportRepo) AgentWorkload(ctx context.Context, tx *gorm.DB, agentID string) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := transaction.WithContext(ctx).
		Model(&SupportTicket{}).
		Select("status, COUNT(*) AS count").
		Where("assigned_agent_id = ?", agentID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counters := make(map[string]int64, len(rows))
	for _, r := range rows {
		counters[r.Status] = r.Count
	}
	return counters, nil
}

func (sr *supportRepo) AddAttachment(ctx context.Context, tx *gorm.DB, attachment *SupportAttachment) (*SupportAttachment, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(attachment).Error; err != nil {
		return nil, err
	}
	return attachment, nil
}

func (sr *supportRepo) ListAttachments(ctx context.Context, tx *gorm.DB, ticketID string) ([]*SupportAttachment, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*SupportAttachment
	if err := transaction.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
