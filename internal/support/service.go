package support

import (
	"context"
	"encoding/json"
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

var allowedStatuses = map[string]bool{
	"open":     true,
	"pending":  true,
	"resolved": true,
	"closed":   true,
}

var allowedPriorities = map[string]bool{
	"low":    true,
	"normal": true,
	"high":   true,
	"urgent": true,
}

var allowedAuthorTypes = map[string]bool{
	"agent":    true,
	"customer": true,
	"bot":      true,
}

// normalizeStatus maps unknown values to "open" rather than rejecting them,
// so stale clients can never wedge a ticket.
func normalizeStatus(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if allowedStatuses[lowered] {
		return lowered
	}
	return "open"
}

func normalizePriority(value *string) string {
	if value == nil {
		return "normal"
	}
	lowered := strings.ToLower(strings.TrimSpace(*value))
	if allowedPriorities[lowered] {
		return lowered
	}
	return "normal"
}

func normalizeAuthor(value string, fallback string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	if allowedAuthorTypes[lowered] {
		return lowered
	}
	return fallback
}

type Service interface {
	CreateTicket(ctx context.Context, req CreateTicketRequest) (*TicketDetailView, error)
	GetTicket(ctx context.Context, ticketID string, includeTimeline bool) (*TicketDetailView, error)
	AddMessage(ctx context.Context, ticketID string, req MessageInput) (*ConversationView, error)
	UpdateStatus(ctx context.Context, ticketID, status string, assignedAgentID *string) (*TicketView, error)
	CloseTicket(ctx context.Context, ticketID string, req *CloseTicketRequest) (*TicketDetailView, error)
	GetWorkload(ctx context.Context, agentID string) (*WorkloadView, error)
	RefreshTimeline(ctx context.Context, ticketID string) (*TicketDetailView, error)
	UploadAttachment(ctx context.Context, ticketID, filename, contentType string, data []byte) (*AttachmentView, error)
	ListAttachments(ctx context.Context, ticketID string) ([]AttachmentView, error)
}

type service struct {
	db         *gorm.DB
	log        *logger.Logger
	repo       SupportRepo
	metrics    *observability.Metrics
	aggregator *TimelineAggregator
	storage    AttachmentStorage
	producer   broker.Producer
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo SupportRepo,
	metrics *observability.Metrics,
	aggregator *TimelineAggregator,
	storage AttachmentStorage,
	producer broker.Producer,
) Service {
	return &service{
		db:         db,
		log:        baseLog.With("service", "SupportService"),
		repo:       repo,
		metrics:    metrics,
		aggregator: aggregator,
		storage:    storage,
		producer:   producer,
	}
}

func (s *service) CreateTicket(ctx context.Context, req CreateTicketRequest) (*TicketDetailView, error) {
	subject := strings.TrimSpace(req.Subject)
	channel := strings.TrimSpace(req.Channel)
	if subject == "" || len(subject) > 255 {
		return nil, apierr.BadRequest("validation_error", errors.New("subject must be 1..255 characters"))
	}
	if channel == "" || len(channel) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("channel must be 1..32 characters"))
	}
	if req.InitialMessage != nil && strings.TrimSpace(req.InitialMessage.Message) == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("initialMessage.message must be non-empty"))
	}

	ticket := &SupportTicket{
		ID:              uuid.NewString(),
		Subject:         subject,
		Description:     req.Description,
		CustomerID:      req.CustomerID,
		Status:          "open",
		Priority:        normalizePriority(req.Priority),
		Channel:         channel,
		AssignedAgentID: req.AssignedAgentID,
		ContextJSON:     encodeRawJSON(req.Context),
	}

	var initial *SupportConversation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CreateTicket(ctx, tx, ticket); err != nil {
			return err
		}
		if req.InitialMessage != nil {
			conversation, err := s.addConversation(ctx, tx, ticket.ID, *req.InitialMessage, "customer")
			if err != nil {
				return err
			}
			initial = conversation
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTicketCreated(strings.ToLower(channel))
	if initial != nil {
		s.metrics.IncConversationMessage(initial.AuthorType)
	}

	hydrated, err := s.repo.GetTicket(ctx, nil, ticket.ID)
	if err != nil {
		hydrated = ticket
	}
	s.aggregator.Invalidate(ctx, ticket.ID)
	s.publish(ctx, "support.case.opened.v1", map[string]interface{}{
		"ticket":         ticketEventPayload(hydrated),
		"initialMessage": conversationEventPayload(initial),
	})

	view := NewTicketDetailView(hydrated, buildTimeline(hydrated, nil))
	return &view, nil
}

func (s *service) GetTicket(ctx context.Context, ticketID string, includeTimeline bool) (*TicketDetailView, error) {
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	var timeline []map[string]interface{}
	if includeTimeline {
		external := s.aggregator.Collect(ctx, ticket)
		timeline = buildTimeline(ticket, external)
	}
	view := NewTicketDetailView(ticket, timeline)
	return &view, nil
}

func (s *service) AddMessage(ctx context.Context, ticketID string, req MessageInput) (*ConversationView, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("message must be non-empty"))
	}
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	conversation, err := s.addConversation(ctx, nil, ticket.ID, req, "agent")
	if err != nil {
		return nil, err
	}
	s.metrics.IncConversationMessage(conversation.AuthorType)
	s.aggregator.Invalidate(ctx, ticket.ID)
	s.publish(ctx, "support.case.message.v1", map[string]interface{}{
		"ticket":       ticketEventPayload(ticket),
		"changeType":   "conversation.added",
		"conversation": conversationEventPayload(conversation),
	})

	view := NewConversationView(conversation)
	return &view, nil
}

func (s *service) UpdateStatus(ctx context.Context, ticketID, status string, assignedAgentID *string) (*TicketView, error) {
	if strings.TrimSpace(status) == "" {
		return nil, apierr.BadRequest("invalid_status", errors.New("status query parameter required"))
	}
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	previous := ticket.Status
	updated, err := s.applyStatus(ctx, ticket, normalizeStatus(status), assignedAgentID)
	if err != nil {
		return nil, err
	}
	s.aggregator.Invalidate(ctx, ticket.ID)
	s.publishStatusChange(ctx, updated, previous)

	view := NewTicketView(updated)
	return &view, nil
}

func (s *service) CloseTicket(ctx context.Context, ticketID string, req *CloseTicketRequest) (*TicketDetailView, error) {
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var closing *SupportConversation
	if req != nil && req.Message != nil && strings.TrimSpace(*req.Message) != "" {
		author := "agent"
		if req.AuthorType != nil {
			author = normalizeAuthor(*req.AuthorType, "agent")
		}
		closing, err = s.addConversation(ctx, nil, ticket.ID, MessageInput{
			AuthorType:    author,
			Message:       *req.Message,
			AttachmentURI: req.AttachmentURI,
			Sentiment:     req.Sentiment,
			Metadata:      req.Metadata,
		}, "agent")
		if err != nil {
			return nil, err
		}
		s.metrics.IncConversationMessage(closing.AuthorType)
	}

	assigned := ticket.AssignedAgentID
	if req != nil && req.AssignedAgentID != nil && strings.TrimSpace(*req.AssignedAgentID) != "" {
		assigned = req.AssignedAgentID
	}

	previous := ticket.Status
	updated, err := s.applyStatus(ctx, ticket, "closed", assigned)
	if err != nil {
		return nil, err
	}
	s.aggregator.Invalidate(ctx, ticket.ID)
	if closing != nil {
		s.publish(ctx, "support.case.message.v1", map[string]interface{}{
			"ticket":       ticketEventPayload(updated),
			"changeType":   "conversation.added",
			"conversation": conversationEventPayload(closing),
		})
	}
	s.publishStatusChange(ctx, updated, previous)

	hydrated, err := s.repo.GetTicket(ctx, nil, ticket.ID)
	if err != nil {
		hydrated = updated
	}
	view := NewTicketDetailView(hydrated, buildTimeline(hydrated, nil))
	return &view, nil
}

func (s *service) GetWorkload(ctx context.Context, agentID string) (*WorkloadView, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apierr.BadRequest("invalid_agent_id", errors.New("agentId must be non-empty"))
	}
	counters, err := s.repo.AgentWorkload(ctx, nil, agentID)
	if err != nil {
		return nil, err
	}
	return &WorkloadView{
		AgentID:  agentID,
		Open:     counters["open"],
		Pending:  counters["pending"],
		Resolved: counters["resolved"],
		Closed:   counters["closed"],
	}, nil
}

func (s *service) RefreshTimeline(ctx context.Context, ticketID string) (*TicketDetailView, error) {
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.aggregator.Invalidate(ctx, ticket.ID)
	external := s.aggregator.Collect(ctx, ticket)
	view := NewTicketDetailView(ticket, buildTimeline(ticket, external))
	return &view, nil
}

func (s *service) UploadAttachment(ctx context.Context, ticketID, filename, contentType string, data []byte) (*AttachmentView, error) {
	if s.storage == nil {
		return nil, apierr.New(500, "storage_unavailable", errors.New("attachment storage is not configured"))
	}
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	sanitized := sanitizeFilename(filename)
	if sanitized == "" {
		sanitized = "attachment"
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	unique := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	relativePath := fmt.Sprintf("support/cases/%s/attachments/%s-%s", ticket.ID, unique, sanitized)

	stored, err := s.storage.Save(ctx, relativePath, data)
	if err != nil {
		return nil, err
	}

	attachment := &SupportAttachment{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Filename:    sanitized,
		ContentType: contentType,
		SizeBytes:   stored.SizeBytes,
		StoragePath: stored.RelativePath,
		URI:         stored.URI,
	}
	if _, err := s.repo.AddAttachment(ctx, nil, attachment); err != nil {
		return nil, err
	}
	s.aggregator.Invalidate(ctx, ticket.ID)
	s.publish(ctx, "support.case.attachment.v1", map[string]interface{}{
		"ticket":     ticketEventPayload(ticket),
		"changeType": "attachment.added",
		"attachment": attachmentEventPayload(attachment),
	})

	view := NewAttachmentView(attachment)
	return &view, nil
}

func (s *service) ListAttachments(ctx context.Context, ticketID string) ([]AttachmentView, error) {
	ticket, err := s.requireTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListAttachments(ctx, nil, ticket.ID)
	if err != nil {
		return nil, err
	}
	views := make([]AttachmentView, 0, len(attachments))
	for _, attachment := range attachments {
		views = append(views, NewAttachmentView(attachment))
	}
	return views, nil
}

func (s *service) requireTicket(ctx context.Context, ticketID string) (*SupportTicket, error) {
	ticket, err := s.repo.GetTicket(ctx, nil, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("ticket_not_found", err)
		}
		return nil, err
	}
	return ticket, nil
}

func (s *service) addConversation(ctx context.Context, tx *gorm.DB, ticketID string, input MessageInput, fallbackAuthor string) (*SupportConversation, error) {
	conversation := &SupportConversation{
		ID:            uuid.NewString(),
		TicketID:      ticketID,
		AuthorType:    normalizeAuthor(input.AuthorType, fallbackAuthor),
		Message:       input.Message,
		AttachmentURI: input.AttachmentURI,
		Sentiment:     input.Sentiment,
		MetadataJSON:  encodeMetadata(input.Metadata),
	}
	return s.repo.AddConversation(ctx, tx, conversation)
}

// applyStatus persists the new status and counts the change even when the
// status did not actually move; only real changes publish events.
func (s *service) applyStatus(ctx context.Context, ticket *SupportTicket, status string, assignedAgentID *string) (*SupportTicket, error) {
	ticket.Status = status
	if assignedAgentID != nil && strings.TrimSpace(*assignedAgentID) != "" {
		ticket.AssignedAgentID = assignedAgentID
	}
	updated, err := s.repo.SaveTicket(ctx, nil, ticket)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTicketStatusChange(status)
	return updated, nil
}

func (s *service) publishStatusChange(ctx context.Context, ticket *SupportTicket, previous string) {
	if previous == ticket.Status {
		return
	}
	s.publish(ctx, "support.case.status.v1", map[string]interface{}{
		"ticket":         ticketEventPayload(ticket),
		"changeType":     "status.changed",
		"previousStatus": previous,
		"currentStatus":  ticket.Status,
	})
	if ticket.Status == "closed" {
		s.publish(ctx, "support.case.closed.v1", map[string]interface{}{
			"ticket":         ticketEventPayload(ticket),
			"previousStatus": previous,
		})
	}
}

func (s *service) publish(ctx context.Context, topic string, payload map[string]interface{}) {
	if s.producer == nil {
		return
	}
	s.producer.Publish(ctx, topic, payload)
}

func encodeRawJSON(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	encoded := string(raw)
	if strings.TrimSpace(encoded) == "" || encoded == "null" {
		return nil
	}
	return &encoded
}

func encodeMetadata(metadata map[string]interface{}) *string {
	if metadata == nil {
		return nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	result := string(encoded)
	return &result
}

func ticketEventPayload(ticket *SupportTicket) map[string]interface{} {
	return map[string]interface{}{
		"id":              ticket.ID,
		"subject":         ticket.Subject,
		"description":     ticket.Description,
		"customerId":      derefString(ticket.CustomerID),
		"status":          ticket.Status,
		"priority":        ticket.Priority,
		"channel":         ticket.Channel,
		"assignedAgentId": derefString(ticket.AssignedAgentID),
		"context":         parseJSONValue(ticket.ContextJSON),
		"createdAt":       ticket.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":       ticket.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func conversationEventPayload(conversation *SupportConversation) map[string]interface{} {
	if conversation == nil {
		return nil
	}
	return map[string]interface{}{
		"id":            conversation.ID,
		"ticketId":      conversation.TicketID,
		"authorType":    conversation.AuthorType,
		"message":       conversation.Message,
		"attachmentUri": derefString(conversation.AttachmentURI),
		"sentiment":     derefString(conversation.Sentiment),
		"metadata":      parseMetadata(conversation.MetadataJSON),
		"createdAt":     conversation.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func attachmentEventPayload(attachment *SupportAttachment) map[string]interface{} {
	return map[string]interface{}{
		"id":          attachment.ID,
		"ticketId":    attachment.TicketID,
		"filename":    attachment.Filename,
		"contentType": attachment.ContentType,
		"sizeBytes":   attachment.SizeBytes,
		"uri":         attachment.URI,
		"storagePath": attachment.StoragePath,
		"createdAt":   attachment.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func derefString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
