package support

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"
)

type SupportTicket struct {
	ID              string                `gorm:"primaryKey;size:36" json:"id"`
	Subject         string                `gorm:"size:255;not null" json:"subject"`
	Description     *string               `gorm:"type:text" json:"description"`
	CustomerID      *string               `gorm:"column:customer_id;size:36;index" json:"customer_id"`
	Status          string                `gorm:"size:16;not null;default:open" json:"status"`
	Priority        string                `gorm:"size:16;not null;default:normal" json:"priority"`
	Channel         string                `gorm:"size:32;not null" json:"channel"`
	AssignedAgentID *string               `gorm:"column:assigned_agent_id;size:36;index" json:"assigned_agent_id"`
	ContextJSON     *string               `gorm:"column:context_json;type:text" json:"context_json"`
	Conversations   []SupportConversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:TicketID;references:ID" json:"conversations"`
	Attachments     []SupportAttachment   `gorm:"constraint:OnDelete:CASCADE;foreignKey:TicketID;references:ID" json:"attachments"`
	CreatedAt       time.Time             `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"not null" json:"updated_at"`
}

func (SupportTicket) TableName() string { return "support_tickets" }

type SupportConversation struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	TicketID      string    `gorm:"column:ticket_id;size:36;not null;index" json:"ticket_id"`
	AuthorType    string    `gorm:"size:16;not null" json:"author_type"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	AttachmentURI *string   `gorm:"column:attachment_uri;type:text" json:"attachment_uri"`
	Sentiment     *string   `gorm:"size:16" json:"sentiment"`
	MetadataJSON  *string   `gorm:"column:metadata_json;type:text" json:"metadata_json"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (SupportConversation) TableName() string { return "support_conversations" }

type SupportAttachment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	TicketID    string    `gorm:"column:ticket_id;size:36;not null;index" json:"ticket_id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	ContentType string    `gorm:"column:content_type;size:128;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	StoragePath string    `gorm:"column:storage_path;type:text;not null" json:"storage_path"`
	URI         string    `gorm:"type:text;not null" json:"uri"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (SupportAttachment) TableName() string { return "support_attachments" }

type MessageInput struct {
	AuthorType    string                 `json:"authorType"`
	Message       string                 `json:"message"`
	AttachmentURI *string                `json:"attachmentUri"`
	Sentiment     *string                `json:"sentiment"`
	Metadata      map[string]interface{} `json:"metadata"`
}

type CreateTicketRequest struct {
	Subject         string          `json:"subject"`
	Description     *string         `json:"description"`
	CustomerID      *string         `json:"customerId"`
	Channel         string          `json:"channel"`
	Priority        *string         `json:"priority"`
	AssignedAgentID *string         `json:"assignedAgentId"`
	Context         json.RawMessage `json:"context"`
	InitialMessage  *MessageInput   `json:"initialMessage"`
}

type CloseTicketRequest struct {
	Message         *string                `json:"message"`
	AuthorType      *string                `json:"authorType"`
	AttachmentURI   *string                `json:"attachmentUri"`
	Sentiment       *string                `json:"sentiment"`
	Metadata        map[string]interface{} `json:"metadata"`
	AssignedAgentID *string                `json:"assignedAgentId"`
}

type TicketView struct {
	ID              string      `json:"id"`
	Subject         string      `json:"subject"`
	Description     *string     `json:"description"`
	CustomerID      *string     `json:"customerId"`
	Status          string      `json:"status"`
	Priority        string      `json:"priority"`
	Channel         string      `json:"channel"`
	AssignedAgentID *string     `json:"assignedAgentId"`
	Context         interface{} `json:"context"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type TicketDetailView struct {
	TicketView
	Messages    []ConversationView       `json:"messages"`
	Timeline    []map[string]interface{} `json:"timeline"`
	Attachments []AttachmentView         `json:"attachments"`
}

type ConversationView struct {
	ID            string                 `json:"id"`
	TicketID      string                 `json:"ticketId"`
	AuthorType    string                 `json:"authorType"`
	Message       string                 `json:"message"`
	AttachmentURI *string                `json:"attachmentUri"`
	Sentiment     *string                `json:"sentiment"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"createdAt"`
}

type AttachmentView struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticketId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	URI         string    `json:"uri"`
	CreatedAt   time.Time `json:"createdAt"`
}

type WorkloadView struct {
	AgentID  string `json:"agentId"`
	Open     int64  `json:"open"`
	Pending  int64  `json:"pending"`
	Resolved int64  `json:"resolved"`
	Closed   int64  `json:"closed"`
}

func NewTicketView(ticket *SupportTicket) TicketView {
	return TicketView{
		ID:              ticket.ID,
		Subject:         ticket.Subject,
		Description:     ticket.Description,
		CustomerID:      ticket.CustomerID,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		Channel:         ticket.Channel,
		AssignedAgentID: ticket.AssignedAgentID,
		Context:         parseJSONValue(ticket.ContextJSON),
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func NewConversationView(conversation *SupportConversation) ConversationView {
	return ConversationView{
		ID:            conversation.ID,
		TicketID:      conversation.TicketID,
		AuthorType:    conversation.AuthorType,
		Message:       conversation.Message,
		AttachmentURI: conversation.AttachmentURI,
		Sentiment:     conversation.Sentiment,
		Metadata:      parseMetadata(conversation.MetadataJSON),
		CreatedAt:     conversation.CreatedAt,
	}
}

func NewAttachmentView(attachment *SupportAttachment) AttachmentView {
	return AttachmentView{
		ID:          attachment.ID,
		TicketID:    attachment.TicketID,
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
		URI:         attachment.URI,
		CreatedAt:   attachment.CreatedAt,
	}
}

func NewTicketDetailView(ticket *SupportTicket, timeline []map[string]interface{}) TicketDetailView {
	messages := make([]ConversationView, 0, len(ticket.Conversations))
	for i := range ticket.Conversations {
		messages = append(messages, NewConversationView(&ticket.Conversations[i]))
	}
	attachments := make([]AttachmentView, 0, len(ticket.Attachments))
	for i := range ticket.Attachments {
		attachments = append(attachments, NewAttachmentView(&ticket.Attachments[i]))
	}
	if timeline == nil {
		timeline = []map[string]interface{}{}
	}
	return TicketDetailView{
		TicketView:  NewTicketView(ticket),
		Messages:    messages,
		Timeline:    timeline,
		Attachments: attachments,
	}
}

// parseJSONValue decodes a stored JSON column. Corrupt payloads read as nil
// rather than failing the whole response.
func parseJSONValue(raw *string) interface{} {
	if raw == nil || *raw == "" {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(*raw), &value); err != nil {
		return nil
	}
	return value
}

func parseMetadata(raw *string) map[string]interface{} {
	value, ok := parseJSONValue(raw).(map[string]interface{})
	if !ok {
		return nil
	}
	return value
}

// parseContextEntries normalizes ticket context into a list of objects.
// A single object becomes a one-element list; non-object list items are
// dropped.
func parseContextEntries(raw *string) []map[string]interface{} {
	switch value := parseJSONValue(raw).(type) {
	case map[string]interface{}:
		return []map[string]interface{}{value}
	case []interface{}:
		entries := make([]map[string]interface{}, 0, len(value))
		for _, item := range value {
			if entry, ok := item.(map[string]interface{}); ok {
				entries = append(entries, entry)
			}
		}
		return entries
	default:
		return nil
	}
}

var filenameSanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename strips any path components and characters outside the
// storage-safe set. Returns "" when nothing usable remains.
func sanitizeFilename(filename string) string {
	normalized := strings.ReplaceAll(filename, "\\", "/")
	if idx := strings.LastIndex(normalized, "/"); idx >= 0 {
		normalized = normalized[idx+1:]
	}
	sanitized := filenameSanitizePattern.ReplaceAllString(strings.TrimSpace(normalized), "-")
	sanitized = strings.TrimLeft(sanitized, ".")
	sanitized = strings.Trim(sanitized, "-")
	if len(sanitized) > 255 {
		sanitized = sanitized[:255]
	}
	return sanitized
}

func parseTimestamp(value interface{}, baseline time.Time) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed.UTC()
			}
		}
	}
	return baseline.UTC()
}

type timelineItem struct {
	at    time.Time
	entry map[string]interface{}
}

func cloneEntry(entry map[string]interface{}) map[string]interface{} {
	cloned := make(map[string]interface{}, len(entry))
	for k, v := range entry {
		cloned[k] = v
	}
	return cloned
}

// buildTimeline merges context entries, conversation messages, attachments
// and external service entries into one chronological view. Entries without
// a usable timestamp anchor to the ticket creation time.
func buildTimeline(ticket *SupportTicket, external []map[string]interface{}) []map[string]interface{} {
	baseline := ticket.CreatedAt
	if baseline.IsZero() {
		baseline = time.Now().UTC()
	}

	items := make([]timelineItem, 0, len(ticket.Conversations)+len(ticket.Attachments)+len(external))
	for _, entry := range parseContextEntries(ticket.ContextJSON) {
		at := parseTimestamp(entry["timestamp"], baseline)
		normalized := cloneEntry(entry)
		normalized["timestamp"] = at.Format(time.RFC3339Nano)
		items = append(items, timelineItem{at: at, entry: normalized})
	}
	for i := range ticket.Conversations {
		conversation := &ticket.Conversations[i]
		at := conversation.CreatedAt.UTC()
		if conversation.CreatedAt.IsZero() {
			at = baseline.UTC()
		}
		items = append(items, timelineItem{at: at, entry: map[string]interface{}{
			"type":          "conversation",
			"authorType":    conversation.AuthorType,
			"message":       conversation.Message,
			"attachmentUri": conversation.AttachmentURI,
			"sentiment":     conversation.Sentiment,
			"metadata":      parseMetadata(conversation.MetadataJSON),
			"timestamp":     at.Format(time.RFC3339Nano),
		}})
	}
	for i := range ticket.Attachments {
		attachment := &ticket.Attachments[i]
		at := attachment.CreatedAt.UTC()
		if attachment.CreatedAt.IsZero() {
			at = baseline.UTC()
		}
		items = append(items, timelineItem{at: at, entry: map[string]interface{}{
			"type":      "attachment",
			"filename":  attachment.Filename,
			"uri":       attachment.URI,
			"timestamp": at.Format(time.RFC3339Nano),
		}})
	}
	for _, entry := range external {
		at := parseTimestamp(entry["timestamp"], baseline)
		normalized := cloneEntry(entry)
		normalized["timestamp"] = at.Format(time.RFC3339Nano)
		items = append(items, timelineItem{at: at, entry: normalized})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].at.Before(items[j].at) })
	timeline := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		timeline = append(timeline, item.entry)
	}
	return timeline
}
