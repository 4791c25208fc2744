package support

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

type serviceDeps struct {
	svc     Service
	repo    SupportRepo
	bus     *broker.Broker
	storage *LocalAttachmentStorage
}

func newTestService(t *testing.T) serviceDeps {
	t.Helper()
	db := testutil.DB(t, &SupportTicket{}, &SupportConversation{}, &SupportAttachment{})
	log := testutil.Logger(t)
	metrics := observability.NewForTest()
	repo := NewSupportRepo(db, log)
	bus := broker.New(log)
	storage, err := NewLocalAttachmentStorage(t.TempDir(), "", log, metrics)
	require.NoError(t, err)
	svc := NewService(db, log, repo, metrics, nil, storage, bus)
	return serviceDeps{svc: svc, repo: repo, bus: bus, storage: storage}
}

func captureEvents(bus *broker.Broker, topics ...string) *[]broker.Message {
	captured := &[]broker.Message{}
	bus.Subscribe(topics, func(ctx context.Context, msg broker.Message) {
		*captured = append(*captured, msg)
	})
	return captured
}

func strPtr(s string) *string { return &s }

func sampleTicketRequest() CreateTicketRequest {
	return CreateTicketRequest{
		Subject:    "Package arrived damaged",
		CustomerID: strPtr("cust-1001"),
		Channel:    "email",
		Priority:   strPtr("HIGH"),
		Context:    json.RawMessage(`[{"type":"order","orderId":42}]`),
		InitialMessage: &MessageInput{
			AuthorType: "visitor",
			Message:    "The box was crushed on arrival.",
		},
	}
}

func TestCreateTicketDefaults(t *testing.T) {
	deps := newTestService(t)
	opened := captureEvents(deps.bus, "support.case.opened.v1")

	view, err := deps.svc.CreateTicket(context.Background(), sampleTicketRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "open", view.Status)
	assert.Equal(t, "high", view.Priority)
	require.Len(t, view.Messages, 1)
	// Unknown author types on the initial message read as customer.
	assert.Equal(t, "customer", view.Messages[0].AuthorType)
	assert.Equal(t, "The box was crushed on arrival.", view.Messages[0].Message)

	// Timeline merges the context entry with the conversation.
	require.Len(t, view.Timeline, 2)
	types := []string{}
	for _, entry := range view.Timeline {
		types = append(types, entry["type"].(string))
	}
	assert.Contains(t, types, "order")
	assert.Contains(t, types, "conversation")

	require.Len(t, *opened, 1)
	ticket := (*opened)[0].Payload["ticket"].(map[string]interface{})
	assert.Equal(t, view.ID, ticket["id"])
	assert.Equal(t, "cust-1001", ticket["customerId"])
	initial := (*opened)[0].Payload["initialMessage"].(map[string]interface{})
	assert.Equal(t, "customer", initial["authorType"])
}

func TestCreateTicketNormalizesUnknownPriority(t *testing.T) {
	deps := newTestService(t)
	req := sampleTicketRequest()
	req.Priority = strPtr("critical")
	req.InitialMessage = nil

	view, err := deps.svc.CreateTicket(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "normal", view.Priority)
	assert.Empty(t, view.Messages)
}

func TestCreateTicketValidation(t *testing.T) {
	deps := newTestService(t)
	cases := []struct {
		name   string
		mutate func(*CreateTicketRequest)
	}{
		{"missing subject", func(r *CreateTicketRequest) { r.Subject = "  " }},
		{"missing channel", func(r *CreateTicketRequest) { r.Channel = "" }},
		{"blank initial message", func(r *CreateTicketRequest) { r.InitialMessage.Message = "   " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleTicketRequest()
			tc.mutate(&req)
			_, err := deps.svc.CreateTicket(context.Background(), req)
			require.Error(t, err)
			status, code := apierr.StatusCode(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "validation_error", code)
		})
	}
}

func TestAddMessageNormalizesAuthor(t *testing.T) {
	deps := newTestService(t)
	created, err := deps.svc.CreateTicket(context.Background(), sampleTicketRequest())
	require.NoError(t, err)
	messages := captureEvents(deps.bus, "support.case.message.v1")

	view, err := deps.svc.AddMessage(context.Background(), created.ID, MessageInput{
		AuthorType: "robot",
		Message:    "We are looking into it.",
	})
	require.NoError(t, err)
	assert.Equal(t, "agent", view.AuthorType)

	detail, err := deps.svc.GetTicket(context.Background(), created.ID, false)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Empty(t, detail.Timeline)

	require.Len(t, *messages, 1)
	assert.Equal(t, "conversation.added", (*messages)[0].Payload["changeType"])

	_, err = deps.svc.AddMessage(context.Background(), "missing", MessageInput{AuthorType: "agent", Message: "hi"})
	status, code := apierr.StatusCode(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ticket_not_found", code)
}

func TestUpdateStatusNormalizesAndPublishes(t *testing.T) {
	deps := newTestService(t)
	created, err := deps.svc.CreateTicket(context.Background(), sampleTicketRequest())
	require.NoError(t, err)
	statusEvents := captureEvents(deps.bus, "support.case.status.v1")

	view, err := deps.svc.UpdateStatus(context.Background(), created.ID, "PENDING", strPtr("agent-7"))
	require.NoError(t, err)
	assert.Equal(t, "pending", view.Status)
	require.NotNil(t, view.AssignedAgentID)
	assert.Equal(t, "agent-7", *view.AssignedAgentID)
	require.Len(t, *statusEvents, 1)
	assert.Equal(t, "open", (*statusEvents)[0].Payload["previousStatus"])
	assert.Equal(t, "pending", (*statusEvents)[0].Payload["currentStatus"])

	// Unknown statuses fold back to open.
	view, err = deps.svc.UpdateStatus(context.Background(), created.ID, "escalated", nil)
	require.NoError(t, err)
	assert.Equal(t, "open", view.Status)

	// No event when the status does not actually move.
	before := len(*statusEvents)
	_, err = deps.svc.UpdateStatus(context.Background(), created.ID, "open", nil)
	require.NoError(t, err)
	assert.Len(t, *statusEvents, before)
}

func TestCloseTicketAddsClosingMessage(t *testing.T) {
	deps := newTestService(t)
	created, err := deps.svc.CreateTicket(context.Background(), sampleTicketRequest())
	require.NoError(t, err)
	closed := captureEvents(deps.bus, "support.case.closed.v1")
	statusEvents := captureEvents(deps.bus, "support.case.status.v1")

	view, err := deps.svc.CloseTicket(context.Background(), created.ID, &CloseTicketRequest{
		Message:         strPtr("Replacement shipped, closing out."),
		AuthorType:      strPtr("supervisor"),
		AssignedAgentID: strPtr("agent-9"),
	})
	require.NoError(t, err)
	assert.Equal(t, "closed", view.Status)
	require.NotNil(t, view.AssignedAgentID)
	assert.Equal(t, "agent-9", *view.AssignedAgentID)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "agent", view.Messages[1].AuthorType)
	assert.Equal(t, "Replacement shipped, closing out.", view.Messages[1].Message)

	require.Len(t, *closed, 1)
	require.Len(t, *statusEvents, 1)

	// Closing an already closed ticket stays closed without another event.
	view, err = deps.svc.CloseTicket(context.Background(), created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "closed", view.Status)
	assert.Len(t, *closed, 1)
}

func TestAgentWorkloadCounts(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()

	for _, status := range []string{"open", "pending", "pending", "resolved"} {
		req := sampleTicketRequest()
		req.InitialMessage = nil
		req.AssignedAgentID = strPtr("agent-1")
		created, err := deps.svc.CreateTicket(ctx, req)
		require.NoError(t, err)
		if status != "open" {
			_, err = deps.svc.UpdateStatus(ctx, created.ID, status, nil)
			require.NoError(t, err)
		}
	}
	other := sampleTicketRequest()
	other.InitialMessage = nil
	other.AssignedAgentID = strPtr("agent-2")
	_, err := deps.svc.CreateTicket(ctx, other)
	require.NoError(t, err)

	workload, err := deps.svc.GetWorkload(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), workload.Open)
	assert.Equal(t, int64(2), workload.Pending)
	assert.Equal(t, int64(1), workload.Resolved)
	assert.Equal(t, int64(0), workload.Closed)
}

func TestUploadAndListAttachments(t *testing.T) {
	deps := newTestService(t)
	created, err := deps.svc.CreateTicket(context.Background(), sampleTicketRequest())
	require.NoError(t, err)
	events := captureEvents(deps.bus, "support.case.attachment.v1")

	data := []byte("fake image bytes")
	view, err := deps.svc.UploadAttachment(context.Background(), created.ID, "../receipt scan!.png", "image/png", data)
	require.NoError(t, err)
	assert.Equal(t, "receipt-scan-.png", view.Filename)
	assert.Equal(t, int64(len(data)), view.SizeBytes)
	assert.Contains(t, view.URI, "support/cases/"+created.ID+"/attachments/")

	stored := filepath.Join(deps.storage.basePath, filepath.FromSlash(view.URI))
	content, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	listed, err := deps.svc.ListAttachments(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, view.ID, listed[0].ID)

	require.Len(t, *events, 1)
	assert.Equal(t, "attachment.added", (*events)[0].Payload["changeType"])

	// Attachments show up on the ticket timeline.
	detail, err := deps.svc.GetTicket(context.Background(), created.ID, true)
	require.NoError(t, err)
	found := false
	for _, entry := range detail.Timeline {
		if entry["type"] == "attachment" {
			found = true
			assert.Equal(t, "receipt-scan-.png", entry["filename"])
		}
	}
	assert.True(t, found)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFilename("report.pdf"))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "notes.txt", sanitizeFilename(`C:\Users\me\notes.txt`))
	assert.Equal(t, "", sanitizeFilename("..."))
	assert.Equal(t, "a-b.txt", sanitizeFilename("a  &  b.txt"))
}
