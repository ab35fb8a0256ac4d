package inbox

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/features/audit/audittest"
	"go-clinic/internal/features/patient"
	"go-clinic/internal/features/tenant"
	"go-clinic/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memRepo struct {
	mu            sync.Mutex
	conversations []*Conversation
	messages      []*Message
}

func (m *memRepo) CreateConversation(_ context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.conversations = append(m.conversations, &cp)
	return nil
}

func (m *memRepo) find(id primitive.ObjectID) *Conversation {
	for _, c := range m.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *memRepo) FindConversation(_ context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.find(id); c != nil && c.TenantID == scope.TenantID {
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.NotFound("conversation")
}

func (m *memRepo) FindByContact(_ context.Context, tenantID primitive.ObjectID, channel Channel, contact string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.TenantID == tenantID && c.Channel == channel && c.Contact == contact {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("conversation")
}

// ListConversations understands the tenant, channel and assignment filters the service builds.
func (m *memRepo) ListConversations(_ context.Context, filter bson.M, _ common_models.Page) ([]Conversation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Conversation{}
	for _, c := range m.conversations {
		if tid, ok := filter["tenant_id"]; ok && tid != c.TenantID {
			continue
		}
		if ch, ok := filter["channel"]; ok && ch != c.Channel {
			continue
		}
		if _, ok := filter["unread"]; ok && c.Unread == 0 {
			continue
		}
		if or, ok := filter["$or"].(bson.A); ok {
			user := or[0].(bson.M)["assigned_to"].(primitive.ObjectID)
			if c.AssignedTo != nil && *c.AssignedTo != user {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) UpdateConversation(_ context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil || c.TenantID != scope.TenantID {
		return apperrors.NotFound("conversation")
	}
	if v, ok := fields["unread"].(int); ok {
		c.Unread = v
	}
	if v, ok := fields["assigned_to"]; ok {
		c.AssignedTo = v.(*primitive.ObjectID)
	}
	if v, ok := fields["patient_id"].(primitive.ObjectID); ok {
		c.PatientID = &v
	}
	return nil
}

func (m *memRepo) Touch(_ context.Context, id primitive.ObjectID, preview string, at time.Time, unread int) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return nil, apperrors.NotFound("conversation")
	}
	c.LastMessage = preview
	c.LastMessageAt = at
	c.Unread += unread
	cp := *c
	return &cp, nil
}

func (m *memRepo) CreateMessage(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memRepo) UpdateMessage(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			if v, ok := fields["status"].(MessageStatus); ok {
				msg.Status = v
			}
			if v, ok := fields["provider_id"].(string); ok {
				msg.ProviderID = v
			}
			if v, ok := fields["error"].(string); ok {
				msg.Error = v
			}
		}
	}
	return nil
}

func (m *memRepo) FindMessageByProviderID(_ context.Context, tenantID primitive.ObjectID, providerID string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.TenantID == tenantID && msg.ProviderID == providerID {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("message")
}

func (m *memRepo) ListMessages(_ context.Context, conversationID primitive.ObjectID, _ common_models.Page) ([]Message, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) EnsureIndexes(context.Context) error { return nil }

type fakeProvider struct {
	sent []Outbound
	err  error
}

func (f *fakeProvider) Send(_ context.Context, msg Outbound) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "prov-" + msg.To, nil
}

type fakePatients struct{ byPhone map[string]patient.Patient }

func (f fakePatients) FindByPhone(_ context.Context, _ common_models.Scope, phone string) (*patient.Patient, error) {
	if p, ok := f.byPhone[phone]; ok {
		return &p, nil
	}
	return nil, apperrors.NotFound("patient")
}

type fakeTenants struct{ t *tenant.Tenant }

func (f fakeTenants) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	if f.t != nil && f.t.Slug == slug {
		return f.t, nil
	}
	return nil, apperrors.NotFound("tenant")
}

const testSecret = "hook-secret"

type fixture struct {
	svc     InboxService
	repo    *memRepo
	sms     *fakeProvider
	hub     *Hub
	tenant  *tenant.Tenant
	admin   common_models.Scope
	patient patient.Patient
}

func newFixture() *fixture {
	tenantID := primitive.NewObjectID()
	f := &fixture{
		repo:   &memRepo{},
		sms:    &fakeProvider{},
		hub:    NewHub(zap.NewNop()),
		tenant: &tenant.Tenant{ID: tenantID, Slug: "sunrise"},
		admin:  common_models.Scope{TenantID: tenantID, UserID: primitive.NewObjectID(), Role: common_models.RoleAdmin},
		patient: patient.Patient{
			ID: primitive.NewObjectID(), TenantID: tenantID, Name: "Jane Doe", Phone: "+1 555 0100",
		},
	}
	f.svc = NewInboxService(
		f.repo,
		Providers{ChannelSMS: f.sms},
		f.hub,
		fakePatients{byPhone: map[string]patient.Patient{"+15550100": f.patient}},
		fakeTenants{t: f.tenant},
		&audittest.Recorder{},
		nil,
		zap.NewNop(),
		&config.Config{InboxWebhookSecret: testSecret},
	)
	return f
}

func (f *fixture) staff() common_models.Scope {
	return common_models.Scope{TenantID: f.admin.TenantID, UserID: primitive.NewObjectID(), Role: common_models.RoleStaff}
}

func TestStartConversationLinksPatient(t *testing.T) {
	f := newFixture()
	conv, msg, err := f.svc.StartConversation(context.Background(), f.admin, StartRequest{
		Channel: ChannelSMS, Contact: "+1 (555) 0100", Body: "  Your results are ready  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "+15550100", conv.Contact)
	require.NotNil(t, conv.PatientID)
	assert.Equal(t, f.patient.ID, *conv.PatientID)
	assert.Equal(t, "Jane Doe", conv.ContactName)
	assert.Equal(t, "Your results are ready", conv.LastMessage)

	assert.Equal(t, MessageSent, msg.Status)
	assert.Equal(t, "prov-+15550100", msg.ProviderID)
	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, "Your results are ready", f.sms.sent[0].Body)

	_, _, err = f.svc.StartConversation(context.Background(), f.admin, StartRequest{Channel: ChannelSMS, Contact: "+15550100", Body: "again"})
	require.NoError(t, err)
	assert.Len(t, f.repo.conversations, 1, "the same contact reuses its conversation")
}

func TestStartConversationRejects(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		req  StartRequest
		want error
	}{
		{"unknown channel", StartRequest{Channel: "fax", Contact: "1", Body: "x"}, apperrors.ErrValidation},
		{"bad email", StartRequest{Channel: ChannelEmail, Contact: "nope", Body: "x"}, apperrors.ErrValidation},
		{"short phone", StartRequest{Channel: ChannelSMS, Contact: "1", Body: "x"}, apperrors.ErrValidation},
		{"blank body", StartRequest{Channel: ChannelSMS, Contact: "+15550100", Body: "  "}, apperrors.ErrValidation},
		{"channel not configured", StartRequest{Channel: ChannelWhatsApp, Contact: "+15550100", Body: "x"}, ErrChannelDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.StartConversation(context.Background(), f.admin, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSendRecordsProviderFailure(t *testing.T) {
	f := newFixture()
	conv, _, err := f.svc.StartConversation(context.Background(), f.admin, StartRequest{Channel: ChannelSMS, Contact: "+15550100", Body: "hi"})
	require.NoError(t, err)

	f.sms.err = errors.New("gateway returned 502")
	msg, err := f.svc.Send(context.Background(), f.admin, conv.ID, SendRequest{Body: "second"})
	require.NoError(t, err)
	assert.Equal(t, MessageFailed, msg.Status)
	assert.Equal(t, "gateway returned 502", msg.Error)

	page, err := f.svc.Messages(context.Background(), f.admin, conv.ID, common_models.NewPage(1, 20))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, MessageFailed, page.Items[1].Status)
}

func TestNotifyReturnsDeliveryError(t *testing.T) {
	f := newFixture()
	f.sms.err = errors.New("down")
	msg, err := f.svc.Notify(context.Background(), common_models.SystemScope(f.admin.TenantID), ChannelSMS, "+15550100", "", "Reminder")
	require.Error(t, err)
	assert.Equal(t, MessageFailed, msg.Status)
}

func TestRoleScoping(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, bob := f.staff(), f.staff()

	mine, _, _ := f.svc.StartConversation(ctx, f.admin, StartRequest{Channel: ChannelSMS, Contact: "+15550101", Body: "a"})
	theirs, _, _ := f.svc.StartConversation(ctx, f.admin, StartRequest{Channel: ChannelSMS, Contact: "+15550102", Body: "b"})
	_, _, _ = f.svc.StartConversation(ctx, f.admin, StartRequest{Channel: ChannelSMS, Contact: "+15550103", Body: "c"})

	_, err := f.svc.Assign(ctx, f.admin, mine.ID, AssignRequest{UserID: alice.UserID.Hex()})
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, f.admin, theirs.ID, AssignRequest{UserID: bob.UserID.Hex()})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, alice, ListFilter{}, common_models.NewPage(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total, "own and unassigned")

	_, err = f.svc.Get(ctx, alice, theirs.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.svc.Send(ctx, alice, theirs.ID, SendRequest{Body: "x"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.Assign(ctx, alice, mine.ID, AssignRequest{UserID: bob.UserID.Hex()})
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "staff cannot hand conversations to others")

	released, err := f.svc.Assign(ctx, alice, mine.ID, AssignRequest{})
	require.NoError(t, err)
	assert.Nil(t, released.AssignedTo)

	all, err := f.svc.List(ctx, f.admin, ListFilter{}, common_models.NewPage(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
}

func TestReceiveAndMarkRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.hub.Register(f.admin)

	msg, err := f.svc.Receive(ctx, ChannelSMS, InboundPayload{Tenant: "sunrise", From: "+1 555 0100", Body: "Can I move my visit?", ProviderID: "in-1"})
	require.NoError(t, err)
	assert.Equal(t, DirectionInbound, msg.Direction)
	assert.Equal(t, MessageReceived, msg.Status)

	var event Event
	require.NoError(t, json.Unmarshal(<-client.Send, &event))
	assert.Equal(t, EventMessage, event.Type)
	assert.Equal(t, 1, event.Conversation.Unread)
	require.NotNil(t, event.Conversation.PatientID)

	again, err := f.svc.Receive(ctx, ChannelSMS, InboundPayload{Tenant: "sunrise", From: "+15550100", Body: "Can I move my visit?", ProviderID: "in-1"})
	require.NoError(t, err)
	assert.Equal(t, msg.ID, again.ID, "redelivery is idempotent")
	assert.Len(t, f.repo.messages, 1)

	conv, err := f.svc.MarkRead(ctx, f.admin, msg.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 0, conv.Unread)

	unread, err := f.svc.List(ctx, f.admin, ListFilter{UnreadOnly: true}, common_models.NewPage(1, 20))
	require.NoError(t, err)
	assert.Zero(t, unread.Total)
}

func TestReceiveAssignsDeliveryID(t *testing.T) {
	f := newFixture()
	msg, err := f.svc.Receive(context.Background(), ChannelSMS, InboundPayload{Tenant: "sunrise", From: "+15550100", Body: "hello"})
	require.NoError(t, err)
	assert.Len(t, msg.ProviderID, 36)

	_, err = f.svc.Receive(context.Background(), ChannelSMS, InboundPayload{Tenant: "elsewhere", From: "+15550100", Body: "hello"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Receive(context.Background(), "pager", InboundPayload{Tenant: "sunrise", From: "+15550100", Body: "hello"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestVerifySignature(t *testing.T) {
	f := newFixture()
	body := []byte(`{"tenant":"sunrise"}`)
	good := hex.EncodeToString(Sign([]byte(testSecret), body))

	assert.NoError(t, f.svc.VerifySignature(body, good))
	assert.NoError(t, f.svc.VerifySignature(body, "sha256="+good))
	assert.ErrorIs(t, f.svc.VerifySignature(body, ""), ErrBadSignature)
	assert.ErrorIs(t, f.svc.VerifySignature(body, "zz"), ErrBadSignature)
	assert.ErrorIs(t, f.svc.VerifySignature([]byte(`{}`), good), ErrBadSignature)

	unset := NewInboxService(f.repo, nil, nil, nil, nil, &audittest.Recorder{}, nil, zap.NewNop(), &config.Config{})
	assert.ErrorIs(t, unset.VerifySignature(body, good), apperrors.ErrUnavailable)
}

func TestPreview(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "a"
	}
	assert.Equal(t, "hello world", preview(" hello \n world "))
	assert.Len(t, []rune(preview(long)), previewLength)
}
