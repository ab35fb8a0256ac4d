package inbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/config"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/patient"
	"go-clinic/internal/features/tenant"
	"go-clinic/internal/metrics"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const previewLength = 120

var ErrBadSignature = apperrors.New("INVALID_SIGNATURE", 401, "invalid webhook signature")

// Patients links conversations to known patients.
type Patients interface {
	FindByPhone(ctx context.Context, scope common_models.Scope, phone string) (*patient.Patient, error)
}

// Tenants resolves the tenant a webhook delivery belongs to.
type Tenants interface {
	GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
}

type InboxService interface {
	List(ctx context.Context, scope common_models.Scope, filter ListFilter, page common_models.Page) (*common_models.PageResult[Conversation], error)
	Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error)
	Messages(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, page common_models.Page) (*common_models.PageResult[Message], error)
	StartConversation(ctx context.Context, scope common_models.Scope, req StartRequest) (*Conversation, *Message, error)
	// Send delivers an outbound message. A provider failure is recorded on the returned
	// message rather than returned as an error.
	Send(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req SendRequest) (*Message, error)
	// Notify sends to a contact, opening the conversation when needed. Used by jobs.
	Notify(ctx context.Context, scope common_models.Scope, channel Channel, contact, name string, body string) (*Message, error)
	MarkRead(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error)
	Assign(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req AssignRequest) (*Conversation, error)

	VerifySignature(body []byte, signature string) error
	Receive(ctx context.Context, channel Channel, payload InboundPayload) (*Message, error)
}

type InboxServiceImpl struct {
	Repo         InboxRepository
	Providers    Providers
	Hub          *Hub
	Patients     Patients
	Tenants      Tenants
	AuditService audit.AuditService
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	secret       []byte
}

func NewInboxService(
	repo InboxRepository,
	providers Providers,
	hub *Hub,
	patients Patients,
	tenants Tenants,
	auditService audit.AuditService,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) InboxService {
	return &InboxServiceImpl{
		Repo:         repo,
		Providers:    providers,
		Hub:          hub,
		Patients:     patients,
		Tenants:      tenants,
		AuditService: auditService,
		Metrics:      m,
		Logger:       logger,
		secret:       []byte(cfg.InboxWebhookSecret),
	}
}

// visibility restricts non-admins to their own and unassigned conversations.
func visibility(scope common_models.Scope) bson.M {
	if scope.IsAdmin() {
		return scope.Filter()
	}
	return scope.With(bson.M{"$or": bson.A{
		bson.M{"assigned_to": scope.UserID},
		bson.M{"assigned_to": nil},
	}})
}

func (s *InboxServiceImpl) List(ctx context.Context, scope common_models.Scope, filter ListFilter, page common_models.Page) (*common_models.PageResult[Conversation], error) {
	q := visibility(scope)
	if filter.Channel != "" {
		if !filter.Channel.Valid() {
			return nil, apperrors.Validation("unknown channel " + string(filter.Channel))
		}
		q["channel"] = filter.Channel
	}
	if filter.UnreadOnly {
		q["unread"] = bson.M{"$gt": 0}
	}
	items, total, err := s.Repo.ListConversations(ctx, q, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Conversation]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *InboxServiceImpl) Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error) {
	conv, err := s.Repo.FindConversation(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !canSee(scope, conv) {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "conversation is assigned to someone else")
	}
	return conv, nil
}

func (s *InboxServiceImpl) Messages(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, page common_models.Page) (*common_models.PageResult[Message], error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	items, total, err := s.Repo.ListMessages(ctx, id, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Message]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *InboxServiceImpl) StartConversation(ctx context.Context, scope common_models.Scope, req StartRequest) (*Conversation, *Message, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := validation.Struct(req); err != nil {
		return nil, nil, err
	}
	contact, err := normalizeContact(req.Channel, req.Contact)
	if err != nil {
		return nil, nil, err
	}
	conv, err := s.conversationFor(ctx, scope, req.Channel, contact, strings.TrimSpace(req.ContactName))
	if err != nil {
		return nil, nil, err
	}
	if req.PatientID != "" && conv.PatientID == nil {
		patientID, err := primitive.ObjectIDFromHex(req.PatientID)
		if err != nil {
			return nil, nil, apperrors.Validation("invalid patient_id")
		}
		if err := s.Repo.UpdateConversation(ctx, scope, conv.ID, bson.M{"patient_id": patientID}); err != nil {
			return nil, nil, err
		}
		conv.PatientID = &patientID
	}
	msg, err := s.deliver(ctx, scope, conv, req.Subject, req.Body)
	if err != nil {
		return nil, nil, err
	}
	conv, err = s.Repo.FindConversation(ctx, scope, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, msg, nil
}

func (s *InboxServiceImpl) Send(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req SendRequest) (*Message, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	conv, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, scope, conv, req.Subject, req.Body)
}

func (s *InboxServiceImpl) Notify(ctx context.Context, scope common_models.Scope, channel Channel, contact, name, body string) (*Message, error) {
	contact, err := normalizeContact(channel, contact)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversationFor(ctx, scope, channel, contact, name)
	if err != nil {
		return nil, err
	}
	msg, err := s.deliver(ctx, scope, conv, "", body)
	if err != nil {
		return nil, err
	}
	if msg.Status == MessageFailed {
		return msg, errors.New(msg.Error)
	}
	return msg, nil
}

func (s *InboxServiceImpl) MarkRead(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error) {
	conv, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if conv.Unread == 0 {
		return conv, nil
	}
	if err := s.Repo.UpdateConversation(ctx, scope, id, bson.M{"unread": 0}); err != nil {
		return nil, err
	}
	conv.Unread = 0
	s.Hub.Publish(Event{Type: EventRead, Conversation: conv})
	return conv, nil
}

func (s *InboxServiceImpl) Assign(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req AssignRequest) (*Conversation, error) {
	conv, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	var assignee *primitive.ObjectID
	if req.UserID != "" {
		userID, err := primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			return nil, apperrors.Validation("invalid user_id")
		}
		assignee = &userID
	}
	if !scope.IsAdmin() && assignee != nil && *assignee != scope.UserID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "only admins can assign conversations to others")
	}

	old := conv.AssignedTo
	if err := s.Repo.UpdateConversation(ctx, scope, id, bson.M{"assigned_to": assignee, "updated_at": time.Now()}); err != nil {
		return nil, err
	}
	conv.AssignedTo = assignee
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "conversation", id.Hex(), map[string]common_models.Change{
		"assigned_to": {Old: old, New: assignee},
	})
	s.Hub.Publish(Event{Type: EventAssigned, Conversation: conv})
	return conv, nil
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body.
func (s *InboxServiceImpl) VerifySignature(body []byte, signature string) error {
	if len(s.secret) == 0 {
		return apperrors.Clone(apperrors.ErrUnavailable, "inbound webhooks are not configured")
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil || len(got) == 0 {
		return ErrBadSignature
	}
	if !hmac.Equal(got, Sign(s.secret, body)) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func (s *InboxServiceImpl) Receive(ctx context.Context, channel Channel, payload InboundPayload) (*Message, error) {
	if !channel.Valid() {
		return nil, apperrors.Validation("unknown channel " + string(channel))
	}
	payload.Body = strings.TrimSpace(payload.Body)
	if err := validation.Struct(payload); err != nil {
		return nil, err
	}
	t, err := s.Tenants.GetBySlug(ctx, payload.Tenant)
	if err != nil {
		return nil, err
	}
	scope := common_models.SystemScope(t.ID)

	// Providers retry deliveries; a repeated id is acknowledged without a second copy.
	if payload.ProviderID != "" {
		if existing, err := s.Repo.FindMessageByProviderID(ctx, t.ID, payload.ProviderID); err == nil {
			return existing, nil
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	} else {
		payload.ProviderID = uuid.NewString()
	}

	contact, err := normalizeContact(channel, payload.From)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversationFor(ctx, scope, channel, contact, strings.TrimSpace(payload.Name))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &Message{
		ID:             primitive.NewObjectID(),
		TenantID:       t.ID,
		ConversationID: conv.ID,
		Direction:      DirectionInbound,
		Body:           payload.Body,
		Status:         MessageReceived,
		ProviderID:     payload.ProviderID,
		CreatedAt:      now,
	}
	if err := s.Repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	updated, err := s.Repo.Touch(ctx, conv.ID, preview(msg.Body), now, 1)
	if err != nil {
		return nil, err
	}
	s.Hub.Publish(Event{Type: EventMessage, Conversation: updated, Message: msg})
	return msg, nil
}

// conversationFor returns the tenant's conversation with contact on channel,
// creating it and linking a patient by phone when it does not exist.
func (s *InboxServiceImpl) conversationFor(ctx context.Context, scope common_models.Scope, channel Channel, contact, name string) (*Conversation, error) {
	conv, err := s.Repo.FindByContact(ctx, scope.TenantID, channel, contact)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	conv = &Conversation{
		ID:            primitive.NewObjectID(),
		TenantID:      scope.TenantID,
		Channel:       channel,
		Contact:       contact,
		ContactName:   name,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if channel != ChannelEmail && s.Patients != nil {
		if p, err := s.Patients.FindByPhone(ctx, scope, contact); err == nil {
			conv.PatientID = &p.ID
			if conv.ContactName == "" {
				conv.ContactName = p.Name
			}
		}
	}
	if err := s.Repo.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost a race with a concurrent delivery; use the winner.
			return s.Repo.FindByContact(ctx, scope.TenantID, channel, contact)
		}
		return nil, err
	}
	return conv, nil
}

func (s *InboxServiceImpl) deliver(ctx context.Context, scope common_models.Scope, conv *Conversation, subject, body string) (*Message, error) {
	provider, err := s.Providers.For(conv.Channel)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &Message{
		ID:             primitive.NewObjectID(),
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		Direction:      DirectionOutbound,
		Subject:        subject,
		Body:           body,
		Status:         MessageQueued,
		SentBy:         scope.UserID,
		CreatedAt:      now,
	}
	if err := s.Repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	providerID, sendErr := provider.Send(ctx, Outbound{To: conv.Contact, Subject: subject, Body: body})
	fields := bson.M{}
	if sendErr != nil {
		msg.Status = MessageFailed
		msg.Error = sendErr.Error()
		fields["error"] = msg.Error
		s.Logger.Warn("Message delivery failed",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.String("channel", string(conv.Channel)),
			zap.Error(sendErr),
		)
	} else {
		msg.Status = MessageSent
		msg.ProviderID = providerID
		if providerID != "" {
			fields["provider_id"] = providerID
		}
	}
	fields["status"] = msg.Status
	if err := s.Repo.UpdateMessage(ctx, msg.ID, fields); err != nil {
		return nil, err
	}
	s.Metrics.MessageSent(string(conv.Channel), sendErr == nil)

	updated, err := s.Repo.Touch(ctx, conv.ID, preview(body), now, 0)
	if err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionMessage, "conversation", conv.ID.Hex(), map[string]common_models.Change{
		"message_id": {New: msg.ID.Hex()},
		"status":     {New: msg.Status},
	})
	s.Hub.Publish(Event{Type: EventMessage, Conversation: updated, Message: msg})
	return msg, nil
}

func normalizeContact(channel Channel, contact string) (string, error) {
	contact = strings.TrimSpace(contact)
	switch channel {
	case ChannelEmail:
		contact = strings.ToLower(contact)
		if err := validation.Var(contact, "required,email"); err != nil {
			return "", apperrors.Validation("contact must be a valid email")
		}
		return contact, nil
	case ChannelSMS, ChannelWhatsApp:
		phone := utils.NormalizePhone(contact)
		if len(strings.TrimPrefix(phone, "+")) < 3 {
			return "", apperrors.Validation("contact must be a phone number")
		}
		return phone, nil
	}
	return "", apperrors.Validation("unknown channel " + string(channel))
}

func preview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	r := []rune(body)
	if len(r) <= previewLength {
		return body
	}
	return string(r[:previewLength-1]) + "…"
}
