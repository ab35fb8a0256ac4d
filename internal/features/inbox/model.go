package inbox

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessageStatus string

const (
	MessageQueued   MessageStatus = "queued"
	MessageSent     MessageStatus = "sent"
	MessageFailed   MessageStatus = "failed"
	MessageReceived MessageStatus = "received"
)

type Conversation struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID  `json:"tenant_id" bson:"tenant_id"`
	Channel       Channel             `json:"channel" bson:"channel"`
	Contact       string              `json:"contact" bson:"contact"`
	ContactName   string              `json:"contact_name,omitempty" bson:"contact_name,omitempty"`
	PatientID     *primitive.ObjectID `json:"patient_id,omitempty" bson:"patient_id,omitempty"`
	AssignedTo    *primitive.ObjectID `json:"assigned_to,omitempty" bson:"assigned_to"`
	LastMessage   string              `json:"last_message,omitempty" bson:"last_message,omitempty"`
	LastMessageAt time.Time           `json:"last_message_at" bson:"last_message_at"`
	Unread        int                 `json:"unread" bson:"unread"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID       primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	Direction      Direction          `json:"direction" bson:"direction"`
	Subject        string             `json:"subject,omitempty" bson:"subject,omitempty"`
	Body           string             `json:"body" bson:"body"`
	Status         MessageStatus      `json:"status" bson:"status"`
	ProviderID     string             `json:"provider_id,omitempty" bson:"provider_id,omitempty"`
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
	SentBy         primitive.ObjectID `json:"sent_by,omitempty" bson:"sent_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

type StartRequest struct {
	Channel     Channel `json:"channel" validate:"required,oneof=sms whatsapp email"`
	Contact     string  `json:"contact" validate:"required"`
	ContactName string  `json:"contact_name"`
	PatientID   string  `json:"patient_id"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body" validate:"required"`
}

type SendRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body" validate:"required"`
}

type AssignRequest struct {
	// UserID is empty to unassign.
	UserID string `json:"user_id"`
}

// InboundPayload is what providers post to the webhook.
type InboundPayload struct {
	Tenant     string `json:"tenant" validate:"required"`
	From       string `json:"from" validate:"required"`
	Name       string `json:"name"`
	Body       string `json:"body" validate:"required"`
	ProviderID string `json:"provider_id"`
}

type ListFilter struct {
	Channel    Channel
	UnreadOnly bool
}

// Event is pushed to websocket subscribers.
type Event struct {
	Type         string        `json:"type"`
	Conversation *Conversation `json:"conversation"`
	Message      *Message      `json:"message,omitempty"`
}

const (
	EventMessage  = "message"
	EventRead     = "read"
	EventAssigned = "assigned"
)
