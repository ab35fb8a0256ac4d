package inbox

import (
	"context"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InboxRepository interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	FindConversation(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error)
	FindByContact(ctx context.Context, tenantID primitive.ObjectID, channel Channel, contact string) (*Conversation, error)
	ListConversations(ctx context.Context, filter bson.M, page common_models.Page) ([]Conversation, int64, error)
	UpdateConversation(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	// Touch records the latest message on a conversation and bumps its unread counter.
	Touch(ctx context.Context, id primitive.ObjectID, preview string, at time.Time, unread int) (*Conversation, error)

	CreateMessage(ctx context.Context, m *Message) error
	UpdateMessage(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	FindMessageByProviderID(ctx context.Context, tenantID primitive.ObjectID, providerID string) (*Message, error)
	ListMessages(ctx context.Context, conversationID primitive.ObjectID, page common_models.Page) ([]Message, int64, error)

	EnsureIndexes(ctx context.Context) error
}

type InboxRepositoryImpl struct {
	Conversations *mongo.Collection
	Messages      *mongo.Collection
}

func NewInboxRepository(mongodb *database.MongodbDB) InboxRepository {
	return &InboxRepositoryImpl{
		Conversations: mongodb.DB.Collection("conversations"),
		Messages:      mongodb.DB.Collection("messages"),
	}
}

func (r *InboxRepositoryImpl) CreateConversation(ctx context.Context, c *Conversation) error {
	_, err := r.Conversations.InsertOne(ctx, c)
	return database.Duplicate(err, "a conversation with this contact already exists")
}

func (r *InboxRepositoryImpl) FindConversation(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Conversation, error) {
	var c Conversation
	if err := r.Conversations.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&c); err != nil {
		return nil, database.NotFound(err, "conversation")
	}
	return &c, nil
}

func (r *InboxRepositoryImpl) FindByContact(ctx context.Context, tenantID primitive.ObjectID, channel Channel, contact string) (*Conversation, error) {
	var c Conversation
	filter := bson.M{"tenant_id": tenantID, "channel": channel, "contact": contact}
	if err := r.Conversations.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, database.NotFound(err, "conversation")
	}
	return &c, nil
}

func (r *InboxRepositoryImpl) ListConversations(ctx context.Context, filter bson.M, page common_models.Page) ([]Conversation, int64, error) {
	return database.FindPage[Conversation](ctx, r.Conversations, filter, page, bson.D{{Key: "last_message_at", Value: -1}})
}

func (r *InboxRepositoryImpl) UpdateConversation(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Conversations.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "conversation")
	}
	return nil
}

func (r *InboxRepositoryImpl) Touch(ctx context.Context, id primitive.ObjectID, preview string, at time.Time, unread int) (*Conversation, error) {
	update := bson.M{
		"$set": bson.M{"last_message": preview, "last_message_at": at, "updated_at": at},
		"$inc": bson.M{"unread": unread},
	}
	var c Conversation
	err := r.Conversations.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		return nil, database.NotFound(err, "conversation")
	}
	return &c, nil
}

func (r *InboxRepositoryImpl) CreateMessage(ctx context.Context, m *Message) error {
	_, err := r.Messages.InsertOne(ctx, m)
	return err
}

func (r *InboxRepositoryImpl) UpdateMessage(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	_, err := r.Messages.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return err
}

func (r *InboxRepositoryImpl) FindMessageByProviderID(ctx context.Context, tenantID primitive.ObjectID, providerID string) (*Message, error) {
	var m Message
	if err := r.Messages.FindOne(ctx, bson.M{"tenant_id": tenantID, "provider_id": providerID}).Decode(&m); err != nil {
		return nil, database.NotFound(err, "message")
	}
	return &m, nil
}

func (r *InboxRepositoryImpl) ListMessages(ctx context.Context, conversationID primitive.ObjectID, page common_models.Page) ([]Message, int64, error) {
	return database.FindPage[Message](ctx, r.Messages, bson.M{"conversation_id": conversationID}, page, bson.D{{Key: "created_at", Value: -1}})
}

func (r *InboxRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	if _, err := r.Conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "channel", Value: 1}, {Key: "contact", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "last_message_at", Value: -1}}},
	}); err != nil {
		return err
	}
	_, err := r.Messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$type": "string"}}),
		},
	})
	return err
}
