package inbox

import (
	"encoding/json"
	"sync"

	common_models "go-clinic/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const clientBuffer = 32

// Client is one websocket subscriber.
type Client struct {
	Scope common_models.Scope
	Send  chan []byte
}

// Hub fans inbox events out to the subscribers of each tenant.
type Hub struct {
	mu      sync.RWMutex
	clients map[primitive.ObjectID]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[primitive.ObjectID]map[*Client]struct{}), logger: logger}
}

func (h *Hub) Register(scope common_models.Scope) *Client {
	c := &Client{Scope: scope, Send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[scope.TenantID] == nil {
		h.clients[scope.TenantID] = make(map[*Client]struct{})
	}
	h.clients[scope.TenantID][c] = struct{}{}
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tenant := h.clients[c.Scope.TenantID]
	if _, ok := tenant[c]; !ok {
		return
	}
	delete(tenant, c)
	close(c.Send)
	if len(tenant) == 0 {
		delete(h.clients, c.Scope.TenantID)
	}
}

// Publish delivers the event to every subscriber that may see the conversation.
// Slow subscribers drop events rather than block the sender.
func (h *Hub) Publish(event Event) {
	if h == nil || event.Conversation == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode inbox event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[event.Conversation.TenantID] {
		if !canSee(c.Scope, event.Conversation) {
			continue
		}
		select {
		case c.Send <- payload:
		default:
			h.logger.Warn("Dropping inbox event for slow subscriber", zap.String("user_id", c.Scope.UserID.Hex()))
		}
	}
}

// Subscribers counts connected clients of a tenant.
func (h *Hub) Subscribers(tenantID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

// canSee applies the inbox role rules: admins see the whole tenant, everyone else
// their own and unassigned conversations.
func canSee(scope common_models.Scope, conv *Conversation) bool {
	if scope.IsAdmin() {
		return true
	}
	return conv.AssignedTo == nil || *conv.AssignedTo == scope.UserID
}
