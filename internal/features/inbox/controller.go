package inbox

import (
	"go-clinic/internal/common/api"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
const SignatureHeader = "X-Inbox-Signature"

type InboxController struct {
	Service InboxService
	Hub     *Hub
	Logger  *zap.Logger
}

func NewInboxController(service InboxService, hub *Hub, logger *zap.Logger) *InboxController {
	return &InboxController{Service: service, Hub: hub, Logger: logger}
}

// ListConversations godoc
// @Summary      List inbox conversations
// @Tags         inbox
// @Produce      json
// @Param        channel  query  string  false  "sms, whatsapp or email"
// @Param        unread   query  bool    false  "Only unread conversations"
// @Param        page     query  int     false  "Page"
// @Param        limit    query  int     false  "Limit"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inbox/conversations [get]
func (ctrl *InboxController) ListConversations(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	filter := ListFilter{Channel: Channel(c.Query("channel")), UnreadOnly: c.QueryBool("unread")}
	res, err := ctrl.Service.List(c.UserContext(), scope, filter, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetConversation godoc
// @Summary      Get conversation
// @Tags         inbox
// @Produce      json
// @Param        id   path  string  true  "Conversation ID"
// @Success      200  {object}  Conversation
// @Router       /api/inbox/conversations/{id} [get]
func (ctrl *InboxController) GetConversation(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	conv, err := ctrl.Service.Get(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(conv)
}

// StartConversation godoc
// @Summary      Start a conversation with a first message
// @Tags         inbox
// @Accept       json
// @Produce      json
// @Param        conversation  body  StartRequest  true  "Conversation"
// @Success      201  {object}  map[string]interface{}
// @Router       /api/inbox/conversations [post]
func (ctrl *InboxController) StartConversation(c *fiber.Ctx) error {
	var req StartRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	conv, msg, err := ctrl.Service.StartConversation(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conv, "message": msg})
}

// ListMessages godoc
// @Summary      List messages of a conversation
// @Tags         inbox
// @Produce      json
// @Param        id     path   string  true   "Conversation ID"
// @Param        page   query  int     false  "Page"
// @Param        limit  query  int     false  "Limit"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inbox/conversations/{id}/messages [get]
func (ctrl *InboxController) ListMessages(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.Messages(c.UserContext(), scope, id, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// SendMessage godoc
// @Summary      Send a message
// @Tags         inbox
// @Accept       json
// @Produce      json
// @Param        id       path  string       true  "Conversation ID"
// @Param        message  body  SendRequest  true  "Message"
// @Success      201  {object}  Message
// @Router       /api/inbox/conversations/{id}/messages [post]
func (ctrl *InboxController) SendMessage(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	msg, err := ctrl.Service.Send(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkRead godoc
// @Summary      Mark conversation read
// @Tags         inbox
// @Param        id   path  string  true  "Conversation ID"
// @Success      200  {object}  Conversation
// @Router       /api/inbox/conversations/{id}/read [post]
func (ctrl *InboxController) MarkRead(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	conv, err := ctrl.Service.MarkRead(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(conv)
}

// Assign godoc
// @Summary      Assign conversation
// @Tags         inbox
// @Accept       json
// @Param        id      path  string         true  "Conversation ID"
// @Param        assign  body  AssignRequest  true  "Assignee"
// @Success      200  {object}  Conversation
// @Router       /api/inbox/conversations/{id}/assign [put]
func (ctrl *InboxController) Assign(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	conv, err := ctrl.Service.Assign(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(conv)
}

// Webhook godoc
// @Summary      Inbound message webhook
// @Tags         inbox
// @Accept       json
// @Param        channel             path    string          true  "sms, whatsapp or email"
// @Param        X-Inbox-Signature   header  string          true  "hex HMAC-SHA256 of the body"
// @Param        payload             body    InboundPayload  true  "Message"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/inbox/webhooks/{channel} [post]
func (ctrl *InboxController) Webhook(c *fiber.Ctx) error {
	if err := ctrl.Service.VerifySignature(c.Body(), c.Get(SignatureHeader)); err != nil {
		return api.Fail(c, err)
	}
	var payload InboundPayload
	if err := c.BodyParser(&payload); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	msg, err := ctrl.Service.Receive(c.UserContext(), Channel(c.Params("channel")), payload)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "received", "message_id": msg.ID.Hex()})
}

// RequireUpgrade rejects plain HTTP requests to the websocket endpoint.
func (ctrl *InboxController) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream pushes inbox events to a connected client until it disconnects.
func (ctrl *InboxController) Stream(conn *websocket.Conn) {
	scope, ok := conn.Locals(string(common_models.ScopeKey)).(common_models.Scope)
	if !ok {
		_ = conn.Close()
		return
	}
	client := ctrl.Hub.Register(scope)
	defer ctrl.Hub.Unregister(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// Clients only listen; reads detect the close.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				ctrl.Logger.Debug("Inbox websocket write failed", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
