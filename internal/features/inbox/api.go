package inbox

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type InboxApi struct {
	controller *InboxController
	config     *config.Config
}

func NewInboxApi(controller *InboxController, cfg *config.Config) api.Route {
	return &InboxApi{controller: controller, config: cfg}
}

func (h *InboxApi) Setup(app *fiber.App) {
	// Webhooks authenticate by signature, not by token.
	app.Post("/api/inbox/webhooks/:channel", h.controller.Webhook)

	auth := middleware.AuthMiddleware(h.config.SkipAuth)
	app.Get("/api/inbox/ws", h.controller.RequireUpgrade, auth, websocket.New(h.controller.Stream))

	conversations := app.Group("/api/inbox/conversations", auth)
	conversations.Get("/", h.controller.ListConversations)
	conversations.Post("/", h.controller.StartConversation)
	conversations.Get("/:id", h.controller.GetConversation)
	conversations.Get("/:id/messages", h.controller.ListMessages)
	conversations.Post("/:id/messages", h.controller.SendMessage)
	conversations.Post("/:id/read", h.controller.MarkRead)
	conversations.Put("/:id/assign", h.controller.Assign)
}
