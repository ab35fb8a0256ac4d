package inventory

import (
	"go-clinic/internal/common/api"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type InventoryApi struct {
	controller *InventoryController
	config     *config.Config
}

func NewInventoryApi(controller *InventoryController, cfg *config.Config) api.Route {
	return &InventoryApi{controller: controller, config: cfg}
}

func (h *InventoryApi) Setup(app *fiber.App) {
	group := app.Group("/api/inventory",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(common_models.RoleAdmin, common_models.RoleStaff),
	)
	admin := middleware.RequireAdmin()

	group.Get("/units", h.controller.ListUnits)
	group.Get("/units/convert", h.controller.ConvertUnits)
	group.Post("/units", admin, h.controller.CreateUnit)

	group.Get("/items", h.controller.ListItems)
	group.Post("/items", h.controller.CreateItem)
	group.Get("/items/:id", h.controller.GetItem)
	group.Put("/items/:id", h.controller.UpdateItem)
	group.Post("/items/:id/adjust", h.controller.AdjustStock)

	group.Get("/purchases", h.controller.ListPurchases)
	group.Post("/purchases", h.controller.CreatePurchase)
	group.Get("/purchases/:id", h.controller.GetPurchase)
	group.Post("/purchases/:id/submit", h.controller.SubmitPurchase)
	group.Post("/purchases/:id/approve", admin, h.controller.ApprovePurchase)
	group.Post("/purchases/:id/reject", admin, h.controller.RejectPurchase)
	group.Post("/purchases/:id/receive", h.controller.ReceivePurchase)

	group.Get("/transfers", h.controller.ListTransfers)
	group.Post("/transfers", h.controller.CreateTransfer)
}
