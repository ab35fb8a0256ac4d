package inventory

import (
	"strconv"

	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type InventoryController struct {
	Service InventoryService
}

func NewInventoryController(service InventoryService) *InventoryController {
	return &InventoryController{Service: service}
}

// ListUnits godoc
// @Summary      List units of measure
// @Tags         inventory
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/units [get]
func (ctrl *InventoryController) ListUnits(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	units, err := ctrl.Service.ListUnits(c.UserContext(), scope)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": units})
}

// CreateUnit godoc
// @Summary      Create unit of measure
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        unit  body  UnitRequest  true  "Unit"
// @Success      201  {object}  Unit
// @Router       /api/inventory/units [post]
func (ctrl *InventoryController) CreateUnit(c *fiber.Ctx) error {
	var req UnitRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	u, err := ctrl.Service.CreateUnit(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// ConvertUnits godoc
// @Summary      Convert a quantity between units
// @Tags         inventory
// @Produce      json
// @Param        qty   query  number  true  "Quantity"
// @Param        from  query  string  true  "Source unit ID"
// @Param        to    query  string  true  "Target unit ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/units/convert [get]
func (ctrl *InventoryController) ConvertUnits(c *fiber.Ctx) error {
	qty, err := strconv.ParseFloat(c.Query("qty"), 64)
	if err != nil {
		return api.BadRequest(c, "qty must be a number")
	}
	from, err := api.QueryID(c, "from")
	if err != nil {
		return api.Fail(c, err)
	}
	to, err := api.QueryID(c, "to")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	out, err := ctrl.Service.Convert(c.UserContext(), scope, qty, from, to)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"quantity": out})
}

// ListItems godoc
// @Summary      List stock items
// @Tags         inventory
// @Produce      json
// @Param        low  query  bool  false  "Only items at or below their reorder level"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/items [get]
func (ctrl *InventoryController) ListItems(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	items, err := ctrl.Service.ListItems(c.UserContext(), scope, c.QueryBool("low"))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetItem godoc
// @Summary      Get stock item
// @Tags         inventory
// @Produce      json
// @Param        id   path  string  true  "Item ID"
// @Success      200  {object}  StockItem
// @Router       /api/inventory/items/{id} [get]
func (ctrl *InventoryController) GetItem(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	item, err := ctrl.Service.GetItem(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(item)
}

// CreateItem godoc
// @Summary      Create stock item
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        item  body  ItemRequest  true  "Item"
// @Success      201  {object}  StockItem
// @Router       /api/inventory/items [post]
func (ctrl *InventoryController) CreateItem(c *fiber.Ctx) error {
	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	item, err := ctrl.Service.CreateItem(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateItem godoc
// @Summary      Update stock item
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Item ID"
// @Param        item  body  ItemUpdateRequest  true  "Changes"
// @Success      200  {object}  StockItem
// @Router       /api/inventory/items/{id} [put]
func (ctrl *InventoryController) UpdateItem(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req ItemUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	item, err := ctrl.Service.UpdateItem(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(item)
}

// AdjustStock godoc
// @Summary      Adjust stock quantity
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id      path  string         true  "Item ID"
// @Param        adjust  body  AdjustRequest  true  "Delta"
// @Success      200  {object}  StockItem
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/inventory/items/{id}/adjust [post]
func (ctrl *InventoryController) AdjustStock(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	item, err := ctrl.Service.AdjustStock(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(item)
}

// ListPurchases godoc
// @Summary      List purchase requests
// @Tags         inventory
// @Produce      json
// @Param        status  query  string  false  "Status"
// @Param        page    query  int     false  "Page"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/purchases [get]
func (ctrl *InventoryController) ListPurchases(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.ListPurchases(c.UserContext(), scope, PurchaseStatus(c.Query("status")), api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetPurchase godoc
// @Summary      Get purchase request
// @Tags         inventory
// @Produce      json
// @Param        id   path  string  true  "Purchase request ID"
// @Success      200  {object}  PurchaseRequest
// @Router       /api/inventory/purchases/{id} [get]
func (ctrl *InventoryController) GetPurchase(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	p, err := ctrl.Service.GetPurchase(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(p)
}

// CreatePurchase godoc
// @Summary      Create purchase request
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        purchase  body  PurchaseCreateRequest  true  "Purchase request"
// @Success      201  {object}  PurchaseRequest
// @Router       /api/inventory/purchases [post]
func (ctrl *InventoryController) CreatePurchase(c *fiber.Ctx) error {
	var req PurchaseCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	p, err := ctrl.Service.CreatePurchase(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// SubmitPurchase godoc
// @Summary      Submit purchase request for approval
// @Tags         inventory
// @Param        id   path  string  true  "Purchase request ID"
// @Success      200  {object}  PurchaseRequest
// @Router       /api/inventory/purchases/{id}/submit [post]
func (ctrl *InventoryController) SubmitPurchase(c *fiber.Ctx) error {
	return ctrl.transition(c, func(c *fiber.Ctx) (*PurchaseRequest, error) {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		scope, _ := middleware.GetScope(c)
		return ctrl.Service.SubmitPurchase(c.UserContext(), scope, id)
	})
}

// ApprovePurchase godoc
// @Summary      Approve purchase request
// @Tags         inventory
// @Param        id   path  string  true  "Purchase request ID"
// @Success      200  {object}  PurchaseRequest
// @Router       /api/inventory/purchases/{id}/approve [post]
func (ctrl *InventoryController) ApprovePurchase(c *fiber.Ctx) error {
	return ctrl.decide(c, true)
}

// RejectPurchase godoc
// @Summary      Reject purchase request
// @Tags         inventory
// @Param        id   path  string  true  "Purchase request ID"
// @Success      200  {object}  PurchaseRequest
// @Router       /api/inventory/purchases/{id}/reject [post]
func (ctrl *InventoryController) RejectPurchase(c *fiber.Ctx) error {
	return ctrl.decide(c, false)
}

// ReceivePurchase godoc
// @Summary      Receive purchase request into stock
// @Tags         inventory
// @Param        id   path  string  true  "Purchase request ID"
// @Success      200  {object}  PurchaseRequest
// @Router       /api/inventory/purchases/{id}/receive [post]
func (ctrl *InventoryController) ReceivePurchase(c *fiber.Ctx) error {
	return ctrl.transition(c, func(c *fiber.Ctx) (*PurchaseRequest, error) {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		scope, _ := middleware.GetScope(c)
		return ctrl.Service.ReceivePurchase(c.UserContext(), scope, id)
	})
}

func (ctrl *InventoryController) decide(c *fiber.Ctx, approve bool) error {
	return ctrl.transition(c, func(c *fiber.Ctx) (*PurchaseRequest, error) {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return nil, err
		}
		scope, _ := middleware.GetScope(c)
		return ctrl.Service.DecidePurchase(c.UserContext(), scope, id, approve)
	})
}

func (ctrl *InventoryController) transition(c *fiber.Ctx, fn func(*fiber.Ctx) (*PurchaseRequest, error)) error {
	p, err := fn(c)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(p)
}

// ListTransfers godoc
// @Summary      List stock transfers
// @Tags         inventory
// @Produce      json
// @Param        page   query  int  false  "Page"
// @Param        limit  query  int  false  "Limit"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/transfers [get]
func (ctrl *InventoryController) ListTransfers(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.ListTransfers(c.UserContext(), scope, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// CreateTransfer godoc
// @Summary      Transfer stock between locations
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        transfer  body  TransferRequest  true  "Transfer"
// @Success      201  {object}  Transfer
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/inventory/transfers [post]
func (ctrl *InventoryController) CreateTransfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	t, err := ctrl.Service.TransferStock(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}
