package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type InventoryService interface {
	CreateUnit(ctx context.Context, scope common_models.Scope, req UnitRequest) (*Unit, error)
	ListUnits(ctx context.Context, scope common_models.Scope) ([]Unit, error)
	Convert(ctx context.Context, scope common_models.Scope, qty float64, fromID, toID primitive.ObjectID) (float64, error)

	CreateItem(ctx context.Context, scope common_models.Scope, req ItemRequest) (*StockItem, error)
	UpdateItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req ItemUpdateRequest) (*StockItem, error)
	GetItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*StockItem, error)
	ListItems(ctx context.Context, scope common_models.Scope, lowOnly bool) ([]StockItem, error)
	AdjustStock(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req AdjustRequest) (*StockItem, error)

	CreatePurchase(ctx context.Context, scope common_models.Scope, req PurchaseCreateRequest) (*PurchaseRequest, error)
	GetPurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error)
	ListPurchases(ctx context.Context, scope common_models.Scope, status PurchaseStatus, page common_models.Page) (*common_models.PageResult[PurchaseRequest], error)
	SubmitPurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error)
	DecidePurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, approve bool) (*PurchaseRequest, error)
	// ReceivePurchase books every line into stock, converted to the item's unit.
	ReceivePurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error)

	TransferStock(ctx context.Context, scope common_models.Scope, req TransferRequest) (*Transfer, error)
	ListTransfers(ctx context.Context, scope common_models.Scope, page common_models.Page) (*common_models.PageResult[Transfer], error)
}

type InventoryServiceImpl struct {
	Repo         InventoryRepository
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewInventoryService(repo InventoryRepository, auditService audit.AuditService, logger *zap.Logger) InventoryService {
	return &InventoryServiceImpl{Repo: repo, AuditService: auditService, Logger: logger}
}

func (s *InventoryServiceImpl) CreateUnit(ctx context.Context, scope common_models.Scope, req UnitRequest) (*Unit, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Symbol = strings.TrimSpace(req.Symbol)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	u := &Unit{
		ID:        primitive.NewObjectID(),
		TenantID:  scope.TenantID,
		Name:      req.Name,
		Symbol:    req.Symbol,
		Factor:    1,
		CreatedAt: time.Now(),
	}
	if req.BaseUnitID != "" {
		baseID, err := primitive.ObjectIDFromHex(req.BaseUnitID)
		if err != nil {
			return nil, apperrors.Validation("invalid base_unit_id")
		}
		base, err := s.Repo.FindUnit(ctx, scope, baseID)
		if err != nil {
			return nil, err
		}
		if base.BaseUnitID != nil {
			return nil, apperrors.Validation("base_unit_id must refer to a base unit")
		}
		if req.Factor <= 0 {
			return nil, apperrors.Validation("factor is required for derived units")
		}
		u.BaseUnitID = &base.ID
		u.Factor = req.Factor
	}
	if err := s.Repo.CreateUnit(ctx, u); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "inventory_unit", u.ID.Hex(), map[string]common_models.Change{
		"symbol": {New: u.Symbol},
	})
	return u, nil
}

func (s *InventoryServiceImpl) ListUnits(ctx context.Context, scope common_models.Scope) ([]Unit, error) {
	return s.Repo.ListUnits(ctx, scope)
}

func (s *InventoryServiceImpl) Convert(ctx context.Context, scope common_models.Scope, qty float64, fromID, toID primitive.ObjectID) (float64, error) {
	from, err := s.Repo.FindUnit(ctx, scope, fromID)
	if err != nil {
		return 0, err
	}
	to, err := s.Repo.FindUnit(ctx, scope, toID)
	if err != nil {
		return 0, err
	}
	out, err := Convert(qty, *from, *to)
	if err != nil {
		return 0, apperrors.Validation(err.Error())
	}
	return out, nil
}

func (s *InventoryServiceImpl) CreateItem(ctx context.Context, scope common_models.Scope, req ItemRequest) (*StockItem, error) {
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Location = strings.TrimSpace(req.Location)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	unitID, err := primitive.ObjectIDFromHex(req.UnitID)
	if err != nil {
		return nil, apperrors.Validation("invalid unit_id")
	}
	if _, err := s.Repo.FindUnit(ctx, scope, unitID); err != nil {
		return nil, err
	}
	now := time.Now()
	item := &StockItem{
		ID:           primitive.NewObjectID(),
		TenantID:     scope.TenantID,
		SKU:          req.SKU,
		Name:         strings.TrimSpace(req.Name),
		UnitID:       unitID,
		Location:     req.Location,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "inventory_item", item.ID.Hex(), map[string]common_models.Change{
		"sku":      {New: item.SKU},
		"quantity": {New: item.Quantity},
	})
	return item, nil
}

// UpdateItem changes descriptive fields only. Quantities move through AdjustStock,
// purchases and transfers.
func (s *InventoryServiceImpl) UpdateItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req ItemUpdateRequest) (*StockItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	item, err := s.Repo.FindItem(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]common_models.Change{}
	fields := bson.M{"updated_at": time.Now()}
	if name := strings.TrimSpace(req.Name); name != "" && name != item.Name {
		fields["name"] = name
		changes["name"] = common_models.Change{Old: item.Name, New: name}
	}
	if req.ReorderLevel != nil && *req.ReorderLevel != item.ReorderLevel {
		fields["reorder_level"] = *req.ReorderLevel
		changes["reorder_level"] = common_models.Change{Old: item.ReorderLevel, New: *req.ReorderLevel}
	}
	if len(changes) == 0 {
		return item, nil
	}
	if err := s.Repo.UpdateItem(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "inventory_item", id.Hex(), changes)
	return s.Repo.FindItem(ctx, scope, id)
}

func (s *InventoryServiceImpl) GetItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*StockItem, error) {
	return s.Repo.FindItem(ctx, scope, id)
}

func (s *InventoryServiceImpl) ListItems(ctx context.Context, scope common_models.Scope, lowOnly bool) ([]StockItem, error) {
	return s.Repo.ListItems(ctx, scope, lowOnly)
}

func (s *InventoryServiceImpl) AdjustStock(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req AdjustRequest) (*StockItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	item, err := s.Repo.AdjustQuantity(ctx, scope, id, req.Delta)
	if err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionStock, "inventory_item", id.Hex(), map[string]common_models.Change{
		"quantity": {Old: item.Quantity - req.Delta, New: item.Quantity},
		"reason":   {New: req.Reason},
	})
	s.warnIfLow(item)
	return item, nil
}

func (s *InventoryServiceImpl) CreatePurchase(ctx context.Context, scope common_models.Scope, req PurchaseCreateRequest) (*PurchaseRequest, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	lines := make([]PurchaseLine, 0, len(req.Items))
	for _, l := range req.Items {
		itemID, err := primitive.ObjectIDFromHex(l.ItemID)
		if err != nil {
			return nil, apperrors.Validation("invalid item_id " + l.ItemID)
		}
		item, err := s.Repo.FindItem(ctx, scope, itemID)
		if err != nil {
			return nil, err
		}
		line := PurchaseLine{ItemID: itemID, Quantity: l.Quantity, UnitID: item.UnitID}
		if l.UnitID != "" {
			unitID, err := primitive.ObjectIDFromHex(l.UnitID)
			if err != nil {
				return nil, apperrors.Validation("invalid unit_id " + l.UnitID)
			}
			// Reject lines that could never be received.
			if _, err := s.Convert(ctx, scope, l.Quantity, unitID, item.UnitID); err != nil {
				return nil, err
			}
			line.UnitID = unitID
		}
		lines = append(lines, line)
	}

	now := time.Now()
	p := &PurchaseRequest{
		ID:          primitive.NewObjectID(),
		TenantID:    scope.TenantID,
		Lines:       lines,
		Status:      PurchaseDraft,
		Notes:       strings.TrimSpace(req.Notes),
		RequestedBy: scope.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.CreatePurchase(ctx, p); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "purchase_request", p.ID.Hex(), map[string]common_models.Change{
		"lines": {New: len(lines)},
	})
	return p, nil
}

func (s *InventoryServiceImpl) GetPurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error) {
	return s.Repo.FindPurchase(ctx, scope, id)
}

func (s *InventoryServiceImpl) ListPurchases(ctx context.Context, scope common_models.Scope, status PurchaseStatus, page common_models.Page) (*common_models.PageResult[PurchaseRequest], error) {
	items, total, err := s.Repo.ListPurchases(ctx, scope, status, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[PurchaseRequest]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *InventoryServiceImpl) SubmitPurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error) {
	return s.move(ctx, scope, id, PurchaseSubmitted, bson.M{})
}

func (s *InventoryServiceImpl) DecidePurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, approve bool) (*PurchaseRequest, error) {
	if !scope.IsAdmin() {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "only admins can approve purchase requests")
	}
	next := PurchaseRejected
	if approve {
		next = PurchaseApproved
	}
	now := time.Now()
	return s.move(ctx, scope, id, next, bson.M{"decided_by": scope.UserID, "decided_at": now})
}

func (s *InventoryServiceImpl) ReceivePurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error) {
	p, err := s.Repo.FindPurchase(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanMoveTo(PurchaseReceived) {
		return nil, apperrors.Validation("only approved purchase requests can be received")
	}

	// Every line must still resolve before anything is booked.
	bookings := make([]booking, 0, len(p.Lines))
	for i, line := range p.Lines {
		item, err := s.Repo.FindItem(ctx, scope, line.ItemID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Validation(fmt.Sprintf("line %d: item no longer exists", i+1))
			}
			return nil, err
		}
		qty, err := s.Convert(ctx, scope, line.Quantity, line.UnitID, item.UnitID)
		if err != nil {
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) {
				return nil, err
			}
			return nil, apperrors.Validation(fmt.Sprintf("line %d: %s", i+1, appErr.Message))
		}
		bookings = append(bookings, booking{itemID: item.ID, qty: qty})
	}

	// Claim the request so a concurrent receive cannot book stock twice.
	now := time.Now()
	if err := s.Repo.MovePurchase(ctx, scope, id, p.Status, bson.M{"status": PurchaseReceived, "received_at": now, "updated_at": now}); err != nil {
		return nil, err
	}
	for i, b := range bookings {
		if _, err := s.Repo.AdjustQuantity(ctx, scope, b.itemID, b.qty); err != nil {
			s.undoReceive(ctx, scope, p, bookings[:i])
			return nil, err
		}
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionStock, "purchase_request", id.Hex(), map[string]common_models.Change{
		"status": {Old: p.Status, New: PurchaseReceived},
	})
	return s.Repo.FindPurchase(ctx, scope, id)
}

// booking is one purchase line converted to its item's unit.
type booking struct {
	itemID primitive.ObjectID
	qty    float64
}

// undoReceive reverses the bookings already made and returns the request to its
// previous status.
func (s *InventoryServiceImpl) undoReceive(ctx context.Context, scope common_models.Scope, p *PurchaseRequest, booked []booking) {
	for _, b := range booked {
		if _, err := s.Repo.AdjustQuantity(ctx, scope, b.itemID, -b.qty); err != nil {
			s.Logger.Error("failed to reverse purchase booking",
				zap.String("purchase_id", p.ID.Hex()), zap.String("item_id", b.itemID.Hex()), zap.Float64("quantity", b.qty), zap.Error(err))
		}
	}
	if err := s.Repo.MovePurchase(ctx, scope, p.ID, PurchaseReceived, bson.M{"status": p.Status, "received_at": nil, "updated_at": time.Now()}); err != nil {
		s.Logger.Error("failed to reopen purchase request", zap.String("purchase_id", p.ID.Hex()), zap.Error(err))
	}
}

func (s *InventoryServiceImpl) move(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, next PurchaseStatus, fields bson.M) (*PurchaseRequest, error) {
	p, err := s.Repo.FindPurchase(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanMoveTo(next) {
		return nil, apperrors.Validation("cannot move purchase request from " + string(p.Status) + " to " + string(next))
	}
	fields["status"] = next
	fields["updated_at"] = time.Now()
	if err := s.Repo.MovePurchase(ctx, scope, id, p.Status, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionStatus, "purchase_request", id.Hex(), map[string]common_models.Change{
		"status": {Old: p.Status, New: next},
	})
	return s.Repo.FindPurchase(ctx, scope, id)
}

// TransferStock moves quantity of an item to another location, creating the item
// there when it does not exist yet.
func (s *InventoryServiceImpl) TransferStock(ctx context.Context, scope common_models.Scope, req TransferRequest) (*Transfer, error) {
	req.ToLocation = strings.TrimSpace(req.ToLocation)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	itemID, err := primitive.ObjectIDFromHex(req.ItemID)
	if err != nil {
		return nil, apperrors.Validation("invalid item_id")
	}
	source, err := s.Repo.FindItem(ctx, scope, itemID)
	if err != nil {
		return nil, err
	}
	if source.Location == req.ToLocation {
		return nil, apperrors.Validation("to_location must differ from the item's location")
	}

	if _, err := s.Repo.AdjustQuantity(ctx, scope, source.ID, -req.Quantity); err != nil {
		return nil, err
	}
	target, err := s.credit(ctx, scope, source, req.ToLocation, req.Quantity)
	if err != nil {
		// Put the stock back; there is no multi-document transaction here.
		if _, undoErr := s.Repo.AdjustQuantity(ctx, scope, source.ID, req.Quantity); undoErr != nil {
			s.Logger.Error("failed to restore stock after transfer error",
				zap.String("item_id", source.ID.Hex()), zap.Float64("quantity", req.Quantity), zap.Error(undoErr))
		}
		return nil, err
	}

	t := &Transfer{
		ID:           primitive.NewObjectID(),
		TenantID:     scope.TenantID,
		ItemID:       source.ID,
		TargetItemID: target.ID,
		SKU:          source.SKU,
		FromLocation: source.Location,
		ToLocation:   req.ToLocation,
		Quantity:     req.Quantity,
		CreatedBy:    scope.UserID,
		CreatedAt:    time.Now(),
	}
	if err := s.Repo.CreateTransfer(ctx, t); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionStock, "stock_transfer", t.ID.Hex(), map[string]common_models.Change{
		"from":     {New: t.FromLocation},
		"to":       {New: t.ToLocation},
		"quantity": {New: t.Quantity},
	})
	return t, nil
}

func (s *InventoryServiceImpl) credit(ctx context.Context, scope common_models.Scope, source *StockItem, location string, qty float64) (*StockItem, error) {
	target, err := s.Repo.FindItemAt(ctx, scope, source.SKU, location)
	if err == nil {
		return s.Repo.AdjustQuantity(ctx, scope, target.ID, qty)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	now := time.Now()
	created := &StockItem{
		ID:           primitive.NewObjectID(),
		TenantID:     scope.TenantID,
		SKU:          source.SKU,
		Name:         source.Name,
		UnitID:       source.UnitID,
		Location:     location,
		Quantity:     qty,
		ReorderLevel: source.ReorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.CreateItem(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *InventoryServiceImpl) ListTransfers(ctx context.Context, scope common_models.Scope, page common_models.Page) (*common_models.PageResult[Transfer], error) {
	items, total, err := s.Repo.ListTransfers(ctx, scope, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Transfer]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *InventoryServiceImpl) warnIfLow(item *StockItem) {
	if item.Low() {
		s.Logger.Warn("Stock at or below reorder level",
			zap.String("tenant_id", item.TenantID.Hex()),
			zap.String("sku", item.SKU),
			zap.String("location", item.Location),
			zap.Float64("quantity", item.Quantity),
		)
	}
}
