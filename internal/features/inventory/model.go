package inventory

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unit is a unit of measure. A unit without BaseUnitID is a base unit; any other unit
// equals Factor of its base.
type Unit struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID   primitive.ObjectID  `json:"tenant_id" bson:"tenant_id"`
	Name       string              `json:"name" bson:"name"`
	Symbol     string              `json:"symbol" bson:"symbol"`
	BaseUnitID *primitive.ObjectID `json:"base_unit_id,omitempty" bson:"base_unit_id,omitempty"`
	Factor     float64             `json:"factor" bson:"factor"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
}

func (u Unit) base() primitive.ObjectID {
	if u.BaseUnitID != nil {
		return *u.BaseUnitID
	}
	return u.ID
}

func (u Unit) factor() float64 {
	if u.BaseUnitID == nil || u.Factor <= 0 {
		return 1
	}
	return u.Factor
}

// Convert expresses qty of from in to. Both units must share a base.
func Convert(qty float64, from, to Unit) (float64, error) {
	if from.ID == to.ID {
		return qty, nil
	}
	if from.base() != to.base() {
		return 0, fmt.Errorf("cannot convert %s to %s", from.Symbol, to.Symbol)
	}
	return qty * from.factor() / to.factor(), nil
}

type StockItem struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID     primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	SKU          string             `json:"sku" bson:"sku"`
	Name         string             `json:"name" bson:"name"`
	UnitID       primitive.ObjectID `json:"unit_id" bson:"unit_id"`
	Location     string             `json:"location" bson:"location"`
	Quantity     float64            `json:"quantity" bson:"quantity"`
	ReorderLevel float64            `json:"reorder_level" bson:"reorder_level"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

func (i StockItem) Low() bool {
	return i.Quantity <= i.ReorderLevel
}

type PurchaseStatus string

const (
	PurchaseDraft     PurchaseStatus = "draft"
	PurchaseSubmitted PurchaseStatus = "submitted"
	PurchaseApproved  PurchaseStatus = "approved"
	PurchaseRejected  PurchaseStatus = "rejected"
	PurchaseReceived  PurchaseStatus = "received"
)

var purchaseFlow = map[PurchaseStatus][]PurchaseStatus{
	PurchaseDraft:     {PurchaseSubmitted},
	PurchaseSubmitted: {PurchaseApproved, PurchaseRejected},
	PurchaseApproved:  {PurchaseReceived},
}

func (s PurchaseStatus) CanMoveTo(next PurchaseStatus) bool {
	for _, allowed := range purchaseFlow[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PurchaseLine struct {
	ItemID   primitive.ObjectID `json:"item_id" bson:"item_id"`
	Quantity float64            `json:"quantity" bson:"quantity"`
	UnitID   primitive.ObjectID `json:"unit_id" bson:"unit_id"`
}

type PurchaseRequest struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID    primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	Lines       []PurchaseLine     `json:"items" bson:"items"`
	Status      PurchaseStatus     `json:"status" bson:"status"`
	Notes       string             `json:"notes,omitempty" bson:"notes,omitempty"`
	RequestedBy primitive.ObjectID `json:"requested_by" bson:"requested_by"`
	DecidedBy   primitive.ObjectID `json:"decided_by,omitempty" bson:"decided_by,omitempty"`
	DecidedAt   *time.Time         `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
	ReceivedAt  *time.Time         `json:"received_at,omitempty" bson:"received_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

type Transfer struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID     primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	ItemID       primitive.ObjectID `json:"item_id" bson:"item_id"`
	TargetItemID primitive.ObjectID `json:"target_item_id" bson:"target_item_id"`
	SKU          string             `json:"sku" bson:"sku"`
	FromLocation string             `json:"from_location" bson:"from_location"`
	ToLocation   string             `json:"to_location" bson:"to_location"`
	Quantity     float64            `json:"quantity" bson:"quantity"`
	CreatedBy    primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

type UnitRequest struct {
	Name       string  `json:"name" validate:"required"`
	Symbol     string  `json:"symbol" validate:"required"`
	BaseUnitID string  `json:"base_unit_id"`
	Factor     float64 `json:"factor" validate:"omitempty,gt=0"`
}

type ItemRequest struct {
	SKU          string  `json:"sku" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	UnitID       string  `json:"unit_id" validate:"required"`
	Location     string  `json:"location" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	ReorderLevel float64 `json:"reorder_level" validate:"gte=0"`
}

type ItemUpdateRequest struct {
	Name         string   `json:"name"`
	ReorderLevel *float64 `json:"reorder_level" validate:"omitempty,gte=0"`
}

type AdjustRequest struct {
	Delta  float64 `json:"delta" validate:"required"`
	Reason string  `json:"reason"`
}

type PurchaseLineRequest struct {
	ItemID   string  `json:"item_id" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	UnitID   string  `json:"unit_id"`
}

type PurchaseCreateRequest struct {
	Items []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
	Notes string                `json:"notes"`
}

type TransferRequest struct {
	ItemID     string  `json:"item_id" validate:"required"`
	ToLocation string  `json:"to_location" validate:"required"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
}
