package inventory

import (
	"context"
	"errors"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"
	"go-clinic/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInsufficientStock is returned when a decrement would take stock below zero.
var ErrInsufficientStock = apperrors.New("INSUFFICIENT_STOCK", 409, "insufficient stock")

type InventoryRepository interface {
	CreateUnit(ctx context.Context, u *Unit) error
	FindUnit(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Unit, error)
	ListUnits(ctx context.Context, scope common_models.Scope) ([]Unit, error)

	CreateItem(ctx context.Context, item *StockItem) error
	FindItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*StockItem, error)
	FindItemAt(ctx context.Context, scope common_models.Scope, sku, location string) (*StockItem, error)
	ListItems(ctx context.Context, scope common_models.Scope, lowOnly bool) ([]StockItem, error)
	UpdateItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	// AdjustQuantity applies delta atomically. Negative deltas only apply while enough
	// stock is on hand.
	AdjustQuantity(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, delta float64) (*StockItem, error)

	CreatePurchase(ctx context.Context, p *PurchaseRequest) error
	FindPurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error)
	ListPurchases(ctx context.Context, scope common_models.Scope, status PurchaseStatus, page common_models.Page) ([]PurchaseRequest, int64, error)
	// MovePurchase updates the request only while it is still in status from.
	MovePurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, from PurchaseStatus, fields bson.M) error

	CreateTransfer(ctx context.Context, t *Transfer) error
	ListTransfers(ctx context.Context, scope common_models.Scope, page common_models.Page) ([]Transfer, int64, error)

	EnsureIndexes(ctx context.Context) error
}

type InventoryRepositoryImpl struct {
	Units     *mongo.Collection
	Items     *mongo.Collection
	Purchases *mongo.Collection
	Transfers *mongo.Collection
}

func NewInventoryRepository(mongodb *database.MongodbDB) InventoryRepository {
	return &InventoryRepositoryImpl{
		Units:     mongodb.DB.Collection("inventory_units"),
		Items:     mongodb.DB.Collection("inventory_items"),
		Purchases: mongodb.DB.Collection("purchase_requests"),
		Transfers: mongodb.DB.Collection("stock_transfers"),
	}
}

func (r *InventoryRepositoryImpl) CreateUnit(ctx context.Context, u *Unit) error {
	_, err := r.Units.InsertOne(ctx, u)
	return database.Duplicate(err, "unit symbol already exists")
}

func (r *InventoryRepositoryImpl) FindUnit(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Unit, error) {
	var u Unit
	if err := r.Units.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&u); err != nil {
		return nil, database.NotFound(err, "unit")
	}
	return &u, nil
}

func (r *InventoryRepositoryImpl) ListUnits(ctx context.Context, scope common_models.Scope) ([]Unit, error) {
	cursor, err := r.Units.Find(ctx, scope.Filter(), options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]Unit, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InventoryRepositoryImpl) CreateItem(ctx context.Context, item *StockItem) error {
	_, err := r.Items.InsertOne(ctx, item)
	return database.Duplicate(err, "an item with this SKU already exists at this location")
}

func (r *InventoryRepositoryImpl) FindItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*StockItem, error) {
	var item StockItem
	if err := r.Items.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&item); err != nil {
		return nil, database.NotFound(err, "stock item")
	}
	return &item, nil
}

func (r *InventoryRepositoryImpl) FindItemAt(ctx context.Context, scope common_models.Scope, sku, location string) (*StockItem, error) {
	var item StockItem
	if err := r.Items.FindOne(ctx, scope.With(bson.M{"sku": sku, "location": location})).Decode(&item); err != nil {
		return nil, database.NotFound(err, "stock item")
	}
	return &item, nil
}

func (r *InventoryRepositoryImpl) ListItems(ctx context.Context, scope common_models.Scope, lowOnly bool) ([]StockItem, error) {
	filter := scope.Filter()
	if lowOnly {
		filter["$expr"] = bson.M{"$lte": bson.A{"$quantity", "$reorder_level"}}
	}
	cursor, err := r.Items.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sku", Value: 1}, {Key: "location", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]StockItem, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InventoryRepositoryImpl) UpdateItem(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Items.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return database.Duplicate(err, "an item with this SKU already exists at this location")
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "stock item")
	}
	return nil
}

func (r *InventoryRepositoryImpl) AdjustQuantity(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, delta float64) (*StockItem, error) {
	filter := scope.With(bson.M{"_id": id})
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc":         bson.M{"quantity": delta},
		"$currentDate": bson.M{"updated_at": true},
	}
	var item StockItem
	err := r.Items.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Tell a missing item apart from a short one.
		if _, findErr := r.FindItem(ctx, scope, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *InventoryRepositoryImpl) CreatePurchase(ctx context.Context, p *PurchaseRequest) error {
	_, err := r.Purchases.InsertOne(ctx, p)
	return err
}

func (r *InventoryRepositoryImpl) FindPurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*PurchaseRequest, error) {
	var p PurchaseRequest
	if err := r.Purchases.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&p); err != nil {
		return nil, database.NotFound(err, "purchase request")
	}
	return &p, nil
}

func (r *InventoryRepositoryImpl) ListPurchases(ctx context.Context, scope common_models.Scope, status PurchaseStatus, page common_models.Page) ([]PurchaseRequest, int64, error) {
	filter := scope.Filter()
	if status != "" {
		filter["status"] = status
	}
	return database.FindPage[PurchaseRequest](ctx, r.Purchases, filter, page, bson.D{{Key: "created_at", Value: -1}})
}

func (r *InventoryRepositoryImpl) MovePurchase(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, from PurchaseStatus, fields bson.M) error {
	res, err := r.Purchases.UpdateOne(ctx, scope.With(bson.M{"_id": id, "status": from}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.Conflict("purchase request changed, reload and try again")
	}
	return nil
}

func (r *InventoryRepositoryImpl) CreateTransfer(ctx context.Context, t *Transfer) error {
	_, err := r.Transfers.InsertOne(ctx, t)
	return err
}

func (r *InventoryRepositoryImpl) ListTransfers(ctx context.Context, scope common_models.Scope, page common_models.Page) ([]Transfer, int64, error) {
	return database.FindPage[Transfer](ctx, r.Transfers, scope.Filter(), page, bson.D{{Key: "created_at", Value: -1}})
}

func (r *InventoryRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	if _, err := r.Units.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "symbol", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := r.Items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "sku", Value: 1}, {Key: "location", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.Purchases.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
