package models

import (
	"context"
	"errors"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
	"gorm.io/gorm"
)

// StockTransfer is the immutable audit row of one stock movement between the
// shop floor and a warehouse.
type StockTransfer struct {
	ID          int               `gorm:"primary_key" json:"id"`
	ShopId      string            `gorm:"index;not null" json:"shop_id"`
	WarehouseId int               `gorm:"not null" json:"warehouse_id"`
	ProductId   int               `gorm:"not null" json:"product_id"`
	Quantity    int               `gorm:"not null" json:"quantity"`
	Direction   TransferDirection `gorm:"size:2;not null" json:"direction"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockTransfer struct {
	WarehouseId int    `json:"warehouse_id" binding:"required"`
	ProductId   int    `json:"product_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	Direction   string `json:"direction" binding:"required"`
}

// Transfer moves qty units of a product between shop stock and a warehouse.
// The side giving up stock is checked with a conditional decrement; a failed
// check rolls the whole move back, so the total unit count across shop and
// warehouses is never changed by a rejection.
func Transfer(ctx context.Context, shop *Shop, input *NewStockTransfer) (*StockTransfer, error) {

	direction, err := ParseTransferDirection(input.Direction)
	if err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, shop.ID.String(), input.WarehouseId); err != nil {
		return nil, utils.ErrorMissingWarehouse
	}
	if err := utils.ValidateResourceId[Product](ctx, shop.ID.String(), input.ProductId); err != nil {
		return nil, errors.New("product not found")
	}

	db := config.GetDB()

	// for warehouse-to-shop moves the ledger row is created up front, outside
	// the transfer transaction. A rejected move therefore still leaves a
	// zero-qty row behind, matching how the ledger has always behaved.
	// Shop-to-warehouse moves create the row inside the transaction, so a
	// rejection there leaves no residue.
	if direction == TransferWarehouseToShop {
		if _, err := fetchOrCreateWarehouseStock(db.WithContext(ctx), shop.ID.String(), input.WarehouseId, input.ProductId); err != nil {
			return nil, err
		}
	}

	transfer := StockTransfer{
		ShopId:      shop.ID.String(),
		WarehouseId: input.WarehouseId,
		ProductId:   input.ProductId,
		Quantity:    input.Quantity,
		Direction:   direction,
	}

	err = withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		var err error
		switch direction {
		case TransferShopToWarehouse:
			err = transferShopToWarehouse(tx, shop.ID.String(), input.WarehouseId, input.ProductId, input.Quantity)
		case TransferWarehouseToShop:
			err = transferWarehouseToShop(tx, shop.ID.String(), input.WarehouseId, input.ProductId, input.Quantity)
		}
		if err != nil {
			return err
		}

		return tx.Create(&transfer).Error
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func transferShopToWarehouse(tx *gorm.DB, shopId string, warehouseId, productId, qty int) error {

	if err := reserveProductStock(tx, shopId, productId, qty, utils.ErrorInsufficientShopStock); err != nil {
		return err
	}

	if _, err := fetchOrCreateWarehouseStock(tx, shopId, warehouseId, productId); err != nil {
		return err
	}

	return tx.Model(&WarehouseStock{}).
		Where("shop_id = ? AND warehouse_id = ? AND product_id = ?", shopId, warehouseId, productId).
		Update("qty", gorm.Expr("qty + ?", qty)).Error
}

func transferWarehouseToShop(tx *gorm.DB, shopId string, warehouseId, productId, qty int) error {

	result := tx.Model(&WarehouseStock{}).
		Where("shop_id = ? AND warehouse_id = ? AND product_id = ? AND qty >= ?", shopId, warehouseId, productId, qty).
		Update("qty", gorm.Expr("qty - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorInsufficientWarehouseStock
	}

	return restockProduct(tx, shopId, productId, qty)
}

// fetchOrCreateWarehouseStock returns the stock row for (warehouse, product),
// creating it with zero qty when absent.
func fetchOrCreateWarehouseStock(tx *gorm.DB, shopId string, warehouseId, productId int) (*WarehouseStock, error) {

	var row WarehouseStock
	err := tx.Where("shop_id = ? AND warehouse_id = ? AND product_id = ?", shopId, warehouseId, productId).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = WarehouseStock{
		ShopId:      shopId,
		WarehouseId: warehouseId,
		ProductId:   productId,
		Qty:         0,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListTransfers returns the audit trail, newest first, optionally filtered
// by warehouse or product.
func ListTransfers(ctx context.Context, shop *Shop, warehouseId, productId *int) ([]*StockTransfer, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if warehouseId != nil {
		dbCtx = dbCtx.Where("warehouse_id = ?", *warehouseId)
	}
	if productId != nil {
		dbCtx = dbCtx.Where("product_id = ?", *productId)
	}

	var results []*StockTransfer
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
