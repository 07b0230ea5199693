package models

import (
	"context"
	"errors"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VendorOrderedItem is one buy line: a product received from a vendor into a
// delivery warehouse. Replenishment never fails a stock check.
type VendorOrderedItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ShopId      string          `gorm:"uniqueIndex:idx_buy_line;not null" json:"shop_id"`
	OrderId     int             `gorm:"uniqueIndex:idx_buy_line;not null" json:"order_id"`
	ProductId   int             `gorm:"uniqueIndex:idx_buy_line;not null" json:"product_id"`
	WarehouseId int             `gorm:"uniqueIndex:idx_buy_line;not null" json:"warehouse_id"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Bill        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bill"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBuyLine struct {
	OrderId     int             `json:"order_id" binding:"required"`
	ProductId   int             `json:"product_id" binding:"required"`
	WarehouseId int             `json:"warehouse_id"`
	Quantity    int             `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type BuyLineResult struct {
	Line *VendorOrderedItem `json:"line"`
	Bill *VendorBill        `json:"bill"`
}

// CreateBuyLine records a purchase line, tops up product stock and folds the
// custom unit price into the product's running average buying price. All
// writes happen in one DB transaction.
func CreateBuyLine(ctx context.Context, shop *Shop, input *NewBuyLine) (*BuyLineResult, error) {

	if input.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}
	if input.WarehouseId == 0 {
		return nil, utils.ErrorMissingWarehouse
	}
	if err := utils.ValidateResourceId[VendorTransaction](ctx, shop.ID.String(), input.OrderId); err != nil {
		return nil, errors.New("order not found")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, shop.ID.String(), input.WarehouseId); err != nil {
		return nil, utils.ErrorMissingWarehouse
	}

	db := config.GetDB()

	var product Product
	if err := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String()).First(&product, input.ProductId).Error; err != nil {
		return nil, errors.New("product not found")
	}

	line := VendorOrderedItem{
		ShopId:      shop.ID.String(),
		OrderId:     input.OrderId,
		ProductId:   input.ProductId,
		WarehouseId: input.WarehouseId,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		Bill:        lineBill(input.UnitPrice, input.Quantity),
	}
	var bill *VendorBill

	err := withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&VendorOrderedItem{}).
			Where("shop_id = ? AND order_id = ? AND product_id = ? AND warehouse_id = ?",
				shop.ID.String(), input.OrderId, input.ProductId, input.WarehouseId).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.ErrorDuplicateLine
		}

		if err := restockProduct(tx, shop.ID.String(), input.ProductId, input.Quantity); err != nil {
			return err
		}

		avg := nextAvgBuyingPrice(product.AvgBuyingPrice, input.UnitPrice)
		err = tx.Model(&Product{}).
			Where("id = ? AND shop_id = ?", input.ProductId, shop.ID.String()).
			Update("avg_buying_price", avg).Error
		if err != nil {
			return err
		}

		if err := tx.Create(&line).Error; err != nil {
			return err
		}

		bill, err = recomputeVendorBill(tx, shop.ID.String(), input.OrderId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BuyLineResult{Line: &line, Bill: bill}, nil
}

// ListBuyLines returns the line items of one buy order.
func ListBuyLines(ctx context.Context, shop *Shop, orderId int) ([]*VendorOrderedItem, error) {

	if err := utils.ValidateResourceId[VendorTransaction](ctx, shop.ID.String(), orderId); err != nil {
		return nil, errors.New("order not found")
	}

	db := config.GetDB()
	var results []*VendorOrderedItem
	err := db.WithContext(ctx).
		Where("shop_id = ? AND order_id = ?", shop.ID.String(), orderId).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
