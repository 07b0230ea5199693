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

// CustomerOrderedItem is one sell line: a product reserved out of shop stock
// at a negotiated unit price. One line per product per order.
type CustomerOrderedItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ShopId    string          `gorm:"uniqueIndex:idx_sell_line;not null" json:"shop_id"`
	OrderId   int             `gorm:"uniqueIndex:idx_sell_line;not null" json:"order_id"`
	ProductId int             `gorm:"uniqueIndex:idx_sell_line;not null" json:"product_id"`
	Quantity  int             `gorm:"not null;default:0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Bill      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bill"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSellLine struct {
	OrderId   int             `json:"order_id" binding:"required"`
	ProductId int             `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type UpdateSellLineInput struct {
	Quantity int `json:"quantity" binding:"required"`
}

// SellLineResult carries the persisted line together with the recomputed
// bill, so callers see both effects of the mutation.
type SellLineResult struct {
	Line *CustomerOrderedItem `json:"line"`
	Bill *CustomerBill        `json:"bill"`
}

// lineBill is the derived amount of one order line.
func lineBill(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CreateSellLine reserves stock for a product on a sell order and recomputes
// the order's bill. The line's bill uses the negotiated unit price. All
// writes happen in one DB transaction; any rejection leaves stock untouched.
func CreateSellLine(ctx context.Context, shop *Shop, input *NewSellLine) (*SellLineResult, error) {

	if input.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}
	if err := utils.ValidateResourceId[CustomerTransaction](ctx, shop.ID.String(), input.OrderId); err != nil {
		return nil, errors.New("order not found")
	}
	if err := utils.ValidateResourceId[Product](ctx, shop.ID.String(), input.ProductId); err != nil {
		return nil, errors.New("product not found")
	}

	line := CustomerOrderedItem{
		ShopId:    shop.ID.String(),
		OrderId:   input.OrderId,
		ProductId: input.ProductId,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
		Bill:      lineBill(input.UnitPrice, input.Quantity),
	}
	var bill *CustomerBill

	err := withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		// no incremental merging: a second line for the same product is rejected
		var count int64
		err := tx.Model(&CustomerOrderedItem{}).
			Where("shop_id = ? AND order_id = ? AND product_id = ?", shop.ID.String(), input.OrderId, input.ProductId).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.ErrorDuplicateLine
		}

		if err := reserveProductStock(tx, shop.ID.String(), input.ProductId, input.Quantity, utils.ErrorInsufficientStock); err != nil {
			return err
		}

		if err := tx.Create(&line).Error; err != nil {
			return err
		}

		bill, err = recomputeCustomerBill(tx, shop.ID.String(), input.OrderId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SellLineResult{Line: &line, Bill: bill}, nil
}

// UpdateSellLine changes a line's quantity: the old reservation is restored
// before the new one is applied, so the stock check sees the net change.
// The bill is recomputed from the product's current list selling price, not
// the line's negotiated price. That asymmetry with CreateSellLine is
// long-standing behavior; unifying it needs a product decision first.
func UpdateSellLine(ctx context.Context, shop *Shop, lineId int, input *UpdateSellLineInput) (*SellLineResult, error) {

	if input.Quantity < 0 {
		return nil, errors.New("quantity cannot be negative")
	}

	var line CustomerOrderedItem
	var bill *CustomerBill

	err := withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		if err := tx.Where("shop_id = ?", shop.ID.String()).First(&line, lineId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		var product Product
		if err := tx.Where("shop_id = ?", shop.ID.String()).First(&product, line.ProductId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		// candidate stock = (stock + oldQty) - newQty
		net := input.Quantity - line.Quantity
		if net > 0 {
			if err := reserveProductStock(tx, shop.ID.String(), line.ProductId, net, utils.ErrorInsufficientStock); err != nil {
				return err
			}
		} else if net < 0 {
			if err := restockProduct(tx, shop.ID.String(), line.ProductId, -net); err != nil {
				return err
			}
		}

		line.Quantity = input.Quantity
		line.UnitPrice = product.SellingPrice
		line.Bill = lineBill(product.SellingPrice, input.Quantity)
		err := tx.Model(&line).Updates(map[string]interface{}{
			"Quantity":  line.Quantity,
			"UnitPrice": line.UnitPrice,
			"Bill":      line.Bill,
		}).Error
		if err != nil {
			return err
		}

		bill, err = recomputeCustomerBill(tx, shop.ID.String(), line.OrderId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SellLineResult{Line: &line, Bill: bill}, nil
}

// ListSellLines returns the line items of one sell order.
func ListSellLines(ctx context.Context, shop *Shop, orderId int) ([]*CustomerOrderedItem, error) {

	if err := utils.ValidateResourceId[CustomerTransaction](ctx, shop.ID.String(), orderId); err != nil {
		return nil, errors.New("order not found")
	}

	db := config.GetDB()
	var results []*CustomerOrderedItem
	err := db.WithContext(ctx).
		Where("shop_id = ? AND order_id = ?", shop.ID.String(), orderId).
		Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
