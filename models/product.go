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

type Product struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ShopId         string          `gorm:"index;not null" json:"shop_id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	BuyingPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"buying_price"`
	AvgBuyingPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"avg_buying_price"`
	SellingPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	Stock          int             `gorm:"not null;default:0" json:"stock"`
	LowStockAt     int             `gorm:"not null;default:0" json:"low_stock_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name         string          `json:"name" binding:"required"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock"`
	LowStockAt   int             `json:"low_stock_at"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, shopId string, id int) error {
	if err := utils.ValidateUnique[Product](ctx, shopId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Stock < 0 {
		return errors.New("stock cannot be negative")
	}
	if input.BuyingPrice.IsNegative() || input.SellingPrice.IsNegative() {
		return errors.New("price cannot be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, shop *Shop, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, shop.ID.String(), 0); err != nil {
		return nil, err
	}

	product := Product{
		ShopId:       shop.ID.String(),
		Name:         input.Name,
		BuyingPrice:  input.BuyingPrice,
		SellingPrice: input.SellingPrice,
		Stock:        input.Stock,
		LowStockAt:   input.LowStockAt,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, shop *Shop, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, shop.ID.String(), id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"Name":         input.Name,
		"BuyingPrice":  input.BuyingPrice,
		"SellingPrice": input.SellingPrice,
		"Stock":        input.Stock,
		"LowStockAt":   input.LowStockAt,
	}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

func DeleteProduct(ctx context.Context, shop *Shop, id int) (*Product, error) {

	product, err := utils.FetchModel[Product](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	// products referenced by order lines stay for bill history
	var count int64
	if err := db.WithContext(ctx).Model(&CustomerOrderedItem{}).
		Where("product_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		if err := db.WithContext(ctx).Model(&VendorOrderedItem{}).
			Where("product_id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
	}
	if count > 0 {
		return nil, errors.New("product has order history")
	}

	if err := db.WithContext(ctx).Delete(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, shop *Shop, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, shop.ID.String(), id)
}

func ListProducts(ctx context.Context, shop *Shop, name *string) ([]*Product, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Product
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListLowStockProducts returns products at or below their alert threshold.
func ListLowStockProducts(ctx context.Context, shop *Shop) ([]*Product, error) {

	db := config.GetDB()
	var results []*Product
	err := db.WithContext(ctx).
		Where("shop_id = ? AND low_stock_at > 0 AND stock <= low_stock_at", shop.ID.String()).
		Order("stock").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// reserveProductStock decrements shop-level stock inside tx using a
// conditional update, so concurrent decrements cannot drive stock negative.
// Zero matched rows means the product lacks the requested quantity.
func reserveProductStock(tx *gorm.DB, shopId string, productId int, qty int, insufficient error) error {
	if qty < 0 {
		return errors.New("quantity cannot be negative")
	}
	res := tx.Model(&Product{}).
		Where("shop_id = ? AND id = ? AND stock >= ?", shopId, productId, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return insufficient
	}
	return nil
}

// restockProduct increments shop-level stock inside tx (no upper bound).
func restockProduct(tx *gorm.DB, shopId string, productId int, qty int) error {
	if qty < 0 {
		return errors.New("quantity cannot be negative")
	}
	return tx.Model(&Product{}).
		Where("shop_id = ? AND id = ?", shopId, productId).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

// nextAvgBuyingPrice is the running purchase-price average: the first buy
// seeds it, every later buy averages the current value with the new price.
// A two-point mean, not a weighted history.
func nextAvgBuyingPrice(current, custom decimal.Decimal) decimal.Decimal {
	if current.IsZero() {
		return custom
	}
	return current.Add(custom).Div(decimal.NewFromInt(2))
}
