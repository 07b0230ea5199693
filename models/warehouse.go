package models

import (
	"context"
	"errors"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
)

type Warehouse struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ShopId    string    `gorm:"index;not null" json:"shop_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WarehouseStock tracks per-warehouse quantity of a product. Rows are
// created lazily on the first transfer into a warehouse.
type WarehouseStock struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ShopId      string    `gorm:"index;not null" json:"shop_id"`
	WarehouseId int       `gorm:"uniqueIndex:idx_warehouse_product;not null" json:"warehouse_id"`
	ProductId   int       `gorm:"uniqueIndex:idx_warehouse_product;not null" json:"product_id"`
	Qty         int       `gorm:"not null;default:0" json:"qty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Name string `json:"name" binding:"required"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewWarehouse) validate(ctx context.Context, shopId string, id int) error {
	return utils.ValidateUnique[Warehouse](ctx, shopId, "name", input.Name, id)
}

func CreateWarehouse(ctx context.Context, shop *Shop, input *NewWarehouse) (*Warehouse, error) {

	if err := input.validate(ctx, shop.ID.String(), 0); err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		ShopId: shop.ID.String(),
		Name:   input.Name,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func UpdateWarehouse(ctx context.Context, shop *Shop, id int, input *NewWarehouse) (*Warehouse, error) {

	if err := input.validate(ctx, shop.ID.String(), id); err != nil {
		return nil, err
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(warehouse).Update("Name", input.Name).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func DeleteWarehouse(ctx context.Context, shop *Shop, id int) (*Warehouse, error) {

	warehouse, err := utils.FetchModel[Warehouse](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	// check if warehouse still holds stock
	var count int64
	if err := db.WithContext(ctx).Model(&WarehouseStock{}).
		Where("warehouse_id = ? AND qty > 0", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("warehouse has stock")
	}

	if err := db.WithContext(ctx).Delete(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func GetWarehouse(ctx context.Context, shop *Shop, id int) (*Warehouse, error) {
	return utils.FetchModel[Warehouse](ctx, shop.ID.String(), id)
}

func ListWarehouses(ctx context.Context, shop *Shop, name *string) ([]*Warehouse, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Warehouse
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListWarehouseStock returns the stock rows of one warehouse.
func ListWarehouseStock(ctx context.Context, shop *Shop, warehouseId int) ([]*WarehouseStock, error) {

	if err := utils.ValidateResourceId[Warehouse](ctx, shop.ID.String(), warehouseId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*WarehouseStock
	err := db.WithContext(ctx).
		Where("shop_id = ? AND warehouse_id = ?", shop.ID.String(), warehouseId).
		Order("product_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
