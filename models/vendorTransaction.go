package models

import (
	"context"
	"errors"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
)

// VendorTransaction is a purchase order placed with a vendor.
type VendorTransaction struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ShopId    string    `gorm:"index;not null" json:"shop_id"`
	VendorId  int       `gorm:"index;not null" json:"vendor_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendorTransaction struct {
	VendorId int `json:"vendor_id" binding:"required"`
}

// CreateVendorTransaction opens a purchase order and its zero bill in one DB
// transaction.
func CreateVendorTransaction(ctx context.Context, shop *Shop, input *NewVendorTransaction) (*VendorTransaction, error) {

	if err := utils.ValidateResourceId[Vendor](ctx, shop.ID.String(), input.VendorId); err != nil {
		return nil, errors.New("vendor not found")
	}

	order := VendorTransaction{
		ShopId:   shop.ID.String(),
		VendorId: input.VendorId,
	}

	db := config.GetDB()
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	bill := VendorBill{
		ShopId:  shop.ID.String(),
		OrderId: order.ID,
	}
	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetVendorTransaction(ctx context.Context, shop *Shop, id int) (*VendorTransaction, error) {
	return utils.FetchModel[VendorTransaction](ctx, shop.ID.String(), id)
}

func ListVendorTransactions(ctx context.Context, shop *Shop, vendorId *int) ([]*VendorTransaction, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if vendorId != nil && *vendorId > 0 {
		dbCtx = dbCtx.Where("vendor_id = ?", *vendorId)
	}

	var results []*VendorTransaction
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
