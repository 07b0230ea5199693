package models

import (
	"context"
	"strings"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
)

type Vendor struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ShopId    string    `gorm:"index;not null" json:"shop_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Contact   string    `gorm:"size:20" json:"contact"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact"`
}

func (input *NewVendor) validate(ctx context.Context, shopId string, id int) error {
	if len(strings.TrimSpace(input.Contact)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Contact, utils.CountryCode); err != nil {
			return err
		}
		if err := utils.ValidateUnique[Vendor](ctx, shopId, "contact", input.Contact, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateVendor(ctx context.Context, shop *Shop, input *NewVendor) (*Vendor, error) {

	if err := input.validate(ctx, shop.ID.String(), 0); err != nil {
		return nil, err
	}

	vendor := Vendor{
		ShopId:  shop.ID.String(),
		Name:    input.Name,
		Contact: input.Contact,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func UpdateVendor(ctx context.Context, shop *Shop, id int, input *NewVendor) (*Vendor, error) {

	if err := input.validate(ctx, shop.ID.String(), id); err != nil {
		return nil, err
	}

	vendor, err := utils.FetchModel[Vendor](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(vendor).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Contact": input.Contact,
	}).Error
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

func DeleteVendor(ctx context.Context, shop *Shop, id int) (*Vendor, error) {

	vendor, err := utils.FetchModel[Vendor](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&VendorTransaction{}).
		Where("vendor_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrorNotAllowed
	}

	if err := db.WithContext(ctx).Delete(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func GetVendor(ctx context.Context, shop *Shop, id int) (*Vendor, error) {
	return utils.FetchModel[Vendor](ctx, shop.ID.String(), id)
}

func ListVendors(ctx context.Context, shop *Shop, name *string) ([]*Vendor, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Vendor
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
