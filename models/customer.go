package models

import (
	"context"
	"strings"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ShopId    string    `gorm:"index;not null" json:"shop_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Contact   string    `gorm:"size:20" json:"contact"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, shopId string, id int) error {
	if len(strings.TrimSpace(input.Contact)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Contact, utils.CountryCode); err != nil {
			return err
		}
		if err := utils.ValidateUnique[Customer](ctx, shopId, "contact", input.Contact, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, shop *Shop, input *NewCustomer) (*Customer, error) {

	if err := input.validate(ctx, shop.ID.String(), 0); err != nil {
		return nil, err
	}

	customer := Customer{
		ShopId:  shop.ID.String(),
		Name:    input.Name,
		Contact: input.Contact,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, shop *Shop, id int, input *NewCustomer) (*Customer, error) {

	if err := input.validate(ctx, shop.ID.String(), id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(customer).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Contact": input.Contact,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, shop *Shop, id int) (*Customer, error) {

	customer, err := utils.FetchModel[Customer](ctx, shop.ID.String(), id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&CustomerTransaction{}).
		Where("customer_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ErrorNotAllowed
	}

	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, shop *Shop, id int) (*Customer, error) {
	return utils.FetchModel[Customer](ctx, shop.ID.String(), id)
}

func ListCustomers(ctx context.Context, shop *Shop, name *string) ([]*Customer, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	var results []*Customer
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
