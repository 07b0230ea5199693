package models

import (
	"context"
	"errors"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
)

// CustomerTransaction is a sell order: a customer's running order with its
// line items and one companion bill.
type CustomerTransaction struct {
	ID         int       `gorm:"primary_key" json:"id"`
	ShopId     string    `gorm:"index;not null" json:"shop_id"`
	CustomerId int       `gorm:"index;not null" json:"customer_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomerTransaction struct {
	CustomerId int `json:"customer_id" binding:"required"`
}

// CreateCustomerTransaction opens a sell order and its zero bill in one DB
// transaction. The bill is an explicit step here, not a persistence hook.
func CreateCustomerTransaction(ctx context.Context, shop *Shop, input *NewCustomerTransaction) (*CustomerTransaction, error) {

	if err := utils.ValidateResourceId[Customer](ctx, shop.ID.String(), input.CustomerId); err != nil {
		return nil, errors.New("customer not found")
	}

	order := CustomerTransaction{
		ShopId:     shop.ID.String(),
		CustomerId: input.CustomerId,
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

	bill := CustomerBill{
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

func GetCustomerTransaction(ctx context.Context, shop *Shop, id int) (*CustomerTransaction, error) {
	return utils.FetchModel[CustomerTransaction](ctx, shop.ID.String(), id)
}

func ListCustomerTransactions(ctx context.Context, shop *Shop, customerId *int) ([]*CustomerTransaction, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shop.ID.String())
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}

	var results []*CustomerTransaction
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
