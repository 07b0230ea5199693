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

// Expense is a cash outflow unrelated to vendor bills (rent, salary, misc).
type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ShopId      string          `gorm:"index;not null" json:"shop_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewExpense struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// CreateExpense records the expense and deducts its amount from the shop's
// cash in one transaction. Cash cannot go negative.
func CreateExpense(ctx context.Context, shop *Shop, input *NewExpense) (*Expense, error) {

	if !input.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	expense := Expense{
		ShopId:      shop.ID.String(),
		Description: input.Description,
		Amount:      input.Amount,
	}

	err := withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		if err := addShopMoney(tx, shop.ID.String(), input.Amount.Neg()); err != nil {
			return err
		}
		return tx.Create(&expense).Error
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func GetExpense(ctx context.Context, shop *Shop, id int) (*Expense, error) {
	return utils.FetchModel[Expense](ctx, shop.ID.String(), id)
}

func ListExpenses(ctx context.Context, shop *Shop) ([]*Expense, error) {

	db := config.GetDB()
	var results []*Expense
	err := db.WithContext(ctx).
		Where("shop_id = ?", shop.ID.String()).
		Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
