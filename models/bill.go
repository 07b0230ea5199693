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

// CustomerBill is the running bill of one customer transaction.
// Invariant: due = total_bill - paid after every mutation.
type CustomerBill struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ShopId    string          `gorm:"index;not null" json:"shop_id"`
	OrderId   int             `gorm:"uniqueIndex;not null" json:"order_id"`
	TotalBill decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_bill"`
	Paid      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid"`
	Due       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"due"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// VendorBill mirrors CustomerBill for purchase orders; settling it spends
// shop cash instead of earning it.
type VendorBill struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ShopId    string          `gorm:"index;not null" json:"shop_id"`
	OrderId   int             `gorm:"uniqueIndex;not null" json:"order_id"`
	TotalBill decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_bill"`
	Paid      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid"`
	Due       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"due"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// validateSettlement checks a payment delta against the bill's remaining due.
func validateSettlement(total, paid, delta decimal.Decimal) error {
	if delta.IsNegative() || delta.IsZero() {
		return errors.New("payment amount must be positive")
	}
	if paid.Add(delta).GreaterThan(total) {
		return utils.ErrorOverPaid
	}
	return nil
}

// recomputeCustomerBill re-derives the bill's total from its order lines
// inside tx and keeps due consistent with the amount already paid. The first
// line naturally seeds due from its zero initial state.
func recomputeCustomerBill(tx *gorm.DB, shopId string, orderId int) (*CustomerBill, error) {

	var total decimal.Decimal
	err := tx.Model(&CustomerOrderedItem{}).
		Where("shop_id = ? AND order_id = ?", shopId, orderId).
		Select("COALESCE(SUM(bill), 0)").Scan(&total).Error
	if err != nil {
		return nil, err
	}

	var bill CustomerBill
	if err := tx.Where("shop_id = ? AND order_id = ?", shopId, orderId).First(&bill).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	bill.TotalBill = total
	bill.Due = total.Sub(bill.Paid)
	err = tx.Model(&bill).Updates(map[string]interface{}{
		"TotalBill": bill.TotalBill,
		"Due":       bill.Due,
	}).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func recomputeVendorBill(tx *gorm.DB, shopId string, orderId int) (*VendorBill, error) {

	var total decimal.Decimal
	err := tx.Model(&VendorOrderedItem{}).
		Where("shop_id = ? AND order_id = ?", shopId, orderId).
		Select("COALESCE(SUM(bill), 0)").Scan(&total).Error
	if err != nil {
		return nil, err
	}

	var bill VendorBill
	if err := tx.Where("shop_id = ? AND order_id = ?", shopId, orderId).First(&bill).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	bill.TotalBill = total
	bill.Due = total.Sub(bill.Paid)
	err = tx.Model(&bill).Updates(map[string]interface{}{
		"TotalBill": bill.TotalBill,
		"Due":       bill.Due,
	}).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// SettleCustomerBill records a payment received from a customer. The paid
// delta lands in the shop's cash balance; paying past the bill total is
// rejected and nothing changes.
func SettleCustomerBill(ctx context.Context, shop *Shop, billId int, input *NewPayment) (*CustomerBill, error) {

	var bill CustomerBill

	err := withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		if err := tx.Where("shop_id = ?", shop.ID.String()).First(&bill, billId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		if err := validateSettlement(bill.TotalBill, bill.Paid, input.Amount); err != nil {
			return err
		}

		bill.Paid = bill.Paid.Add(input.Amount)
		bill.Due = bill.TotalBill.Sub(bill.Paid)
		err := tx.Model(&bill).Updates(map[string]interface{}{
			"Paid": bill.Paid,
			"Due":  bill.Due,
		}).Error
		if err != nil {
			return err
		}

		return addShopMoney(tx, shop.ID.String(), input.Amount)
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// SettleVendorBill records a payment made to a vendor. The delta must be
// covered by the shop's cash balance and may not exceed the remaining due.
func SettleVendorBill(ctx context.Context, shop *Shop, billId int, input *NewPayment) (*VendorBill, error) {

	var bill VendorBill

	err := withShopMutationLock(ctx, shop.ID.String(), func(tx *gorm.DB) error {
		if err := tx.Where("shop_id = ?", shop.ID.String()).First(&bill, billId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		if err := validateSettlement(bill.TotalBill, bill.Paid, input.Amount); err != nil {
			return err
		}

		// spends cash: the conditional update inside rejects when the balance
		// cannot cover the delta
		if err := addShopMoney(tx, shop.ID.String(), input.Amount.Neg()); err != nil {
			return err
		}

		bill.Paid = bill.Paid.Add(input.Amount)
		bill.Due = bill.TotalBill.Sub(bill.Paid)
		return tx.Model(&bill).Updates(map[string]interface{}{
			"Paid": bill.Paid,
			"Due":  bill.Due,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func GetCustomerBill(ctx context.Context, shop *Shop, id int) (*CustomerBill, error) {
	return utils.FetchModel[CustomerBill](ctx, shop.ID.String(), id)
}

func GetVendorBill(ctx context.Context, shop *Shop, id int) (*VendorBill, error) {
	return utils.FetchModel[VendorBill](ctx, shop.ID.String(), id)
}

// GetCustomerBillByOrder returns the bill belonging to one customer
// transaction.
func GetCustomerBillByOrder(ctx context.Context, shop *Shop, orderId int) (*CustomerBill, error) {
	db := config.GetDB()
	var bill CustomerBill
	err := db.WithContext(ctx).
		Where("shop_id = ? AND order_id = ?", shop.ID.String(), orderId).
		First(&bill).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &bill, nil
}

func GetVendorBillByOrder(ctx context.Context, shop *Shop, orderId int) (*VendorBill, error) {
	db := config.GetDB()
	var bill VendorBill
	err := db.WithContext(ctx).
		Where("shop_id = ? AND order_id = ?", shop.ID.String(), orderId).
		First(&bill).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &bill, nil
}
