package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shop is the tenant boundary. Every other record carries its shop_id and is
// invisible outside it.
type Shop struct {
	ID        uuid.UUID       `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Money     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"money"`
	OwnerId   int             `gorm:"uniqueIndex;not null" json:"owner_id"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewShop struct {
	Name string `json:"name" binding:"required"`
}

/*
caches:
	Shop:$shopId
*/

func (shop *Shop) StoreRedis() error {
	return config.SetRedisObject("Shop:"+shop.ID.String(), shop, 0)
}

func (shop *Shop) RemoveRedis() error {
	return config.RemoveRedisKey("Shop:" + shop.ID.String())
}

func (shop *Shop) BeforeCreate(tx *gorm.DB) error {
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}
	return nil
}

// ResolveActingShop determines the shop a principal acts for:
// owners resolve to their own shop; managers and salesmen resolve to the
// shop owned by the account that created them. Admins have no acting shop,
// administrative endpoints bypass scoping explicitly instead.
func ResolveActingShop(ctx context.Context) (*Shop, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrorNoShopAssigned
	}

	user, err := GetUser(ctx, userId)
	if err != nil {
		return nil, utils.ErrorNoShopAssigned
	}

	switch user.Role {
	case UserRoleOwner:
		return getShopByOwner(ctx, user.ID)
	case UserRoleManager, UserRoleSalesman:
		if user.CreatedById == 0 {
			return nil, utils.ErrorNoShopAssigned
		}
		return getShopByOwner(ctx, user.CreatedById)
	}
	return nil, utils.ErrorNoShopAssigned
}

func getShopByOwner(ctx context.Context, ownerId int) (*Shop, error) {
	db := config.GetDB()
	var shop Shop
	err := db.WithContext(ctx).Where("owner_id = ?", ownerId).First(&shop).Error
	if err != nil {
		return nil, utils.ErrorNoShopAssigned
	}
	return &shop, nil
}

func GetShopById(ctx context.Context, id string) (*Shop, error) {

	var result Shop

	exists, err := config.GetRedisObject("Shop:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// CreateShop registers the acting owner's shop. One shop per owner.
func CreateShop(ctx context.Context, input *NewShop) (*Shop, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrorNotAllowed
	}

	user, err := GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.Role != UserRoleOwner {
		return nil, utils.ErrorNotAllowed
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Shop{}).Where("owner_id = ?", userId).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("owner already has a shop")
	}

	shop := Shop{
		Name:    input.Name,
		Money:   decimal.Zero,
		OwnerId: userId,
	}

	if err := db.WithContext(ctx).Create(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func UpdateShop(ctx context.Context, id string, input *NewShop) (*Shop, error) {
	shop, err := ResolveActingShop(ctx)
	if err != nil {
		return nil, err
	}
	if shop.ID.String() != id {
		return nil, utils.ErrorNotAllowed
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(shop).Update("Name", input.Name).Error; err != nil {
		return nil, err
	}
	if err := shop.RemoveRedis(); err != nil {
		return nil, err
	}
	return shop, nil
}

// ListShops returns every shop; admin only (scoping bypassed by the caller's
// admin context).
func ListShops(ctx context.Context) ([]*Shop, error) {
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	if !isAdmin {
		return nil, utils.ErrorNotAllowed
	}

	db := config.GetDB()
	var results []*Shop
	if err := db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// addShopMoney adjusts the shop's cash balance inside tx. Negative deltas use
// a conditional update so the balance can never be driven below zero, even
// under concurrent settlements; zero matched rows means insufficient funds.
func addShopMoney(tx *gorm.DB, shopId string, delta decimal.Decimal) error {
	if delta.IsNegative() {
		res := tx.Model(&Shop{}).
			Where("id = ? AND money >= ?", shopId, delta.Neg()).
			Update("money", gorm.Expr("money + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrorInsufficientFunds
		}
	} else {
		if err := tx.Model(&Shop{}).
			Where("id = ?", shopId).
			Update("money", gorm.Expr("money + ?", delta)).Error; err != nil {
			return err
		}
	}
	// balance changed, cached copy is stale
	return config.RemoveRedisKey("Shop:" + shopId)
}

// acquireShopMutationLock serializes stock/bill mutations per shop across
// instances using MySQL advisory locks. GET_LOCK is connection-scoped, so it
// must be called on the same *gorm.DB that runs the mutation transaction.
func acquireShopMutationLock(tx *gorm.DB, shopId string) error {
	lockName := fmt.Sprintf("shopmutation:%s", shopId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire mutation lock for shop_id=%s", shopId)
	}
	return nil
}

func releaseShopMutationLock(tx *gorm.DB, shopId string) {
	lockName := fmt.Sprintf("shopmutation:%s", shopId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// withShopMutationLock runs fn inside a transaction that holds the shop's
// advisory lock for its whole duration.
func withShopMutationLock(ctx context.Context, shopId string, fn func(tx *gorm.DB) error) error {
	return runShopMutation(config.GetDB().WithContext(ctx), shopId, fn)
}

// runShopMutation wraps fn in a transaction bracketed by the shop's advisory
// lock. The release is deferred inside the closure so it executes on the live
// transaction, before gorm commits or rolls back; releasing any later would
// be a no-op and the pooled connection would keep the lock.
func runShopMutation(db *gorm.DB, shopId string, fn func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := acquireShopMutationLock(tx, shopId); err != nil {
			return err
		}
		defer releaseShopMutationLock(tx, shopId)
		return fn(tx)
	})
}
