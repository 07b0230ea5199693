package utils

import (
	"context"

	"github.com/saif43/inventory-app-api/config"
)

/* DB fetching */

// fetch model from db
// (shop_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, shopId string, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("shop_id = ?", shopId)
	// preloading
	for _, field := range associations {
		dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}
