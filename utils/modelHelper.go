package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* DB fetching */

// fetch model from db
// (business_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, db *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// fetch model with a row lock, to be called inside the transaction that writes it back
func FetchModelForUpdate[T any](ctx context.Context, tx *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	return FetchModel[T](ctx, tx.Clauses(LockingForUpdate()), businessId, id, associations...)
}

func LockingForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
