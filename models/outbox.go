package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxMessage is written in the same transaction as the state change it describes.
// The dispatcher publishes it after commit.
type OutboxMessage struct {
	ID                  int                 `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	BusinessId          string              `gorm:"size:64;not null;index" json:"business_id"`
	TransactionDateTime time.Time           `gorm:"index;not null" json:"transaction_date_time"`
	ReferenceId         int                 `gorm:"index" json:"reference_id"`
	ReferenceType       OutboxReferenceType `gorm:"size:8;not null" json:"reference_type"`
	Action              OutboxAction        `gorm:"size:1;not null" json:"action"`
	OldObj              []byte              `gorm:"type:blob" json:"old_obj"`
	NewObj              []byte              `gorm:"type:blob" json:"new_obj"`
	PublishStatus       string              `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt         *time.Time          `gorm:"index" json:"published_at"`
	PubSubMessageId     *string             `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts     int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt       *time.Time          `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt            *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy            *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError    *string             `gorm:"type:text" json:"last_publish_error"`
	CorrelationId       string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt           time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishToOutbox records an event inside the caller's transaction. It does not
// publish anything itself.
func PublishToOutbox(ctx context.Context, tx *gorm.DB, businessId string, transactionDateTime time.Time, refId int, refType OutboxReferenceType, obj interface{}, oldObj interface{}, action OutboxAction) error {
	var newObjInByte []byte
	var oldObjInByte []byte
	var err error

	if action == OutboxActionCreate || action == OutboxActionUpdate {
		newObjInByte, err = json.Marshal(obj)
		if err != nil {
			return err
		}
	}
	if action == OutboxActionUpdate || action == OutboxActionDelete {
		oldObjInByte, err = json.Marshal(oldObj)
		if err != nil {
			return err
		}
	}

	record := OutboxMessage{
		BusinessId:          businessId,
		TransactionDateTime: transactionDateTime,
		ReferenceId:         refId,
		ReferenceType:       refType,
		Action:              action,
		NewObj:              newObjInByte,
		OldObj:              oldObjInByte,
		PublishStatus:       OutboxPublishStatusPending,
		CorrelationId:       correlationIdFromContextOrNew(ctx),
	}
	return tx.WithContext(ctx).Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToPubSubMessage(record OutboxMessage) config.PubSubMessage {
	return config.PubSubMessage{
		ID:                  record.ID,
		BusinessId:          record.BusinessId,
		TransactionDateTime: record.TransactionDateTime,
		ReferenceId:         record.ReferenceId,
		ReferenceType:       string(record.ReferenceType),
		Action:              string(record.Action),
		OldObj:              record.OldObj,
		NewObj:              record.NewObj,
		CorrelationId:       record.CorrelationId,
	}
}

// OutboxStatus is the publish state of the latest outbox row for a document.
type OutboxStatus struct {
	RecordId         int                 `json:"record_id"`
	ReferenceType    OutboxReferenceType `json:"reference_type"`
	ReferenceId      int                 `json:"reference_id"`
	PublishStatus    string              `json:"publish_status"`
	PublishAttempts  int                 `json:"publish_attempts"`
	NextAttemptAt    *time.Time          `json:"next_attempt_at"`
	LastPublishError *string             `json:"last_publish_error"`
	CreatedAt        time.Time           `json:"created_at"`
	PublishedAt      *time.Time          `json:"published_at"`
}

func GetOutboxStatus(ctx context.Context, db *gorm.DB, businessId string, refType OutboxReferenceType, refId int) (*OutboxStatus, error) {
	var rec OutboxMessage
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, refType, refId).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &OutboxStatus{
		RecordId:         rec.ID,
		ReferenceType:    rec.ReferenceType,
		ReferenceId:      rec.ReferenceId,
		PublishStatus:    rec.PublishStatus,
		PublishAttempts:  rec.PublishAttempts,
		NextAttemptAt:    rec.NextAttemptAt,
		LastPublishError: rec.LastPublishError,
		CreatedAt:        rec.CreatedAt,
		PublishedAt:      rec.PublishedAt,
	}, nil
}

// RequeueOutbox puts a document's unsent rows (FAILED or DEAD) back to PENDING
// with a fresh attempt budget.
func RequeueOutbox(ctx context.Context, db *gorm.DB, businessId string, refType OutboxReferenceType, refId int) (*OutboxStatus, error) {
	res := db.WithContext(ctx).
		Model(&OutboxMessage{}).
		Where("business_id = ? AND reference_type = ? AND reference_id = ? AND publish_status IN ?",
			businessId, refType, refId, []string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(pendingAgain(true))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return GetOutboxStatus(ctx, db, businessId, refType, refId)
}

// RequeueStaleOutbox hands PROCESSING rows claimed at or before claimedBefore back to
// PENDING. Attempts already counted are kept.
func RequeueStaleOutbox(ctx context.Context, db *gorm.DB, claimedBefore time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&OutboxMessage{}).
		Where("publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?", OutboxPublishStatusProcessing, claimedBefore).
		Updates(pendingAgain(false))
	return res.RowsAffected, res.Error
}

func pendingAgain(resetAttempts bool) map[string]interface{} {
	fields := map[string]interface{}{
		"publish_status":  OutboxPublishStatusPending,
		"next_attempt_at": nil,
		"locked_at":       nil,
		"locked_by":       nil,
	}
	if resetAttempts {
		fields["publish_attempts"] = 0
	}
	return fields
}

// OutboxClaim selects the rows one dispatcher pass takes.
type OutboxClaim struct {
	By    string
	At    time.Time
	Limit int
	// empty means every event type
	ReferenceTypes []OutboxReferenceType
}

// ClaimOutboxBatch marks up to claim.Limit due PENDING or FAILED rows as PROCESSING
// for claim.By and returns them with the new attempt already counted. Rows locked by
// another claiming transaction are skipped.
func ClaimOutboxBatch(ctx context.Context, db *gorm.DB, claim OutboxClaim) ([]OutboxMessage, error) {
	limit := claim.Limit
	if limit <= 0 {
		limit = 50
	}

	var claimed []OutboxMessage
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("publish_status IN ?", []string{OutboxPublishStatusPending, OutboxPublishStatusFailed}).
			Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", claim.At)
		if len(claim.ReferenceTypes) > 0 {
			q = q.Where("reference_type IN ?", claim.ReferenceTypes)
		}
		err := q.Order("id").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&claimed).Error
		if err != nil || len(claimed) == 0 {
			return err
		}

		ids := make([]int, len(claimed))
		for i := range claimed {
			ids[i] = claimed[i].ID
			claimed[i].PublishStatus = OutboxPublishStatusProcessing
			claimed[i].PublishAttempts++
			claimed[i].LockedAt = &claim.At
			claimed[i].LockedBy = &claim.By
			claimed[i].NextAttemptAt = nil
		}
		return tx.Model(&OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"publish_status":   OutboxPublishStatusProcessing,
				"publish_attempts": gorm.Expr("publish_attempts + 1"),
				"locked_at":        claim.At,
				"locked_by":        claim.By,
				"next_attempt_at":  nil,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (m OutboxMessage) MarkSent(ctx context.Context, db *gorm.DB, messageId string, at time.Time) error {
	return m.release(ctx, db, map[string]interface{}{
		"publish_status":     OutboxPublishStatusSent,
		"published_at":       at,
		"pub_sub_message_id": messageId,
		"last_publish_error": nil,
	})
}

func (m OutboxMessage) MarkRetry(ctx context.Context, db *gorm.DB, reason string, next time.Time) error {
	return m.release(ctx, db, map[string]interface{}{
		"publish_status":     OutboxPublishStatusFailed,
		"last_publish_error": reason,
		"next_attempt_at":    next,
	})
}

func (m OutboxMessage) MarkDead(ctx context.Context, db *gorm.DB, reason string) error {
	return m.release(ctx, db, map[string]interface{}{
		"publish_status":     OutboxPublishStatusDead,
		"last_publish_error": reason,
		"next_attempt_at":    nil,
	})
}

// release writes the publish outcome only while the row is still held by this claim,
// so a claim that went stale and was taken over cannot overwrite the newer result.
func (m OutboxMessage) release(ctx context.Context, db *gorm.DB, fields map[string]interface{}) error {
	if m.LockedBy == nil {
		return ErrOutboxNotClaimed
	}
	fields["locked_at"] = nil
	fields["locked_by"] = nil
	res := db.WithContext(ctx).
		Model(&OutboxMessage{}).
		Where("id = ? AND publish_status = ? AND locked_by = ?", m.ID, OutboxPublishStatusProcessing, *m.LockedBy).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOutboxNotClaimed
	}
	return nil
}
