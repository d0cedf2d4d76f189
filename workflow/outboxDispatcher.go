package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Publisher sends one vendor credit event and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, msg config.PubSubMessage) (string, error)
}

// DispatchReport counts what one dispatch pass did.
type DispatchReport struct {
	Reclaimed int64 `json:"reclaimed"`
	Claimed   int   `json:"claimed"`
	Sent      int   `json:"sent"`
	Retrying  int   `json:"retrying"`
	Dead      int   `json:"dead"`
}

// OutboxDispatcher publishes vendor credit events once the transaction that wrote
// them has committed. Claims older than ClaimTimeout go back to PENDING at the
// start of the next pass.
type OutboxDispatcher struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Publisher Publisher
	Tracer    trace.Tracer
	ID        string

	// ReferenceTypes limits the events this dispatcher publishes; empty means all.
	ReferenceTypes []models.OutboxReferenceType

	BatchSize     int
	PollInterval  time.Duration
	ClaimTimeout  time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Now           func() time.Time
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger, publisher Publisher) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:            db,
		Logger:        logger,
		Publisher:     publisher,
		Tracer:        tracer,
		ID:            uuid.NewString(),
		BatchSize:     50,
		PollInterval:  500 * time.Millisecond,
		ClaimTimeout:  30 * time.Second,
		MaxAttempts:   20,
		RetryDelay:    5 * time.Second,
		MaxRetryDelay: 10 * time.Minute,
		Now:           time.Now,
	}
}

// Run dispatches until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			config.LogError(d.Logger, "OutboxDispatcher.go", "Run", "DispatchOnce", d.ID, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce reclaims stale claims, claims one batch and publishes it.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (DispatchReport, error) {
	var report DispatchReport
	if d.DB == nil || d.Publisher == nil {
		return report, errors.New("outbox dispatcher needs a database and a publisher")
	}
	now := d.now()

	reclaimed, err := models.RequeueStaleOutbox(ctx, d.DB, now.Add(-d.ClaimTimeout))
	if err != nil {
		return report, err
	}
	report.Reclaimed = reclaimed

	claimed, err := models.ClaimOutboxBatch(ctx, d.DB, models.OutboxClaim{
		By:             d.ID,
		At:             now,
		Limit:          d.BatchSize,
		ReferenceTypes: d.ReferenceTypes,
	})
	if err != nil {
		return report, err
	}
	report.Claimed = len(claimed)

	for _, event := range claimed {
		status, err := d.publish(ctx, event)
		if err != nil {
			config.LogError(d.Logger, "OutboxDispatcher.go", "DispatchOnce", "record "+status, event.ID, err)
			continue
		}
		switch status {
		case models.OutboxPublishStatusSent:
			report.Sent++
		case models.OutboxPublishStatusFailed:
			report.Retrying++
		case models.OutboxPublishStatusDead:
			report.Dead++
		}
	}
	return report, nil
}

// publish sends one event and records the outcome, returning the status written.
func (d *OutboxDispatcher) publish(ctx context.Context, event models.OutboxMessage) (status string, err error) {
	t := d.Tracer
	if t == nil {
		t = tracer
	}
	ctx, span := t.Start(ctx, "PublishVendorCreditEvent")
	span.SetAttributes(
		attribute.String("business.id", event.BusinessId),
		attribute.String("outbox.reference_type", string(event.ReferenceType)),
		attribute.Int("vendor_credit.id", event.ReferenceId),
		attribute.Int("outbox.attempt", event.PublishAttempts),
	)
	defer func() { endSpan(span, err) }()

	messageId, pubErr := d.Publisher.Publish(ctx, models.ConvertToPubSubMessage(event))
	if pubErr == nil {
		return models.OutboxPublishStatusSent, event.MarkSent(ctx, d.DB, messageId, d.now())
	}
	span.RecordError(pubErr)
	span.SetStatus(codes.Error, pubErr.Error())

	if d.MaxAttempts > 0 && event.PublishAttempts >= d.MaxAttempts {
		if d.Logger != nil {
			d.eventLog(event).Error("vendor credit event moved to DEAD: " + pubErr.Error())
		}
		return models.OutboxPublishStatusDead, event.MarkDead(ctx, d.DB, pubErr.Error())
	}

	next := d.now().Add(d.retryDelay(event.PublishAttempts))
	if d.Logger != nil {
		d.eventLog(event).WithField("next_attempt_at", next.Format(time.RFC3339)).
			Warn("vendor credit event publish failed: " + pubErr.Error())
	}
	return models.OutboxPublishStatusFailed, event.MarkRetry(ctx, d.DB, pubErr.Error(), next)
}

func (d *OutboxDispatcher) eventLog(event models.OutboxMessage) *logrus.Entry {
	return d.Logger.WithFields(logrus.Fields{
		"field":            "OutboxDispatcher",
		"business_id":      event.BusinessId,
		"vendor_credit_id": event.ReferenceId,
		"event_type":       event.ReferenceType,
		"correlation_id":   event.CorrelationId,
		"attempt":          event.PublishAttempts,
	})
}

// retryDelay doubles RetryDelay per earlier attempt, capped at MaxRetryDelay.
func (d *OutboxDispatcher) retryDelay(attempt int) time.Duration {
	delay := d.RetryDelay
	for i := 1; i < attempt; i++ {
		if d.MaxRetryDelay > 0 && delay >= d.MaxRetryDelay {
			break
		}
		delay *= 2
	}
	if d.MaxRetryDelay > 0 && delay > d.MaxRetryDelay {
		delay = d.MaxRetryDelay
	}
	return delay
}

func (d *OutboxDispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}
