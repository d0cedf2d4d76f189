package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/vendor_credits/config"
	"github.com/mmdatafocus/vendor_credits/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("vendor-credits")

// VendorCreditService persists allocation, void, refund and clone results.
// Every write takes its locks first, then runs in one database transaction
// together with its outbox event.
type VendorCreditService struct {
	DB      *gorm.DB
	Logger  *logrus.Logger
	Locker  Locker
	LockTTL time.Duration
	Tracer  trace.Tracer
	Now     func() time.Time
}

func NewVendorCreditService(db *gorm.DB, logger *logrus.Logger, locker Locker) *VendorCreditService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &VendorCreditService{
		DB:      db,
		Logger:  logger,
		Locker:  locker,
		LockTTL: config.LockTTL(),
		Tracer:  tracer,
		Now:     time.Now,
	}
}

func (s *VendorCreditService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *VendorCreditService) startSpan(ctx context.Context, name string, creditId int) (context.Context, trace.Span) {
	t := s.Tracer
	if t == nil {
		t = tracer
	}
	ctx, span := t.Start(ctx, name)
	span.SetAttributes(attribute.Int("vendor_credit.id", creditId))
	if businessId, ok := utils.GetBusinessIdFromContext(ctx); ok {
		span.SetAttributes(attribute.String("business.id", businessId))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func businessIdFromContext(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", errors.New("business id is required")
	}
	return businessId, nil
}
