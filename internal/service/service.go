package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/rentloop/rental-engine/pkg/errors"
)

// PaymentGateway submits a funding charge to the external processor. Protocol
// detail lives outside this engine; only the resulting reference is recorded.
type PaymentGateway interface {
	Submit(ctx context.Context, amount decimal.Decimal, payerID uuid.UUID) (string, error)
}

type loggingGateway struct{}

// NewLoggingGateway returns a gateway stub that acknowledges every charge.
// Production deployments inject the real processor adapter here.
func NewLoggingGateway() PaymentGateway {
	return loggingGateway{}
}

func (loggingGateway) Submit(ctx context.Context, amount decimal.Decimal, payerID uuid.UUID) (string, error) {
	return fmt.Sprintf("gw-%s", uuid.New()), nil
}

// wrapStoreError classifies infrastructure failures so callers can apply
// retry policy only to the transient class.
func wrapStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return customError.WrapStoreTimeout(err)
	}
	return customError.WrapDatabaseError(err)
}
