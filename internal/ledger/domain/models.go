package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Provider transaction statuses reported over IPN.
const (
	StatusComplete        = "complete"
	StatusPartialRefunded = "partial_refunded"
	StatusRefunded        = "refunded"
	StatusRejected        = "rejected"
	StatusCanceled        = "canceled"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidLookup      = errors.New("invalid lookup column")
)

// TransactionRecord is one provider-reported event for an order. Rows are
// immutable once inserted; order history is derived by aggregation, never by
// updating a row in place. The only exception is the subscription flag, which
// the provider flips through dedicated IPN types.
type TransactionRecord struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID        snowflake.ID `json:"order_id" gorm:"not null;index"`
	TransactionID  string       `json:"transaction_id" gorm:"type:text;not null;index"`
	Status         string       `json:"status" gorm:"type:text;not null"`
	RefundedAmount float64      `json:"refunded_amount" gorm:"not null;default:0"`
	CreateTime     time.Time    `json:"create_time" gorm:"not null"`
	SubscriptionID *string      `json:"subscription_id" gorm:"type:text;index"`
	IsSubscription bool         `json:"is_subscription" gorm:"not null;default:false"`
}

func (TransactionRecord) TableName() string { return "payment_transactions" }

// Lookup columns accepted by ResolveOrderID.
const (
	LookupSubscriptionID = "subscription_id"
	LookupTransactionID  = "transaction_id"
)

// Service is the append-only transaction ledger.
type Service interface {
	// Append inserts a new record. Non-refund rows always carry a zero
	// refunded amount; TotalRefunded depends on that.
	Append(ctx context.Context, orderID snowflake.ID, transactionID string, status string, subscriptionID *string, refundedAmount float64) error
	// List returns all records for the order, most recent first.
	List(ctx context.Context, orderID snowflake.ID) ([]TransactionRecord, error)
	HasCompleteTransaction(ctx context.Context, orderID snowflake.ID) (bool, error)
	TotalRefunded(ctx context.Context, orderID snowflake.ID) (float64, error)
	// TotalPaid is completeCount * orderAmount. Every complete event is
	// assumed to pay the full order amount.
	TotalPaid(ctx context.Context, orderID snowflake.ID, orderAmount float64) (float64, error)
	MaxRefundable(ctx context.Context, orderID snowflake.ID, orderAmount float64) (float64, error)
	// ResolveOrderID finds the order a subscription or transaction id was
	// last recorded against. Returns 0 when nothing matches.
	ResolveOrderID(ctx context.Context, column string, value string) (snowflake.ID, error)
	// SetSubscription flips the subscription flag on the records carrying
	// the given transaction id.
	SetSubscription(ctx context.Context, transactionID string, subscriptionID string, active bool) error
}
