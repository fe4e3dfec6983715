package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
	"github.com/commercekit/paygate/internal/signing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

// Service implements the append-only transaction ledger on top of the
// payment_transactions table.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) Append(ctx context.Context, orderID snowflake.ID, transactionID string, status string, subscriptionID *string, refundedAmount float64) error {
	transactionID = strings.TrimSpace(transactionID)
	status = strings.ToLower(strings.TrimSpace(status))
	if orderID == 0 || transactionID == "" || status == "" {
		return ledgerdomain.ErrInvalidTransaction
	}
	if subscriptionID != nil && strings.TrimSpace(*subscriptionID) == "" {
		subscriptionID = nil
	}
	switch status {
	case ledgerdomain.StatusRefunded, ledgerdomain.StatusPartialRefunded:
	default:
		// Refund amounts on non-refund rows would corrupt TotalRefunded.
		refundedAmount = 0
	}

	record := ledgerdomain.TransactionRecord{
		ID:             s.genID.Generate(),
		OrderID:        orderID,
		TransactionID:  transactionID,
		Status:         status,
		RefundedAmount: refundedAmount,
		CreateTime:     time.Now().UTC(),
		SubscriptionID: subscriptionID,
		IsSubscription: subscriptionID != nil,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	s.log.Info("transaction recorded",
		zap.String("order_id", orderID.String()),
		zap.String("transaction_id", transactionID),
		zap.String("status", status),
	)
	return nil
}

func (s *Service) List(ctx context.Context, orderID snowflake.ID) ([]ledgerdomain.TransactionRecord, error) {
	var records []ledgerdomain.TransactionRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("create_time DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) HasCompleteTransaction(ctx context.Context, orderID snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ledgerdomain.TransactionRecord{}).
		Where("order_id = ? AND status = ?", orderID, ledgerdomain.StatusComplete).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) TotalRefunded(ctx context.Context, orderID snowflake.ID) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&ledgerdomain.TransactionRecord{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(refunded_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) TotalPaid(ctx context.Context, orderID snowflake.ID, orderAmount float64) (float64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ledgerdomain.TransactionRecord{}).
		Where("order_id = ? AND status = ?", orderID, ledgerdomain.StatusComplete).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return float64(count) * orderAmount, nil
}

func (s *Service) MaxRefundable(ctx context.Context, orderID snowflake.ID, orderAmount float64) (float64, error) {
	paid, err := s.TotalPaid(ctx, orderID, orderAmount)
	if err != nil {
		return 0, err
	}
	refunded, err := s.TotalRefunded(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return signing.Round2(paid - refunded), nil
}

func (s *Service) ResolveOrderID(ctx context.Context, column string, value string) (snowflake.ID, error) {
	switch column {
	case ledgerdomain.LookupSubscriptionID, ledgerdomain.LookupTransactionID:
	default:
		return 0, ledgerdomain.ErrInvalidLookup
	}
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}

	var record ledgerdomain.TransactionRecord
	err := s.db.WithContext(ctx).
		Where(column+" = ?", value).
		Order("create_time DESC").
		Limit(1).
		Find(&record).Error
	if err != nil {
		return 0, err
	}
	return record.OrderID, nil
}

func (s *Service) SetSubscription(ctx context.Context, transactionID string, subscriptionID string, active bool) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ledgerdomain.ErrInvalidTransaction
	}

	updates := map[string]any{"is_subscription": active}
	if active {
		updates["subscription_id"] = subscriptionID
	}
	return s.db.WithContext(ctx).
		Model(&ledgerdomain.TransactionRecord{}).
		Where("transaction_id = ?", transactionID).
		Updates(updates).Error
}
