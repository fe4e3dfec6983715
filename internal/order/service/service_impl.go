package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/commercekit/paygate/internal/config"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Cfg  config.Config
	Repo orderdomain.Repository
}

// Service applies payment-driven transitions to host orders. Each transition
// is an intent issued to the repository; the repository returns the refreshed
// snapshot so callers never act on stale state.
type Service struct {
	log      *zap.Logger
	statuses config.StatusConfig
	repo     orderdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("order.service"),
		statuses: p.Cfg.Statuses,
		repo:     p.Repo,
	}
}

func (s *Service) GetOrder(ctx context.Context, id snowflake.ID) (*orderdomain.Order, error) {
	if id == 0 {
		return nil, orderdomain.ErrMissingOrderID
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateTransactionID stores the provider transaction reference unless the
// order is already paid.
func (s *Service) UpdateTransactionID(ctx context.Context, id snowflake.ID, transactionID string) error {
	return s.repo.UpdateTransactionID(ctx, id, transactionID, s.statuses.PaymentComplete)
}

// Complete marks the order paid, moves it to the pending-after-payment status
// (which triggers the host's status email) and sets the clear date once.
func (s *Service) Complete(ctx context.Context, id snowflake.ID, message string) (*orderdomain.Order, error) {
	if _, err := s.repo.SetPaymentStatus(ctx, id, s.statuses.PaymentComplete, message); err != nil {
		return nil, err
	}
	order, err := s.repo.SetOrderStatus(ctx, id, s.statuses.OrderPendingAfterPayment, message, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendComment(ctx, id, message); err != nil {
		return nil, err
	}
	if err := s.repo.MarkCleared(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info("order completed", zap.String("order_id", id.String()))
	return order, nil
}

// Cancel moves the order to the cancelled status without a status email.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID, message string) (*orderdomain.Order, error) {
	order, err := s.repo.SetOrderStatus(ctx, id, s.statuses.OrderCancelled, message, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendComment(ctx, id, message); err != nil {
		return nil, err
	}
	return order, nil
}

// Reject handles a provider-side rejection; the order ends up cancelled.
func (s *Service) Reject(ctx context.Context, id snowflake.ID, message string) (*orderdomain.Order, error) {
	return s.Cancel(ctx, id, message)
}

// Refund records the refund message on the order. Order and payment statuses
// stay untouched; refunded amounts are tracked in the ledger only.
func (s *Service) Refund(ctx context.Context, id snowflake.ID, message string) error {
	return s.repo.AppendComment(ctx, id, message)
}

// AppendComment records an informational note on the order without touching
// its statuses.
func (s *Service) AppendComment(ctx context.Context, id snowflake.ID, message string) error {
	return s.repo.AppendComment(ctx, id, message)
}

// IsComplete reports whether the order reached both post-payment statuses.
func (s *Service) IsComplete(order *orderdomain.Order) bool {
	return order != nil &&
		order.OrderStatusID == s.statuses.OrderPendingAfterPayment &&
		order.PaymentStatusID == s.statuses.PaymentComplete
}

// Reorder puts the order's product items back into the visitor's basket.
// Individual add failures are logged and skipped, matching checkout behavior
// for products that went out of stock in the meantime.
func (s *Service) Reorder(ctx context.Context, basket orderdomain.Basket, sessionID string, order *orderdomain.Order) {
	for _, item := range order.Items() {
		if item.Type() != orderdomain.ItemTypeProduct {
			continue
		}
		if err := basket.AddProduct(ctx, sessionID, item.SKU(), item.Quantity()); err != nil {
			s.log.Warn("reorder item failed",
				zap.String("order_id", order.ID.String()),
				zap.String("sku", item.SKU()),
				zap.Error(err),
			)
		}
	}
}
