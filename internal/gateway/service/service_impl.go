package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bwmarrin/snowflake"
	"github.com/commercekit/paygate/internal/config"
	gatewaydomain "github.com/commercekit/paygate/internal/gateway/domain"
	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	ordersvc "github.com/commercekit/paygate/internal/order/service"
	"github.com/commercekit/paygate/internal/provider"
	"github.com/commercekit/paygate/internal/session"
	"github.com/commercekit/paygate/internal/signing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Orders   *ordersvc.Service
	Ledger   ledgerdomain.Service
	Provider *provider.Client
	Sessions session.Store
	Basket   orderdomain.Basket
}

// Service drives the hosted-checkout flow: it creates quotes, verifies browser
// returns, answers status polls and issues refunds.
type Service struct {
	log      *zap.Logger
	cfg      config.Config
	orders   *ordersvc.Service
	ledger   ledgerdomain.Service
	provider *provider.Client
	sessions session.Store
	basket   orderdomain.Basket
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("gateway.service"),
		cfg:      p.Cfg,
		orders:   p.Orders,
		ledger:   p.Ledger,
		provider: p.Provider,
		sessions: p.Sessions,
		basket:   p.Basket,
	}
}

// StartCheckout creates a signed quote for the order and returns the hosted
// checkout URL to redirect the customer to. The return URLs get a fresh
// single-use token so that only this browser session can complete the return.
func (s *Service) StartCheckout(ctx context.Context, sessionID string, orderID snowflake.ID, urls gatewaydomain.ReturnURLs) (string, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	token, err := s.sessions.IssueOrderToken(ctx, sessionID, order.ID)
	if err != nil {
		return "", err
	}
	urls.Success = appendToken(urls.Success, token)
	urls.Failure = appendToken(urls.Failure, token)

	quoteToken, err := s.provider.CreateQuote(ctx, buildQuoteForm(s.cfg, order, urls))
	if err != nil {
		return "", err
	}

	s.log.Info("checkout started",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", sessionID),
	)
	return s.cfg.GatewayURL(quoteToken), nil
}

// HandleSuccess verifies the success-return token, refreshes the visitor's
// basket and hands out a status-poll token. Order state is not touched here;
// only the authenticated IPN completes an order.
func (s *Service) HandleSuccess(ctx context.Context, sessionID string, orderID snowflake.ID, token string) (string, error) {
	ok, err := s.sessions.ConsumeOrderToken(ctx, sessionID, orderID, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", gatewaydomain.ErrInvalidReturn
	}

	if err := s.basket.Refresh(ctx, sessionID); err != nil {
		s.log.Warn("basket refresh failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	return s.sessions.IssueCheckToken(ctx, sessionID, orderID)
}

// HandleFailure verifies the failure-return token, cancels the order and puts
// its products back into the basket so the customer can retry.
func (s *Service) HandleFailure(ctx context.Context, sessionID string, orderID snowflake.ID, token string) error {
	ok, err := s.sessions.ConsumeOrderToken(ctx, sessionID, orderID, token)
	if err != nil {
		return err
	}
	if !ok {
		return gatewaydomain.ErrInvalidReturn
	}

	order, err := s.orders.Cancel(ctx, orderID, "Payment cancelled by user")
	if err != nil {
		return err
	}
	s.orders.Reorder(ctx, s.basket, sessionID, order)
	return nil
}

// CheckStatus answers one browser poll for payment confirmation. The check
// token is validated before an attempt is consumed, so bad tokens cannot
// drain the visitor's polling budget; and a payment that confirmed by the
// last poll is still reported as success.
func (s *Service) CheckStatus(ctx context.Context, sessionID string, token string) (gatewaydomain.StatusResult, error) {
	orderID, ok, err := s.sessions.CheckOrderID(ctx, sessionID, token)
	if err != nil {
		return gatewaydomain.StatusResult{}, err
	}
	if !ok {
		return gatewaydomain.StatusResult{}, gatewaydomain.ErrInvalidReturn
	}

	allowed, err := s.sessions.ConsumeCheckAttempt(ctx, sessionID)
	if err != nil {
		return gatewaydomain.StatusResult{}, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return gatewaydomain.StatusResult{}, err
	}
	if s.orders.IsComplete(order) {
		return gatewaydomain.StatusResult{
			Success: true,
			Message: "Payment confirmed.",
		}, nil
	}
	if !allowed {
		return gatewaydomain.StatusResult{
			Message: "Payment confirmation was not received. Please contact the shop for your order status.",
		}, nil
	}
	return gatewaydomain.StatusResult{
		Retry:   true,
		Message: "Awaiting payment confirmation.",
	}, nil
}

// RefundInfo reports whether the order has a completed payment and how much of
// it is still refundable.
func (s *Service) RefundInfo(ctx context.Context, orderID snowflake.ID) (gatewaydomain.Refundability, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return gatewaydomain.Refundability{}, err
	}

	hasComplete, err := s.ledger.HasCompleteTransaction(ctx, orderID)
	if err != nil {
		return gatewaydomain.Refundability{}, err
	}
	maxRefundable, err := s.ledger.MaxRefundable(ctx, orderID, order.Amount)
	if err != nil {
		return gatewaydomain.Refundability{}, err
	}
	return gatewaydomain.Refundability{
		HasCompleteTransaction: hasComplete,
		MaxRefundable:          maxRefundable,
	}, nil
}

// RefundOrder asks the provider to refund part or all of the order's payment.
// The refund is only requested here; the resulting ledger row arrives through
// the refund IPN once the provider confirms it.
func (s *Service) RefundOrder(ctx context.Context, orderID snowflake.ID, amount float64) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.TransactionID == "" {
		return gatewaydomain.ErrMissingTransaction
	}

	info, err := s.RefundInfo(ctx, orderID)
	if err != nil {
		return err
	}
	if !info.HasCompleteTransaction || info.MaxRefundable <= 0 {
		return gatewaydomain.ErrNothingToRefund
	}
	if amount <= 0 || signing.Round2(amount) > info.MaxRefundable {
		return fmt.Errorf("%w: %s of %s", gatewaydomain.ErrRefundTooLarge,
			signing.RoundAmount(amount), signing.RoundAmount(info.MaxRefundable))
	}

	bound := order.BoundID(order.TransactionID, s.cfg.Statuses.PaymentComplete)
	form := url.Values{}
	form.Set("action", "refund")
	form.Set("amount", signing.RoundAmount(amount))
	form.Set("hash", signing.RefundHash(order.TransactionID, bound, order.Amount, amount, s.cfg.APISecret))

	if err := s.provider.Refund(ctx, order.TransactionID, form); err != nil {
		return err
	}

	s.log.Info("refund requested",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", order.TransactionID),
		zap.String("amount", signing.RoundAmount(amount)),
	)
	return nil
}
