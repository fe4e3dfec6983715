package service

import (
	"context"
	"crypto/hmac"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/commercekit/paygate/internal/config"
	ipndomain "github.com/commercekit/paygate/internal/ipn/domain"
	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	ordersvc "github.com/commercekit/paygate/internal/order/service"
	"github.com/commercekit/paygate/internal/signing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Cfg    config.Config
	Orders *ordersvc.Service
	Ledger ledgerdomain.Service
}

// Processor validates, authenticates and applies inbound payment
// notifications. Stages run strictly in order and stop at the first failure:
// normalize, resolve order, secret check, hash authentication, data
// consistency, transition plus ledger append.
type Processor struct {
	log    *zap.Logger
	cfg    config.Config
	orders *ordersvc.Service
	ledger ledgerdomain.Service
}

func NewProcessor(p Params) *Processor {
	return &Processor{
		log:    p.Log.Named("ipn.processor"),
		cfg:    p.Cfg,
		orders: p.Orders,
		ledger: p.Ledger,
	}
}

// Process handles one raw notification. secret is the request-level secret
// parameter, checked only when an IPN secret is configured.
func (p *Processor) Process(ctx context.Context, values url.Values, secret string) error {
	n := ipndomain.Normalize(values)

	order, err := p.resolveOrder(ctx, &n)
	if err != nil {
		return err
	}

	if p.cfg.HasIPNSecret() && p.cfg.IPNSecret != secret {
		return ipndomain.ErrInvalidSecret
	}

	switch n.Type {
	case ipndomain.TypePayment, ipndomain.TypeSubscriptionPayment:
		return p.processPayment(ctx, order, n)
	case ipndomain.TypeSubscriptionCreated:
		return p.processSubscriptionChange(ctx, order, n, true)
	case ipndomain.TypeSubscriptionCanceled:
		return p.processSubscriptionChange(ctx, order, n, false)
	default:
		return ipndomain.ErrUnrecognizedType
	}
}

// resolveOrder finds the order the notification belongs to. When the payload
// carries no order id, the ledger is consulted by subscription id, then by
// transaction id.
func (p *Processor) resolveOrder(ctx context.Context, n *ipndomain.Notification) (*orderdomain.Order, error) {
	orderID := parseOrderID(n.UserOrderID)
	if orderID == 0 && n.SubscriptionID != "" {
		resolved, err := p.ledger.ResolveOrderID(ctx, ledgerdomain.LookupSubscriptionID, n.SubscriptionID)
		if err != nil {
			return nil, err
		}
		orderID = resolved
	}
	if orderID == 0 {
		resolved, err := p.ledger.ResolveOrderID(ctx, ledgerdomain.LookupTransactionID, n.TransactionID)
		if err != nil {
			return nil, err
		}
		orderID = resolved
	}
	if orderID == 0 {
		return nil, orderdomain.ErrOrderNotFound
	}

	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if n.UserOrderID == "" {
		n.UserOrderID = orderID.String()
	}
	return order, nil
}

func (p *Processor) processPayment(ctx context.Context, order *orderdomain.Order, n ipndomain.Notification) error {
	if err := p.authenticate(order, n); err != nil {
		return err
	}
	if err := p.validate(order, n); err != nil {
		return err
	}
	if err := p.applyTransition(ctx, order, n); err != nil {
		return err
	}

	// The ledger is an audit trail of received events, recorded even when
	// the transition was a no-op on order state.
	var subscriptionID *string
	if n.SubscriptionID != "" {
		subscriptionID = &n.SubscriptionID
	}
	return p.ledger.Append(ctx, order.ID, n.TransactionID, strings.ToLower(n.Status), subscriptionID, n.RefundedAmount)
}

// authenticate recomputes the event hash with the asymmetric order binding:
// the order id enters the material only when the stored transaction reference
// matches or the order is not yet paid. A stale completed-order hash can
// therefore not be replayed, while the first completion still authenticates.
func (p *Processor) authenticate(order *orderdomain.Order, n ipndomain.Notification) error {
	if n.Hash == "" {
		return ipndomain.ErrInvalidHash
	}
	bound := order.BoundID(n.TransactionID, p.cfg.Statuses.PaymentComplete)
	expected := signing.IPNHash(n.TransactionID, bound, order.Amount, p.cfg.APISecret)
	if !hmac.Equal([]byte(n.Hash), []byte(expected)) {
		return ipndomain.ErrInvalidHash
	}
	return nil
}

func (p *Processor) validate(order *orderdomain.Order, n ipndomain.Notification) error {
	if parseOrderID(n.UserOrderID) != order.ID {
		return ipndomain.ErrOrderMismatch
	}
	if signing.RoundAmount(n.Amount) != signing.RoundAmount(order.Amount) {
		return ipndomain.ErrInvalidAmount
	}
	if n.Currency != order.Currency {
		return ipndomain.ErrInvalidCurrency
	}
	if !ipndomain.KnownStatus(n.Status) {
		return ipndomain.ErrUnknownStatus
	}
	return nil
}

func (p *Processor) applyTransition(ctx context.Context, order *orderdomain.Order, n ipndomain.Notification) error {
	status := strings.ToLower(n.Status)

	if err := p.orders.UpdateTransactionID(ctx, order.ID, n.TransactionID); err != nil {
		return err
	}

	var err error
	switch status {
	case ledgerdomain.StatusComplete:
		message := fmt.Sprintf("IPN update: order completed with transaction id: %s", n.TransactionID)
		_, err = p.orders.Complete(ctx, order.ID, message)
	case ledgerdomain.StatusRejected:
		message := fmt.Sprintf("IPN update: order rejected with transaction id: %s", n.TransactionID)
		_, err = p.orders.Reject(ctx, order.ID, message)
	case ledgerdomain.StatusCanceled:
		message := fmt.Sprintf("IPN update: order cancelled with transaction id: %s", n.TransactionID)
		_, err = p.orders.Cancel(ctx, order.ID, message)
	case ledgerdomain.StatusRefunded, ledgerdomain.StatusPartialRefunded:
		message := fmt.Sprintf("IPN update: order refunded with transaction id: %s, amount: %.2f", n.TransactionID, n.RefundedAmount)
		err = p.orders.Refund(ctx, order.ID, message)
	}
	if err != nil {
		return err
	}

	p.log.Info("ipn transition applied",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", n.TransactionID),
		zap.String("status", status),
	)
	return nil
}

// processSubscriptionChange handles subscription lifecycle notifications.
// They authenticate with the subscription hash rather than the payment hash.
func (p *Processor) processSubscriptionChange(ctx context.Context, order *orderdomain.Order, n ipndomain.Notification, active bool) error {
	expected := signing.SubscriptionHash(n.SubscriptionID, n.Amount, n.SubscriptionName, p.cfg.APISecret)
	if n.Hash == "" || !hmac.Equal([]byte(n.Hash), []byte(expected)) {
		return ipndomain.ErrInvalidSubscriptionHash
	}

	if err := p.ledger.SetSubscription(ctx, n.TransactionID, n.SubscriptionID, active); err != nil {
		return err
	}

	message := "IPN update: Subscription created"
	if !active {
		message = "IPN update: Subscription cancelled"
	}
	if err := p.orders.AppendComment(ctx, order.ID, message); err != nil {
		return err
	}

	p.log.Info("subscription state updated",
		zap.String("order_id", order.ID.String()),
		zap.String("subscription_id", n.SubscriptionID),
		zap.Bool("active", active),
	)
	return nil
}

func parseOrderID(raw string) snowflake.ID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0
	}
	return id
}
