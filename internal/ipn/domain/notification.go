package domain

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
)

// Notification types the provider delivers.
const (
	TypePayment              = "payment"
	TypeSubscriptionPayment  = "subscription_payment"
	TypeSubscriptionCreated  = "subscription_created"
	TypeSubscriptionCanceled = "subscription_canceled"
)

var (
	// Authentication failures. Terminal; the provider must not retry.
	ErrInvalidSecret           = errors.New("invalid IPN secret")
	ErrInvalidHash             = errors.New("invalid IPN hash")
	ErrInvalidSubscriptionHash = errors.New("invalid subscription hash")

	// Consistency failures between the event and the resolved order.
	ErrOrderMismatch   = errors.New("order id does not match")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrUnknownStatus   = errors.New("unknown status")

	ErrUnrecognizedType = errors.New("unrecognized ipn type")
)

// Notification is an inbound payment notification normalized onto the fixed
// field template. Unrecognized form fields are dropped, missing ones default
// to zero values.
type Notification struct {
	Type             string
	SubscriptionID   string
	SubscriptionName string
	TransactionID    string
	UserOrderID      string
	Amount           float64
	Currency         string
	Status           string
	OrderCreatedAt   string
	OrderCompleteAt  string
	RefundedAmount   float64
	Hash             string
}

// Normalize merges the raw payload onto the recognized-field template.
func Normalize(values url.Values) Notification {
	return Notification{
		Type:             values.Get("type"),
		SubscriptionID:   values.Get("subscriptionId"),
		SubscriptionName: values.Get("subscriptionName"),
		TransactionID:    values.Get("transactionId"),
		UserOrderID:      values.Get("userOrderId"),
		Amount:           parseAmount(values.Get("amount")),
		Currency:         values.Get("currency"),
		Status:           values.Get("status"),
		OrderCreatedAt:   values.Get("orderCreatedAt"),
		OrderCompleteAt:  values.Get("orderCompleteAt"),
		RefundedAmount:   parseAmount(values.Get("refundedAmount")),
		Hash:             values.Get("hash"),
	}
}

func parseAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return parsed
}

var knownStatuses = map[string]bool{
	ledgerdomain.StatusComplete:        true,
	ledgerdomain.StatusPartialRefunded: true,
	ledgerdomain.StatusRefunded:        true,
	ledgerdomain.StatusRejected:        true,
	ledgerdomain.StatusCanceled:        true,
}

// KnownStatus reports whether the event status is one of the five the
// protocol defines. Matching is case-insensitive.
func KnownStatus(status string) bool {
	return knownStatuses[strings.ToLower(status)]
}
