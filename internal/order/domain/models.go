package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrMissingOrderID = errors.New("missing order id")
	ErrOrderNotFound  = errors.New("order not found")
)

// PaymentMethodName identifies orders handled by this gateway.
const PaymentMethodName = "paygate"

// Order is a snapshot of a host-owned order. The plugin never mutates a
// snapshot directly; status changes go through the Repository, which returns
// the refreshed row.
type Order struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Number          string       `json:"number" gorm:"type:text;not null"`
	CustomerID      snowflake.ID `json:"customer_id" gorm:"index"`
	CustomerEmail   string       `json:"customer_email" gorm:"type:text"`
	PaymentMethod   string       `json:"payment_method" gorm:"type:text;not null"`
	Amount          float64      `json:"amount" gorm:"not null"`
	ShippingAmount  float64      `json:"shipping_amount" gorm:"not null;default:0"`
	Currency        string       `json:"currency" gorm:"type:text;not null"`
	OrderStatusID   int          `json:"order_status_id" gorm:"not null"`
	PaymentStatusID int          `json:"payment_status_id" gorm:"not null"`
	// Last-known provider transaction reference. Empty until the first
	// authenticated complete event binds one.
	TransactionID string `json:"transaction_id" gorm:"type:text;index"`
	// TemporaryID is the unique id handed to the provider at checkout.
	TemporaryID string     `json:"temporary_id" gorm:"type:text"`
	Comment     string     `json:"comment" gorm:"type:text"`
	ClearedAt   *time.Time `json:"cleared_at"`
	CreatedAt   time.Time  `json:"created_at"`

	Billing  Address `json:"billing" gorm:"embedded;embeddedPrefix:billing_"`
	Shipping Address `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`

	Details []OrderDetail `json:"details" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

// Description is the free-text quote description sent to the provider.
func (o *Order) Description() string {
	return o.Number + "\n" + o.TemporaryID
}

// BoundID returns the order id to mix into hash material for the given
// transaction, or "" when the order must not bind. The id is included only if
// the stored transaction reference already matches or the order has not yet
// reached the paid status: a hash captured from a completed order cannot be
// replayed against it with a different transaction id, while the first
// complete event (no reference stored yet) still authenticates.
func (o *Order) BoundID(transactionID string, paidStatusID int) string {
	if o.TransactionID == transactionID || o.PaymentStatusID != paidStatusID {
		return o.ID.String()
	}
	return ""
}

// OrderDetail is one purchased position of a host order.
type OrderDetail struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID `json:"order_id" gorm:"not null;index"`
	SKU       string       `json:"sku" gorm:"type:text;not null"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Quantity  int          `json:"quantity" gorm:"not null"`
	UnitPrice float64      `json:"unit_price" gorm:"not null"`
	URL       string       `json:"url" gorm:"type:text"`
	// Recurring marks products eligible for subscription billing.
	Recurring bool `json:"recurring" gorm:"not null;default:false"`
}

func (OrderDetail) TableName() string { return "order_details" }

// Repository is the port to the host's order persistence. Implementations are
// the serialization point for concurrent IPN deliveries; status mutations must
// run under row-level locking or an equivalent.
type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Order, error)
	// UpdateTransactionID stores the provider transaction reference unless
	// the order already reached the given paid payment status.
	UpdateTransactionID(ctx context.Context, id snowflake.ID, transactionID string, paidStatusID int) error
	// SetPaymentStatus applies the status and appends the message, returning
	// the refreshed snapshot.
	SetPaymentStatus(ctx context.Context, id snowflake.ID, statusID int, message string) (*Order, error)
	// SetOrderStatus applies the status and appends the message, returning
	// the refreshed snapshot. sendEmail asks the host to notify the customer.
	SetOrderStatus(ctx context.Context, id snowflake.ID, statusID int, message string, sendEmail bool) (*Order, error)
	AppendComment(ctx context.Context, id snowflake.ID, message string) error
	// MarkCleared sets the clear date once; later calls are no-ops.
	MarkCleared(ctx context.Context, id snowflake.ID) error
}

// Basket is the host's cart collaborator used on browser return.
type Basket interface {
	Refresh(ctx context.Context, sessionID string) error
	AddProduct(ctx context.Context, sessionID string, sku string, quantity int) error
}
