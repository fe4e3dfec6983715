package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *Order {
	return &Order{
		ID:              412,
		Amount:          49.99,
		ShippingAmount:  4.99,
		Currency:        "EUR",
		PaymentStatusID: 17,
		Details: []OrderDetail{
			{ID: 1, SKU: "SW1001", Name: "Widget", Quantity: 2, UnitPrice: 20.00},
		},
	}
}

func itemSum(items []LineItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Amount()
	}
	return sum
}

func TestItemsCloseResidualWithOtherItem(t *testing.T) {
	order := testOrder()

	items := order.Items()
	require.Len(t, items, 3)
	assert.Equal(t, ItemTypeProduct, items[0].Type())
	assert.Equal(t, ItemTypeShipping, items[1].Type())
	assert.Equal(t, ItemTypeOther, items[2].Type())
	// 49.99 - (40.00 + 4.99) leaves 5.00 for the other item.
	assert.InDelta(t, 5.00, items[2].Amount(), 0.0001)
	assert.InDelta(t, order.Amount, itemSum(items), 0.0001)
}

func TestItemsOmitOtherItemWithinTolerance(t *testing.T) {
	order := testOrder()
	order.Amount = 44.99

	items := order.Items()
	require.Len(t, items, 2)
	assert.InDelta(t, order.Amount, itemSum(items), 0.0001)
}

func TestItemsDropZeroAmountPositions(t *testing.T) {
	order := testOrder()
	order.ShippingAmount = 0
	order.Amount = 40.00
	order.Details = append(order.Details, OrderDetail{ID: 2, SKU: "FREE", Name: "Sample", Quantity: 1, UnitPrice: 0})

	items := order.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "SW1001", items[0].SKU())
}

func TestItemsNegativeResidual(t *testing.T) {
	order := testOrder()
	order.Amount = 40.00

	items := order.Items()
	require.Len(t, items, 3)
	assert.InDelta(t, -4.99, items[2].Amount(), 0.0001)
	assert.InDelta(t, order.Amount, itemSum(items), 0.0001)
}

func TestIsSubscriptionRequiresEveryProductRecurring(t *testing.T) {
	order := testOrder()
	order.Details[0].Recurring = true
	assert.True(t, order.IsSubscription())

	order.Details = append(order.Details, OrderDetail{ID: 2, SKU: "SW1002", Name: "Gadget", Quantity: 1, UnitPrice: 3.50})
	assert.False(t, order.IsSubscription())

	order.Details = nil
	assert.False(t, order.IsSubscription())
}

func TestBoundIDBindsFirstCompletionAndMatchingTransaction(t *testing.T) {
	paid := 12
	order := testOrder()

	// Not yet paid, no transaction stored: the first completion binds.
	assert.Equal(t, "412", order.BoundID("tx-1", paid))

	// Paid with the same transaction: replays of the same event still bind.
	order.PaymentStatusID = paid
	order.TransactionID = "tx-1"
	assert.Equal(t, "412", order.BoundID("tx-1", paid))

	// Paid with a different transaction: stale hash must not bind.
	assert.Equal(t, "", order.BoundID("tx-2", paid))
}

func TestAddressCompleteness(t *testing.T) {
	full := Address{
		Firstname: "Jane", Lastname: "Doe", Line1: "Main St 1",
		ZipCode: "10115", City: "Berlin", County: "Berlin", Country: "DE",
	}
	assert.True(t, full.Complete())

	partial := full
	partial.County = ""
	assert.False(t, partial.Complete())

	order := testOrder()
	order.Billing = full
	order.Shipping = partial
	assert.False(t, order.HasCompleteAddresses())

	order.Shipping = full
	assert.True(t, order.HasCompleteAddresses())
}
