package domain

import (
	"math"

	"github.com/commercekit/paygate/internal/signing"
)

// ItemType tags the closed set of line item variants.
type ItemType string

const (
	ItemTypeProduct  ItemType = "product"
	ItemTypeShipping ItemType = "shipping"
	ItemTypeOther    ItemType = "other"
)

// amountTolerance is the largest residual between the item sum and the order
// amount that is ignored instead of being emitted as an "other" item.
const amountTolerance = 0.0001

// LineItem is one position of the create-quote request.
type LineItem interface {
	SKU() string
	Name() string
	// Amount is the line total (quantity times unit price).
	Amount() float64
	Quantity() int
	Price() float64
	Type() ItemType
	ID() string
	URL() string
}

// ProductItem is a purchased product position.
type ProductItem struct {
	detail OrderDetail
}

func NewProductItem(detail OrderDetail) ProductItem { return ProductItem{detail: detail} }

func (i ProductItem) SKU() string  { return i.detail.SKU }
func (i ProductItem) Name() string { return i.detail.Name }
func (i ProductItem) Amount() float64 {
	return signing.Round2(float64(i.detail.Quantity) * i.detail.UnitPrice)
}
func (i ProductItem) Quantity() int  { return i.detail.Quantity }
func (i ProductItem) Price() float64 { return i.detail.UnitPrice }
func (i ProductItem) Type() ItemType { return ItemTypeProduct }
func (i ProductItem) ID() string     { return i.detail.ID.String() }
func (i ProductItem) URL() string    { return i.detail.URL }

// Recurring reports whether the underlying product allows subscription billing.
func (i ProductItem) Recurring() bool { return i.detail.Recurring }

// ShippingItem carries the order's shipping cost as its own position.
type ShippingItem struct {
	amount float64
}

func NewShippingItem(amount float64) ShippingItem { return ShippingItem{amount: amount} }

func (i ShippingItem) SKU() string     { return "shipping" }
func (i ShippingItem) Name() string    { return "Shipping" }
func (i ShippingItem) Amount() float64 { return signing.Round2(i.amount) }
func (i ShippingItem) Quantity() int   { return 1 }
func (i ShippingItem) Price() float64  { return signing.Round2(i.amount) }
func (i ShippingItem) Type() ItemType  { return ItemTypeShipping }
func (i ShippingItem) ID() string      { return "shipping" }
func (i ShippingItem) URL() string     { return "" }

// OtherItem absorbs the residual between the item sum and the order total,
// typically vouchers or payment surcharges the host applied.
type OtherItem struct {
	amount float64
}

func NewOtherItem(amount float64) OtherItem { return OtherItem{amount: amount} }

func (i OtherItem) SKU() string     { return "other" }
func (i OtherItem) Name() string    { return "Other" }
func (i OtherItem) Amount() float64 { return signing.Round2(i.amount) }
func (i OtherItem) Quantity() int   { return 1 }
func (i OtherItem) Price() float64  { return signing.Round2(i.amount) }
func (i OtherItem) Type() ItemType  { return ItemTypeOther }
func (i OtherItem) ID() string      { return "other" }
func (i OtherItem) URL() string     { return "" }

// Items assembles the line items for the quote request. Zero-amount positions
// are dropped; if the remaining sum still misses the order amount by more than
// the tolerance, a single synthetic "other" item closes the gap.
func (o *Order) Items() []LineItem {
	var items []LineItem
	for _, detail := range o.Details {
		item := NewProductItem(detail)
		if item.Amount() != 0 {
			items = append(items, item)
		}
	}

	shipping := NewShippingItem(o.ShippingAmount)
	if shipping.Amount() != 0 {
		items = append(items, shipping)
	}

	var sum float64
	for _, item := range items {
		sum += item.Amount()
	}

	diff := o.Amount - sum
	if math.Abs(diff) <= amountTolerance {
		return items
	}
	other := NewOtherItem(diff)
	if other.Amount() != 0 {
		items = append(items, other)
	}
	return items
}

// IsSubscription reports whether the order qualifies for subscription
// treatment: every product item must be recurring, and there has to be at
// least one.
func (o *Order) IsSubscription() bool {
	seen := false
	for _, item := range o.Items() {
		product, ok := item.(ProductItem)
		if !ok {
			continue
		}
		if !product.Recurring() {
			return false
		}
		seen = true
	}
	return seen
}
