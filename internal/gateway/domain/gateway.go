package domain

import "errors"

var (
	ErrMissingTransaction = errors.New("order has no provider transaction")
	ErrNothingToRefund    = errors.New("nothing to refund")
	ErrRefundTooLarge     = errors.New("refund exceeds refundable amount")
	ErrInvalidReturn      = errors.New("invalid return token")
)

// ReturnURLs are the host pages the provider redirects the customer back to.
type ReturnURLs struct {
	Success string
	Failure string
}

// StatusResult is one answer to a browser-side payment status poll.
type StatusResult struct {
	Success bool   `json:"success"`
	Retry   bool   `json:"retry"`
	Message string `json:"message"`
}

// Refundability summarizes what can still be refunded on an order.
type Refundability struct {
	HasCompleteTransaction bool    `json:"has_complete_transaction"`
	MaxRefundable          float64 `json:"max_refundable"`
}
