package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Hash returns the hex-encoded SHA-256 digest of the given string. Both sides of
// the gateway protocol prove knowledge of the shared API secret by concatenating
// request fields with the secret and exchanging only the digest.
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// RoundAmount renders a monetary amount with exactly two decimal places,
// rounding half away from zero. All amounts that enter a hash or leave on the
// wire go through this so that both parties digest identical bytes.
func RoundAmount(amount float64) string {
	return fmt.Sprintf("%.2f", math.Round(amount*100)/100)
}

// Round2 returns the amount rounded to two decimal places as a float.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// QuoteHash binds a create-quote request to the merchant secret.
func QuoteHash(orderID string, amount float64, currency string, apiSecret string) string {
	return Hash(orderID + RoundAmount(amount) + currency + apiSecret)
}

// IPNHash computes the expected digest of an inbound payment notification.
// boundOrderID is empty when the notification must not be allowed to bind to
// the order (see ipn.Processor for the binding rule).
func IPNHash(transactionID string, boundOrderID string, amount float64, apiSecret string) string {
	return Hash(transactionID + boundOrderID + RoundAmount(amount) + apiSecret)
}

// RefundHash binds an outbound refund request to the merchant secret.
func RefundHash(transactionID string, boundOrderID string, orderAmount float64, refundAmount float64, apiSecret string) string {
	return Hash(transactionID + boundOrderID + RoundAmount(orderAmount) + RoundAmount(refundAmount) + apiSecret)
}

// SubscriptionHash authenticates subscription lifecycle notifications.
func SubscriptionHash(subscriptionID string, amount float64, subscriptionName string, apiSecret string) string {
	return Hash(subscriptionID + RoundAmount(amount) + subscriptionName + apiSecret)
}

// AuthorizationHash builds the digest half of the REST Authorization header.
func AuthorizationHash(apiHash string, merchantEmail string, apiSecret string) string {
	return Hash(apiHash + merchantEmail + apiSecret)
}
