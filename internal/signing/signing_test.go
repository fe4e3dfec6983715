package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashMatchesSHA256Hex(t *testing.T) {
	sum := sha256.Sum256([]byte("41249.99EURsecret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Hash("41249.99EURsecret"))
}

func TestRoundAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{49.99, "49.99"},
		{50, "50.00"},
		{49.9, "49.90"},
		{49.995, "50.00"},
		{49.994, "49.99"},
		{0.125, "0.13"},
		{0, "0.00"},
		{-12.005, "-12.01"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundAmount(tc.in), "RoundAmount(%v)", tc.in)
	}
}

func TestQuoteHashIsDeterministic(t *testing.T) {
	a := QuoteHash("412", 49.99, "EUR", "secret")
	b := QuoteHash("412", 49.99, "EUR", "secret")
	assert.Equal(t, a, b)
	assert.Equal(t, Hash("41249.99EURsecret"), a)
}

func TestIPNHashUnboundOrderOmitsID(t *testing.T) {
	bound := IPNHash("tx-1", "412", 49.99, "secret")
	unbound := IPNHash("tx-1", "", 49.99, "secret")
	assert.NotEqual(t, bound, unbound)
	assert.Equal(t, Hash("tx-149.99secret"), unbound)
}

func TestRefundHashUsesRoundedAmounts(t *testing.T) {
	got := RefundHash("tx-1", "412", 50, 12.5, "secret")
	assert.Equal(t, Hash("tx-141250.0012.50secret"), got)
}

func TestAuthorizationHash(t *testing.T) {
	got := AuthorizationHash("api-hash", "merchant@shop.example", "secret")
	assert.Equal(t, Hash("api-hashmerchant@shop.examplesecret"), got)
}
