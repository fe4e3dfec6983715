package service

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/commercekit/paygate/internal/config"
	gatewaydomain "github.com/commercekit/paygate/internal/gateway/domain"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	"github.com/commercekit/paygate/internal/signing"
)

// buildQuoteForm assembles the signed create-quote request for an order. Line
// items always cover the full order amount; addresses are attached only when
// both are complete, and subscription fields only when every product on the
// order is recurring.
func buildQuoteForm(cfg config.Config, order *orderdomain.Order, urls gatewaydomain.ReturnURLs) url.Values {
	form := url.Values{}
	form.Set("api_hash", cfg.APIHash)
	form.Set("hash", signing.QuoteHash(order.ID.String(), order.Amount, order.Currency, cfg.APISecret))
	form.Set("order_id", order.ID.String())
	form.Set("amount", signing.RoundAmount(order.Amount))
	form.Set("currency", order.Currency)
	form.Set("description", order.Description())
	form.Set("email", order.CustomerEmail)
	form.Set("url_ok", urls.Success)
	form.Set("url_failure", urls.Failure)

	for i, item := range order.Items() {
		key := fmt.Sprintf("items[%d]", i)
		form.Set(key+"[sku]", item.SKU())
		form.Set(key+"[name]", item.Name())
		form.Set(key+"[amount]", signing.RoundAmount(item.Amount()))
		form.Set(key+"[qty]", strconv.Itoa(item.Quantity()))
		form.Set(key+"[price]", signing.RoundAmount(item.Price()))
		form.Set(key+"[id]", item.ID())
		form.Set(key+"[type]", string(item.Type()))
		if u := item.URL(); u != "" {
			form.Set(key+"[url]", u)
		}
	}

	if order.HasCompleteAddresses() {
		setAddress(form, "billing", order.Billing)
		setAddress(form, "shipping", order.Shipping)
	}

	if order.IsSubscription() {
		form.Set("subscription", "1")
		form.Set("subscription_product_name", fmt.Sprintf("Monthly subscription based on order #%s", order.ID))
		form.Set("subscription_type", "product")
		form.Set("subscription_period", "monthly")
	}

	return form
}

func setAddress(form url.Values, kind string, addr orderdomain.Address) {
	key := "addresses[" + kind + "]"
	form.Set(key+"[firstname]", addr.Firstname)
	form.Set(key+"[lastname]", addr.Lastname)
	form.Set(key+"[line_1]", addr.Line1)
	form.Set(key+"[line_2]", addr.Line2)
	form.Set(key+"[zip_code]", addr.ZipCode)
	form.Set(key+"[company]", addr.Company)
	form.Set(key+"[city]", addr.City)
	form.Set(key+"[county]", addr.County)
	form.Set(key+"[country]", addr.Country)
}

// appendToken adds the single-use return token to a host return URL.
func appendToken(base string, token string) string {
	parsed, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := parsed.Query()
	q.Set("token", token)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
