package domain

// Address is a billing or shipping address in the provider's wire shape.
type Address struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Line1     string `json:"line_1"`
	Line2     string `json:"line_2"`
	ZipCode   string `json:"zip_code"`
	Company   string `json:"company"`
	City      string `json:"city"`
	County    string `json:"county"`
	Country   string `json:"country"`
}

// Complete reports whether all fields the provider requires are present.
func (a Address) Complete() bool {
	required := []string{a.Firstname, a.Lastname, a.Line1, a.ZipCode, a.City, a.County, a.Country}
	for _, field := range required {
		if field == "" {
			return false
		}
	}
	return true
}

// HasCompleteAddresses reports whether both addresses can be attached to a
// quote request. Partial address data is omitted rather than rejected.
func (o *Order) HasCompleteAddresses() bool {
	return o.Billing.Complete() && o.Shipping.Complete()
}
