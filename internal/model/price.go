package model

import "time"

// UnitRatesResponse matches the JSON shape of the Octopus standard-unit-rates endpoint.
//
// Example:
// {
//   "count": 96,
//   "next": null,
//   "previous": null,
//   "results": [ ... ]
// }
type UnitRatesResponse struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []PriceRecord `json:"results"`
}

// PriceRecord represents one slot of a unit-rate schedule.
// The slot covers the half-open interval [ValidFrom, ValidTo).
// Prices are in pence per kWh.
type PriceRecord struct {
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`

	ValueExcVAT float64 `json:"value_exc_vat"`
	ValueIncVAT float64 `json:"value_inc_vat"`

	PaymentMethod *string `json:"payment_method,omitempty"`
}

// Contains reports whether t falls inside [ValidFrom, ValidTo).
func (r PriceRecord) Contains(t time.Time) bool {
	return !t.Before(r.ValidFrom) && t.Before(r.ValidTo)
}

func (r PriceRecord) Duration() time.Duration {
	return r.ValidTo.Sub(r.ValidFrom)
}
