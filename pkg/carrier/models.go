package carrier

import (
	"time"
)

// ServiceLevel is the normalized shipping speed/tier classification,
// independent of carrier-specific service naming. Carrier service codes map
// many-to-one onto this enumeration.
type ServiceLevel string

const (
	ServiceGround        ServiceLevel = "ground"
	ServiceExpress       ServiceLevel = "express"
	ServiceOvernight     ServiceLevel = "overnight"
	ServiceTwoDay        ServiceLevel = "two_day"
	ServiceThreeDay      ServiceLevel = "three_day"
	ServiceInternational ServiceLevel = "international"
)

// ServiceLevels lists every valid service level.
var ServiceLevels = []ServiceLevel{
	ServiceGround,
	ServiceExpress,
	ServiceOvernight,
	ServiceTwoDay,
	ServiceThreeDay,
	ServiceInternational,
}

// Valid reports whether l is a member of the closed enumeration.
func (l ServiceLevel) Valid() bool {
	switch l {
	case ServiceGround, ServiceExpress, ServiceOvernight,
		ServiceTwoDay, ServiceThreeDay, ServiceInternational:
		return true
	}
	return false
}

// Address represents a shipping origin or destination.
type Address struct {
	Name        string `json:"name,omitempty"`
	Street      string `json:"street"`
	Street2     string `json:"street2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`       // state/province code — "CA", "ON", etc.
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"` // ISO 3166-1 alpha-2
}

// PackageInfo describes a single package in a shipment.
// Weight is in pounds, dimensions in inches.
type PackageInfo struct {
	Weight      float64 `json:"weight"`
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Description string  `json:"description,omitempty"`
}

// Girth returns the carrier girth-plus-length measure 2*(width+height)+length.
func (p PackageInfo) Girth() float64 {
	return 2*(p.Width+p.Height) + p.Length
}

// RateRequest is the normalized rate quotation request.
type RateRequest struct {
	Origin      Address       `json:"origin"`
	Destination Address       `json:"destination"`
	Packages    []PackageInfo `json:"packages"`

	// ServiceLevel, when set, restricts quoting to one service tier.
	// When empty, all available services are shopped.
	ServiceLevel ServiceLevel `json:"serviceLevel,omitempty"`

	// ShipDate is an optional ISO date (YYYY-MM-DD), defaulting to today.
	ShipDate string `json:"shipDate,omitempty"`
}

// ChargeBreakdown itemizes the components of a quote's total price.
type ChargeBreakdown struct {
	BaseCharge    float64 `json:"baseCharge"`
	FuelSurcharge float64 `json:"fuelSurcharge,omitempty"`
	Fees          []Fee   `json:"fees,omitempty"`
}

// Fee is a single itemized charge.
type Fee struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// RateQuote is a single normalized rate quote from a carrier.
type RateQuote struct {
	Carrier      string       `json:"carrier"`
	ServiceName  string       `json:"serviceName"` // human readable — "UPS Ground"
	ServiceLevel ServiceLevel `json:"serviceLevel"`
	TotalPrice   float64      `json:"totalPrice"`
	Currency     string       `json:"currency"`

	// TransitDays is the carrier's estimate, not a guarantee.
	TransitDays int `json:"transitDays,omitempty"`

	// GuaranteedDelivery is the carrier's delivery-by timestamp string,
	// present only when the carrier guarantees it.
	GuaranteedDelivery string `json:"guaranteedDelivery,omitempty"`

	Breakdown *ChargeBreakdown `json:"breakdown,omitempty"`
}

// RateResponse is the aggregate result of a rating operation.
type RateResponse struct {
	RequestID string `json:"requestId"`

	// Carrier is the targeted carrier name, or "all" for rate shopping.
	Carrier string `json:"carrier"`

	// Quotes are ordered ascending by total price.
	Quotes []RateQuote `json:"quotes"`

	RequestedAt time.Time `json:"requestedAt"`
}

// CarrierAll is the sentinel carrier value used on RateResponse when the
// request fanned out across all registered carriers.
const CarrierAll = "all"
