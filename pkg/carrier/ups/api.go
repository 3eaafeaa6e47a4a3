package ups

import (
	"encoding/json"
)

// ============================================================================
// Wire types matching the UPS Rating API (JSON over HTTPS). UPS transmits
// dimensions, weights, and monetary values as strings.
// ============================================================================

type rateRequestEnvelope struct {
	RateRequest rateRequestBody `json:"RateRequest"`
}

type rateRequestBody struct {
	Request  requestSection `json:"Request"`
	Shipment wireShipment   `json:"Shipment"`
}

type requestSection struct {
	TransactionReference transactionReference `json:"TransactionReference"`
}

type transactionReference struct {
	CustomerContext string `json:"CustomerContext"`
}

type wireShipment struct {
	Shipper        wireParty       `json:"Shipper"`
	ShipTo         wireParty       `json:"ShipTo"`
	ShipFrom       wireParty       `json:"ShipFrom"`
	Service        *wireService    `json:"Service,omitempty"`
	Package        []wirePackage   `json:"Package"`
	PaymentDetails *paymentDetails `json:"PaymentDetails,omitempty"`
}

type wireParty struct {
	Name          string      `json:"Name"`
	ShipperNumber string      `json:"ShipperNumber,omitempty"`
	Address       wireAddress `json:"Address"`
}

type wireAddress struct {
	AddressLine       []string `json:"AddressLine"`
	City              string   `json:"City"`
	StateProvinceCode string   `json:"StateProvinceCode"`
	PostalCode        string   `json:"PostalCode"`
	CountryCode       string   `json:"CountryCode"`
}

type wireService struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

type wirePackage struct {
	PackagingType unitCode       `json:"PackagingType"`
	Dimensions    wireDimensions `json:"Dimensions"`
	PackageWeight wireWeight     `json:"PackageWeight"`
}

type unitCode struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

type wireDimensions struct {
	UnitOfMeasurement unitCode `json:"UnitOfMeasurement"`
	Length            string   `json:"Length"`
	Width             string   `json:"Width"`
	Height            string   `json:"Height"`
}

type wireWeight struct {
	UnitOfMeasurement unitCode `json:"UnitOfMeasurement"`
	Weight            string   `json:"Weight"`
}

type paymentDetails struct {
	ShipmentCharge []shipmentCharge `json:"ShipmentCharge"`
}

type shipmentCharge struct {
	Type        string      `json:"Type"` // "01" = transportation charges
	BillShipper billShipper `json:"BillShipper"`
}

type billShipper struct {
	AccountNumber string `json:"AccountNumber"`
}

type rateResponseEnvelope struct {
	RateResponse rateResponseBody `json:"RateResponse"`
}

type rateResponseBody struct {
	RatedShipment ratedShipmentList `json:"RatedShipment"`
}

// ratedShipmentList absorbs UPS's habit of returning a bare object when a
// single service was rated and an array when multiple were.
type ratedShipmentList []ratedShipment

func (l *ratedShipmentList) UnmarshalJSON(data []byte) error {
	var many []ratedShipment
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one ratedShipment
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = ratedShipmentList{one}
	return nil
}

type ratedShipment struct {
	Service               wireService         `json:"Service"`
	TransportationCharges wireCharge          `json:"TransportationCharges"`
	ServiceOptionsCharges wireCharge          `json:"ServiceOptionsCharges"`
	TotalCharges          wireCharge          `json:"TotalCharges"`
	NegotiatedRateCharges *negotiatedCharges  `json:"NegotiatedRateCharges,omitempty"`
	GuaranteedDelivery    *guaranteedDelivery `json:"GuaranteedDelivery,omitempty"`
}

type negotiatedCharges struct {
	TotalCharge wireCharge `json:"TotalCharge"`
}

type guaranteedDelivery struct {
	BusinessDaysInTransit string `json:"BusinessDaysInTransit"`
	DeliveryByTime        string `json:"DeliveryByTime,omitempty"`
}

type wireCharge struct {
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

// tokenResponse is the OAuth2 client-credentials token payload. UPS returns
// expires_in as a string of seconds.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   string `json:"expires_in"`
}
