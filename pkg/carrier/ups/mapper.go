package ups

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cybership/rating/pkg/carrier"
)

// buildRateRequest translates a normalized rate request into the UPS Rating
// wire format. Dimensions and weights become strings, the account number is
// attached for shipper-billed transportation charges, and a requested
// service level becomes a Service section when UPS has a code for it.
func buildRateRequest(req *carrier.RateRequest, accountNumber string) *rateRequestEnvelope {
	shipperName := req.Origin.Name
	if shipperName == "" {
		shipperName = "Shipper"
	}
	recipientName := req.Destination.Name
	if recipientName == "" {
		recipientName = "Recipient"
	}

	envelope := &rateRequestEnvelope{
		RateRequest: rateRequestBody{
			Request: requestSection{
				TransactionReference: transactionReference{
					CustomerContext: fmt.Sprintf("cybership-rate-%d", time.Now().UnixMilli()),
				},
			},
			Shipment: wireShipment{
				Shipper: wireParty{
					Name:          shipperName,
					ShipperNumber: accountNumber,
					Address:       mapAddress(req.Origin),
				},
				ShipTo: wireParty{
					Name:    recipientName,
					Address: mapAddress(req.Destination),
				},
				ShipFrom: wireParty{
					Name:    shipperName,
					Address: mapAddress(req.Origin),
				},
				Package: mapPackages(req.Packages),
				PaymentDetails: &paymentDetails{
					ShipmentCharge: []shipmentCharge{{
						Type:        "01", // transportation charges
						BillShipper: billShipper{AccountNumber: accountNumber},
					}},
				},
			},
		},
	}

	if req.ServiceLevel != "" {
		if code := codeForLevel(req.ServiceLevel); code != "" {
			envelope.RateRequest.Shipment.Service = &wireService{
				Code:        code,
				Description: string(req.ServiceLevel),
			}
		}
	}

	return envelope
}

func mapAddress(addr carrier.Address) wireAddress {
	lines := []string{addr.Street}
	if addr.Street2 != "" {
		lines = append(lines, addr.Street2)
	}
	return wireAddress{
		AddressLine:       lines,
		City:              addr.City,
		StateProvinceCode: addr.State,
		PostalCode:        addr.PostalCode,
		CountryCode:       addr.CountryCode,
	}
}

func mapPackages(pkgs []carrier.PackageInfo) []wirePackage {
	result := make([]wirePackage, len(pkgs))
	for i, p := range pkgs {
		result[i] = wirePackage{
			PackagingType: unitCode{Code: "02", Description: "Package"}, // customer supplied
			Dimensions: wireDimensions{
				UnitOfMeasurement: unitCode{Code: "IN", Description: "Inches"},
				Length:            formatDecimal(p.Length),
				Width:             formatDecimal(p.Width),
				Height:            formatDecimal(p.Height),
			},
			PackageWeight: wireWeight{
				UnitOfMeasurement: unitCode{Code: "LBS", Description: "Pounds"},
				Weight:            formatDecimal(p.Weight),
			},
		}
	}
	return result
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseRateResponse translates a UPS Rating response into normalized quotes.
// UPS returns RatedShipment as either a single object or an array; both
// shapes normalize to a list. Unknown service codes map to ground with a
// synthesized name, negotiated totals are preferred over standard ones, and
// unparsable monetary strings become zero rather than failing the quote.
func parseRateResponse(body []byte) ([]carrier.RateQuote, error) {
	var envelope rateResponseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, carrier.NewError(carrierName, carrier.CodeParse,
			fmt.Sprintf("Failed to parse rate response: %v", err)).WithCause(err)
	}
	if len(envelope.RateResponse.RatedShipment) == 0 {
		return nil, carrier.NewError(carrierName, carrier.CodeParse,
			"Response missing RateResponse.RatedShipment")
	}

	quotes := make([]carrier.RateQuote, len(envelope.RateResponse.RatedShipment))
	for i, rated := range envelope.RateResponse.RatedShipment {
		quotes[i] = mapRatedShipment(rated)
	}
	return quotes, nil
}

func mapRatedShipment(rated ratedShipment) carrier.RateQuote {
	info := lookupServiceByCode(rated.Service.Code)

	total := rated.TotalCharges
	if rated.NegotiatedRateCharges != nil {
		total = rated.NegotiatedRateCharges.TotalCharge
	}
	currency := total.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	quote := carrier.RateQuote{
		Carrier:      carrierName,
		ServiceName:  info.name,
		ServiceLevel: info.level,
		TotalPrice:   parseMonetary(total.MonetaryValue),
		Currency:     currency,
		Breakdown: &carrier.ChargeBreakdown{
			BaseCharge:    parseMonetary(rated.TransportationCharges.MonetaryValue),
			FuelSurcharge: parseMonetary(rated.ServiceOptionsCharges.MonetaryValue),
		},
	}

	if rated.GuaranteedDelivery != nil {
		if days, err := strconv.Atoi(rated.GuaranteedDelivery.BusinessDaysInTransit); err == nil {
			quote.TransitDays = days
		}
		quote.GuaranteedDelivery = rated.GuaranteedDelivery.DeliveryByTime
	}

	return quote
}

func parseMonetary(value string) float64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// wrapParseError keeps existing parse errors intact and wraps anything else.
func wrapParseError(err error) error {
	var cerr *carrier.Error
	if errors.As(err, &cerr) && cerr.Code == carrier.CodeParse {
		return err
	}
	return carrier.NewError(carrierName, carrier.CodeParse,
		"Unexpected response structure from UPS Rating API").WithCause(err)
}
