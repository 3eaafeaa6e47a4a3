package carrier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybership/rating/pkg/carrier"
)

func sampleRateRequest() *carrier.RateRequest {
	return &carrier.RateRequest{
		Origin: carrier.Address{
			Name:        "Test Warehouse",
			Street:      "123 Warehouse Blvd",
			City:        "San Francisco",
			State:       "CA",
			PostalCode:  "94105",
			CountryCode: "us",
		},
		Destination: carrier.Address{
			Name:        "Test Customer",
			Street:      "456 Delivery Lane",
			City:        "New York",
			State:       "NY",
			PostalCode:  "10001",
			CountryCode: "US",
		},
		Packages: []carrier.PackageInfo{
			{Weight: 5.5, Length: 12, Width: 8, Height: 6},
		},
	}
}

func issueFields(t *testing.T, err error) []string {
	t.Helper()
	issues := carrier.ValidationIssues(err)
	require.NotEmpty(t, issues)
	fields := make([]string, len(issues))
	for i, issue := range issues {
		fields[i] = issue.Field
	}
	return fields
}

func TestValidateRateRequest_Valid(t *testing.T) {
	req := sampleRateRequest()

	err := carrier.ValidateRateRequest(req)

	require.NoError(t, err)
	assert.Equal(t, "US", req.Origin.CountryCode, "country code should be uppercased")
	assert.Equal(t, "US", req.Destination.CountryCode)
	assert.Equal(t, "123 Warehouse Blvd", req.Origin.Street, "no information loss")
	assert.Len(t, req.Packages, 1)
}

func TestValidateRateRequest_CollectsAllIssues(t *testing.T) {
	req := sampleRateRequest()
	req.Origin.Street = ""
	req.Destination.City = ""
	req.Packages[0].Weight = -1
	req.ShipDate = "03/15/2026"

	err := carrier.ValidateRateRequest(req)

	require.Error(t, err)
	assert.Equal(t, carrier.CodeValidation, carrier.CodeOf(err))
	fields := issueFields(t, err)
	assert.Contains(t, fields, "origin.street")
	assert.Contains(t, fields, "destination.city")
	assert.Contains(t, fields, "packages.0.weight")
	assert.Contains(t, fields, "shipDate")
}

func TestValidateRateRequest_CountryCodeLength(t *testing.T) {
	req := sampleRateRequest()
	req.Origin.CountryCode = "USA"

	err := carrier.ValidateRateRequest(req)

	require.Error(t, err)
	assert.Contains(t, issueFields(t, err), "origin.countryCode")
}

func TestValidateRateRequest_GirthLimit(t *testing.T) {
	// 2*(30+30)+45 = 165: exactly at the limit, passes.
	req := sampleRateRequest()
	req.Packages = []carrier.PackageInfo{{Weight: 10, Length: 45, Width: 30, Height: 30}}
	require.NoError(t, carrier.ValidateRateRequest(req))

	// 2*(30+30)+46 = 166: over the limit, fails with the girth message.
	req = sampleRateRequest()
	req.Packages = []carrier.PackageInfo{{Weight: 10, Length: 46, Width: 30, Height: 30}}
	err := carrier.ValidateRateRequest(req)
	require.Error(t, err)
	issues := carrier.ValidationIssues(err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "girth")
}

func TestValidateRateRequest_WeightLimit(t *testing.T) {
	req := sampleRateRequest()
	req.Packages[0].Weight = 151

	err := carrier.ValidateRateRequest(req)

	require.Error(t, err)
	assert.Contains(t, issueFields(t, err), "packages.0.weight")
}

func TestValidateRateRequest_PackageCount(t *testing.T) {
	req := sampleRateRequest()
	req.Packages = nil
	err := carrier.ValidateRateRequest(req)
	require.Error(t, err)
	assert.Contains(t, issueFields(t, err), "packages")

	req = sampleRateRequest()
	pkg := req.Packages[0]
	req.Packages = make([]carrier.PackageInfo, 26)
	for i := range req.Packages {
		req.Packages[i] = pkg
	}
	err = carrier.ValidateRateRequest(req)
	require.Error(t, err)
	assert.Contains(t, issueFields(t, err), "packages")
}

func TestValidateRateRequest_ServiceLevel(t *testing.T) {
	req := sampleRateRequest()
	req.ServiceLevel = carrier.ServiceTwoDay
	require.NoError(t, carrier.ValidateRateRequest(req))

	req = sampleRateRequest()
	req.ServiceLevel = carrier.ServiceLevel("same_day")
	err := carrier.ValidateRateRequest(req)
	require.Error(t, err)
	assert.Contains(t, issueFields(t, err), "serviceLevel")
}

func TestValidateRateRequest_ShipDate(t *testing.T) {
	req := sampleRateRequest()
	req.ShipDate = "2026-09-01"
	require.NoError(t, carrier.ValidateRateRequest(req))
}

func TestValidateRateRequest_NeverReachesCarrier(t *testing.T) {
	err := carrier.ValidateRateRequest(nil)
	require.Error(t, err)

	var cerr *carrier.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, carrier.CodeValidation, cerr.Code)
	assert.False(t, cerr.Retryable)
}
