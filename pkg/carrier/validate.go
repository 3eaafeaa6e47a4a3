package carrier

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxPackageWeight = 150 // lbs, reference carrier maximum
	maxGirthLength   = 165 // inches, 2*(width+height)+length
	maxPackages      = 25
	maxPostalLen     = 20
)

var shipDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateRateRequest checks every structural invariant of a rate request in
// one eager pass, collecting all violations rather than stopping at the
// first. On success it normalizes country codes to uppercase in place and
// returns nil; on failure it returns a VALIDATION_ERROR carrying the full
// issue list.
func ValidateRateRequest(req *RateRequest) error {
	if req == nil {
		return NewValidationError([]FieldIssue{{Field: "", Message: "Rate request is required"}})
	}

	var issues []FieldIssue
	issues = append(issues, validateAddress("origin", &req.Origin)...)
	issues = append(issues, validateAddress("destination", &req.Destination)...)

	switch {
	case len(req.Packages) == 0:
		issues = append(issues, FieldIssue{Field: "packages", Message: "At least one package is required"})
	case len(req.Packages) > maxPackages:
		issues = append(issues, FieldIssue{
			Field:   "packages",
			Message: fmt.Sprintf("Maximum %d packages per shipment", maxPackages),
		})
	}
	for i := range req.Packages {
		issues = append(issues, validatePackage(fmt.Sprintf("packages.%d", i), req.Packages[i])...)
	}

	if req.ServiceLevel != "" && !req.ServiceLevel.Valid() {
		issues = append(issues, FieldIssue{
			Field:   "serviceLevel",
			Message: fmt.Sprintf("Unknown service level %q", req.ServiceLevel),
		})
	}
	if req.ShipDate != "" && !shipDatePattern.MatchString(req.ShipDate) {
		issues = append(issues, FieldIssue{Field: "shipDate", Message: "Ship date must be YYYY-MM-DD format"})
	}

	if len(issues) > 0 {
		return NewValidationError(issues)
	}
	return nil
}

func validateAddress(prefix string, addr *Address) []FieldIssue {
	var issues []FieldIssue
	if addr.Street == "" {
		issues = append(issues, FieldIssue{Field: prefix + ".street", Message: "Street address is required"})
	}
	if addr.City == "" {
		issues = append(issues, FieldIssue{Field: prefix + ".city", Message: "City is required"})
	}
	if addr.State == "" {
		issues = append(issues, FieldIssue{Field: prefix + ".state", Message: "State/province code is required"})
	}
	switch {
	case addr.PostalCode == "":
		issues = append(issues, FieldIssue{Field: prefix + ".postalCode", Message: "Postal code is required"})
	case len(addr.PostalCode) > maxPostalLen:
		issues = append(issues, FieldIssue{Field: prefix + ".postalCode", Message: "Postal code seems too long"})
	}
	if len(addr.CountryCode) != 2 {
		issues = append(issues, FieldIssue{
			Field:   prefix + ".countryCode",
			Message: "Country code must be 2-letter ISO format",
		})
	} else {
		addr.CountryCode = strings.ToUpper(addr.CountryCode)
	}
	return issues
}

func validatePackage(prefix string, pkg PackageInfo) []FieldIssue {
	var issues []FieldIssue
	switch {
	case pkg.Weight <= 0:
		issues = append(issues, FieldIssue{Field: prefix + ".weight", Message: "Weight must be positive"})
	case pkg.Weight > maxPackageWeight:
		issues = append(issues, FieldIssue{
			Field:   prefix + ".weight",
			Message: fmt.Sprintf("Single package cannot exceed %d lbs", maxPackageWeight),
		})
	}
	if pkg.Length <= 0 {
		issues = append(issues, FieldIssue{Field: prefix + ".length", Message: "Length must be positive"})
	}
	if pkg.Width <= 0 {
		issues = append(issues, FieldIssue{Field: prefix + ".width", Message: "Width must be positive"})
	}
	if pkg.Height <= 0 {
		issues = append(issues, FieldIssue{Field: prefix + ".height", Message: "Height must be positive"})
	}
	if pkg.Girth() > maxGirthLength {
		issues = append(issues, FieldIssue{
			Field:   prefix,
			Message: fmt.Sprintf("Package exceeds maximum girth + length of %d inches", maxGirthLength),
		})
	}
	return issues
}
