package ups

import (
	"fmt"

	"github.com/cybership/rating/pkg/carrier"
)

type serviceInfo struct {
	name  string
	level carrier.ServiceLevel
}

// serviceCodes maps UPS service codes onto the normalized service levels.
var serviceCodes = map[string]serviceInfo{
	"01": {"UPS Next Day Air", carrier.ServiceOvernight},
	"02": {"UPS 2nd Day Air", carrier.ServiceTwoDay},
	"03": {"UPS Ground", carrier.ServiceGround},
	"07": {"UPS Worldwide Express", carrier.ServiceInternational},
	"08": {"UPS Worldwide Expedited", carrier.ServiceInternational},
	"11": {"UPS Standard", carrier.ServiceGround},
	"12": {"UPS 3 Day Select", carrier.ServiceThreeDay},
	"13": {"UPS Next Day Air Saver", carrier.ServiceOvernight},
	"14": {"UPS Next Day Air Early", carrier.ServiceOvernight},
	"54": {"UPS Worldwide Express Plus", carrier.ServiceInternational},
	"59": {"UPS 2nd Day Air A.M.", carrier.ServiceTwoDay},
	"65": {"UPS Worldwide Saver", carrier.ServiceInternational},
}

var levelToCode = map[carrier.ServiceLevel]string{
	carrier.ServiceGround:        "03",
	carrier.ServiceExpress:       "02", // "express" maps to 2nd Day Air
	carrier.ServiceOvernight:     "01",
	carrier.ServiceTwoDay:        "02",
	carrier.ServiceThreeDay:      "12",
	carrier.ServiceInternational: "07",
}

// lookupServiceByCode resolves a UPS service code. Unknown codes fall back
// to ground with a synthesized display name rather than failing the whole
// response over one unmapped code.
func lookupServiceByCode(code string) serviceInfo {
	if info, ok := serviceCodes[code]; ok {
		return info
	}
	return serviceInfo{
		name:  fmt.Sprintf("UPS Service %s", code),
		level: carrier.ServiceGround,
	}
}

// codeForLevel returns the UPS service code for a normalized level, or ""
// when UPS has no mapping for it.
func codeForLevel(level carrier.ServiceLevel) string {
	return levelToCode[level]
}

// supportedLevels returns the distinct normalized levels UPS can quote, in
// a stable order.
func supportedLevels() []carrier.ServiceLevel {
	seen := make(map[carrier.ServiceLevel]bool)
	for _, info := range serviceCodes {
		seen[info.level] = true
	}
	var levels []carrier.ServiceLevel
	for _, level := range carrier.ServiceLevels {
		if seen[level] {
			levels = append(levels, level)
		}
	}
	return levels
}
