// Package units provides shared constants and validation for canvas length
// units.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	Inch       = "in"
	Millimetre = "mm"
	Centimetre = "cm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Inch, Millimetre, Centimetre}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ToInches converts a length in the given unit to inches.
func ToInches(length float64, unit string) (float64, error) {
	switch unit {
	case Inch:
		return length, nil
	case Millimetre:
		return length / 25.4, nil
	case Centimetre:
		return length / 2.54, nil
	}
	return 0, fmt.Errorf("unknown unit %q: expected one of %s", unit, GetValidUnitsString())
}
