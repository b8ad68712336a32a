// Package units provides shared constants and validation for angle units
package units

import "math"

// Unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degrees, Radians}

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
	return "deg, rad"
}

// ToDegrees converts an angle in the given units to degrees.
// Scoring thresholds are all expressed in degrees.
func ToDegrees(angle float64, fromUnits string) float64 {
	switch fromUnits {
	case Radians:
		return angle * 180 / math.Pi
	case Degrees:
		return angle
	default:
		return angle
	}
}

// ConvertAngles converts a slice in place and returns it.
func ConvertAngles(angles []float64, fromUnits string) []float64 {
	if fromUnits == Degrees || fromUnits == "" {
		return angles
	}
	for i, a := range angles {
		angles[i] = ToDegrees(a, fromUnits)
	}
	return angles
}
