package weather

import "fmt"

// Unit is a display temperature unit. Readings are stored in Celsius;
// conversion happens only at the presentation edge.
type Unit string

const (
	UnitCelsius    Unit = "celsius"
	UnitFahrenheit Unit = "fahrenheit"
	UnitKelvin     Unit = "kelvin"
)

// ParseUnit maps a query-string value to a Unit. Empty input defaults
// to Celsius; short forms c/f/k are accepted.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "c", "celsius":
		return UnitCelsius, nil
	case "f", "fahrenheit":
		return UnitFahrenheit, nil
	case "k", "kelvin":
		return UnitKelvin, nil
	}
	return "", fmt.Errorf("unknown temperature unit %q", s)
}

// Convert converts a Celsius temperature into the given unit.
func Convert(tempC float64, unit Unit) float64 {
	switch unit {
	case UnitFahrenheit:
		return tempC*9/5 + 32
	case UnitKelvin:
		return tempC + 273.15
	default:
		return tempC
	}
}
