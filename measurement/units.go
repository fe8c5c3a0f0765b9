package measurement

import (
	"math"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Concentration is a volume concentration of a gas, stored in parts per billion.
type Concentration int64

// Units of Concentration.
const (
	PartPerBillion Concentration = 1
	PartPerMillion Concentration = 1000 * PartPerBillion
)

// PartsPerMillion returns the concentration in ppm.
func (c Concentration) PartsPerMillion() float64 {
	return float64(c) / float64(PartPerMillion)
}

func (c Concentration) String() string {
	return formatValue(c.PartsPerMillion()) + "ppm"
}

// PartsPerMillion converts a ppm value to a Concentration.
func PartsPerMillion(ppm float64) (Concentration, error) {
	ppb, ok := scale(ppm, float64(PartPerMillion))
	if !ok {
		return 0, errors.Errorf("concentration %v ppm out of range", ppm)
	}
	return Concentration(ppb), nil
}

// Percent converts a relative humidity percentage to a physic.RelativeHumidity.
func Percent(pct float64) (physic.RelativeHumidity, error) {
	if pct < 0 || pct > 100 || math.IsNaN(pct) {
		return 0, errors.Errorf("relative humidity %v%% out of range", pct)
	}
	return physic.RelativeHumidity(math.Round(pct * float64(physic.PercentRH))), nil
}

const pascalsPerAtmosphere = 101325

// Atmospheres converts a pressure in standard atmospheres to a physic.Pressure.
func Atmospheres(atm float64) (physic.Pressure, error) {
	return pascals(atm * pascalsPerAtmosphere)
}

// Hectopascals converts a pressure in hPa to a physic.Pressure.
func Hectopascals(hpa float64) (physic.Pressure, error) {
	return pascals(hpa * 100)
}

func pascals(pa float64) (physic.Pressure, error) {
	npa, ok := scale(pa, float64(physic.Pascal))
	if !ok {
		return 0, errors.Errorf("pressure %v Pa out of range", pa)
	}
	return physic.Pressure(npa), nil
}

// Celsius converts degrees Celsius to a physic.Temperature.
func Celsius(c float64) (physic.Temperature, error) {
	return kelvin(c + 273.15)
}

// Fahrenheit converts degrees Fahrenheit to a physic.Temperature.
func Fahrenheit(f float64) (physic.Temperature, error) {
	return kelvin((f-32)*5/9 + 273.15)
}

func kelvin(k float64) (physic.Temperature, error) {
	if k < 0 || math.IsNaN(k) {
		return 0, errors.Errorf("temperature %v K below absolute zero", k)
	}
	nk, ok := scale(k, float64(physic.Kelvin))
	if !ok {
		return 0, errors.Errorf("temperature %v K out of range", k)
	}
	return physic.Temperature(nk), nil
}

// scale returns round(v*unit), reporting false when v is negative or NaN, or when the
// result does not fit an int64.
func scale(v, unit float64) (int64, bool) {
	if v < 0 || math.IsNaN(v) {
		return 0, false
	}
	scaled := math.Round(v * unit)
	if scaled >= float64(math.MaxInt64) {
		return 0, false
	}
	return int64(scaled), true
}

// MustPartsPerMillion is like PartsPerMillion but panics on invalid input.
func MustPartsPerMillion(ppm float64) Concentration {
	return must(PartsPerMillion(ppm))
}

// MustPercent is like Percent but panics on invalid input.
func MustPercent(pct float64) physic.RelativeHumidity {
	return must(Percent(pct))
}

// MustAtmospheres is like Atmospheres but panics on invalid input.
func MustAtmospheres(atm float64) physic.Pressure {
	return must(Atmospheres(atm))
}

// MustHectopascals is like Hectopascals but panics on invalid input.
func MustHectopascals(hpa float64) physic.Pressure {
	return must(Hectopascals(hpa))
}

// MustCelsius is like Celsius but panics on invalid input.
func MustCelsius(c float64) physic.Temperature {
	return must(Celsius(c))
}

// MustFahrenheit is like Fahrenheit but panics on invalid input.
func MustFahrenheit(f float64) physic.Temperature {
	return must(Fahrenheit(f))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
