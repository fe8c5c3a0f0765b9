// Package measurement defines the physical readings a sensor can produce.
package measurement

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Measure identifies the physical quantity held by a Measurement.
type Measure int

// The measures a sensor can report. The zero value is not a valid measure.
const (
	CO2 Measure = iota + 1
	Humidity
	BarometricPressure
	Temperature
)

var measureNames = map[Measure]string{
	CO2:                "CO2",
	Humidity:           "Humidity",
	BarometricPressure: "Barometric Pressure",
	Temperature:        "Temperature",
}

var measureIDs = map[Measure]string{
	CO2:                "co2",
	Humidity:           "humidity",
	BarometricPressure: "barometric_pressure",
	Temperature:        "temperature",
}

// Measures returns every valid measure in declaration order.
func Measures() []Measure {
	return []Measure{CO2, Humidity, BarometricPressure, Temperature}
}

// String returns the display name of the measure.
func (m Measure) String() string {
	if name, ok := measureNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Measure(%d)", int(m))
}

// ID returns the stable machine identifier of the measure, e.g. "barometric_pressure".
func (m Measure) ID() string {
	return measureIDs[m]
}

// Valid reports whether m is one of the declared measures.
func (m Measure) Valid() bool {
	_, ok := measureNames[m]
	return ok
}

// ParseMeasure returns the measure with the given machine identifier.
func ParseMeasure(id string) (Measure, error) {
	for m, mID := range measureIDs {
		if mID == id {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown measure %q", id)
}

// KindMismatchError is returned when a Measurement is read as a measure it does not hold.
type KindMismatchError struct {
	Expected Measure
	Actual   Measure
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("measurement holds %s, not %s", e.Actual, e.Expected)
}

// A Measurement is a single reading of exactly one Measure. Only the field matching
// measure is populated, so two Measurements compare equal with == iff they hold the same
// measure and quantity.
type Measurement struct {
	measure     Measure
	co2         Concentration
	humidity    physic.RelativeHumidity
	pressure    physic.Pressure
	temperature physic.Temperature
}

// FromCO2 returns a CO2 concentration measurement.
func FromCO2(c Concentration) Measurement {
	return Measurement{measure: CO2, co2: c}
}

// FromRelativeHumidity returns a relative humidity measurement.
func FromRelativeHumidity(h physic.RelativeHumidity) Measurement {
	return Measurement{measure: Humidity, humidity: h}
}

// FromPressure returns a barometric pressure measurement.
func FromPressure(p physic.Pressure) Measurement {
	return Measurement{measure: BarometricPressure, pressure: p}
}

// FromTemperature returns a temperature measurement.
func FromTemperature(t physic.Temperature) Measurement {
	return Measurement{measure: Temperature, temperature: t}
}

// Measure returns the measure this measurement holds.
func (m Measurement) Measure() Measure {
	return m.measure
}

// CO2 returns the CO2 concentration.
func (m Measurement) CO2() (Concentration, error) {
	if err := m.expect(CO2); err != nil {
		return 0, err
	}
	return m.co2, nil
}

// RelativeHumidity returns the relative humidity.
func (m Measurement) RelativeHumidity() (physic.RelativeHumidity, error) {
	if err := m.expect(Humidity); err != nil {
		return 0, err
	}
	return m.humidity, nil
}

// Pressure returns the barometric pressure.
func (m Measurement) Pressure() (physic.Pressure, error) {
	if err := m.expect(BarometricPressure); err != nil {
		return 0, err
	}
	return m.pressure, nil
}

// Temperature returns the temperature.
func (m Measurement) Temperature() (physic.Temperature, error) {
	if err := m.expect(Temperature); err != nil {
		return 0, err
	}
	return m.temperature, nil
}

func (m Measurement) expect(want Measure) error {
	if m.measure != want {
		return &KindMismatchError{Expected: want, Actual: m.measure}
	}
	return nil
}

// Equal reports whether both measurements hold the same measure and quantity.
func (m Measurement) Equal(other Measurement) bool {
	return m == other
}

// Value returns the quantity in the conventional unit for its measure along with that
// unit: ppm, %, hPa or °C.
func (m Measurement) Value() (float64, string) {
	switch m.measure {
	case CO2:
		return m.co2.PartsPerMillion(), "ppm"
	case Humidity:
		return float64(m.humidity) / float64(physic.PercentRH), "%"
	case BarometricPressure:
		return float64(m.pressure) / float64(100*physic.Pascal), "hPa"
	case Temperature:
		return float64(m.temperature-physic.ZeroCelsius) / float64(physic.Kelvin), "°C"
	default:
		return 0, ""
	}
}

// String renders the measurement as "<measure>: <value> <unit>" with the value rounded
// to two decimals.
func (m Measurement) String() string {
	if !m.measure.Valid() {
		return "empty measurement"
	}
	v, unit := m.Value()
	return fmt.Sprintf("%s: %s %s", m.measure, formatValue(v), unit)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// raw returns the quantity as an integer in the base unit of its type.
func (m Measurement) raw() int64 {
	switch m.measure {
	case CO2:
		return int64(m.co2)
	case Humidity:
		return int64(m.humidity)
	case BarometricPressure:
		return int64(m.pressure)
	case Temperature:
		return int64(m.temperature)
	default:
		return 0
	}
}

func fromRaw(measure Measure, raw int64) (Measurement, error) {
	switch measure {
	case CO2:
		return FromCO2(Concentration(raw)), nil
	case Humidity:
		if raw < math.MinInt32 || raw > math.MaxInt32 {
			return Measurement{}, errors.Errorf("humidity %d out of range", raw)
		}
		return FromRelativeHumidity(physic.RelativeHumidity(raw)), nil
	case BarometricPressure:
		return FromPressure(physic.Pressure(raw)), nil
	case Temperature:
		return FromTemperature(physic.Temperature(raw)), nil
	default:
		return Measurement{}, errors.Errorf("invalid measure %d", int(measure))
	}
}
