package measurement

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// wireMeasurement is the JSON form of a Measurement. Raw holds the quantity in the base
// unit of its type so a round trip is exact; Text is informational.
type wireMeasurement struct {
	Measure string `json:"measure"`
	Raw     int64  `json:"raw"`
	Text    string `json:"text,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.measure.Valid() {
		return nil, errors.New("cannot marshal an empty measurement")
	}
	return json.Marshal(wireMeasurement{
		Measure: m.measure.ID(),
		Raw:     m.raw(),
		Text:    m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	var wire wireMeasurement
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	measure, err := ParseMeasure(wire.Measure)
	if err != nil {
		return err
	}
	decoded, err := fromRaw(measure, wire.Raw)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}
