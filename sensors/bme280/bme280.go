// Package bme280 implements the Bosch BME280 humidity, pressure and temperature sensor.
package bme280

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.aether.dev/aether/i2c"
	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/registry"
	"go.aether.dev/aether/sensor"
	"go.aether.dev/aether/sensors/simulated"
	"go.aether.dev/aether/utils"
)

// Name is the catalog name of the sensor.
const Name = "BME280"

// DefaultAddress is the I2C address with SDO pulled high. 0x76 is the alternative.
const DefaultAddress = 0x77

const (
	regCalibrationTP = 0x88 // dig_T1 .. dig_P9
	regCalibrationH1 = 0xA1
	regChipID        = 0xD0
	regReset         = 0xE0
	regCalibrationH2 = 0xE1 // dig_H2 .. dig_H6
	regCtrlHumidity  = 0xF2
	regCtrlMeasure   = 0xF4
	regConfig        = 0xF5
	regData          = 0xF7 // press_msb .. hum_lsb

	chipID       = 0x60
	softReset    = 0xB6
	resetDelay   = 10 * time.Millisecond
	sizeTP       = 24
	sizeH2       = 7
	sizeData     = 8
	oversample1x = 0b001
	modeSleep    = 0b00
	modeNormal   = 0b11
)

// Measures lists what the BME280 reports, in sample order.
var Measures = []measurement.Measure{measurement.Humidity, measurement.BarometricPressure, measurement.Temperature}

func init() {
	registry.Register(registry.Descriptor{
		Name:        Name,
		Measures:    Measures,
		Connection:  registry.I2C{DefaultAddress: DefaultAddress},
		CanSimulate: true,
		Constructor: Open,
		Simulator: func(ctx context.Context, logger logging.Logger) (sensor.Device, error) {
			return simulated.NewDevice(ctx, Name, logger, Measures...), nil
		},
	})
}

// Open opens a BME280 on the given bus and address and puts it in normal mode.
func Open(ctx context.Context, params registry.ConnectionParams, logger logging.Logger) (sensor.Device, error) {
	p, err := utils.AssertType[registry.I2CParams](params)
	if err != nil {
		return nil, err
	}
	handle, err := i2c.OpenDevice(p.Bus, p.Address)
	if err != nil {
		return nil, err
	}
	s, err := newSampler(ctx, handle, logger)
	if err != nil {
		return nil, multierr.Combine(err, handle.Close())
	}
	return sensor.NewPollingDevice(Name, s, sensor.PollingConfigFromContext(ctx), logger), nil
}

type sampler struct {
	handle i2c.Handle
	cal    calibration
	logger logging.Logger
}

func newSampler(ctx context.Context, handle i2c.Handle, logger logging.Logger) (*sampler, error) {
	id, err := handle.ReadByteData(ctx, regChipID)
	if err != nil {
		return nil, errors.Wrap(err, "reading chip id")
	}
	if id != chipID {
		return nil, errors.Errorf("unexpected chip id 0x%02X, want 0x%02X", id, chipID)
	}

	if err := handle.WriteByteData(ctx, regReset, softReset); err != nil {
		return nil, errors.Wrap(err, "resetting")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(resetDelay):
	}

	cal, err := readCalibration(ctx, handle)
	if err != nil {
		return nil, errors.Wrap(err, "reading calibration")
	}
	logger.Debugw("bme280 calibration", "calibration", cal)

	// ctrl_hum only takes effect after the following ctrl_meas write, and config is only
	// written reliably in sleep mode.
	for _, reg := range []struct {
		register byte
		value    byte
	}{
		{regCtrlHumidity, oversample1x},
		{regConfig, 0},
		{regCtrlMeasure, ctrlMeasure(modeNormal)},
	} {
		r := i2c.I2CRegister{Handle: handle, Register: reg.register}
		if err := r.WriteByteData(ctx, reg.value); err != nil {
			return nil, errors.Wrapf(err, "configuring register 0x%02X", reg.register)
		}
	}
	return &sampler{handle: handle, cal: cal, logger: logger}, nil
}

func ctrlMeasure(mode byte) byte {
	return oversample1x<<5 | oversample1x<<2 | mode
}

func readCalibration(ctx context.Context, handle i2c.Handle) (calibration, error) {
	tp, err := handle.ReadBlockData(ctx, regCalibrationTP, sizeTP)
	if err != nil {
		return calibration{}, err
	}
	h1, err := handle.ReadByteData(ctx, regCalibrationH1)
	if err != nil {
		return calibration{}, err
	}
	h, err := handle.ReadBlockData(ctx, regCalibrationH2, sizeH2)
	if err != nil {
		return calibration{}, err
	}
	return parseCalibration(tp, h1, h)
}

func (s *sampler) Sample(ctx context.Context) ([]measurement.Measurement, error) {
	data, err := s.handle.ReadBlockData(ctx, regData, sizeData)
	if err != nil {
		return nil, errors.Wrap(err, "reading measurement")
	}
	if len(data) != sizeData {
		return nil, errors.Errorf("i2c read returned %d bytes, want %d", len(data), sizeData)
	}
	return s.cal.measurements(data)
}

func (s *sampler) Close(ctx context.Context) error {
	return multierr.Combine(
		errors.Wrap(s.handle.WriteByteData(ctx, regCtrlMeasure, ctrlMeasure(modeSleep)), "entering sleep mode"),
		s.handle.Close(),
	)
}

// calibration holds the factory trimming parameters, named as in the datasheet.
type calibration struct {
	T1         uint16
	T2, T3     int16
	P1         uint16
	P2, P3, P4 int16
	P5, P6, P7 int16
	P8, P9     int16
	H1         uint8
	H2         int16
	H3         uint8
	H4, H5     int16
	H6         int8
}

func parseCalibration(tp []byte, h1 byte, h []byte) (calibration, error) {
	if len(tp) != sizeTP || len(h) != sizeH2 {
		return calibration{}, errors.Errorf("calibration blocks are %d and %d bytes, want %d and %d",
			len(tp), len(h), sizeTP, sizeH2)
	}
	u16 := func(i int) uint16 { return binary.LittleEndian.Uint16(tp[i:]) }
	s16 := func(i int) int16 { return int16(u16(i)) }
	return calibration{
		T1: u16(0), T2: s16(2), T3: s16(4),
		P1: u16(6), P2: s16(8), P3: s16(10), P4: s16(12), P5: s16(14),
		P6: s16(16), P7: s16(18), P8: s16(20), P9: s16(22),
		H1: h1,
		H2: int16(binary.LittleEndian.Uint16(h[0:])),
		H3: h[2],
		H4: int16(int8(h[3]))<<4 | int16(h[4]&0x0F),
		H5: int16(int8(h[5]))<<4 | int16(h[4]>>4),
		H6: int8(h[6]),
	}, nil
}

func (c calibration) measurements(data []byte) ([]measurement.Measurement, error) {
	adcP := int32(data[0])<<12 | int32(data[1])<<4 | int32(data[2])>>4
	adcT := int32(data[3])<<12 | int32(data[4])<<4 | int32(data[5])>>4
	adcH := int32(data[6])<<8 | int32(data[7])

	tFine, celsius := c.temperature(adcT)
	humidity, err := measurement.Percent(c.humidity(adcH, tFine))
	if err != nil {
		return nil, err
	}
	pressure, err := measurement.Hectopascals(c.pressure(adcP, tFine) / 100)
	if err != nil {
		return nil, err
	}
	temperature, err := measurement.Celsius(celsius)
	if err != nil {
		return nil, err
	}
	return []measurement.Measurement{
		measurement.FromRelativeHumidity(humidity),
		measurement.FromPressure(pressure),
		measurement.FromTemperature(temperature),
	}, nil
}

// temperature returns t_fine, which the other compensations need, and degrees Celsius.
func (c calibration) temperature(adc int32) (float64, float64) {
	a := float64(adc)
	v1 := (a/16384 - float64(c.T1)/1024) * float64(c.T2)
	d := a/131072 - float64(c.T1)/8192
	v2 := d * d * float64(c.T3)
	tFine := v1 + v2
	return tFine, tFine / 5120
}

// pressure returns pascals.
func (c calibration) pressure(adc int32, tFine float64) float64 {
	v1 := tFine/2 - 64000
	v2 := v1 * v1 * float64(c.P6) / 32768
	v2 += v1 * float64(c.P5) * 2
	v2 = v2/4 + float64(c.P4)*65536
	v1 = (float64(c.P3)*v1*v1/524288 + float64(c.P2)*v1) / 524288
	v1 = (1 + v1/32768) * float64(c.P1)
	if v1 == 0 {
		return 0
	}
	p := 1048576 - float64(adc)
	p = (p - v2/4096) * 6250 / v1
	v1 = float64(c.P9) * p * p / 2147483648
	v2 = p * float64(c.P8) / 32768
	return p + (v1+v2+float64(c.P7))/16
}

// humidity returns percent relative humidity, clamped to 0..100.
func (c calibration) humidity(adc int32, tFine float64) float64 {
	h := tFine - 76800
	h = (float64(adc) - (float64(c.H4)*64 + float64(c.H5)/16384*h)) *
		(float64(c.H2) / 65536 * (1 + float64(c.H6)/67108864*h*(1+float64(c.H3)/67108864*h)))
	h *= 1 - float64(c.H1)*h/524288
	return min(max(h, 0), 100)
}
