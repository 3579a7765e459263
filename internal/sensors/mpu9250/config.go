package mpu9250

import "fmt"

// Sample rate limits, assuming the 1kHz internal rate of DLPF modes 1-6.
const (
	minSampleRate uint16 = 4
	maxSampleRate uint16 = 1000
)

// SetGyroRange selects the gyroscope full scale: 0=±250°/s, 1=±500°/s,
// 2=±1000°/s, 3=±2000°/s.
func (d *Dev) SetGyroRange(code byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setGyroRange(code)
}

// SetAccelRange selects the accelerometer full scale: 0=±2g, 1=±4g, 2=±8g,
// 3=±16g.
func (d *Dev) SetAccelRange(code byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setAccelRange(code)
}

// SetLowPassFilter programs the DLPF with the narrowest hardware bandwidth
// that is not below hz (184, 92, 41, 20, 10 or 5Hz).
func (d *Dev) SetLowPassFilter(hz uint16) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setLowPassFilter(hz)
}

// SetSampleRate sets the output rate in Hz, clamped to [4, 1000], and moves
// the low pass filter to half of it.
func (d *Dev) SetSampleRate(hz uint16) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setSampleRate(hz)
}

func (d *Dev) setGyroRange(code byte) error {
	return writeRegister(&d.mpu, mpuRegGyroConfig, code<<3)
}

func (d *Dev) setAccelRange(code byte) error {
	return writeRegister(&d.mpu, mpuRegAccelConfig, code<<3)
}

func (d *Dev) setLowPassFilter(hz uint16) error {
	return writeRegister(&d.mpu, mpuRegConfig, dlpfCode(hz))
}

func (d *Dev) setSampleRate(hz uint16) error {
	hz = clampRate(hz)
	if err := writeRegister(&d.mpu, mpuRegSmplrtDiv, sampleRateDivider(hz)); err != nil {
		return err
	}
	return d.setLowPassFilter(hz / 2)
}

// dlpfCode maps a bandwidth to a DLPF_CFG value. Thresholds are inclusive.
func dlpfCode(hz uint16) byte {
	switch {
	case hz >= 188:
		return 1
	case hz >= 98:
		return 2
	case hz >= 42:
		return 3
	case hz >= 20:
		return 4
	case hz >= 10:
		return 5
	default:
		return 6
	}
}

func clampRate(hz uint16) uint16 {
	if hz > maxSampleRate {
		return maxSampleRate
	}
	if hz < minSampleRate {
		return minSampleRate
	}
	return hz
}

// sampleRateDivider expects a rate already clamped to [4, 1000].
func sampleRateDivider(hz uint16) byte {
	return byte(1000/hz - 1)
}

// GyroRangeLabel returns the full scale selected by a gyro range code.
func GyroRangeLabel(code byte) string {
	return fmt.Sprintf("±%d°/s", 250<<(code&3))
}

// AccelRangeLabel returns the full scale selected by an accel range code.
func AccelRangeLabel(code byte) string {
	return fmt.Sprintf("±%dg", 2<<(code&3))
}
