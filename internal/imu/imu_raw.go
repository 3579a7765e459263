package imu

import "time"

// IMURaw represents a single raw IMU+mag sample.
type IMURaw struct {
	Source string    `json:"source"` // bus and address the sample came from
	Time   time.Time `json:"time"`

	TempC100 int16 `json:"temp_c100"` // die temperature, hundredths of °C

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx       int16 `json:"mx"` // magnetometer, AK8963 axes
	My       int16 `json:"my"`
	Mz       int16 `json:"mz"`
	MagValid bool  `json:"mag_valid"`
}

// TempCelsius returns the die temperature in °C.
func (r IMURaw) TempCelsius() float64 {
	return float64(r.TempC100) / 100
}

// IMURawSource is anything that yields raw samples.
type IMURawSource interface {
	ReadRaw() (IMURaw, error)
}
