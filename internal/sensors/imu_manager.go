// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_i2c/internal/config"
	"github.com/relabs-tech/inertial_i2c/internal/imu"
	"github.com/relabs-tech/inertial_i2c/internal/sensors/mpu9250"
	log "github.com/sirupsen/logrus"
)

// Settings are the sensor options applied after every init.
type Settings struct {
	GyroRange    byte
	AccelRange   byte
	SampleRateHz uint16
	DLPFHz       uint16 // 0 keeps the filter chosen by the sample rate
}

// SettingsFromConfig extracts the sensor options from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		GyroRange:    cfg.IMUGyroRange,
		AccelRange:   cfg.IMUAccelRange,
		SampleRateHz: cfg.IMUSampleRateHz,
		DLPFHz:       cfg.IMUDLPFHz,
	}
}

// IMUManager owns the MPU-9250 and serializes every access to it, so the
// producer loop and the register debug tool can share one device.
type IMUManager struct {
	mu       sync.Mutex
	name     string
	dev      *mpu9250.Dev
	settings *Settings
	now      func() time.Time
}

// OpenIMUManager opens the configured bus, initializes the device and applies
// the configured ranges, rate and filter.
func OpenIMUManager(cfg *config.Config) (*IMUManager, error) {
	dev, err := mpu9250.Open(cfg.IMUI2CBus, &mpu9250.Opts{Addr: cfg.IMUI2CAddr})
	if err != nil {
		return nil, fmt.Errorf("imu: %w", err)
	}
	m := NewIMUManager(dev, fmt.Sprintf("i2c%s@0x%02X", cfg.IMUI2CBus, cfg.IMUI2CAddr))
	if err := m.Configure(SettingsFromConfig(cfg)); err != nil {
		dev.Close()
		return nil, err
	}
	return m, nil
}

// NewIMUManager wraps an initialized device. name tags samples and logs.
func NewIMUManager(dev *mpu9250.Dev, name string) *IMUManager {
	return &IMUManager{name: name, dev: dev, now: time.Now}
}

// Name returns the source name stamped on samples.
func (m *IMUManager) Name() string { return m.name }

// Configure applies s and remembers it for Reinitialize.
func (m *IMUManager) Configure(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.apply(s); err != nil {
		return err
	}
	m.settings = &s
	return nil
}

func (m *IMUManager) apply(s Settings) error {
	l := log.WithField("imu", m.name)
	if err := m.dev.SetAccelRange(s.AccelRange); err != nil {
		return fmt.Errorf("%s IMU: set accel range: %w", m.name, err)
	}
	l.Infof("accelerometer range set to %d (%s)", s.AccelRange, mpu9250.AccelRangeLabel(s.AccelRange))

	if err := m.dev.SetGyroRange(s.GyroRange); err != nil {
		return fmt.Errorf("%s IMU: set gyro range: %w", m.name, err)
	}
	l.Infof("gyroscope range set to %d (%s)", s.GyroRange, mpu9250.GyroRangeLabel(s.GyroRange))

	if err := m.dev.SetSampleRate(s.SampleRateHz); err != nil {
		return fmt.Errorf("%s IMU: set sample rate: %w", m.name, err)
	}
	l.Infof("sample rate set to %d Hz", s.SampleRateHz)

	if s.DLPFHz != 0 {
		if err := m.dev.SetLowPassFilter(s.DLPFHz); err != nil {
			return fmt.Errorf("%s IMU: set DLPF: %w", m.name, err)
		}
		l.Infof("DLPF bandwidth set to %d Hz", s.DLPFHz)
	}
	return nil
}

// ReadRaw reads temperature, accelerometer, gyroscope and magnetometer.
// A magnetometer failure is not fatal; the sample is returned with
// MagValid false.
func (m *IMUManager) ReadRaw() (imu.IMURaw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	temp, err := m.dev.ReadTemperature()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU temperature: %w", m.name, err)
	}
	a, err := m.dev.ReadAccelerometer()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel: %w", m.name, err)
	}
	g, err := m.dev.ReadGyroscope()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro: %w", m.name, err)
	}

	raw := imu.IMURaw{
		Source:   m.name,
		Time:     m.now(),
		TempC100: temp,
		Ax:       a.X,
		Ay:       a.Y,
		Az:       a.Z,
		Gx:       g.X,
		Gy:       g.Y,
		Gz:       g.Z,
	}
	if mag, err := m.dev.ReadMagnetometer(); err != nil {
		log.WithField("imu", m.name).WithError(err).Warn("magnetometer read error")
	} else {
		raw.Mx, raw.My, raw.Mz = mag.X, mag.Y, mag.Z
		raw.MagValid = true
	}
	return raw, nil
}

// ReadRegister reads one register of device ("mpu9250" or "ak8963").
func (m *IMUManager) ReadRegister(device string, reg byte) (byte, error) {
	c, err := mpu9250.ParseChip(device)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev.ReadRegister(c, reg)
}

// WriteRegister writes one register of device.
func (m *IMUManager) WriteRegister(device string, reg, value byte) error {
	c, err := mpu9250.ParseChip(device)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log.WithFields(log.Fields{
		"imu":    m.name,
		"device": c.String(),
		"reg":    fmt.Sprintf("0x%02X", reg),
		"value":  fmt.Sprintf("0x%02X", value),
	}).Info("register write")
	return m.dev.WriteRegister(c, reg, value)
}

// ReadAllRegisters reads every readable register listed in the register map
// of device.
func (m *IMUManager) ReadAllRegisters(device string) (map[byte]byte, error) {
	c, err := mpu9250.ParseChip(device)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[byte]byte)
	for _, r := range mpu9250.Registers(c) {
		if !r.Readable() {
			continue
		}
		v, err := m.dev.ReadRegister(c, r.Address)
		if err != nil {
			return nil, fmt.Errorf("%s 0x%02X: %w", r.Name, r.Address, err)
		}
		out[r.Address] = v
	}
	return out, nil
}

// RegisterMap returns the register metadata of device.
func (m *IMUManager) RegisterMap(device string) ([]mpu9250.RegisterInfo, error) {
	c, err := mpu9250.ParseChip(device)
	if err != nil {
		return nil, err
	}
	return mpu9250.Registers(c), nil
}

// Reinitialize reruns the init sequence and reapplies the last settings.
func (m *IMUManager) Reinitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.WithField("imu", m.name).Info("reinitializing")
	if err := m.dev.Init(); err != nil {
		return fmt.Errorf("%s IMU: init: %w", m.name, err)
	}
	if m.settings != nil {
		return m.apply(*m.settings)
	}
	return nil
}

// Close releases the device.
func (m *IMUManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev.Close()
}
