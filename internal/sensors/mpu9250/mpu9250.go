// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mpu9250 drives an InvenSense MPU-9250 over I²C: the MPU-6500
// gyroscope/accelerometer die and the AK8963 magnetometer, which is reached
// directly on the same bus through the MPU's bypass mode.
//
// A Dev is not safe for concurrent use; callers sharing one must serialize
// access themselves.
package mpu9250

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// settleDelay is waited after the reset and after the wake write.
const settleDelay = 20 * time.Millisecond

// Defaults applied by Init.
const (
	initGyroRange  byte   = 3 // ±2000°/s
	initAccelRange byte   = 0 // ±2g
	initSampleRate uint16 = 125
)

// Opts holds the device options.
type Opts struct {
	// Addr is the MPU address, MPUAddr or MPUAltAddr. Zero means MPUAddr.
	Addr uint16
	// Sleep is the blocking delay used between init steps. Nil means
	// time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Addr: MPUAddr}

// Dev is a handle to an initialized MPU-9250.
type Dev struct {
	mpu         i2c.Dev
	mag         i2c.Dev
	sleep       func(time.Duration)
	closer      io.Closer
	initialized bool
}

// Open initializes the periph host, looks up the I²C bus by name ("" selects
// the first bus) and runs the init sequence on it. The bus is released by
// Close.
func Open(busName string, opts *Opts) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		log.WithField("bus", busName).Error("can't find mpu9250 i2c bus")
		return nil, fmt.Errorf("%w: open i2c bus %q: %v", ErrBus, busName, err)
	}
	log.WithField("bus", bus.String()).Debug("mpu9250 set i2c bus")
	d, err := NewI2C(bus, opts)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.closer = bus
	return d, nil
}

// NewI2C returns a device on the given bus after running the init sequence.
// The caller keeps ownership of the bus.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	d := newDev(b, opts)
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

func newDev(b i2c.Bus, opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr := opts.Addr
	if addr == 0 {
		addr = MPUAddr
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Dev{
		mpu:   i2c.Dev{Bus: b, Addr: addr},
		mag:   i2c.Dev{Bus: b, Addr: MagAddr},
		sleep: sleep,
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("MPU9250{%s, 0x%02X}", d.mpu.Bus, d.mpu.Addr)
}

// Init resets the chip and brings both dies to a known state: gyro ±2000°/s,
// accel ±2g, 125Hz output rate, AK8963 armed for a single measurement.
//
// It stops at the first failure and leaves the device unusable until Init
// succeeds again.
func (d *Dev) Init() error {
	d.initialized = false
	l := log.WithField("dev", d.String())
	l.Debug("mpu9250 init")

	if err := writeRegister(&d.mpu, mpuRegPwrMgmt1, pwrHReset); err != nil {
		return err
	}
	d.sleep(settleDelay)
	if err := writeRegister(&d.mpu, mpuRegPwrMgmt1, pwrWake); err != nil {
		return err
	}
	d.sleep(settleDelay)

	if err := d.setGyroRange(initGyroRange); err != nil {
		return err
	}
	if err := d.setAccelRange(initAccelRange); err != nil {
		return err
	}

	// Interrupts, aux I²C master and FIFO off; bypass on so the AK8963
	// answers on this bus.
	for _, w := range []struct{ reg, val byte }{
		{mpuRegIntEnable, 0x00},
		{mpuRegUserCtrl, 0x00},
		{mpuRegFIFOEn, 0x00},
		{mpuRegIntPinCfg, intPinCfg},
	} {
		if err := writeRegister(&d.mpu, w.reg, w.val); err != nil {
			return err
		}
	}

	if err := d.checkIdentity(ChipMPU, mpuRegWhoAmI, MPUWhoAmI); err != nil {
		return err
	}
	if err := writeRegister(&d.mpu, mpuRegPwrMgmt1, pwrClkPLLGyro); err != nil {
		return err
	}
	if err := writeRegister(&d.mpu, mpuRegPwrMgmt2, pwr2AllOn); err != nil {
		return err
	}
	if err := d.setSampleRate(initSampleRate); err != nil {
		return err
	}

	if err := d.checkIdentity(ChipMag, akRegWIA, MagWhoAmI); err != nil {
		return err
	}
	if err := writeRegister(&d.mag, akRegCNTL1, akSingleShot); err != nil {
		return err
	}

	d.initialized = true
	l.Debug("mpu9250 init done")
	return nil
}

func (d *Dev) checkIdentity(c Chip, reg, want byte) error {
	id, err := d.ReadRegister(c, reg)
	if err != nil {
		return err
	}
	l := log.WithFields(log.Fields{"chip": c.String(), "id": fmt.Sprintf("0x%02X", id)})
	if id != want {
		l.Error("chip id mismatch")
		return fmt.Errorf("%w: %s id 0x%02X, want 0x%02X", ErrIdentity, c, id, want)
	}
	l.Info("read chip id ok")
	return nil
}

// Close releases the bus if it was opened by Open.
func (d *Dev) Close() error {
	d.initialized = false
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

func (d *Dev) ready() error {
	if !d.initialized {
		return ErrNotInitialized
	}
	return nil
}
