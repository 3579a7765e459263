// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu9250

import (
	"encoding/binary"
	"math"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// Temperature sensor transfer function: °C = tempOffset + raw/tempSensitivity.
const (
	tempOffset      = 21.0
	tempSensitivity = 333.87
)

// Triplet is one raw reading of the three axes, in sensor counts.
type Triplet struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// ReadTemperature returns the die temperature in hundredths of °C.
func (d *Dev) ReadTemperature() (int16, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	var buf [2]byte
	if err := readRegisters(&d.mpu, mpuRegTempOutH, buf[:]); err != nil {
		return 0, err
	}
	return decodeTemperature(int16(binary.BigEndian.Uint16(buf[:]))), nil
}

// ReadGyroscope returns the raw angular rate of the three axes.
func (d *Dev) ReadGyroscope() (Triplet, error) {
	return d.readMPUTriplet(mpuRegGyroXoutH)
}

// ReadAccelerometer returns the raw acceleration of the three axes.
func (d *Dev) ReadAccelerometer() (Triplet, error) {
	return d.readMPUTriplet(mpuRegAccelXoutH)
}

// ReadMagnetometer returns the raw magnetic field of the three axes.
//
// The AK8963 drops back to power-down after each single measurement, so the
// measurement is re-armed after every read attempt, failed or not. A failed
// re-arm is logged; the result reflects the data read only.
func (d *Dev) ReadMagnetometer() (Triplet, error) {
	if err := d.ready(); err != nil {
		return Triplet{}, err
	}
	var buf [6]byte
	err := readRegisters(&d.mag, akRegHXL, buf[:])
	if werr := writeRegister(&d.mag, akRegCNTL1, akSingleShot); werr != nil {
		log.WithError(werr).Warn("ak8963: re-arm single measurement failed")
	}
	if err != nil {
		return Triplet{}, err
	}
	return decodeTriplet(buf[:], binary.LittleEndian), nil
}

// Sense fills e.Temperature from the die temperature sensor.
func (d *Dev) Sense(e *physic.Env) error {
	t, err := d.ReadTemperature()
	if err != nil {
		return err
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(t)*10*physic.MilliKelvin
	return nil
}

func (d *Dev) readMPUTriplet(reg byte) (Triplet, error) {
	if err := d.ready(); err != nil {
		return Triplet{}, err
	}
	var buf [6]byte
	if err := readRegisters(&d.mpu, reg, buf[:]); err != nil {
		return Triplet{}, err
	}
	return decodeTriplet(buf[:], binary.BigEndian), nil
}

// decodeTriplet assembles three signed 16-bit values. The MPU die is
// big-endian, the AK8963 little-endian.
func decodeTriplet(b []byte, order binary.ByteOrder) Triplet {
	return Triplet{
		X: int16(order.Uint16(b[0:2])),
		Y: int16(order.Uint16(b[2:4])),
		Z: int16(order.Uint16(b[4:6])),
	}
}

func decodeTemperature(raw int16) int16 {
	c := tempOffset + float64(raw)/tempSensitivity
	return int16(math.Round(c * 100))
}
