// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu9250

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// writeRegister sends {reg, value} as a single write transaction. periph
// reports a short transfer as an error, so the byte count is not checked.
func writeRegister(d *i2c.Dev, reg, value byte) error {
	if _, err := d.Write([]byte{reg, value}); err != nil {
		return fmt.Errorf("%w: write 0x%02X to 0x%02X@0x%02X: %v", ErrBus, value, reg, d.Addr, err)
	}
	return nil
}

// readRegisters fills buf starting at reg. The register pointer write and the
// read share one transaction (repeated start, no stop in between), which the
// chips need to keep the pointer.
func readRegisters(d *i2c.Dev, reg byte, buf []byte) error {
	if err := d.Tx([]byte{reg}, buf); err != nil {
		return fmt.Errorf("%w: read %d bytes from 0x%02X@0x%02X: %v", ErrBus, len(buf), reg, d.Addr, err)
	}
	return nil
}

func (d *Dev) chip(c Chip) *i2c.Dev {
	if c == ChipMag {
		return &d.mag
	}
	return &d.mpu
}

// ReadRegister returns a single register of the given chip.
func (d *Dev) ReadRegister(c Chip, reg byte) (byte, error) {
	var b [1]byte
	if err := d.ReadRegisters(c, reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadRegisters reads len(buf) consecutive registers starting at reg.
//
// Raw access bypasses the initialization check so that a device which failed
// its identity check can still be inspected.
func (d *Dev) ReadRegisters(c Chip, reg byte, buf []byte) error {
	return readRegisters(d.chip(c), reg, buf)
}

// WriteRegister writes a single register of the given chip.
func (d *Dev) WriteRegister(c Chip, reg, value byte) error {
	return writeRegister(d.chip(c), reg, value)
}
