package mpu9250

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func TestReadTemperature(t *testing.T) {
	data := []struct {
		raw  int16
		want int16
	}{
		{0, 2100},
		{334, 2200},
		{-334, 2000},
		{3339, 3100},
		{32767, 11914},
		{-32768, -7715},
	}
	for _, line := range data {
		d, bus := newTestDev(t)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(line.raw))
		bus.Set(MPUAddr, 0x41, b[0], b[1])
		got, err := d.ReadTemperature()
		if err != nil {
			t.Fatal(err)
		}
		if got != line.want {
			t.Errorf("raw %d: got %d, want %d", line.raw, got, line.want)
		}
		checkOps(t, bus.Ops(), []i2ctest.IO{{Addr: 0x68, W: []byte{0x41}, R: b[:]}})
	}
}

func TestSense(t *testing.T) {
	d, _ := newTestDev(t)
	var e physic.Env
	if err := d.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if got := e.Temperature.Celsius(); got != 21 {
		t.Errorf("Sense: %v°C, want 21", got)
	}
}

func TestReadMPUTriplets(t *testing.T) {
	raw := []byte{0x12, 0x34, 0xFF, 0xFE, 0x80, 0x00}
	want := Triplet{X: 0x1234, Y: -2, Z: -32768}

	d, bus := newTestDev(t)
	bus.Set(MPUAddr, 0x43, raw...)
	g, err := d.ReadGyroscope()
	if err != nil || g != want {
		t.Errorf("ReadGyroscope = %+v, %v; want %+v", g, err, want)
	}
	checkOps(t, bus.Ops(), []i2ctest.IO{{Addr: 0x68, W: []byte{0x43}, R: raw}})

	bus.ClearOps()
	bus.Set(MPUAddr, 0x3B, raw...)
	a, err := d.ReadAccelerometer()
	if err != nil || a != want {
		t.Errorf("ReadAccelerometer = %+v, %v; want %+v", a, err, want)
	}
	checkOps(t, bus.Ops(), []i2ctest.IO{{Addr: 0x68, W: []byte{0x3B}, R: raw}})
}

func TestReadMagnetometer(t *testing.T) {
	raw := []byte{0x34, 0x12, 0xFE, 0xFF, 0x00, 0x80}
	d, bus := newTestDev(t)
	bus.Set(MagAddr, 0x03, raw...)
	m, err := d.ReadMagnetometer()
	if err != nil {
		t.Fatal(err)
	}
	if want := (Triplet{X: 0x1234, Y: -2, Z: -32768}); m != want {
		t.Errorf("ReadMagnetometer = %+v, want %+v", m, want)
	}
	checkOps(t, bus.Ops(), []i2ctest.IO{
		{Addr: 0x0C, W: []byte{0x03}, R: raw},
		{Addr: 0x0C, W: []byte{0x0A, 0x11}},
	})
}

func TestReadMagnetometerRearmsAfterFailure(t *testing.T) {
	d, bus := newTestDev(t)
	bus.Fail = func(addr uint16, w, r []byte) error {
		if addr == MagAddr && len(r) != 0 {
			return errors.New("nack")
		}
		return nil
	}
	if _, err := d.ReadMagnetometer(); !errors.Is(err, ErrBus) {
		t.Fatalf("err = %v, want ErrBus", err)
	}
	checkOps(t, bus.Writes(), []i2ctest.IO{{Addr: 0x0C, W: []byte{0x0A, 0x11}}})
}

func TestReadMagnetometerRearmFailure(t *testing.T) {
	d, bus := newTestDev(t)
	bus.Set(MagAddr, 0x03, 1, 0, 2, 0, 3, 0)
	bus.Fail = func(addr uint16, w, r []byte) error {
		if addr == MagAddr && len(w) == 2 {
			return errors.New("nack")
		}
		return nil
	}
	m, err := d.ReadMagnetometer()
	if err != nil {
		t.Fatalf("re-arm failure leaked into the result: %v", err)
	}
	if m != (Triplet{1, 2, 3}) {
		t.Errorf("ReadMagnetometer = %+v", m)
	}
	if n := len(bus.Writes()); n != 1 {
		t.Errorf("%d re-arm writes, want 1", n)
	}
}

func TestEveryMagnetometerReadRearmsOnce(t *testing.T) {
	d, bus := newTestDev(t)
	const reads = 5
	for i := 0; i < reads; i++ {
		if _, err := d.ReadMagnetometer(); err != nil {
			t.Fatal(err)
		}
	}
	n := 0
	for _, op := range bus.Writes() {
		if op.Addr == MagAddr && bytes.Equal(op.W, []byte{0x0A, 0x11}) {
			n++
		}
	}
	if n != reads {
		t.Errorf("%d re-arm writes for %d reads", n, reads)
	}
}

func TestReadFailure(t *testing.T) {
	d, bus := newTestDev(t)
	bus.Fail = func(uint16, []byte, []byte) error { return errors.New("timeout") }
	if _, err := d.ReadTemperature(); !errors.Is(err, ErrBus) {
		t.Errorf("ReadTemperature: %v", err)
	}
	if _, err := d.ReadAccelerometer(); !errors.Is(err, ErrBus) {
		t.Errorf("ReadAccelerometer: %v", err)
	}
	if err := d.SetGyroRange(2); !errors.Is(err, ErrBus) {
		t.Errorf("SetGyroRange: %v", err)
	}
}

func TestSampleRateStopsOnDividerFailure(t *testing.T) {
	d, bus := newTestDev(t)
	bus.Fail = func(addr uint16, w, r []byte) error {
		if w[0] == 0x19 {
			return errors.New("nack")
		}
		return nil
	}
	if err := d.SetSampleRate(100); !errors.Is(err, ErrBus) {
		t.Fatalf("err = %v", err)
	}
	if n := len(bus.Ops()); n != 1 {
		t.Errorf("%d transactions, want 1", n)
	}
}
