// Package mpu9250test simulates an MPU-9250 on an I²C bus for unit tests.
//
// Each simulated chip is a flat 256 byte register file. A transaction
// {reg, data...} writes data starting at reg; a transaction {reg} followed by
// a read returns consecutive registers starting at reg.
package mpu9250test

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// ErrNack is returned for transactions to an address with no chip.
var ErrNack = errors.New("mpu9250test: address not acknowledged")

// Bus is a simulated bus holding an MPU-6500 die and an AK8963.
type Bus struct {
	mu   sync.Mutex
	regs  map[uint16]*[256]byte
	ops   []i2ctest.IO
	reads []bool // ops[i] had a read phase, whether or not it succeeded

	// Fail, when set, is consulted before each transaction is applied. A
	// non-nil return aborts the transaction with that error. The transaction
	// is recorded either way.
	Fail func(addr uint16, w, r []byte) error
}

// New returns a bus with an MPU at mpuAddr and an AK8963 at 0x0C, both
// answering with their factory identity.
func New(mpuAddr uint16) *Bus {
	b := &Bus{regs: map[uint16]*[256]byte{}}
	b.AddChip(mpuAddr)
	b.AddChip(0x0C)
	b.Set(mpuAddr, 0x75, 0x71)
	b.Set(0x0C, 0x00, 0x48)
	return b
}

// AddChip attaches an empty register file at addr.
func (b *Bus) AddChip(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.regs[addr]; !ok {
		b.regs[addr] = &[256]byte{}
	}
}

// RemoveChip detaches the chip at addr; later transactions to it fail.
func (b *Bus) RemoveChip(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.regs, addr)
}

// Set presets consecutive registers starting at reg.
func (b *Bus) Set(addr uint16, reg byte, data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.regs[addr]
	for i, v := range data {
		f[reg+byte(i)] = v
	}
}

// Reg returns the current value of a register.
func (b *Bus) Reg(addr uint16, reg byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[addr][reg]
}

// Ops returns a copy of every transaction seen so far.
func (b *Bus) Ops() []i2ctest.IO {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]i2ctest.IO(nil), b.ops...)
}

// Writes returns the transactions that carried no read phase. Failed reads
// are not writes.
func (b *Bus) Writes() []i2ctest.IO {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []i2ctest.IO
	for i, op := range b.ops {
		if !b.reads[i] {
			out = append(out, op)
		}
	}
	return out
}

// ClearOps forgets the recorded transactions.
func (b *Bus) ClearOps() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
	b.reads = nil
}

func (b *Bus) String() string { return "mpu9250test" }

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error { return nil }

// Tx implements i2c.Bus.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := len(b.ops)
	b.ops = append(b.ops, i2ctest.IO{Addr: addr, W: append([]byte(nil), w...)})
	b.reads = append(b.reads, len(r) != 0)

	if b.Fail != nil {
		if err := b.Fail(addr, w, r); err != nil {
			return err
		}
	}
	f, ok := b.regs[addr]
	if !ok {
		return fmt.Errorf("%w: 0x%02X", ErrNack, addr)
	}
	if len(w) == 0 {
		return errors.New("mpu9250test: transaction without register pointer")
	}
	ptr := w[0]
	for i, v := range w[1:] {
		f[ptr+byte(i)] = v
	}
	for i := range r {
		r[i] = f[ptr+byte(i)]
	}
	if len(r) != 0 {
		b.ops[idx].R = append([]byte(nil), r...)
	}
	return nil
}
