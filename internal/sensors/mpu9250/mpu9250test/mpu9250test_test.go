package mpu9250test

import (
	"bytes"
	"errors"
	"testing"
)

func TestTxRegisterFile(t *testing.T) {
	b := New(0x68)
	if err := b.Tx(0x68, []byte{0x1B, 0x18, 0x08}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 2)
	if err := b.Tx(0x68, []byte{0x1B}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0x18, 0x08}) {
		t.Errorf("read %v", r)
	}
	if err := b.Tx(0x50, []byte{0x00}, nil); !errors.Is(err, ErrNack) {
		t.Errorf("absent chip: %v", err)
	}
}

func TestFailedReadIsNotAWrite(t *testing.T) {
	b := New(0x68)
	b.Fail = func(uint16, []byte, []byte) error { return errors.New("nack") }
	if err := b.Tx(0x0C, []byte{0x03}, make([]byte, 6)); err == nil {
		t.Fatal("Fail ignored")
	}
	b.RemoveChip(0x0C)
	b.Fail = nil
	if err := b.Tx(0x0C, []byte{0x03}, make([]byte, 6)); err == nil {
		t.Fatal("read from removed chip succeeded")
	}
	if n := len(b.Ops()); n != 2 {
		t.Errorf("%d transactions recorded, want 2", n)
	}
	if w := b.Writes(); len(w) != 0 {
		t.Errorf("failed reads counted as writes: %v", w)
	}

	if err := b.Tx(0x68, []byte{0x6B, 0x00}, nil); err != nil {
		t.Fatal(err)
	}
	if w := b.Writes(); len(w) != 1 || !bytes.Equal(w[0].W, []byte{0x6B, 0x00}) {
		t.Errorf("Writes() = %v", w)
	}
	b.ClearOps()
	if len(b.Ops()) != 0 || len(b.Writes()) != 0 {
		t.Error("ClearOps kept transactions")
	}
}
