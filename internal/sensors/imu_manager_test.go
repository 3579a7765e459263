package sensors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/inertial_i2c/internal/sensors/mpu9250"
	"github.com/relabs-tech/inertial_i2c/internal/sensors/mpu9250/mpu9250test"
)

func newTestManager(t *testing.T) (*IMUManager, *mpu9250test.Bus) {
	t.Helper()
	bus := mpu9250test.New(mpu9250.MPUAddr)
	dev, err := mpu9250.NewI2C(bus, &mpu9250.Opts{Sleep: func(time.Duration) {}})
	if err != nil {
		t.Fatalf("NewI2C: %v", err)
	}
	m := NewIMUManager(dev, "test")
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	bus.ClearOps()
	return m, bus
}

func TestConfigure(t *testing.T) {
	m, bus := newTestManager(t)
	if err := m.Configure(Settings{GyroRange: 1, AccelRange: 2, SampleRateHz: 200, DLPFHz: 20}); err != nil {
		t.Fatal(err)
	}
	want := map[byte]byte{
		0x1B: 1 << 3,
		0x1C: 2 << 3,
		0x19: 4,
		0x1A: 4, // 20Hz filter overrides the rate's 92Hz
	}
	for reg, v := range want {
		if got := bus.Reg(mpu9250.MPUAddr, reg); got != v {
			t.Errorf("reg 0x%02X = 0x%02X, want 0x%02X", reg, got, v)
		}
	}
}

func TestConfigureKeepsRateFilter(t *testing.T) {
	m, bus := newTestManager(t)
	if err := m.Configure(Settings{GyroRange: 3, SampleRateHz: 100}); err != nil {
		t.Fatal(err)
	}
	if got := bus.Reg(mpu9250.MPUAddr, 0x1A); got != 3 {
		t.Errorf("CONFIG = %d, want 3", got)
	}
	if n := len(bus.Writes()); n != 4 {
		t.Errorf("%d writes, want 4", n)
	}
}

func TestReadRaw(t *testing.T) {
	m, bus := newTestManager(t)
	bus.Set(mpu9250.MPUAddr, 0x3B,
		0x00, 0x10, 0xFF, 0xF0, 0x40, 0x00, // accel
		0x00, 0x00, // temperature
		0x00, 0x01, 0x00, 0x02, 0xFF, 0xFF, // gyro
	)
	bus.Set(mpu9250.MagAddr, 0x03, 0x0A, 0x00, 0x14, 0x00, 0xE2, 0xFF)

	raw, err := m.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if raw.Source != "test" || !raw.Time.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("source %q time %v", raw.Source, raw.Time)
	}
	if raw.TempC100 != 2100 {
		t.Errorf("TempC100 = %d", raw.TempC100)
	}
	if raw.Ax != 16 || raw.Ay != -16 || raw.Az != 16384 {
		t.Errorf("accel %d %d %d", raw.Ax, raw.Ay, raw.Az)
	}
	if raw.Gx != 1 || raw.Gy != 2 || raw.Gz != -1 {
		t.Errorf("gyro %d %d %d", raw.Gx, raw.Gy, raw.Gz)
	}
	if !raw.MagValid || raw.Mx != 10 || raw.My != 20 || raw.Mz != -30 {
		t.Errorf("mag %d %d %d valid=%v", raw.Mx, raw.My, raw.Mz, raw.MagValid)
	}
}

func TestReadRawMagnetometerFailure(t *testing.T) {
	m, bus := newTestManager(t)
	bus.RemoveChip(mpu9250.MagAddr)
	raw, err := m.ReadRaw()
	if err != nil {
		t.Fatalf("magnetometer failure should not fail the sample: %v", err)
	}
	if raw.MagValid {
		t.Error("MagValid set without magnetometer")
	}
}

func TestReadRawFailure(t *testing.T) {
	m, bus := newTestManager(t)
	bus.Fail = func(addr uint16, w, r []byte) error {
		if addr == mpu9250.MPUAddr && w[0] == 0x43 {
			return errors.New("nack")
		}
		return nil
	}
	if _, err := m.ReadRaw(); !errors.Is(err, mpu9250.ErrBus) {
		t.Errorf("err = %v, want ErrBus", err)
	}
}

func TestRegisterAccess(t *testing.T) {
	m, bus := newTestManager(t)
	if err := m.WriteRegister("mpu9250", 0x1B, 0x08); err != nil {
		t.Fatal(err)
	}
	if v, err := m.ReadRegister("mpu9250", 0x1B); err != nil || v != 0x08 {
		t.Errorf("ReadRegister = 0x%02X, %v", v, err)
	}
	if v, err := m.ReadRegister("ak8963", 0x00); err != nil || v != 0x48 {
		t.Errorf("ak8963 WIA = 0x%02X, %v", v, err)
	}
	if err := m.WriteRegister("ak8963", 0x0A, 0x00); err != nil {
		t.Fatal(err)
	}
	if got := bus.Reg(mpu9250.MagAddr, 0x0A); got != 0 {
		t.Errorf("CNTL1 = 0x%02X", got)
	}
	if _, err := m.ReadRegister("bmp280", 0); err == nil {
		t.Error("unknown device accepted")
	}
}

func TestReadAllRegisters(t *testing.T) {
	m, _ := newTestManager(t)
	for _, device := range []string{"mpu9250", "ak8963"} {
		regs, err := m.ReadAllRegisters(device)
		if err != nil {
			t.Fatal(err)
		}
		info, err := m.RegisterMap(device)
		if err != nil {
			t.Fatal(err)
		}
		n := 0
		for _, r := range info {
			if r.Readable() {
				n++
				if _, ok := regs[r.Address]; !ok {
					t.Errorf("%s: 0x%02X missing", device, r.Address)
				}
			}
		}
		if len(regs) != n {
			t.Errorf("%s: %d registers, want %d", device, len(regs), n)
		}
	}
	regs, _ := m.ReadAllRegisters("mpu9250")
	if regs[0x75] != 0x71 {
		t.Errorf("WHO_AM_I = 0x%02X", regs[0x75])
	}
	regs, _ = m.ReadAllRegisters("ak8963")
	for _, asa := range []byte{0x10, 0x11, 0x12} {
		if v, ok := regs[asa]; ok {
			t.Errorf("fuse ROM register 0x%02X exported as 0x%02X", asa, v)
		}
	}
	if regs[0x00] != 0x48 {
		t.Errorf("WIA = 0x%02X", regs[0x00])
	}
}

func TestReinitializeReappliesSettings(t *testing.T) {
	m, bus := newTestManager(t)
	if err := m.Configure(Settings{GyroRange: 0, AccelRange: 3, SampleRateHz: 50}); err != nil {
		t.Fatal(err)
	}
	if err := m.Reinitialize(); err != nil {
		t.Fatal(err)
	}
	if got := bus.Reg(mpu9250.MPUAddr, 0x1C); got != 3<<3 {
		t.Errorf("ACCEL_CONFIG = 0x%02X after reinit", got)
	}
	if got := bus.Reg(mpu9250.MPUAddr, 0x19); got != 19 {
		t.Errorf("SMPLRT_DIV = %d after reinit", got)
	}
}

func TestReinitializeFailure(t *testing.T) {
	m, bus := newTestManager(t)
	bus.Set(mpu9250.MPUAddr, 0x75, 0x00)
	if err := m.Reinitialize(); !errors.Is(err, mpu9250.ErrIdentity) {
		t.Fatalf("err = %v, want ErrIdentity", err)
	}
	if _, err := m.ReadRaw(); !errors.Is(err, mpu9250.ErrNotInitialized) {
		t.Errorf("ReadRaw after failed init: %v", err)
	}
	// Raw register access still works for diagnosis.
	if _, err := m.ReadRegister("mpu9250", 0x75); err != nil {
		t.Error(err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m, _ := newTestManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := m.ReadRaw(); err != nil {
					t.Error(err)
					return
				}
				if _, err := m.ReadRegister("mpu9250", 0x75); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
