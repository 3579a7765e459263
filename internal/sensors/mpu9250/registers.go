// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu9250

import "fmt"

// I²C addresses and identities of the two dies in the package.
const (
	MPUAddr    uint16 = 0x68 // AD0 low; 0x69 with AD0 tied high
	MPUAltAddr uint16 = 0x69
	MagAddr    uint16 = 0x0C

	MPUWhoAmI byte = 0x71
	MagWhoAmI byte = 0x48
)

// MPU-6500 die registers.
const (
	mpuRegSmplrtDiv   byte = 0x19
	mpuRegConfig      byte = 0x1A
	mpuRegGyroConfig  byte = 0x1B
	mpuRegAccelConfig byte = 0x1C
	mpuRegFIFOEn      byte = 0x23
	mpuRegIntPinCfg   byte = 0x37
	mpuRegIntEnable   byte = 0x38
	mpuRegAccelXoutH  byte = 0x3B
	mpuRegTempOutH    byte = 0x41
	mpuRegGyroXoutH   byte = 0x43
	mpuRegUserCtrl    byte = 0x6A
	mpuRegPwrMgmt1    byte = 0x6B
	mpuRegPwrMgmt2    byte = 0x6C
	mpuRegWhoAmI      byte = 0x75
)

// AK8963 registers, reachable directly once bypass is enabled.
const (
	akRegWIA   byte = 0x00
	akRegHXL   byte = 0x03
	akRegCNTL1 byte = 0x0A
)

// Register values written by the init sequence.
const (
	pwrHReset     byte = 0x80
	pwrWake       byte = 0x00
	pwrClkPLLGyro byte = 0x01 // CLKSEL=1, PLL referenced to gyro X
	pwr2AllOn     byte = 0x00
	intPinCfg     byte = 0x82 // ACTL | BYPASS_EN
	akSingleShot  byte = 0x11 // BIT=16-bit, MODE=single measurement
)

// Chip selects one of the two dies.
type Chip int

const (
	ChipMPU Chip = iota
	ChipMag
)

func (c Chip) String() string {
	switch c {
	case ChipMPU:
		return "mpu9250"
	case ChipMag:
		return "ak8963"
	default:
		return fmt.Sprintf("Chip(%d)", int(c))
	}
}

// ParseChip maps the names used by the debug tooling to a Chip. An empty
// name selects the MPU die.
func ParseChip(name string) (Chip, error) {
	switch name {
	case "", "mpu9250", "mpu6500":
		return ChipMPU, nil
	case "ak8963", "mag":
		return ChipMag, nil
	}
	return 0, fmt.Errorf("mpu9250: unknown chip %q", name)
}

// BitField describes a field within a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is the metadata shown by the register debug tool.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     byte       `json:"default"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
	// FuseROM marks AK8963 registers that only hold valid data while CNTL1
	// is in fuse ROM access mode.
	FuseROM bool `json:"fuse_rom,omitempty"`
}

// Readable reports whether the register returns meaningful data in normal
// operation. Write-only and fuse ROM registers are not.
func (r RegisterInfo) Readable() bool { return r.Access != "W" && !r.FuseROM }

// Registers returns the register table of the given chip, in address order.
func Registers(c Chip) []RegisterInfo {
	if c == ChipMag {
		return ak8963Registers
	}
	return mpuRegisters
}

var mpuRegisters = []RegisterInfo{
	{Address: mpuRegSmplrtDiv, Name: "SMPLRT_DIV", Description: "Sample rate divider", Access: "RW",
		BitFields: []BitField{
			{Bits: "7:0", Name: "SMPLRT_DIV", Description: "Rate = 1kHz / (1 + SMPLRT_DIV) when DLPF active", Values: "0-255"},
		}},
	{Address: mpuRegConfig, Name: "CONFIG", Description: "DLPF configuration", Access: "RW",
		BitFields: []BitField{
			{Bits: "6", Name: "FIFO_MODE", Description: "FIFO full behaviour", Values: "0=Overwrite, 1=Block"},
			{Bits: "5:3", Name: "EXT_SYNC_SET", Description: "FSYNC sampling", Values: "0=Disabled"},
			{Bits: "2:0", Name: "DLPF_CFG", Description: "Gyro/temp low pass filter", Values: "1=184Hz, 2=92Hz, 3=41Hz, 4=20Hz, 5=10Hz, 6=5Hz"},
		}},
	{Address: mpuRegGyroConfig, Name: "GYRO_CONFIG", Description: "Gyroscope configuration", Access: "RW",
		BitFields: []BitField{
			{Bits: "4:3", Name: "GYRO_FS_SEL", Description: "Full scale", Values: "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"},
			{Bits: "1:0", Name: "Fchoice_b", Description: "DLPF bypass", Values: "0=DLPF enabled"},
		}},
	{Address: mpuRegAccelConfig, Name: "ACCEL_CONFIG", Description: "Accelerometer configuration", Access: "RW",
		BitFields: []BitField{
			{Bits: "4:3", Name: "ACCEL_FS_SEL", Description: "Full scale", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
		}},
	{Address: mpuRegFIFOEn, Name: "FIFO_EN", Description: "FIFO enable per source", Access: "RW"},
	{Address: mpuRegIntPinCfg, Name: "INT_PIN_CFG", Description: "INT pin / bypass", Access: "RW",
		BitFields: []BitField{
			{Bits: "7", Name: "ACTL", Description: "INT active level", Values: "0=High, 1=Low"},
			{Bits: "5", Name: "LATCH_INT_EN", Description: "Latch INT", Values: "0=50us pulse, 1=Latched"},
			{Bits: "1", Name: "BYPASS_EN", Description: "Aux I²C bypass", Values: "1=AK8963 on main bus"},
		}},
	{Address: mpuRegIntEnable, Name: "INT_ENABLE", Description: "Interrupt enable", Access: "RW",
		BitFields: []BitField{
			{Bits: "6", Name: "WOM_EN", Description: "Wake on motion"},
			{Bits: "4", Name: "FIFO_OFLOW_EN", Description: "FIFO overflow"},
			{Bits: "0", Name: "RAW_RDY_EN", Description: "Raw data ready"},
		}},
	{Address: 0x3A, Name: "INT_STATUS", Description: "Interrupt status", Access: "R"},
	{Address: mpuRegAccelXoutH, Name: "ACCEL_XOUT_H", Description: "Accel X high byte", Access: "R"},
	{Address: 0x3C, Name: "ACCEL_XOUT_L", Description: "Accel X low byte", Access: "R"},
	{Address: 0x3D, Name: "ACCEL_YOUT_H", Description: "Accel Y high byte", Access: "R"},
	{Address: 0x3E, Name: "ACCEL_YOUT_L", Description: "Accel Y low byte", Access: "R"},
	{Address: 0x3F, Name: "ACCEL_ZOUT_H", Description: "Accel Z high byte", Access: "R"},
	{Address: 0x40, Name: "ACCEL_ZOUT_L", Description: "Accel Z low byte", Access: "R"},
	{Address: mpuRegTempOutH, Name: "TEMP_OUT_H", Description: "Temperature high byte", Access: "R"},
	{Address: 0x42, Name: "TEMP_OUT_L", Description: "Temperature low byte", Access: "R"},
	{Address: mpuRegGyroXoutH, Name: "GYRO_XOUT_H", Description: "Gyro X high byte", Access: "R"},
	{Address: 0x44, Name: "GYRO_XOUT_L", Description: "Gyro X low byte", Access: "R"},
	{Address: 0x45, Name: "GYRO_YOUT_H", Description: "Gyro Y high byte", Access: "R"},
	{Address: 0x46, Name: "GYRO_YOUT_L", Description: "Gyro Y low byte", Access: "R"},
	{Address: 0x47, Name: "GYRO_ZOUT_H", Description: "Gyro Z high byte", Access: "R"},
	{Address: 0x48, Name: "GYRO_ZOUT_L", Description: "Gyro Z low byte", Access: "R"},
	{Address: mpuRegUserCtrl, Name: "USER_CTRL", Description: "User control", Access: "RW",
		BitFields: []BitField{
			{Bits: "6", Name: "FIFO_EN", Description: "FIFO enable"},
			{Bits: "5", Name: "I2C_MST_EN", Description: "Aux I²C master", Values: "0=Off (required for bypass)"},
		}},
	{Address: mpuRegPwrMgmt1, Name: "PWR_MGMT_1", Description: "Power management 1", Access: "RW", Default: 0x01,
		BitFields: []BitField{
			{Bits: "7", Name: "H_RESET", Description: "Device reset", Values: "1=Reset"},
			{Bits: "6", Name: "SLEEP", Description: "Sleep", Values: "1=Sleep"},
			{Bits: "2:0", Name: "CLKSEL", Description: "Clock source", Values: "0=20MHz internal, 1=PLL"},
		}},
	{Address: mpuRegPwrMgmt2, Name: "PWR_MGMT_2", Description: "Power management 2", Access: "RW",
		BitFields: []BitField{
			{Bits: "5:3", Name: "DISABLE_XA..ZA", Description: "Accel axes off"},
			{Bits: "2:0", Name: "DISABLE_XG..ZG", Description: "Gyro axes off"},
		}},
	{Address: mpuRegWhoAmI, Name: "WHO_AM_I", Description: "Device ID", Access: "R", Default: MPUWhoAmI},
}

var ak8963Registers = []RegisterInfo{
	{Address: akRegWIA, Name: "WIA", Description: "Device ID", Access: "R", Default: MagWhoAmI},
	{Address: 0x01, Name: "INFO", Description: "Device information", Access: "R"},
	{Address: 0x02, Name: "ST1", Description: "Status 1", Access: "R",
		BitFields: []BitField{
			{Bits: "1", Name: "DOR", Description: "Data overrun"},
			{Bits: "0", Name: "DRDY", Description: "Data ready"},
		}},
	{Address: akRegHXL, Name: "HXL", Description: "X low byte", Access: "R"},
	{Address: 0x04, Name: "HXH", Description: "X high byte", Access: "R"},
	{Address: 0x05, Name: "HYL", Description: "Y low byte", Access: "R"},
	{Address: 0x06, Name: "HYH", Description: "Y high byte", Access: "R"},
	{Address: 0x07, Name: "HZL", Description: "Z low byte", Access: "R"},
	{Address: 0x08, Name: "HZH", Description: "Z high byte", Access: "R"},
	{Address: 0x09, Name: "ST2", Description: "Status 2", Access: "R",
		BitFields: []BitField{
			{Bits: "4", Name: "BITM", Description: "Output width", Values: "0=14-bit, 1=16-bit"},
			{Bits: "3", Name: "HOFL", Description: "Sensor overflow"},
		}},
	{Address: akRegCNTL1, Name: "CNTL1", Description: "Mode and resolution", Access: "RW",
		BitFields: []BitField{
			{Bits: "4", Name: "BIT", Description: "Output width", Values: "0=14-bit, 1=16-bit"},
			{Bits: "3:0", Name: "MODE", Description: "Mode", Values: "0=Power down, 1=Single, 2=Cont 8Hz, 6=Cont 100Hz"},
		}},
	{Address: 0x0B, Name: "CNTL2", Description: "Soft reset", Access: "RW"},
	{Address: 0x0C, Name: "ASTC", Description: "Self-test control", Access: "RW"},
	{Address: 0x10, Name: "ASAX", Description: "X sensitivity adjustment (fuse ROM mode only)", Access: "R", FuseROM: true},
	{Address: 0x11, Name: "ASAY", Description: "Y sensitivity adjustment (fuse ROM mode only)", Access: "R", FuseROM: true},
	{Address: 0x12, Name: "ASAZ", Description: "Z sensitivity adjustment (fuse ROM mode only)", Access: "R", FuseROM: true},
}
