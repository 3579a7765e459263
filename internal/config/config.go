package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override file values, e.g.
// INERTIAL_IMU_GYRO_RANGE=1.
const EnvPrefix = "INERTIAL"

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "./inertial_config.txt"

// Config holds all application configuration values.
type Config struct {
	// IMU Hardware
	IMUI2CBus  string // periph bus name, "" = first available
	IMUI2CAddr uint16

	// IMU Sensor Ranges
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte

	// IMU Sample Rate Configuration
	IMUSampleRateHz uint16 // output data rate, 4-1000
	IMUDLPFHz       uint16 // low pass bandwidth; 0 keeps rate/2

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDDisplay  string
	MQTTClientIDConsole  string

	// Topics
	TopicIMU  string
	TopicPose string

	// Timing
	IMUSampleInterval int // milliseconds

	// Register debug tool
	RegisterDebugAddr          string
	RegisterDebugAllowedRanges []RegisterRange // MPU registers writable from the tool

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	LogLevel logrus.Level
}

var defaults = map[string]string{
	"IMU_I2C_BUS":                   "",
	"IMU_I2C_ADDR":                  "0x68",
	"IMU_GYRO_RANGE":                "3",
	"IMU_ACCEL_RANGE":               "0",
	"IMU_SAMPLE_RATE_HZ":            "125",
	"IMU_DLPF_HZ":                   "0",
	"IMU_SAMPLE_INTERVAL":           "100",
	"MQTT_BROKER":                   "tcp://localhost:1883",
	"MQTT_CLIENT_ID_PRODUCER":       "inertial-imu-producer",
	"MQTT_CLIENT_ID_DISPLAY":        "inertial-display",
	"MQTT_CLIENT_ID_CONSOLE":        "inertial-console",
	"TOPIC_IMU":                     "inertial/imu",
	"TOPIC_POSE":                    "inertial/pose",
	"REGISTER_DEBUG_ADDR":           ":8081",
	"REGISTER_DEBUG_ALLOWED_RANGES": "",
	"DISPLAY_I2C_BUS":               "",
	"DISPLAY_I2C_ADDR":              "0x3C",
	"DISPLAY_UPDATE_INTERVAL":       "250",
	"LOG_LEVEL":                     "info",
}

// Package-level unexported variables for the singleton:
//   - globalConfig: only reachable through Get.
//   - configOnce: InitGlobal loads at most once.
//   - configMu: write lock while loading, read lock in Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads a KEY=VALUE configuration file, applies INERTIAL_* environment
// overrides and returns the validated Config. An empty path uses defaults and
// environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, key := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(key)]; !ok {
			return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(key))
		}
	}

	cfg := &Config{
		IMUI2CBus:            v.GetString("IMU_I2C_BUS"),
		MQTTBroker:           v.GetString("MQTT_BROKER"),
		MQTTClientIDProducer: v.GetString("MQTT_CLIENT_ID_PRODUCER"),
		MQTTClientIDDisplay:  v.GetString("MQTT_CLIENT_ID_DISPLAY"),
		MQTTClientIDConsole:  v.GetString("MQTT_CLIENT_ID_CONSOLE"),
		TopicIMU:             v.GetString("TOPIC_IMU"),
		TopicPose:            v.GetString("TOPIC_POSE"),
		RegisterDebugAddr:    v.GetString("REGISTER_DEBUG_ADDR"),
		DisplayI2CBus:        v.GetString("DISPLAY_I2C_BUS"),
	}
	if err := cfg.parse(v); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse converts the numeric and structured values.
func (c *Config) parse(v *viper.Viper) error {
	var err error
	if c.IMUI2CAddr, err = addrValue(v, "IMU_I2C_ADDR"); err != nil {
		return err
	}
	if c.DisplayI2CAddr, err = addrValue(v, "DISPLAY_I2C_ADDR"); err != nil {
		return err
	}

	gyro, err := intValue(v, "IMU_GYRO_RANGE", 0, 3)
	if err != nil {
		return fmt.Errorf("%w (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s)", err)
	}
	c.IMUGyroRange = byte(gyro)
	accel, err := intValue(v, "IMU_ACCEL_RANGE", 0, 3)
	if err != nil {
		return fmt.Errorf("%w (0=±2g, 1=±4g, 2=±8g, 3=±16g)", err)
	}
	c.IMUAccelRange = byte(accel)

	rate, err := intValue(v, "IMU_SAMPLE_RATE_HZ", 4, 1000)
	if err != nil {
		return err
	}
	c.IMUSampleRateHz = uint16(rate)
	dlpf, err := intValue(v, "IMU_DLPF_HZ", 0, 65535)
	if err != nil {
		return err
	}
	c.IMUDLPFHz = uint16(dlpf)

	if c.IMUSampleInterval, err = intValue(v, "IMU_SAMPLE_INTERVAL", 1, 3600_000); err != nil {
		return err
	}
	if c.DisplayUpdateInterval, err = intValue(v, "DISPLAY_UPDATE_INTERVAL", 1, 3600_000); err != nil {
		return err
	}

	if c.RegisterDebugAllowedRanges, err = ParseRegisterRanges(v.GetString("REGISTER_DEBUG_ALLOWED_RANGES")); err != nil {
		return fmt.Errorf("invalid REGISTER_DEBUG_ALLOWED_RANGES: %w", err)
	}

	if c.LogLevel, err = logrus.ParseLevel(v.GetString("LOG_LEVEL")); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

func intValue(v *viper.Viper, key string, lo, hi int) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func addrValue(v *viper.Viper, key string) (uint16, error) {
	raw := strings.TrimSpace(v.GetString(key))
	addr, err := strconv.ParseUint(raw, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicIMU == "" {
		return fmt.Errorf("TOPIC_IMU is required")
	}
	if c.TopicPose == "" {
		return fmt.Errorf("TOPIC_POSE is required")
	}
	if c.IMUI2CAddr != 0x68 && c.IMUI2CAddr != 0x69 {
		return fmt.Errorf("IMU_I2C_ADDR must be 0x68 or 0x69, got 0x%02X", c.IMUI2CAddr)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
