package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_i2c/internal/config"
	"github.com/relabs-tech/inertial_i2c/internal/imu"
)

const (
	displayW = 128
	displayH = 64

	// ssd1306.NewI2C always talks to this address.
	ssd1306DefaultAddr = 0x3C
)

// frameSink is the part of *ssd1306.Dev the display loop draws to.
type frameSink interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// addrBus redirects transactions for the ssd1306 default address to addr,
// for panels strapped to 0x3D.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b addrBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306DefaultAddr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// DisplayData holds the latest data for display
type DisplayData struct {
	mu      sync.RWMutex
	raw     imu.IMURaw
	haveRaw bool
}

// handleIMUMessage stores a sample received on the IMU topic.
func (d *DisplayData) handleIMUMessage(payload []byte) error {
	var raw imu.IMURaw
	if err := json.Unmarshal(payload, &raw); err != nil {
		return err
	}
	d.mu.Lock()
	d.raw = raw
	d.haveRaw = true
	d.mu.Unlock()
	return nil
}

func (d *DisplayData) snapshot() (imu.IMURaw, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.raw, d.haveRaw
}

// RunDisplay shows the latest IMU sample from MQTT on an SSD1306 OLED until
// ctx is done.
func RunDisplay(ctx context.Context, cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.WithField("addr", fmt.Sprintf("0x%02X", cfg.DisplayI2CAddr)).Info("display initialized")

	if err := drawLines(dev, splashLines()); err != nil {
		log.WithError(err).Warn("display: error showing splash")
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := data.handleIMUMessage(msg.Payload()); err != nil {
			log.WithError(err).Warn("display: imu unmarshal error")
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.WithField("topic", cfg.TopicIMU).Info("display: subscribed")

	return runDisplayLoop(ctx, dev, data, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond)
}

func runDisplayLoop(ctx context.Context, dev frameSink, data *DisplayData, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			raw, have := data.snapshot()
			if err := drawLines(dev, imuLines(raw, have)); err != nil {
				log.WithError(err).Warn("display: error updating display")
			}
		}
	}
}

// imuLines formats a sample into at most four lines of 18 characters.
func imuLines(raw imu.IMURaw, haveData bool) []string {
	if !haveData {
		return []string{"", "IMU", "Waiting..."}
	}
	mag := "M  --"
	if raw.MagValid {
		mag = fmt.Sprintf("M%5d%6d%6d", raw.Mx, raw.My, raw.Mz)
	}
	return []string{
		fmt.Sprintf("T %6.2fC", raw.TempCelsius()),
		fmt.Sprintf("A%5d%6d%6d", raw.Ax, raw.Ay, raw.Az),
		fmt.Sprintf("G%5d%6d%6d", raw.Gx, raw.Gy, raw.Gz),
		mag,
	}
}

func splashLines() []string {
	return []string{"", "Inertial I2C", "MPU-9250"}
}

// render draws one line of text every 13 pixels.
func render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev frameSink, lines []string) error {
	return dev.Draw(dev.Bounds(), render(lines), image.Point{})
}
