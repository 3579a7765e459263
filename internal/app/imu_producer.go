package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/inertial_i2c/internal/config"
	"github.com/relabs-tech/inertial_i2c/internal/imu"
	"github.com/relabs-tech/inertial_i2c/internal/orientation"
	"github.com/relabs-tech/inertial_i2c/internal/sensors"
	log "github.com/sirupsen/logrus"
)

// magNorm computes the magnitude of the magnetic field vector.
func magNorm(mx, my, mz int16) float64 {
	x := float64(mx)
	y := float64(my)
	z := float64(mz)
	return math.Sqrt(x*x + y*y + z*z)
}

// Producer samples an IMU on a fixed interval and publishes raw samples and
// poses.
type Producer struct {
	Source    imu.IMURawSource
	Publisher Publisher
	TopicIMU  string
	TopicPose string
	Interval  time.Duration
}

// NewProducer returns a producer configured from cfg.
func NewProducer(src imu.IMURawSource, pub Publisher, cfg *config.Config) *Producer {
	return &Producer{
		Source:    src,
		Publisher: pub,
		TopicIMU:  cfg.TopicIMU,
		TopicPose: cfg.TopicPose,
		Interval:  time.Duration(cfg.IMUSampleInterval) * time.Millisecond,
	}
}

// Run ticks until ctx is done. A failed tick is logged and the loop goes on.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("producer stopping")
			return nil
		case t := <-ticker.C:
			if err := p.Tick(t); err != nil {
				log.WithError(err).Warn("tick failed")
			}
		}
	}
}

// Tick reads one sample and publishes it together with the derived pose.
func (p *Producer) Tick(t time.Time) error {
	raw, err := p.Source.ReadRaw()
	if err != nil {
		return fmt.Errorf("read imu: %w", err)
	}
	pose := orientation.ComputePose(raw)

	payload, err := json.Marshal(pose)
	if err != nil {
		return fmt.Errorf("json marshal error (pose): %w", err)
	}
	if err := publish(p.Publisher, p.TopicPose, payload); err != nil {
		return err
	}

	if payload, err = json.Marshal(raw); err != nil {
		return fmt.Errorf("json marshal error (imu): %w", err)
	}
	if err := publish(p.Publisher, p.TopicIMU, payload); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"roll":  fmt.Sprintf("%.2f", pose.Roll),
		"pitch": fmt.Sprintf("%.2f", pose.Pitch),
		"yaw":   fmt.Sprintf("%.2f", pose.Yaw),
		"temp":  fmt.Sprintf("%.2f", raw.TempCelsius()),
		"accel": fmt.Sprintf("%d,%d,%d", raw.Ax, raw.Ay, raw.Az),
		"gyro":  fmt.Sprintf("%d,%d,%d", raw.Gx, raw.Gy, raw.Gz),
		"mag":   fmt.Sprintf("%d,%d,%d", raw.Mx, raw.My, raw.Mz),
		"|B|":   fmt.Sprintf("%.1f", magNorm(raw.Mx, raw.My, raw.Mz)),
	}).Debugf("%s tick", t.Format(time.RFC3339))
	return nil
}

// RunInertialProducer opens the IMU, connects to MQTT and publishes until ctx
// is done.
func RunInertialProducer(ctx context.Context, cfg *config.Config) error {
	log.Info("starting inertial IMU producer (IMU → MQTT)")

	mgr, err := sensors.OpenIMUManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize IMU: %w", err)
	}
	defer mgr.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	log.WithField("interval", time.Duration(cfg.IMUSampleInterval)*time.Millisecond).Info("starting publish loop")
	return NewProducer(mgr, client, cfg).Run(ctx)
}
