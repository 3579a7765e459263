package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/inertial_i2c/internal/config"
	"github.com/relabs-tech/inertial_i2c/internal/imu"
	"github.com/relabs-tech/inertial_i2c/internal/orientation"
)

func formatPose(payload []byte) (string, error) {
	var p orientation.Pose
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("pose unmarshal error: %w", err)
	}
	return fmt.Sprintf("[POSE] ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f", p.Roll, p.Pitch, p.Yaw), nil
}

func formatIMU(payload []byte) (string, error) {
	var s imu.IMURaw
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", fmt.Errorf("imu unmarshal error: %w", err)
	}
	mag := fmt.Sprintf("mx=%6d my=%6d mz=%6d", s.Mx, s.My, s.Mz)
	if !s.MagValid {
		mag = "mag=n/a"
	}
	return fmt.Sprintf("[IMU ] t=%6.2f°C  ax=%6d ay=%6d az=%6d  gx=%6d gy=%6d gz=%6d  %s",
		s.TempCelsius(), s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz, mag), nil
}

// lineWriter serializes lines from concurrent MQTT callbacks.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lineWriter) handler(format func([]byte) (string, error)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		line, err := format(msg.Payload())
		if err != nil {
			log.WithField("topic", msg.Topic()).WithError(err).Warn("console: skipping message")
			return
		}
		w.mu.Lock()
		fmt.Fprintln(w.out, line)
		w.mu.Unlock()
	}
}

// RunConsoleMQTT prints every pose and IMU sample to out until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	w := &lineWriter{out: out}
	for _, sub := range []struct {
		topic  string
		format func([]byte) (string, error)
	}{
		{cfg.TopicPose, formatPose},
		{cfg.TopicIMU, formatIMU},
	} {
		token := client.Subscribe(sub.topic, 0, w.handler(sub.format))
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.WithField("topic", sub.topic).Info("console: subscribed")
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}
