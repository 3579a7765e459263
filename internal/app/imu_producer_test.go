package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/relabs-tech/inertial_i2c/internal/imu"
	"github.com/relabs-tech/inertial_i2c/internal/orientation"
)

func newTestProducer(src *fakeSource, pub *fakePublisher) *Producer {
	return &Producer{
		Source:    src,
		Publisher: pub,
		TopicIMU:  "t/imu",
		TopicPose: "t/pose",
		Interval:  time.Millisecond,
	}
}

func TestProducerTick(t *testing.T) {
	src := &fakeSource{raw: imu.IMURaw{Source: "test", TempC100: 2512, Ay: 100, Az: 100, Mx: -5, MagValid: true}}
	pub := &fakePublisher{}
	if err := newTestProducer(src, pub).Tick(time.Now()); err != nil {
		t.Fatal(err)
	}
	msgs := pub.messages()
	if len(msgs) != 2 {
		t.Fatalf("%d messages, want 2", len(msgs))
	}
	for _, m := range msgs {
		if m.qos != 0 || !m.retained {
			t.Errorf("%s: qos %d retained %v", m.topic, m.qos, m.retained)
		}
	}

	if msgs[0].topic != "t/pose" {
		t.Fatalf("first topic %q", msgs[0].topic)
	}
	var pose orientation.Pose
	if err := json.Unmarshal(msgs[0].payload, &pose); err != nil {
		t.Fatal(err)
	}
	if math.Abs(pose.Roll-45) > 1e-9 {
		t.Errorf("roll %v", pose.Roll)
	}

	if msgs[1].topic != "t/imu" {
		t.Fatalf("second topic %q", msgs[1].topic)
	}
	var raw imu.IMURaw
	if err := json.Unmarshal(msgs[1].payload, &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Source != "test" || raw.TempC100 != 2512 || raw.Mx != -5 || !raw.MagValid {
		t.Errorf("published %+v", raw)
	}
}

func TestProducerTickReadError(t *testing.T) {
	src := &fakeSource{err: errFake}
	pub := &fakePublisher{}
	if err := newTestProducer(src, pub).Tick(time.Now()); !errors.Is(err, errFake) {
		t.Errorf("err = %v", err)
	}
	if n := len(pub.messages()); n != 0 {
		t.Errorf("%d messages published after read error", n)
	}
}

func TestProducerTickPublishError(t *testing.T) {
	pub := &fakePublisher{err: errFake}
	if err := newTestProducer(&fakeSource{}, pub).Tick(time.Now()); !errors.Is(err, errFake) {
		t.Errorf("err = %v", err)
	}
	if n := len(pub.messages()); n != 1 {
		t.Errorf("%d publish attempts, want 1", n)
	}
}

func TestProducerRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestProducer(src, pub).Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for src.reads() < 3 {
		select {
		case <-deadline:
			t.Fatal("producer did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMagNorm(t *testing.T) {
	if got := magNorm(3, 4, 0); got != 5 {
		t.Errorf("magNorm = %v", got)
	}
}
