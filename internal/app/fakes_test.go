package app

import (
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/inertial_i2c/internal/imu"
)

// fakeToken is an already completed mqtt.Token.
type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, _ := payload.([]byte)
	p.msgs = append(p.msgs, message{topic, qos, retained, b})
	return fakeToken{err: p.err}
}

func (p *fakePublisher) messages() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.msgs...)
}

type fakeSource struct {
	mu   sync.Mutex
	raw  imu.IMURaw
	err  error
	read int
}

func (s *fakeSource) ReadRaw() (imu.IMURaw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.read++
	return s.raw, s.err
}

func (s *fakeSource) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read
}

var errFake = errors.New("fake failure")
