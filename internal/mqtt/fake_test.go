package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/cover2mqtt/internal/cover"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool {
	return true
}

func (t *doneToken) WaitTimeout(time.Duration) bool {
	return true
}

func (t *doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

func (t *doneToken) Error() error {
	return t.err
}

type published struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	paho.Client

	published    []published
	handlers     map[string]paho.MessageHandler
	publishErr   error
	subscribeErr error

	mu           sync.Mutex
	unsubscribed []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]paho.MessageHandler{}}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p := published{topic: topic, retained: retained}
	switch v := payload.(type) {
	case string:
		p.payload = v
	case []byte:
		p.payload = string(v)
	}
	c.published = append(c.published, p)

	return &doneToken{err: c.publishErr}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	if c.subscribeErr == nil {
		c.handlers[topic] = callback
	}

	return &doneToken{err: c.subscribeErr}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)

	return &doneToken{}
}

func (c *fakeClient) unsubscribedTopics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.unsubscribed...)
}

func (c *fakeClient) deliver(topic, payload string) {
	c.handlers[topic](c, &fakeMessage{topic: topic, payload: []byte(payload)})
}

func (c *fakeClient) last(topic string) (published, bool) {
	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].topic == topic {
			return c.published[i], true
		}
	}
	return published{}, false
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool { return false }
func (m *fakeMessage) Qos() byte { return 0 }
func (m *fakeMessage) Retained() bool { return false }
func (m *fakeMessage) Topic() string { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Ack() {}

type fakeCover struct {
	name    string
	handler cover.UpdateHandler

	positions []float64
	stops     int
	err       error

	// calibrating, when set, holds Calibrate until it is closed.
	calibrating chan struct{}
	calibrated  chan cover.CalibrationAction
}

func (c *fakeCover) Name() string { return c.name }
func (c *fakeCover) Level() float64 { return 0 }
func (c *fakeCover) State() cover.State { return cover.StateIdle }
func (c *fakeCover) Operation() cover.Operation { return cover.OperationIdle }
func (c *fakeCover) Status() cover.Status { return cover.Status{State: cover.StateIdle} }
func (c *fakeCover) OnUpdate(h cover.UpdateHandler) { c.handler = h }
func (c *fakeCover) Tick() {}

func (c *fakeCover) SetPosition(level float64) error {
	c.positions = append(c.positions, level)
	return c.err
}

func (c *fakeCover) Stop() error {
	c.stops++
	return c.err
}

func (c *fakeCover) Calibrate(action cover.CalibrationAction) error {
	if c.calibrating != nil {
		<-c.calibrating
	}
	c.calibrated <- action
	return c.err
}
