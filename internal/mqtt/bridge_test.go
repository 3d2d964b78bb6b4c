package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T) (*Bridge, *fakeClient, *fakeCover) {
	t.Helper()

	client := newFakeClient()
	c := &fakeCover{name: "salon", calibrated: make(chan cover.CalibrationAction, 4)}
	b := NewBridge(client, c)
	require.NotNil(t, c.handler)
	require.NoError(t, b.Subscribe(context.Background()))

	return b, client, c
}

func TestBridgeTopics(t *testing.T) {
	b, _, _ := newTestBridge(t)

	assert.Equal(t, "cover2mqtt/salon/state", b.StateTopic)
	assert.Equal(t, "cover2mqtt/salon/position", b.PositionTopic)
	assert.Equal(t, "cover2mqtt/salon/set", b.CommandTopic)
	assert.Equal(t, "cover2mqtt/salon/position/set", b.PositionChangeTopic)
	assert.Equal(t, "cover2mqtt/salon/calibrate", b.CalibrationTopic)
}

func TestBridgeCommands(t *testing.T) {
	t.Run("open and close are full range moves", func(t *testing.T) {
		b, client, c := newTestBridge(t)

		client.deliver(b.CommandTopic, "open")
		client.deliver(b.CommandTopic, "close")

		assert.Equal(t, []float64{1, 0}, c.positions)
	})

	t.Run("stop", func(t *testing.T) {
		b, client, c := newTestBridge(t)

		client.deliver(b.CommandTopic, "stop")

		assert.Equal(t, 1, c.stops)
	})

	t.Run("unsupported command is ignored", func(t *testing.T) {
		b, client, c := newTestBridge(t)

		client.deliver(b.CommandTopic, "dance")

		assert.Empty(t, c.positions)
		assert.Zero(t, c.stops)
	})

	t.Run("position is a percentage", func(t *testing.T) {
		b, client, c := newTestBridge(t)

		client.deliver(b.PositionChangeTopic, "40")
		client.deliver(b.PositionChangeTopic, "abc")

		assert.Equal(t, []float64{0.4}, c.positions)
	})

	t.Run("calibration action", func(t *testing.T) {
		b, client, c := newTestBridge(t)

		client.deliver(b.CalibrationTopic, "up")
		client.deliver(b.CalibrationTopic, "1")

		select {
		case action := <-c.calibrated:
			assert.Equal(t, cover.CalibrationRaiseTrim, action)
		case <-time.After(time.Second):
			t.Fatal("calibration did not run")
		}
		assert.Empty(t, c.calibrated)
	})

	t.Run("calibration does not block the message handler", func(t *testing.T) {
		b, client, c := newTestBridge(t)
		c.calibrating = make(chan struct{})

		returned := make(chan struct{})
		go func() {
			client.deliver(b.CalibrationTopic, "0")
			close(returned)
		}()

		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("handler is blocked by the calibration sequence")
		}
		assert.Empty(t, c.calibrated)

		close(c.calibrating)
		select {
		case action := <-c.calibrated:
			assert.Equal(t, cover.CalibrationReset, action)
		case <-time.After(time.Second):
			t.Fatal("calibration did not run")
		}
	})
}

func TestBridgeUpdates(t *testing.T) {
	tests := []struct {
		name         string
		event        cover.Event
		wantState    string
		wantPosition string
	}{
		{"opening", cover.Event{Level: 0.3, Operation: cover.OperationOpening}, "opening", "30"},
		{"closing", cover.Event{Level: 0.5, Operation: cover.OperationClosing}, "closing", "50"},
		{"stopped half way", cover.Event{Level: 0.6, Operation: cover.OperationIdle}, "open", "60"},
		{"closed", cover.Event{Level: 0, Operation: cover.OperationIdle}, "closed", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, client, c := newTestBridge(t)

			c.handler(tt.event)

			state, ok := client.last(b.StateTopic)
			require.True(t, ok)
			assert.Equal(t, tt.wantState, state.payload)
			assert.True(t, state.retained)

			position, ok := client.last(b.PositionTopic)
			require.True(t, ok)
			assert.Equal(t, tt.wantPosition, position.payload)
		})
	}

	t.Run("unknown position only publishes the state", func(t *testing.T) {
		b, client, c := newTestBridge(t)

		c.handler(cover.Event{Level: cover.UnknownLevel, Operation: cover.OperationIdle})

		state, ok := client.last(b.StateTopic)
		require.True(t, ok)
		assert.Equal(t, "open", state.payload)
		_, ok = client.last(b.PositionTopic)
		assert.False(t, ok)
	})
}

func TestBridgeSubscribe(t *testing.T) {
	t.Run("subscription failure is reported", func(t *testing.T) {
		client := newFakeClient()
		client.subscribeErr = errors.New("not authorized")
		b := NewBridge(client, &fakeCover{name: "salon"})

		assert.Error(t, b.Subscribe(context.Background()))
	})

	t.Run("resubscribing unsubscribes once", func(t *testing.T) {
		client := newFakeClient()
		b := NewBridge(client, &fakeCover{name: "salon"})
		ctx, cancel := context.WithCancel(context.Background())

		for i := 0; i < 3; i++ {
			require.NoError(t, b.Subscribe(ctx))
		}
		cancel()

		assert.Eventually(t, func() bool {
			return len(client.unsubscribedTopics()) == 3
		}, time.Second, 10*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.ElementsMatch(t,
			[]string{b.CommandTopic, b.PositionChangeTopic, b.CalibrationTopic},
			client.unsubscribedTopics())
	})
}

func TestSetMetadata(t *testing.T) {
	b, client, _ := newTestBridge(t)

	require.NoError(t, b.SetMetadata(map[string]string{"azimuth": "253"}))

	p, ok := client.last(b.MetadataTopic)
	require.True(t, ok)
	assert.JSONEq(t, `{"azimuth":"253"}`, p.payload)

	client.publishErr = errors.New("broker gone")
	assert.Error(t, b.SetMetadata(nil))
}

func TestPublishHAAutoDiscovery(t *testing.T) {
	b, client, _ := newTestBridge(t)

	entity := NewHACoverFromMQTTBridge(b, HAOptions{Manufacturer: "Somfy"})
	require.NoError(t, PublishHAAutoDiscovery(client, "homeassistant", entity))

	p, ok := client.last("homeassistant/cover/cover2mqtt/salon/config")
	require.True(t, ok)
	assert.True(t, p.retained)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(p.payload), &payload))
	assert.Equal(t, "blind", payload["device_class"])
	assert.Equal(t, b.PositionChangeTopic, payload["set_pos_t"])
	assert.Equal(t, float64(100), payload["pos_open"])
	assert.Equal(t, "stop", payload["pl_stop"])
}
