package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	mqttOpenCmd  = "open"
	mqttCloseCmd = "close"
	mqttStopCmd  = "stop"
)

const (
	coverOpenState    = "open"
	coverClosedState  = "closed"
	coverOpeningState = "opening"
	coverClosingState = "closing"
)

const (
	positionOpen   = 100
	positionClosed = 0
)

type Bridge struct {
	mqtt  mqtt.Client
	cover cover.Cover

	StateTopic    string
	PositionTopic string
	MetadataTopic string

	CommandTopic        string
	PositionChangeTopic string
	CalibrationTopic    string

	unsubscribeOnce sync.Once
}

func NewBridge(mqtt mqtt.Client, c cover.Cover) *Bridge {
	bridge := &Bridge{mqtt: mqtt, cover: c}
	bridge.StateTopic = fmt.Sprintf("cover2mqtt/%s/state", c.Name())
	bridge.PositionTopic = fmt.Sprintf("cover2mqtt/%s/position", c.Name())
	bridge.MetadataTopic = fmt.Sprintf("cover2mqtt/%s/metadata", c.Name())
	bridge.CommandTopic = fmt.Sprintf("cover2mqtt/%s/set", c.Name())
	bridge.PositionChangeTopic = fmt.Sprintf("cover2mqtt/%s/position/set", c.Name())
	bridge.CalibrationTopic = fmt.Sprintf("cover2mqtt/%s/calibrate", c.Name())

	c.OnUpdate(bridge.onCoverUpdateHandler())

	return bridge
}

func (b *Bridge) SetMetadata(value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if token := b.mqtt.Publish(b.MetadataTopic, 0, true, payload); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT metadata publish failed", b.cover.Name())
	}

	return nil
}

// Subscribe registers the command handlers. It is called again on every
// reconnect; topics are unsubscribed once when ctx is done.
func (b *Bridge) Subscribe(ctx context.Context) error {
	b.unsubscribeOnce.Do(func() {
		go func() {
			<-ctx.Done()
			if token := b.mqtt.Unsubscribe(b.PositionChangeTopic, b.CommandTopic, b.CalibrationTopic); token.Wait() && token.Error() != nil {
				logrus.Errorf("%s: MQTT topics unsubscribe failed: %s", b.cover.Name(), token.Error())
			}
		}()
	})

	if token := b.mqtt.Subscribe(b.CommandTopic, 0, b.onCommandHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT command topic subscription failed", b.cover.Name())
	}
	logrus.Infof("%s: MQTT command topic subscribed", b.cover.Name())
	if token := b.mqtt.Subscribe(b.PositionChangeTopic, 0, b.onPositionChangeHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT position change topic subscription failed", b.cover.Name())
	}
	logrus.Infof("%s: MQTT position change topic subscribed", b.cover.Name())
	if token := b.mqtt.Subscribe(b.CalibrationTopic, 0, b.onCalibrationHandler()); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT calibration topic subscription failed", b.cover.Name())
	}
	logrus.Infof("%s: MQTT calibration topic subscribed", b.cover.Name())

	return nil
}

func (b *Bridge) onCoverUpdateHandler() cover.UpdateHandler {
	return func(e cover.Event) {
		if token := b.mqtt.Publish(b.StateTopic, 0, true, stateFromEvent(e)); token.Wait() && token.Error() != nil {
			logrus.Errorf("%s: MQTT state publish failed: %s", b.cover.Name(), token.Error())
		}
		if !e.Known() {
			logrus.Debugf("%s: position unknown, not published", b.cover.Name())
			return
		}
		if token := b.mqtt.Publish(b.PositionTopic, 0, true, strconv.Itoa(positionFromLevel(e.Level))); token.Wait() && token.Error() != nil {
			logrus.Errorf("%s: MQTT position publish failed: %s", b.cover.Name(), token.Error())
		}
	}
}

func (b *Bridge) onCommandHandler() mqtt.MessageHandler {
	return func(c mqtt.Client, msg mqtt.Message) {
		var err error
		cmd := strings.TrimSpace(string(msg.Payload()))
		switch cmd {
		case mqttOpenCmd:
			err = b.cover.SetPosition(1)
		case mqttCloseCmd:
			err = b.cover.SetPosition(0)
		case mqttStopCmd:
			err = b.cover.Stop()
		default:
			logrus.Errorf("%s: MQTT unsupported %s command received", b.cover.Name(), cmd)
			return
		}
		if err != nil {
			logrus.Errorf("%s: MQTT %s command failed: %s", b.cover.Name(), cmd, err)
		}
	}
}

func (b *Bridge) onPositionChangeHandler() mqtt.MessageHandler {
	return func(c mqtt.Client, msg mqtt.Message) {
		pos, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload())))
		if err != nil {
			logrus.Errorf("%s: MQTT invalid position: %s", b.cover.Name(), err)
			return
		}
		if err := b.cover.SetPosition(float64(pos) / positionOpen); err != nil {
			logrus.Error(err)
		}
	}
}

// Calibration takes seconds, so it runs outside of the paho message router.
func (b *Bridge) onCalibrationHandler() mqtt.MessageHandler {
	return func(c mqtt.Client, msg mqtt.Message) {
		action, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload())))
		if err != nil {
			logrus.Errorf("%s: MQTT invalid calibration action: %s", b.cover.Name(), err)
			return
		}
		go func() {
			if err := b.cover.Calibrate(cover.CalibrationAction(action)); err != nil {
				logrus.Error(err)
			}
		}()
	}
}

func stateFromEvent(e cover.Event) string {
	switch e.Operation {
	case cover.OperationOpening:
		return coverOpeningState
	case cover.OperationClosing:
		return coverClosingState
	}

	if e.Known() && positionFromLevel(e.Level) == positionClosed {
		return coverClosedState
	}

	return coverOpenState
}

func positionFromLevel(level float64) int {
	return int(math.Round(level * positionOpen))
}
