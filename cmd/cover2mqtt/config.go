package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/jkaflik/cover2mqtt/internal/cover/driver/relay"
	"github.com/jkaflik/cover2mqtt/internal/cover/lut"
	"github.com/jkaflik/cover2mqtt/internal/mqtt"
	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type cfgWiredRelaySetPin struct {
	Kind string `yaml:"kind"`

	Pin uint8 `yaml:"pin"`

	Mcp23017 int `yaml:"mcp23017"`

	Chip string `yaml:"chip"`
}

type cfgRelay struct {
	Kind string `yaml:"kind"`

	Pin         cfgWiredRelaySetPin `yaml:"pin"`
	ActiveLevel string              `yaml:"active_level"`
}

type cfgCoverMQTTBridge struct {
	Metadata map[string]interface{} `yaml:"metadata"`
}

type cfgCoverDriverRelays struct {
	Up   cfgRelay `yaml:"up"`
	Down cfgRelay `yaml:"down"`

	FullTravel      time.Duration `yaml:"full_travel"`
	InitialPosition *int          `yaml:"initial_position"`
}

type cfgCoverDriver struct {
	Relays cfgCoverDriverRelays `yaml:"relays"`
}

type cfgCoverHASS struct {
	DeviceClass  string `yaml:"device_class"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
}

type cfgCover struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	MQTTBridge cfgCoverMQTTBridge `yaml:"mqtt_bridge"`
	HASS       cfgCoverHASS       `yaml:"hass"`

	Driver cfgCoverDriver `yaml:"driver"`
}

type cfgDrivers struct {
	Relay struct {
		Mcp23017 map[int]struct {
			Bus          uint8 `yaml:"bus"`
			DeviceNumber uint8 `yaml:"device_number"`
		} `yaml:"mcp23017"`
	} `yaml:"relay"`
}

type cfgMQTT struct {
	ClientID string `yaml:"client_id" default:"cover2mqtt" env:"CLIENT_ID"`
	Broker   string `yaml:"broker" default:"127.0.0.1:1883" env:"BROKER"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

type cfgHASS struct {
	Enabled     bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	TopicPrefix string `yaml:"topic_prefix" default:"homeassistant" env:"TOPIC_PREFIX"`
}

type cfgHTTP struct {
	Enabled bool   `yaml:"enabled" default:"false" env:"ENABLED"`
	Addr    string `yaml:"addr" default:":8080" env:"ADDR"`
}

var Cfg struct {
	LogLevel     string        `yaml:"log_level" default:"info" env:"LOG_LEVEL"`
	TickInterval time.Duration `yaml:"tick_interval" default:"100ms" env:"TICK_INTERVAL"`

	MQTT cfgMQTT `yaml:"mqtt" env:"MQTT"`
	HASS cfgHASS `yaml:"hass" env:"HASS"`
	HTTP cfgHTTP `yaml:"http" env:"HTTP"`

	Covers []cfgCover `yaml:"covers"`

	Drivers cfgDrivers `yaml:"drivers"`
}

var configLoader = aconfig.LoaderFor(&Cfg, aconfig.Config{
	EnvPrefix: "C2M",
	SkipFlags: true,
})

const defaultFullTravel = 5 * time.Second

func loadConfigFromYamlFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		logrus.Error(err)
		return
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&Cfg); err != nil {
		logrus.Fatal(err)
		return
	}
}

func pahoOptsFromConfig() *paho.ClientOptions {
	return paho.NewClientOptions().
		SetClientID(Cfg.MQTT.ClientID).
		AddBroker(Cfg.MQTT.Broker).
		SetUsername(Cfg.MQTT.Username).
		SetPassword(Cfg.MQTT.Password).
		SetConnectTimeout(time.Second).
		SetPingTimeout(time.Second).
		SetWriteTimeout(time.Second).
		SetAutoReconnect(true)
}

type coverWithBridge struct {
	cover  cover.Cover
	bridge *mqtt.Bridge
	hass   mqtt.HAOptions
}

func coversFromConfig(ctx context.Context, client paho.Client) (covers []coverWithBridge) {
	for _, cfg := range Cfg.Covers {
		c, err := coverFromConfig(ctx, cfg)
		if err != nil {
			logrus.Fatal(err)
			continue
		}
		bridge := mqtt.NewBridge(client, c)
		if err := bridge.SetMetadata(cfg.MQTTBridge.Metadata); err != nil {
			logrus.Fatal(err)
			continue
		}
		covers = append(covers, coverWithBridge{
			cover:  c,
			bridge: bridge,
			hass: mqtt.HAOptions{
				DeviceClass:  cfg.HASS.DeviceClass,
				Manufacturer: cfg.HASS.Manufacturer,
				Model:        cfg.HASS.Model,
			},
		})
	}

	return covers
}

func coverFromConfig(ctx context.Context, cfg cfgCover) (cover.Cover, error) {
	if cfg.Kind != "relays" {
		return nil, errors.Errorf("%s is not supported cover kind", cfg.Kind)
	}

	relays := cfg.Driver.Relays
	up, err := relayFromConfig(ctx, relays.Up)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: up relay", cfg.Name)
	}
	down, err := relayFromConfig(ctx, relays.Down)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: down relay", cfg.Name)
	}

	return relay.NewRelaysCover(cfg.Name, up, down, relayConfigFromConfig(relays), cover.SystemClock{})
}

func relayConfigFromConfig(cfg cfgCoverDriverRelays) relay.Config {
	c := relay.Config{
		FullTravel:      cfg.FullTravel,
		InitialPosition: lut.Invalid,
	}
	if c.FullTravel == 0 {
		c.FullTravel = defaultFullTravel
	}
	if cfg.InitialPosition != nil {
		c.InitialPosition = *cfg.InitialPosition
	}

	return c
}

func relayFromConfig(ctx context.Context, cfg cfgRelay) (relay.Relay, error) {
	switch cfg.Kind {
	case "wired":
		level, err := activeLevelFromConfig(cfg.ActiveLevel)
		if err != nil {
			return nil, err
		}
		pin, err := wiredRelaySetPinFromConfig(ctx, cfg.Pin)
		if err != nil {
			return nil, err
		}
		return &relay.Wired{Pin: pin, ActiveLevel: level}, nil
	case "dumb":
		return &relay.Dumb{Name: cfg.Kind}, nil
	}

	return nil, errors.Errorf("%s is not supported relay kind", cfg.Kind)
}

func activeLevelFromConfig(s string) (relay.Level, error) {
	switch strings.ToLower(s) {
	case "", "high":
		return relay.High, nil
	case "low":
		return relay.Low, nil
	}

	return relay.Low, errors.Errorf("%s is not a valid active level (high or low)", s)
}

func wiredRelaySetPinFromConfig(ctx context.Context, cfg cfgWiredRelaySetPin) (relay.SetPin, error) {
	switch cfg.Kind {
	case "mcp23017":
		device, err := mcp23017DeviceFromConfigByID(ctx, cfg.Mcp23017)
		if err != nil {
			return nil, err
		}
		return relay.NewMcp23017Pin(device, cfg.Pin)
	case "gpiocdev":
		chip := cfg.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		p, err := relay.NewGpiocdevPin(chip, int(cfg.Pin))
		if err != nil {
			return nil, err
		}
		closeOnDone(ctx, "gpiocdev", p.Close)
		return p, nil
	case "rpio":
		p, err := relay.NewRpioPin(int(cfg.Pin))
		if err != nil {
			return nil, err
		}
		closeOnDone(ctx, "rpio", relay.CloseRpio)
		return p, nil
	}

	return nil, errors.Errorf("%s is not supported wired relay set pin kind", cfg.Kind)
}

var mcpDevices = map[int]*mcp23017.Device{}

func mcp23017DeviceFromConfigByID(ctx context.Context, id int) (*mcp23017.Device, error) {
	if Cfg.Drivers.Relay.Mcp23017 == nil {
		return nil, errors.New("drivers.relay.mcp23017 not defined")
	}

	cfg, found := Cfg.Drivers.Relay.Mcp23017[id]
	if !found {
		return nil, errors.Errorf("%d is not valid defined drivers.relay.mcp23017", id)
	}

	dev := mcpDevices[id]
	if dev == nil {
		var err error
		dev, err = mcp23017.Open(cfg.Bus, cfg.DeviceNumber)
		if err != nil {
			return nil, errors.Wrapf(err, "mcp23017: open bus %d device %d", cfg.Bus, cfg.DeviceNumber)
		}
		closeOnDone(ctx, "mcp23017", dev.Close)
		if err := dev.Reset(); err != nil {
			return nil, errors.Wrap(err, "mcp23017: reset")
		}

		mcpDevices[id] = dev
	}

	return dev, nil
}

func closeOnDone(ctx context.Context, name string, close func() error) {
	go func() {
		<-ctx.Done()
		if err := close(); err != nil {
			logrus.Errorf("%s: close failed %s", name, err)
			return
		}

		logrus.Infof("%s: close", name)
	}()
}
