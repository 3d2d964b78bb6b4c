package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/jkaflik/cover2mqtt/internal/mqtt"
	"github.com/jkaflik/cover2mqtt/internal/web"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: false,
		FullTimestamp: true,
	})

	configPath := flag.String("config", "config.yaml", "config.yaml file path")
	flag.Parse()

	if err := configLoader.Load(); err != nil {
		logrus.Fatal(err)
	}
	loadConfigFromYamlFile(*configPath)

	level, err := logrus.ParseLevel(Cfg.LogLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	if Cfg.TickInterval <= 0 {
		logrus.Fatalf("tick_interval must be positive, got %s", Cfg.TickInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := &coverRegistry{}
	cfg := pahoOptsFromConfig()
	cfg.OnConnect = registry.onConnect(ctx)
	cfg.OnConnectionLost = func(_ paho.Client, err error) {
		logrus.Errorf("MQTT broker connection lost: %s", err.Error())
	}

	m := paho.NewClient(cfg)
	if token := m.Connect(); token.Wait() && token.Error() != nil {
		logrus.Fatal(token.Error())
	}

	covers := registry.set(ctx, m, coversFromConfig(ctx, m))

	if Cfg.HTTP.Enabled {
		srv := web.New(Cfg.HTTP.Addr, coverList(covers))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.Errorf("HTTP server error: %s", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logrus.Infof("HTTP API listening on %s", Cfg.HTTP.Addr)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	run(ctx, covers, Cfg.TickInterval, c)

	for _, cw := range covers {
		if err := cw.cover.Stop(); err != nil {
			logrus.Error(err)
		}
	}
	cancel()
	m.Disconnect(250)

	cleanupTime := time.Second
	logrus.Infof("cleanups for %s...", cleanupTime.String())
	time.Sleep(cleanupTime)
}

// run ticks every cover until a signal arrives.
func run(ctx context.Context, covers []coverWithBridge, interval time.Duration, sig <-chan os.Signal) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.Infof("ticking %d covers every %s", len(covers), interval)
	for {
		select {
		case s := <-sig:
			logrus.Infof("system call: %+v", s)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, cw := range covers {
				cw.cover.Tick()
			}
		}
	}
}

// coverRegistry holds the covers the MQTT connect handler resubscribes.
// The handler may run before the covers are built.
type coverRegistry struct {
	mu     sync.Mutex
	covers []coverWithBridge
}

// set stores covers and subscribes them on m.
func (r *coverRegistry) set(ctx context.Context, m paho.Client, covers []coverWithBridge) []coverWithBridge {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.covers = covers
	subscribe(ctx, m, covers)

	return covers
}

func (r *coverRegistry) onConnect(ctx context.Context) paho.OnConnectHandler {
	return func(m paho.Client) {
		logrus.Info("MQTT broker connected")

		r.mu.Lock()
		defer r.mu.Unlock()
		subscribe(ctx, m, r.covers)
	}
}

func subscribe(ctx context.Context, m paho.Client, covers []coverWithBridge) {
	for _, cw := range covers {
		if Cfg.HASS.Enabled {
			entity := mqtt.NewHACoverFromMQTTBridge(cw.bridge, cw.hass)
			if err := mqtt.PublishHAAutoDiscovery(m, Cfg.HASS.TopicPrefix, entity); err != nil {
				logrus.Fatal(err)
			}
		}

		if err := cw.bridge.Subscribe(ctx); err != nil {
			logrus.Error(err)
		}
	}
}

func coverList(covers []coverWithBridge) []cover.Cover {
	list := make([]cover.Cover, 0, len(covers))
	for _, cw := range covers {
		list = append(list, cw.cover)
	}
	return list
}
