package main

import (
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smartjogger/internal/config"
	"smartjogger/internal/netinfo"
	"smartjogger/internal/sensor"
	"smartjogger/internal/sensor/mqttsrc"
	"smartjogger/internal/sensor/nmea"
	"smartjogger/internal/sensor/replay"
	"smartjogger/internal/sensor/scenario"
	"smartjogger/internal/storage"
	"smartjogger/internal/webhook"
)

type sources struct {
	Positions sensor.Source
	Network   netinfo.Source
	// Push is set when fixes arrive over HTTP and must be mounted.
	Push *webhook.Handler

	mqtt mqtt.Client
}

func (s *sources) Close() {
	if s.mqtt != nil {
		s.mqtt.Disconnect(250)
	}
}

func buildSources(cfg config.Config, store *storage.Store) (*sources, error) {
	srcs := &sources{}

	var script *scenario.Script
	if cfg.ScenarioPath != "" && (cfg.PositionSource == config.SourceScenario || cfg.NetworkSource == config.SourceScenario) {
		var err error
		script, err = scenario.Load(cfg.ScenarioPath)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.PositionSource {
	case config.SourceScenario:
		srcs.Positions = script
	case config.SourceNMEA:
		srcs.Positions = &nmea.Receiver{Port: cfg.SerialPort, Baud: cfg.SerialBaud}
	case config.SourceMQTT:
		client, err := mqttsrc.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			return nil, err
		}
		srcs.mqtt = client
		srcs.Positions = &mqttsrc.Subscriber{Client: client, Topic: cfg.MQTTTopic, QoS: 1}
	case config.SourceReplay:
		if store == nil {
			return nil, errors.New("replay needs DATABASE_PATH")
		}
		srcs.Positions = &replay.Replayer{Store: store, RunID: cfg.ReplayRunID, Speed: 1}
	case config.SourcePush:
		srcs.Push = &webhook.Handler{SigningSecret: cfg.PushSecret}
		srcs.Positions = srcs.Push
	case config.SourceNone:
	}

	switch cfg.NetworkSource {
	case config.SourceProbe:
		srcs.Network = &netinfo.Probe{
			URL:      cfg.NetworkProbeURL,
			Interval: time.Duration(cfg.NetworkProbeIntervalMS) * time.Millisecond,
		}
	case config.SourceScenario:
		srcs.Network = script
	case config.SourceNone:
	}

	return srcs, nil
}
