// Package mqttsrc receives position fixes published to an MQTT topic.
package mqttsrc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smartjogger/internal/sensor"
)

const DefaultTopic = "/jogger/+/location"

func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

// locationMessage carries a fix or a sensing error. Timestamp is in Unix
// seconds and may carry a fraction; zero leaves the fix unstamped.
type locationMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp float64 `json:"timestamp"`
	Error     string  `json:"error"`
}

// Subscriber watches Topic on an already connected client.
type Subscriber struct {
	Client mqtt.Client
	Topic  string
	QoS    byte
}

func (s *Subscriber) topic() string {
	if s.Topic == "" {
		return DefaultTopic
	}
	return s.Topic
}

func (s *Subscriber) Watch(ctx context.Context, opts sensor.Options, cb sensor.Callbacks) (sensor.Handle, error) {
	if s.Client == nil || !s.Client.IsConnected() {
		return nil, sensor.ErrUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	fixes := make(chan sensor.Position, 16)
	errs := make(chan error, 16)

	token := s.Client.Subscribe(s.topic(), s.QoS, s.handler(ctx, fixes, errs))
	token.Wait()
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", s.topic(), err)
	}
	go sensor.Relay(ctx, opts, fixes, errs, cb)

	return sensor.StopFunc(func() {
		cancel()
		s.Client.Unsubscribe(s.topic()).Wait()
	}), nil
}

func (s *Subscriber) handler(ctx context.Context, fixes chan<- sensor.Position, errs chan<- error) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var raw locationMessage
		if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
			slog.Warn("invalid location message", "topic", msg.Topic(), "error", err)
			return
		}
		if raw.Error != "" {
			select {
			case errs <- errors.New(raw.Error):
			case <-ctx.Done():
			}
			return
		}

		pos := sensor.Position{Latitude: raw.Latitude, Longitude: raw.Longitude}
		if raw.Timestamp > 0 {
			pos.Timestamp = time.UnixMilli(int64(math.Round(raw.Timestamp * 1000)))
		}
		select {
		case fixes <- pos:
		case <-ctx.Done():
		}
	}
}
