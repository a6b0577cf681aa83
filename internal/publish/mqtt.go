package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"agile-live/internal/pipeline"
)

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
}

// mqttPublisher is the part of mqtt.Client the publisher uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher sends each analysis to a broker for home-automation consumers:
//
//	<topic>          full snapshot JSON
//	<topic>/current  current price inc. VAT, plain number
//	<topic>/tier     current price tier
type MQTTPublisher struct {
	client  mqttPublisher
	conn    mqtt.Client
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker. Paho reconnects on its own after
// the first successful connect.
func NewMQTTPublisher(opts MQTTOptions) (*MQTTPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			zap.L().Warn("[MQTT] Connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			zap.L().Info("[MQTT] Connected", zap.String("broker", opts.Broker))
		})

	c := mqtt.NewClient(co)
	token := c.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", opts.Broker, opts.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}

	p := newMQTTPublisher(c, opts)
	p.conn = c
	return p, nil
}

func newMQTTPublisher(client mqttPublisher, opts MQTTOptions) *MQTTPublisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &MQTTPublisher{
		client:  client,
		topic:   opts.Topic,
		qos:     opts.QoS,
		retain:  opts.Retain,
		timeout: opts.Timeout,
	}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

func (p *MQTTPublisher) Publish(ctx context.Context, res *pipeline.Result) error {
	snap := res.Snapshot()
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.send(ctx, p.topic, payload); err != nil {
		return err
	}
	if res.Current == nil {
		return nil
	}
	if err := p.send(ctx, p.topic+"/current", strconv.FormatFloat(res.Current.ValueIncVAT, 'f', 2, 64)); err != nil {
		return err
	}
	return p.send(ctx, p.topic+"/tier", snap.Current.Tier.String())
}

func (p *MQTTPublisher) send(ctx context.Context, topic string, payload interface{}) error {
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("mqtt publish %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.conn != nil {
		p.conn.Disconnect(250)
	}
}
