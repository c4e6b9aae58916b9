// Package mqtt publishes encoded payloads to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	qosAtLeastOnce    = 1
	connectTimeout    = 30 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

// Options configures the broker connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// Publisher sends messages through a paho client.
type Publisher struct {
	client paho.Client
}

// NewPublisher wraps an existing paho client.
func NewPublisher(client paho.Client) *Publisher {
	return &Publisher{client: client}
}

// Connect dials the broker and returns a ready Publisher.
// Paho's auto-reconnect keeps the session alive afterwards.
func Connect(ctx context.Context, opts Options) (*Publisher, error) {
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	client := paho.NewClient(clientOpts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.BrokerURL, err)
	}
	return NewPublisher(client), nil
}

// Publish sends one payload at QoS 1 and waits for the broker to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(ctx, p.client.Publish(topic, qosAtLeastOnce, retain, payload)); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}
