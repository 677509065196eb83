// Package mqtt carries unit heartbeats over an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	topicPrefix = "signage/"
	topicSuffix = "/heartbeat"

	// HeartbeatWildcard matches every unit's heartbeat topic.
	HeartbeatWildcard = topicPrefix + "+" + topicSuffix

	qos             = 1
	disconnectQuiet = 250 // ms
	connectTimeout  = 10 * time.Second
)

// HeartbeatMessage is the optional JSON body of a heartbeat. An empty payload
// is a valid heartbeat.
type HeartbeatMessage struct {
	CurrentPlaylistID *string   `json:"current_playlist_id,omitempty"`
	Version           string    `json:"version,omitempty"`
	Offline           bool      `json:"offline,omitempty"`
	SentAt            time.Time `json:"sent_at"`
}

func HeartbeatTopic(hostname string) string {
	return topicPrefix + hostname + topicSuffix
}

// HostnameFromTopic extracts the unit hostname from a heartbeat topic.
func HostnameFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, topicPrefix) || !strings.HasSuffix(topic, topicSuffix) {
		return "", false
	}
	host := strings.TrimSuffix(strings.TrimPrefix(topic, topicPrefix), topicSuffix)
	if host == "" || strings.Contains(host, "/") {
		return "", false
	}
	return host, true
}

// Handler receives raw messages for a subscription.
type Handler func(topic string, payload []byte)

type Client struct {
	client pahomqtt.Client
}

// Connect dials brokerURL (e.g. tcp://localhost:1883) with automatic
// reconnects.
func Connect(brokerURL, clientID string) (*Client, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		log.Debug().Str("topic", msg.Topic()).Msg("unhandled mqtt message")
	})
	opts.OnConnect = func(pahomqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", brokerURL).Msg("MQTT connection lost")
	}

	c := pahomqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &Client{client: c}, nil
}

func (c *Client) Subscribe(topic string, h Handler) error {
	token := c.client.Subscribe(topic, qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	log.Info().Str("topic", topic).Msg("subscribed")
	return nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) PublishHeartbeat(hostname string, msg HeartbeatMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.Publish(HeartbeatTopic(hostname), b)
}

func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiet)
	log.Info().Msg("MQTT client disconnected")
}
