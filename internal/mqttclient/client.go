// Package mqttclient wraps github.com/eclipse/paho.mqtt.golang behind a
// narrow interface the bridge depends on, so internal/bridge can be
// tested against a fake broker. Connection option wiring follows the
// pattern shown in the pack's odysail collector (broker URL assembly,
// keepalive/timeouts, OnConnect/OnConnectionLost callbacks).
package mqttclient

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Message is one inbound message delivered to a subscription handler.
type Message struct {
	Topic   string
	Payload string
}

// Handler is invoked for every inbound message on a subscribed topic.
type Handler func(Message)

// Client is the subset of MQTT operations the bridge needs.
type Client interface {
	Connect() error
	Disconnect()
	Subscribe(topic string, handler Handler) error
	Publish(topic string, qos byte, retained bool, payload string) error
}

// Options configures a Client.
type Options struct {
	Broker       string // e.g. "tcp://localhost:1883"
	ClientPrefix string // client ID prefix; a random suffix is appended
	Username     string
	Password     string
	QoS          byte
	KeepAlive    time.Duration
	WillTopic    string
	WillPayload  string
	WillQoS      byte
	WillRetained bool
	Logger       logrus.FieldLogger
}

type client struct {
	opts Options
	mc   mqtt.Client
	log  logrus.FieldLogger
}

// New constructs a Client wired per opts but does not connect yet.
func New(opts Options) Client {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	clientID := fmt.Sprintf("%s-%s", opts.ClientPrefix, uuid.NewString()[:8])

	o := mqtt.NewClientOptions()
	o.AddBroker(opts.Broker)
	o.SetClientID(clientID)
	if opts.Username != "" {
		o.SetUsername(opts.Username)
		o.SetPassword(opts.Password)
	}
	o.SetKeepAlive(opts.KeepAlive)
	o.SetAutoReconnect(true)
	o.SetConnectTimeout(10 * time.Second)
	if opts.WillTopic != "" {
		o.SetWill(opts.WillTopic, opts.WillPayload, opts.WillQoS, opts.WillRetained)
	}

	c := &client{opts: opts, log: opts.Logger.WithField("component", "mqttclient")}
	o.OnConnect = func(mqtt.Client) { c.log.WithField("client_id", clientID).Info("connected") }
	o.OnConnectionLost = func(_ mqtt.Client, err error) { c.log.WithError(err).Warn("connection lost") }
	c.mc = mqtt.NewClient(o)
	return c
}

func (c *client) Connect() error {
	token := c.mc.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt: connect timeout")
	}
	return token.Error()
}

func (c *client) Disconnect() {
	c.mc.Disconnect(250)
}

func (c *client) Subscribe(topic string, handler Handler) error {
	token := c.mc.Subscribe(topic, c.opts.QoS, func(_ mqtt.Client, m mqtt.Message) {
		handler(Message{Topic: m.Topic(), Payload: string(m.Payload())})
	})
	token.Wait()
	return token.Error()
}

func (c *client) Publish(topic string, qos byte, retained bool, payload string) error {
	token := c.mc.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

// ResolveQoS implements the original tool's QoS auto-selection: -1
// ("auto") resolves to QoS 0 against a localhost broker (no network
// between publisher and broker to lose a packet over) and QoS 1
// otherwise. An explicit non-negative qosFlag is returned unchanged.
func ResolveQoS(qosFlag int, brokerHost string) byte {
	if qosFlag >= 0 {
		return byte(qosFlag)
	}
	if brokerHost == "localhost" || brokerHost == "127.0.0.1" {
		return 0
	}
	return 1
}
