package bridge

import "github.com/bramburn/nmeamqtt/internal/mqttclient"

// SelfSyncTopic is a dedicated, non-retained topic used solely to prove
// every earlier publish from this process has reached the broker:
// because MQTT preserves per-publisher ordering at QoS>=1, seeing our
// own echo back confirms everything published before it was too.
const SelfSyncTopic = "tmp/selfsync"

// SelfSync runs the shutdown handshake: subscribe, publish a unique
// token, and signal Done() once that exact token is echoed back.
type SelfSync struct {
	mqtt  mqttclient.Client
	token string
	done  chan struct{}
}

// NewSelfSync prepares a handshake for token, a caller-supplied unique
// value (e.g. "<pid>-<unixtime>-<rand>").
func NewSelfSync(mqtt mqttclient.Client, token string) *SelfSync {
	return &SelfSync{mqtt: mqtt, token: token, done: make(chan struct{})}
}

// Start subscribes to the self-sync topic and publishes the token.
func (s *SelfSync) Start() error {
	if err := s.mqtt.Subscribe(SelfSyncTopic, s.onMessage); err != nil {
		return err
	}
	return s.mqtt.Publish(SelfSyncTopic, 1, false, s.token)
}

func (s *SelfSync) onMessage(m mqttclient.Message) {
	if m.Topic == SelfSyncTopic && m.Payload == s.token {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	}
}

// Done is closed once our own token has been echoed back by the broker.
func (s *SelfSync) Done() <-chan struct{} {
	return s.done
}
