package mqttclient

// Fake is an in-memory Client used by internal/bridge's tests and this
// package's own tests. It never touches the network.
type Fake struct {
	Published []FakePublish
	subs      map[string]Handler
	Connected bool
}

// FakePublish records one Publish call.
type FakePublish struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{subs: make(map[string]Handler)}
}

func (f *Fake) Connect() error {
	f.Connected = true
	return nil
}

func (f *Fake) Disconnect() {
	f.Connected = false
}

func (f *Fake) Subscribe(topic string, handler Handler) error {
	f.subs[topic] = handler
	return nil
}

func (f *Fake) Publish(topic string, qos byte, retained bool, payload string) error {
	f.Published = append(f.Published, FakePublish{topic, qos, retained, payload})
	return nil
}

// Deliver simulates an inbound message on topic, invoking its handler
// if one was registered via Subscribe.
func (f *Fake) Deliver(topic, payload string) {
	if h, ok := f.subs[topic]; ok {
		h(Message{Topic: topic, Payload: payload})
	}
}
