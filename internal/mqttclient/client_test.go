package mqttclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveQoSAutoLocalhost(t *testing.T) {
	assert.EqualValues(t, 0, ResolveQoS(-1, "localhost"))
	assert.EqualValues(t, 0, ResolveQoS(-1, "127.0.0.1"))
}

func TestResolveQoSAutoRemote(t *testing.T) {
	assert.EqualValues(t, 1, ResolveQoS(-1, "broker.example.com"))
}

func TestResolveQoSExplicitOverridesAuto(t *testing.T) {
	assert.EqualValues(t, 2, ResolveQoS(2, "localhost"))
	assert.EqualValues(t, 0, ResolveQoS(0, "broker.example.com"))
}

func TestFakeRecordsPublishesAndDelivers(t *testing.T) {
	f := NewFake()
	var got Message
	assert.NoError(t, f.Subscribe("cfg/#", func(m Message) { got = m }))

	assert.NoError(t, f.Publish("gps/lat", 0, true, "12.3"))
	assert.Len(t, f.Published, 1)
	assert.Equal(t, "gps/lat", f.Published[0].Topic)
	assert.True(t, f.Published[0].Retained)

	f.Deliver("cfg/#", "payload")
	assert.Equal(t, "cfg/#", got.Topic)
	assert.Equal(t, "payload", got.Payload)
}
