package retained

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushOnlyWhenDirty(t *testing.T) {
	c := New()
	var published []string
	c.Set("gps/lat", "48.1", false)

	c.Flush(false, func(topic, payload string) {
		published = append(published, topic)
	})
	require.Len(t, published, 1)
	assert.Equal(t, "gps/lat", published[0])

	// re-flush with nothing new written: zero publishes
	published = nil
	c.Flush(false, func(topic, payload string) {
		published = append(published, topic)
	})
	assert.Len(t, published, 0)
}

func TestFlushCoherentBatch(t *testing.T) {
	c := New()
	c.Set("gps/lat", "48.1", false)
	c.Set("gps/lon", "11.5", false)
	c.Set("gps/alt", "545.4", false)

	// only one field changes on a later sentence
	c.Flush(false, func(string, string) {})
	c.Set("gps/lat", "48.2", false)
	c.Set("gps/lon", "11.5", false) // unchanged
	c.Set("gps/alt", "545.4", false)

	var published []string
	c.Flush(false, func(topic, payload string) {
		published = append(published, topic)
	})
	// whole coherent batch republishes, not just the changed field
	assert.ElementsMatch(t, []string{"gps/lat", "gps/lon", "gps/alt"}, published)
}

func TestAlwaysForcesPublishEvenWithoutChange(t *testing.T) {
	c := New()
	c.Set("gps/lat", "48.1", false)
	c.Flush(false, func(string, string) {})

	c.Set("gps/lat", "48.1", false) // unchanged, but still "written"
	var published []string
	c.Flush(true, func(topic, payload string) {
		published = append(published, topic)
	})
	assert.Equal(t, []string{"gps/lat"}, published)
}

func TestEraseClearsNonControlOnly(t *testing.T) {
	c := New()
	c.Set("gps/lat", "48.1", false)
	c.Set("gps/alive", "1", true)
	c.Flush(false, func(string, string) {})

	var published map[string]string = map[string]string{}
	c.Erase(false, false, func(topic, payload string) {
		published[topic] = payload
	})
	assert.Equal(t, "", published["gps/lat"])
	_, controlErased := published["gps/alive"]
	assert.False(t, controlErased)
}

func TestEraseClearsControlWhenRequested(t *testing.T) {
	c := New()
	c.Set("gps/alive", "1", true)
	c.Flush(false, func(string, string) {})

	var published map[string]string = map[string]string{}
	c.Erase(true, false, func(topic, payload string) {
		published[topic] = payload
	})
	assert.Equal(t, "", published["gps/alive"])
}

func TestInsertionOrderPreserved(t *testing.T) {
	c := New()
	c.Set("gps/z", "1", false)
	c.Set("gps/a", "1", false)
	c.Set("gps/m", "1", false)

	var order []string
	c.Flush(true, func(topic, payload string) {
		order = append(order, topic)
	})
	assert.Equal(t, []string{"gps/z", "gps/a", "gps/m"}, order)
}
