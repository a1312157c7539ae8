// Package retained implements the change-detecting, coherent-block
// retained-publication cache described by the bridge's data model: a
// handler writes fields into the cache during a sentence's scope, and a
// single flush at the end of the sentence either republishes the whole
// coherent batch (something changed) or publishes nothing at all.
package retained

// Entry is one cached retained topic.
type Entry struct {
	Topic     string
	Payload   string // "" means "delete" (retained erase)
	Written   bool
	IsControl bool
}

// Cache holds retained entries in first-published order, matching the
// spec's "insertion order is preserved" invariant for the flush pass.
type Cache struct {
	order   []string
	entries map[string]*Entry
	Dirty   int
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Set writes topic=payload into the cache, creating the entry on first
// use. isControl tags entries produced outside a data-sentence's scope
// (e.g. "src", "alive") and is fixed at creation time. Returns whether
// the stored payload actually changed.
func (c *Cache) Set(topic, payload string, isControl bool) bool {
	e, ok := c.entries[topic]
	if !ok {
		e = &Entry{Topic: topic, IsControl: isControl}
		c.entries[topic] = e
		c.order = append(c.order, topic)
	}
	e.Written = true
	if e.Payload == payload {
		return false
	}
	e.Payload = payload
	c.Dirty++
	return true
}

// Flush publishes every written entry, in insertion order, through
// publish — but only if something changed since the last flush (Dirty >
// 0) or always is set; otherwise no publish call is made at all. Every
// entry's Written flag is cleared and Dirty reset to 0 regardless,
// whether or not a publish actually occurred.
func (c *Cache) Flush(always bool, publish func(topic, payload string)) {
	shouldPublish := c.Dirty > 0 || always
	for _, topic := range c.order {
		e := c.entries[topic]
		if e.Written && shouldPublish {
			publish(e.Topic, e.Payload)
		}
		e.Written = false
	}
	c.Dirty = 0
}

// Erase clears every non-empty payload to "" (a retained delete),
// skipping control-tagged entries unless clearControl is set, then
// flushes the result through publish.
func (c *Cache) Erase(clearControl bool, always bool, publish func(topic, payload string)) {
	for _, topic := range c.order {
		e := c.entries[topic]
		if e.IsControl && !clearControl {
			continue
		}
		if e.Payload == "" {
			continue
		}
		e.Payload = ""
		e.Written = true
		c.Dirty++
	}
	c.Flush(always, publish)
}

// Len reports the number of distinct cached topics, for tests.
func (c *Cache) Len() int {
	return len(c.order)
}
