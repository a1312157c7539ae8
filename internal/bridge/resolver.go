// Package bridge wires the NMEA sentence handlers, satellite tracker,
// retained cache, liveness timer, and MQTT config listener into the
// single actor described by the stream processor: one goroutine is the
// sole mutator of all of that state (internal/pub.Publisher is its
// narrow write interface), and a top-level select loop drives it.
package bridge

import (
	"github.com/bramburn/nmeamqtt/internal/config"
	"github.com/bramburn/nmeamqtt/internal/mqttclient"
	"github.com/bramburn/nmeamqtt/internal/pub"
	"github.com/bramburn/nmeamqtt/internal/retained"
	"github.com/sirupsen/logrus"
)

// Resolver implements pub.Publisher: it resolves a (talker, topic) pair
// to one or two fully-qualified MQTT topics per the default-talker
// compatibility rule, then either caches the value for coherent flush
// or publishes it immediately.
type Resolver struct {
	cfg   *config.Config
	cache *retained.Cache
	mqtt  mqttclient.Client
	qos   byte
	log   logrus.FieldLogger

	inDataSentence bool

	// OnPublishError is invoked for every failed MQTT publish. Transport
	// errors are fatal per the bridge's error taxonomy; main wires this
	// to a helper that logs and exits. Tests may leave it nil, in which
	// case failures are only logged.
	OnPublishError func(topic string, err error)
}

// NewResolver builds a Resolver over an already-open MQTT client.
func NewResolver(cfg *config.Config, cache *retained.Cache, mqtt mqttclient.Client, qos byte, log logrus.FieldLogger) *Resolver {
	return &Resolver{cfg: cfg, cache: cache, mqtt: mqtt, qos: qos, log: log}
}

// BeginSentence marks subsequent Publish calls as occurring inside a
// data sentence's scope, so cache entries they create are tagged
// non-control. EndSentence reverts to control scope (the default,
// covering "src", "alive", and cfg-driven publishes).
func (r *Resolver) BeginSentence() { r.inDataSentence = true }
func (r *Resolver) EndSentence()   { r.inDataSentence = false }

// Publish implements pub.Publisher.
func (r *Resolver) Publish(talker, topic string, flags pub.Flags, value string) {
	if value == "nan" {
		value = ""
	}
	for _, full := range r.qualify(talker, topic, flags) {
		r.publishOne(full, flags, value)
	}
}

// qualify resolves (talker, topic) to one or two fully-qualified topics:
// always "<prefix><talker>/<topic>" when a talker is given, plus the
// bare "<prefix><topic>" compatibility duplicate when talker is the
// effective default talker and FL_IGN_DEF_TALKER is not set. A topic
// with no talker (e.g. "src", "alive") resolves to "<prefix><topic>"
// alone.
func (r *Resolver) qualify(talker, topic string, flags pub.Flags) []string {
	prefix := r.cfg.TopicPrefix
	if talker == "" {
		return []string{prefix + topic}
	}
	out := []string{prefix + talker + "/" + topic}
	isDefault := talker == r.cfg.EffectiveDefTalker()
	ignore := flags&pub.IgnoreDefaultTalker != 0
	if isDefault && !ignore {
		out = append(out, prefix+topic)
	}
	return out
}

func (r *Resolver) publishOne(fullTopic string, flags pub.Flags, value string) {
	isRetained := flags&pub.Retain != 0
	if !isRetained || flags&pub.NoCache != 0 {
		if err := r.mqtt.Publish(fullTopic, r.qos, isRetained, value); err != nil {
			r.fail(fullTopic, err)
		}
		return
	}
	r.cache.Set(fullTopic, value, !r.inDataSentence)
}

func (r *Resolver) fail(topic string, err error) {
	r.log.WithError(err).WithField("topic", topic).Error("mqtt publish failed")
	if r.OnPublishError != nil {
		r.OnPublishError(topic, err)
	}
}

func (r *Resolver) publishFn() func(topic, payload string) {
	return func(topic, payload string) {
		if err := r.mqtt.Publish(topic, r.qos, true, payload); err != nil {
			r.fail(topic, err)
		}
	}
}

// Flush runs the cache's coherent flush pass: every entry written since
// the last flush is republished, but only if something actually
// changed (or cfg.Always is set).
func (r *Resolver) Flush() {
	r.cache.Flush(r.cfg.Always, r.publishFn())
}

// Erase clears every cached entry to an empty (delete) payload and
// flushes the result. clearControl additionally clears "src"/"alive".
func (r *Resolver) Erase(clearControl bool) {
	r.cache.Erase(clearControl, r.cfg.Always, r.publishFn())
}
