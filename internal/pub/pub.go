// Package pub defines the narrow publish contract shared by the
// sentence handlers and the satellite tracker, so neither needs to
// depend on the retained cache or the MQTT transport directly.
package pub

// Flags mirrors the spec's FL_* bits controlling how a publish is
// resolved and cached.
type Flags uint8

const (
	// Retain marks the value for retained, change-detected caching. Its
	// absence means fire-and-forget, regardless of NoCache.
	Retain Flags = 1 << iota
	// IgnoreDefaultTalker suppresses the un-talker-prefixed duplicate
	// publication that would otherwise occur when talker equals the
	// configured default talker.
	IgnoreDefaultTalker
	// NoCache bypasses the coherent cache entirely: publish immediately.
	NoCache
)

// Publisher is implemented by the bridge's topic resolver. talker may be
// "" for topics with no talker association (e.g. "src", "alive").
type Publisher interface {
	Publish(talker, topic string, flags Flags, value string)
}
