// Package config holds the bridge's mutable runtime configuration and
// the pure merge logic behind the "cfg/#" control surface (spec §4.7).
// It is owned exclusively by the single processor goroutine; nothing in
// this package is safe for concurrent mutation.
package config

import (
	"strconv"
	"strings"
)

// Sentences is the fixed set of sentence tags the -n flag and cfg/msgs
// topic can toggle. TXT is deliberately absent: it is always handled.
var Sentences = []string{"GGA", "GNS", "GSA", "GSV", "VTG", "ZDA"}

// DefaultEnabled is the sentence set enabled when the process starts
// with no -n flag and no prior cfg/msgs message.
var DefaultEnabled = map[string]bool{"GGA": true, "VTG": true, "ZDA": true}

// Config is the bridge's live, mutable configuration.
type Config struct {
	NMEAUse     map[string]bool
	Always      bool
	DeadDelay   int // seconds
	DefTalker   string
	DefOverride string // set by cfg/default; "" means "use DefTalker"
	TopicPrefix string
}

// New returns a Config seeded with spec defaults.
func New() *Config {
	use := make(map[string]bool, len(Sentences))
	for _, s := range Sentences {
		use[s] = DefaultEnabled[s]
	}
	return &Config{
		NMEAUse:     use,
		DeadDelay:   10,
		DefTalker:   "gp",
		TopicPrefix: "gps/",
	}
}

// Enabled reports whether code (e.g. "GGA") is currently enabled. TXT is
// always enabled regardless of NMEAUse contents.
func (c *Config) Enabled(code string) bool {
	if code == "TXT" {
		return true
	}
	return c.NMEAUse[code]
}

// EffectiveDefTalker returns the default talker in effect: the cfg/default
// override when set, otherwise the command-line value. A "0" value (from
// either source) disables default-talker compatibility publication.
func (c *Config) EffectiveDefTalker() string {
	if c.DefOverride != "" {
		return c.DefOverride
	}
	return c.DefTalker
}

// MergeMsgs applies a cfg/msgs (or -n) payload to NMEAUse: comma-separated
// tokens of the form [+|-]CODE. If the first token carries no explicit
// sign, every entry is first reset to disabled (absolute mode); a bare
// CODE token (no leading sign) defaults to enabling it.
func (c *Config) MergeMsgs(payload string) {
	if payload == "" {
		return
	}
	tokens := strings.Split(payload, ",")
	if len(tokens) > 0 {
		first := strings.TrimSpace(tokens[0])
		if first == "" || (first[0] != '+' && first[0] != '-') {
			for code := range c.NMEAUse {
				c.NMEAUse[code] = false
			}
		}
	}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		enable := true
		switch tok[0] {
		case '+':
			enable, tok = true, tok[1:]
		case '-':
			enable, tok = false, tok[1:]
		}
		code := strings.ToUpper(tok)
		if _, known := c.NMEAUse[code]; known {
			c.NMEAUse[code] = enable
		}
	}
}

// String renders NMEAUse the way the original tool's diagnostic log
// line does: a sorted, signed, comma-separated list.
func (c *Config) String() string {
	parts := make([]string, 0, len(Sentences))
	for _, code := range Sentences {
		sign := "-"
		if c.NMEAUse[code] {
			sign = "+"
		}
		parts = append(parts, sign+code)
	}
	return strings.Join(parts, ",")
}

// ParseBool follows cfg/always's "parse as integer; non-zero is true"
// rule.
func ParseBool(payload string) bool {
	v, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return false
	}
	return v != 0
}

// ParseSeconds parses a cfg/deadtime payload, returning fallback on a
// malformed or empty value.
func ParseSeconds(payload string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return fallback
	}
	return v
}
