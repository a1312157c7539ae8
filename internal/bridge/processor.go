package bridge

import (
	"fmt"
	"time"

	"github.com/bramburn/nmeamqtt/internal/config"
	"github.com/bramburn/nmeamqtt/internal/framer"
	"github.com/bramburn/nmeamqtt/internal/liveness"
	"github.com/bramburn/nmeamqtt/internal/mqttclient"
	"github.com/bramburn/nmeamqtt/internal/nmea"
	"github.com/bramburn/nmeamqtt/internal/pub"
	"github.com/bramburn/nmeamqtt/internal/retained"
	"github.com/bramburn/nmeamqtt/internal/satellites"
	"github.com/sirupsen/logrus"
)

// Processor is the composite single-threaded actor: it owns the
// retained cache, satellite tracker, configuration, and liveness state,
// and is the only thing that mutates them. Every exported method here
// is meant to be called from one goroutine (see cmd/nmeamqtt's select
// loop); nothing in this package synchronizes concurrent access.
type Processor struct {
	cfg      *config.Config
	cache    *retained.Cache
	sat      *satellites.Tracker
	live     *liveness.Monitor
	resolver *Resolver
	handlers *Handlers
	fr       *framer.Framer
	log      logrus.FieldLogger
}

// NewProcessor wires a Processor around an already-connected MQTT
// client and a live configuration.
func NewProcessor(cfg *config.Config, mqtt mqttclient.Client, qos byte, log logrus.FieldLogger) *Processor {
	cache := retained.New()
	sat := satellites.New()
	live := liveness.New(time.Duration(cfg.DeadDelay) * time.Second)
	resolver := NewResolver(cfg, cache, mqtt, qos, log)
	return &Processor{
		cfg:      cfg,
		cache:    cache,
		sat:      sat,
		live:     live,
		resolver: resolver,
		handlers: &Handlers{Cfg: cfg, Sat: sat, Log: log},
		fr:       framer.New(),
		log:      log,
	}
}

// Resolver exposes the Processor's pub.Publisher, e.g. so main can wire
// Resolver.OnPublishError to a fatal-exit helper.
func (p *Processor) Resolver() *Resolver { return p.resolver }

// Liveness exposes the Processor's liveness.Monitor, so the caller can
// read Deadline() to arm its own timer.
func (p *Processor) Liveness() *liveness.Monitor { return p.live }

// Start publishes the control "src" topic announcing the input source.
func (p *Processor) Start(source string) {
	p.handlers.Source = source
	p.resolver.Publish("", "src", pub.Retain, source)
	p.resolver.Flush()
}

// HandleInput feeds a chunk of raw input bytes through the framer,
// dispatching each complete NMEA line or u-blox frame as it completes.
// An empty chunk (EOF marker from the caller) is a no-op; it does not
// count as "successful read" for liveness purposes.
func (p *Processor) HandleInput(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	p.touchAlive()
	p.fr.Feed(chunk, func(u framer.Unit, err error) {
		if err != nil {
			p.log.WithError(err).Warn("ublox frame checksum mismatch")
			return
		}
		if u.Frame != nil {
			p.log.WithFields(logrus.Fields{
				"class":  fmt.Sprintf("%02x", u.Frame.Class),
				"id":     fmt.Sprintf("%02x", u.Frame.ID),
				"length": len(u.Frame.Payload),
			}).Info("ublox frame")
			return
		}
		p.handleLine(u.Line)
	})
}

func (p *Processor) handleLine(line string) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		p.log.WithError(err).Warn("dropping invalid nmea sentence")
		return
	}
	if sentence == nil {
		return
	}
	p.resolver.BeginSentence()
	p.handlers.Dispatch(p.resolver, sentence)
	p.resolver.EndSentence()
	p.resolver.Flush()
}

func (p *Processor) touchAlive() {
	if p.live.Touch() {
		p.resolver.Publish("", "alive", pub.Retain, "1")
		p.resolver.Flush()
	}
}

// HandleDeadlineExpired applies an expired liveness deadline: the first
// expiry after being alive (or at startup) marks the port dead,
// publishes alive=0, and clears every non-control retained topic.
func (p *Processor) HandleDeadlineExpired() {
	if p.live.CheckExpired() {
		p.resolver.Publish("", "alive", pub.Retain, "0")
		p.resolver.Erase(false)
	}
}

// cfgPrefix is the relative (prefix-stripped) topic namespace the
// config listener subscribes under.
const cfgPrefix = "cfg/"

// HandleControlMessage applies one inbound MQTT message whose topic
// matched "<prefix>cfg/#". subtopic is the portion after "cfg/", e.g.
// "msgs", "always", "deadtime", "default".
func (p *Processor) HandleControlMessage(subtopic, payload string) {
	switch subtopic {
	case "msgs":
		if payload == "" {
			return
		}
		wasGSV := p.cfg.Enabled("GSV")
		p.cfg.MergeMsgs(payload)
		p.log.WithField("nmea_use", p.cfg.String()).Info("nmea msgs changed")
		if wasGSV && !p.cfg.Enabled("GSV") {
			p.sat.ClearGSVs(p.resolver)
		}
	case "always":
		p.cfg.Always = config.ParseBool(payload)
		p.log.WithField("always", p.cfg.Always).Info("always changed")
	case "deadtime":
		secs := config.ParseSeconds(payload, p.cfg.DeadDelay)
		p.cfg.DeadDelay = secs
		p.live.SetDeadAfter(time.Duration(secs) * time.Second)
		p.log.WithField("deadtime", secs).Info("deadtime changed")
	case "default":
		p.cfg.DefOverride = payload
		p.log.WithField("def_talker", p.cfg.EffectiveDefTalker()).Info("default talker changed")
	}
}

// Shutdown clears every retained topic, including control topics, and
// tears down satellite state. The caller is still responsible for
// running the self-sync handshake and disconnecting afterward.
func (p *Processor) Shutdown() {
	p.resolver.Erase(true)
	p.sat.ClearGSVs(p.resolver)
}
