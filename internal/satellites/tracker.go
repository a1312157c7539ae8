// Package satellites implements the per-talker GSV satellite tracker:
// per-PRN elevation/azimuth/SNR state, the GSV block protocol (reset on
// msgidx==1, terminator publish on msgidx==msgcnt), and the aggregated
// "gn/*" totals across talkers. Grounded on the donor's stateful device
// handling style (hardware/topgnss/top708), generalized to the sparse,
// map-keyed record set the spec calls for instead of the C source's
// manually-grown dense array.
package satellites

import (
	"fmt"
	"time"

	"github.com/bramburn/nmeamqtt/internal/config"
	"github.com/bramburn/nmeamqtt/internal/nmea"
	"github.com/bramburn/nmeamqtt/internal/pub"
)

const gsvFlags = pub.Retain | pub.NoCache | pub.IgnoreDefaultTalker

// Record is one tracked satellite's last-known state.
type Record struct {
	SNR            int
	Elv            int
	Azm            int
	RecvdThisBlock bool
	Published      bool
}

// TalkerState is one talker's GSV aggregate.
type TalkerState struct {
	Talker        string
	SatMin        int
	SatMax        int
	SatView       int
	SatTrack      int
	SatTrackSaved int
	SatUse        int
	TRecvd        time.Time
	New           bool
	Sats          map[int]*Record
}

// Tracker owns every talker's GSV state.
type Tracker struct {
	talkers      map[string]*TalkerState
	gnSatUseSeen bool // one-way latch: the receiver itself emits "gn" satuse
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{talkers: make(map[string]*TalkerState)}
}

func (t *Tracker) find(talker string) *TalkerState {
	ts, ok := t.talkers[talker]
	if !ok {
		ts = &TalkerState{Talker: talker, New: true, Sats: make(map[int]*Record)}
		t.talkers[talker] = ts
	}
	return ts
}

func satTopic(prn int, field string) string {
	return fmt.Sprintf("sat/%d/%s", prn, field)
}

// HandleGSV applies one GSV packet to talker's block state.
func (t *Tracker) HandleGSV(p pub.Publisher, cfg *config.Config, talker string, block nmea.GSVBlock) {
	ts := t.find(talker)
	ts.TRecvd = time.Now()

	if block.MsgIndex == 1 {
		for prn := ts.SatMin; prn <= ts.SatMax; prn++ {
			if rec, ok := ts.Sats[prn]; ok {
				rec.RecvdThisBlock = false
			}
		}
		ts.SatTrack = 0
	}

	for _, s := range block.Sats {
		rec, ok := ts.Sats[s.PRN]
		if !ok {
			rec = &Record{}
			ts.Sats[s.PRN] = rec
		}

		if cfg.Always || !rec.Published || s.Elv != rec.Elv {
			p.Publish(talker, satTopic(s.PRN, "elv"), gsvFlags, fmt.Sprintf("%d", s.Elv))
		}
		if cfg.Always || !rec.Published || s.Azm != rec.Azm {
			p.Publish(talker, satTopic(s.PRN, "azm"), gsvFlags, fmt.Sprintf("%d", s.Azm))
		}
		if cfg.Always || !rec.Published || s.SNR != rec.SNR {
			value := ""
			if s.SNR >= 0 {
				value = fmt.Sprintf("%d", s.SNR)
			}
			p.Publish(talker, satTopic(s.PRN, "snr"), gsvFlags, value)
		}

		rec.Elv, rec.Azm, rec.SNR = s.Elv, s.Azm, s.SNR
		rec.RecvdThisBlock = true
		rec.Published = true

		if s.SNR >= 0 {
			ts.SatTrack++
		}

		if s.PRN < ts.SatMin || ts.SatMax == 0 {
			ts.SatMin = s.PRN
		}
		if s.PRN > ts.SatMax {
			ts.SatMax = s.PRN
		}
	}

	if block.MsgIndex != block.MsgCount {
		return
	}

	// end of block: drop satellites in [SatMin, SatMax) the receiver
	// stopped reporting
	for prn := ts.SatMin; prn < ts.SatMax; prn++ {
		if rec, ok := ts.Sats[prn]; ok && rec.Published && !rec.RecvdThisBlock {
			t.clearSat(p, talker, prn, rec)
		}
	}

	if cfg.Always || ts.New || block.SatsView != ts.SatView {
		// not cached: serves as the block terminator for consumers
		p.Publish(talker, "satview", pub.IgnoreDefaultTalker, fmt.Sprintf("%d", block.SatsView))
	}
	ts.SatView = block.SatsView

	if cfg.Always || ts.New || ts.SatTrack != ts.SatTrackSaved {
		p.Publish(talker, "sattrack", pub.IgnoreDefaultTalker, fmt.Sprintf("%d", ts.SatTrack))
	}
	ts.SatTrackSaved = ts.SatTrack
	ts.New = false

	satview, sattrack := 0, 0
	for _, other := range t.talkers {
		satview += other.SatView
		sattrack += other.SatTrackSaved
	}
	p.Publish("gn", "satview", pub.Retain|pub.IgnoreDefaultTalker, fmt.Sprintf("%d", satview))
	p.Publish("gn", "sattrack", pub.Retain|pub.IgnoreDefaultTalker, fmt.Sprintf("%d", sattrack))
}

// clearSat publishes retained deletes for a satellite's triple and
// forgets its state.
func (t *Tracker) clearSat(p pub.Publisher, talker string, prn int, rec *Record) {
	p.Publish(talker, satTopic(prn, "elv"), gsvFlags, "")
	p.Publish(talker, satTopic(prn, "azm"), gsvFlags, "")
	p.Publish(talker, satTopic(prn, "snr"), gsvFlags, "")
	*rec = Record{}
}

// SatUseUpdated applies a satuse reading observed on a GGA/GNS sentence.
// A talker of "gn" latches off further aggregation (the receiver itself
// reports the multi-GNSS total, so this package must stop computing it).
func (t *Tracker) SatUseUpdated(p pub.Publisher, cfg *config.Config, talker string, satUse int) {
	if talker == "gn" {
		t.gnSatUseSeen = true
		return
	}
	if t.gnSatUseSeen {
		return
	}

	ts := t.find(talker)
	if !cfg.Always && ts.SatUse == satUse {
		return
	}
	ts.SatUse = satUse

	total := 0
	for _, other := range t.talkers {
		total += other.SatUse
	}
	p.Publish("gn", "satuse", pub.Retain|pub.IgnoreDefaultTalker, fmt.Sprintf("%d", total))
}

// ClearGSVs tears down all tracked state, emptying every retained
// satellite and per-talker satview/sattrack topic. Called on shutdown
// and when GSV is disabled at runtime.
func (t *Tracker) ClearGSVs(p pub.Publisher) {
	for talker, ts := range t.talkers {
		for prn := ts.SatMin; prn <= ts.SatMax; prn++ {
			if rec, ok := ts.Sats[prn]; ok && rec.Published {
				t.clearSat(p, talker, prn, rec)
			}
		}
		p.Publish(talker, "satview", gsvFlags, "")
		p.Publish(talker, "sattrack", gsvFlags, "")
	}
	t.talkers = make(map[string]*TalkerState)
}
