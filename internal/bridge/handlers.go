package bridge

import (
	"fmt"
	"time"

	"github.com/bramburn/nmeamqtt/internal/config"
	"github.com/bramburn/nmeamqtt/internal/nmea"
	"github.com/bramburn/nmeamqtt/internal/pub"
	"github.com/bramburn/nmeamqtt/internal/satellites"
	"github.com/sirupsen/logrus"
)

const plainRetain = pub.Retain

// Handlers holds the dependencies every sentence handler needs: the
// live configuration (for feature gating like GSA-owns-hdop), the
// satellite tracker, and a logger for TXT sentences.
type Handlers struct {
	Cfg    *config.Config
	Sat    *satellites.Tracker
	Log    logrus.FieldLogger
	Source string // input source path, used only in TXT log lines
}

// Dispatch routes one parsed sentence to its handler, honoring
// cfg.Enabled gating. p is only mutated by this call (single-actor
// invariant); talker/code come from the checksum-verified sentence.
func (h *Handlers) Dispatch(p pub.Publisher, s *nmea.Sentence) {
	if s.Code == "TXT" {
		h.handleTXT(s.Talker, s.Cursor)
		return
	}
	if !h.Cfg.Enabled(s.Code) {
		return
	}
	switch s.Code {
	case "GGA", "GNS":
		h.handleGGAGNS(p, s.Talker, s.Code, s.Cursor)
	case "GSA":
		h.handleGSA(p, s.Talker, s.Cursor)
	case "GSV":
		block := nmea.ParseGSV(s.Cursor)
		h.Sat.HandleGSV(p, h.Cfg, s.Talker, block)
	case "VTG":
		h.handleVTG(p, s.Talker, s.Cursor)
	case "ZDA":
		h.handleZDA(p, s.Talker, s.Cursor)
	}
}

func (h *Handlers) handleGGAGNS(p pub.Publisher, talker, code string, cur *nmea.Cursor) {
	cur.Skip(1) // UTC within day

	lat := nmea.Deg(cur.Next())
	if hemi := cur.Next(); hemi == "S" {
		lat = -lat
	}
	p.Publish(talker, "lat", plainRetain, nmea.FormatValue("%.7f", lat))

	lon := nmea.Deg(cur.Next())
	if hemi := cur.Next(); hemi == "W" {
		lon = -lon
	}
	p.Publish(talker, "lon", plainRetain, nmea.FormatValue("%.7f", lon))

	if code == "GGA" {
		quality := nmea.ToInt(cur.Next())
		p.Publish(talker, "quality", plainRetain, nmea.FromTable(nmea.QualityTable, quality))
	} else {
		modes := cur.Next()
		for i := 0; i < len(nmea.GNSTalkers) && i < len(modes); i++ {
			idx := nmea.GNSModeIndex(modes[i])
			p.Publish(nmea.GNSTalkers[i], "mode", plainRetain, nmea.FromTable(nmea.QualityTable, idx))
		}
	}

	satUse := cur.ToInt()
	p.Publish(talker, "satuse", pub.Retain|pub.IgnoreDefaultTalker, fmt.Sprintf("%d", satUse))
	h.Sat.SatUseUpdated(p, h.Cfg, talker, satUse)

	hdop := cur.ToDouble()
	if !h.Cfg.Enabled("GSA") {
		p.Publish(talker, "hdop", plainRetain, nmea.FormatValue("%.1f", hdop))
	}

	p.Publish(talker, "alt", plainRetain, nmea.FormatValue("%.1f", cur.ToDouble()))
	cur.Skip(1) // altitude unit
	p.Publish(talker, "geoid", plainRetain, nmea.FormatValue("%.1f", cur.ToDouble()))
	if code == "GGA" {
		cur.Skip(1) // geoid unit
	}
	p.Publish(talker, "diff/age", plainRetain, cur.Next())
	p.Publish(talker, "diff/id", plainRetain, cur.Next())
}

func (h *Handlers) handleGSA(p pub.Publisher, talker string, cur *nmea.Cursor) {
	cur.Skip(1) // selection mode
	mode := cur.ToInt()
	cur.Skip(12) // satellite ID slots

	pdop := cur.ToDouble()
	hdop := cur.ToDouble()
	vdop := cur.ToDouble()

	pktTok := cur.Next()
	pkt := 1
	if pktTok != "" {
		pkt = nmea.ToInt(pktTok)
	}
	if pkt != 1 {
		return
	}
	p.Publish(talker, "mode", plainRetain, nmea.FromTable(nmea.ModeTable, mode))
	p.Publish(talker, "pdop", plainRetain, nmea.FormatValue("%.1f", pdop))
	p.Publish(talker, "hdop", plainRetain, nmea.FormatValue("%.1f", hdop))
	p.Publish(talker, "vdop", plainRetain, nmea.FormatValue("%.1f", vdop))
}

func (h *Handlers) handleVTG(p pub.Publisher, talker string, cur *nmea.Cursor) {
	p.Publish(talker, "heading", plainRetain, nmea.FormatValue("%.2f", cur.ToDouble()))
	cur.Skip(1)
	p.Publish(talker, "heading/magnetic", plainRetain, nmea.FormatValue("%.2f", cur.ToDouble()))
	cur.Skip(3)
	p.Publish(talker, "speed", plainRetain, nmea.FormatValue("%.2f", cur.ToDouble()))
}

func (h *Handlers) handleZDA(p pub.Publisher, talker string, cur *nmea.Cursor) {
	hhmmss := nmea.ToInt(cur.Next())
	day := nmea.ToInt(cur.Next())
	month := nmea.ToInt(cur.Next())
	year := nmea.ToInt(cur.Next())

	sec := hhmmss % 100
	hhmmss /= 100
	min := hhmmss % 100
	hour := hhmmss / 100

	when := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
	p.Publish(talker, "utc", plainRetain, fmt.Sprintf("%d", when.Unix()))
	p.Publish(talker, "datetime", plainRetain, when.Local().Format("Mon 02 Jan 2006 15:04:05"))
}

func (h *Handlers) handleTXT(talker string, cur *nmea.Cursor) {
	cur.Skip(2)
	severity := nmea.ToInt(cur.Next())
	msg := cur.Next()

	level := nmea.TXTLevel(severity)
	if level == "" || msg == "" {
		return
	}
	entry := h.Log.WithField("talker", talker)
	text := fmt.Sprintf("%s %s%sTXT '%s'", h.Source, upper(talker[:1]), upper(talker[1:2]), msg)
	switch level {
	case "error":
		entry.Error(text)
	case "warning":
		entry.Warn(text)
	case "notice":
		entry.Warn(text)
	case "info":
		entry.Info(text)
	}
}

func upper(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
