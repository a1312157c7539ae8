package satellites

import (
	"testing"

	"github.com/bramburn/nmeamqtt/internal/config"
	"github.com/bramburn/nmeamqtt/internal/nmea"
	"github.com/bramburn/nmeamqtt/internal/pub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	talker string
	topic  string
	flags  pub.Flags
	value  string
}

type recordingPublisher struct {
	calls []call
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{}
}

func (r *recordingPublisher) Publish(talker, topic string, flags pub.Flags, value string) {
	r.calls = append(r.calls, call{talker, topic, flags, value})
}

func (r *recordingPublisher) reset() {
	r.calls = nil
}

func (r *recordingPublisher) topics() []string {
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.topic)
	}
	return out
}

// valueOf returns the last published value for topic under the default
// "gp" talker used by most of these tests.
func (r *recordingPublisher) valueOf(topic string) string {
	return r.valueOfTalker("gp", topic)
}

func (r *recordingPublisher) valueOfTalker(talker, topic string) string {
	val, found := "", false
	for _, c := range r.calls {
		if c.talker == talker && c.topic == topic {
			val, found = c.value, true
		}
	}
	if !found {
		return "<missing>"
	}
	return val
}

func newBlock(msgcnt, msgidx, satsview int, sats ...nmea.GSVSat) nmea.GSVBlock {
	return nmea.GSVBlock{MsgCount: msgcnt, MsgIndex: msgidx, SatsView: satsview, Sats: sats}
}

func TestHandleGSVTwoPacketBlockPublishesAllSatellites(t *testing.T) {
	tr := New()
	cfg := config.New()
	rec := newRecordingPublisher()

	tr.HandleGSV(rec, cfg, "gp", newBlock(2, 1, 6,
		nmea.GSVSat{PRN: 1, Elv: 10, Azm: 20, SNR: 30},
		nmea.GSVSat{PRN: 2, Elv: 11, Azm: 21, SNR: 31},
		nmea.GSVSat{PRN: 3, Elv: 12, Azm: 22, SNR: 32},
		nmea.GSVSat{PRN: 4, Elv: 13, Azm: 23, SNR: 33},
	))
	tr.HandleGSV(rec, cfg, "gp", newBlock(2, 2, 6,
		nmea.GSVSat{PRN: 5, Elv: 14, Azm: 24, SNR: -1},
		nmea.GSVSat{PRN: 6, Elv: 15, Azm: 25, SNR: 35},
	))

	require.Contains(t, rec.topics(), "sat/1/elv")
	require.Contains(t, rec.topics(), "sat/6/snr")
	assert.Equal(t, "", rec.valueOf("sat/5/snr")) // no-signal publishes empty string

	assert.Contains(t, rec.topics(), "satview")
	assert.Equal(t, "6", rec.valueOf("satview"))
	assert.Contains(t, rec.topics(), "sattrack")
	assert.Equal(t, "5", rec.valueOf("sattrack")) // 6 sats, one with snr==-1

	assert.Equal(t, "6", rec.valueOfTalker("gn", "satview"))
	assert.Equal(t, "5", rec.valueOfTalker("gn", "sattrack"))
}

func TestHandleGSVClearsLostSatelliteAtEndOfBlock(t *testing.T) {
	tr := New()
	cfg := config.New()
	rec := newRecordingPublisher()

	tr.HandleGSV(rec, cfg, "gp", newBlock(1, 1, 2,
		nmea.GSVSat{PRN: 1, Elv: 10, Azm: 20, SNR: 30},
		nmea.GSVSat{PRN: 2, Elv: 11, Azm: 21, SNR: 31},
	))
	rec.reset()

	// PRN 1 drops out of view; PRN 2 repeats.
	tr.HandleGSV(rec, cfg, "gp", newBlock(1, 1, 1,
		nmea.GSVSat{PRN: 2, Elv: 11, Azm: 21, SNR: 31},
	))

	assert.Equal(t, "", rec.valueOf("sat/1/elv"))
	assert.Equal(t, "", rec.valueOf("sat/1/azm"))
	assert.Equal(t, "", rec.valueOf("sat/1/snr"))
	assert.Equal(t, "1", rec.valueOf("satview"))
}

func TestHandleGSVMsgCountZeroDoesNotUnderflow(t *testing.T) {
	tr := New()
	cfg := config.New()
	rec := newRecordingPublisher()

	assert.NotPanics(t, func() {
		tr.HandleGSV(rec, cfg, "gp", newBlock(0, 0, 0))
	})
}

func TestSatUseUpdatedAggregatesAcrossTalkers(t *testing.T) {
	tr := New()
	cfg := config.New()
	rec := newRecordingPublisher()

	tr.SatUseUpdated(rec, cfg, "gp", 8)
	assert.Equal(t, "8", rec.valueOfTalker("gn", "satuse"))

	rec.reset()
	tr.SatUseUpdated(rec, cfg, "gl", 5)
	assert.Equal(t, "13", rec.valueOfTalker("gn", "satuse"))
}

func TestSatUseUpdatedGNLatchSuppressesAggregation(t *testing.T) {
	tr := New()
	cfg := config.New()
	rec := newRecordingPublisher()

	tr.SatUseUpdated(rec, cfg, "gn", 14)
	rec.reset()

	tr.SatUseUpdated(rec, cfg, "gp", 9)
	assert.Empty(t, rec.calls)
}

func TestClearGSVsEmptiesEverything(t *testing.T) {
	tr := New()
	cfg := config.New()
	rec := newRecordingPublisher()

	tr.HandleGSV(rec, cfg, "gp", newBlock(1, 1, 1, nmea.GSVSat{PRN: 1, Elv: 10, Azm: 20, SNR: 30}))
	rec.reset()

	tr.ClearGSVs(rec)

	assert.Equal(t, "", rec.valueOf("sat/1/elv"))
	assert.Equal(t, "", rec.valueOf("satview"))
	assert.Equal(t, "", rec.valueOf("sattrack"))
}
