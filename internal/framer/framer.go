// Package framer splits an inbound byte stream into NMEA text lines and
// u-blox binary frames, tolerating partial reads and frames interleaved
// between lines with no separator. Grounded on the buffering/rescan loop
// the donor project's top708.MonitorNMEA runs over its serial read
// buffer, generalized to also recognize u-blox sync bytes.
package framer

import (
	"bytes"

	"github.com/bramburn/nmeamqtt/internal/ubx"
)

// Unit is one framed unit handed to the caller: either a text Line or a
// binary u-blox Frame, never both.
type Unit struct {
	Line  string
	Frame *ubx.Frame
}

// Framer accumulates bytes and extracts complete units on each Feed call.
type Framer struct {
	buf []byte
}

// New returns an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Feed appends chunk to the internal buffer and extracts every complete
// unit now available, invoking emit for each one in order. emit also
// receives a non-nil err for a detected-but-invalid u-blox checksum; the
// frame is still skipped so the stream resynchronizes, matching spec.
func (f *Framer) Feed(chunk []byte, emit func(Unit, error)) {
	f.buf = append(f.buf, chunk...)

	for {
		if len(f.buf) >= 2 && f.buf[0] == ubx.Sync1 && f.buf[1] == ubx.Sync2 {
			if len(f.buf) < ubx.HeaderLen {
				return
			}
			total := ubx.FrameLen(f.buf)
			if len(f.buf) < total {
				return
			}
			frame, err := ubx.Decode(f.buf[:total])
			f.buf = f.buf[total:]
			if err != nil {
				emit(Unit{}, err)
				continue
			}
			emit(Unit{Frame: &frame}, nil)
			continue
		}

		nl := bytes.IndexByte(f.buf, '\n')
		if nl < 0 {
			return
		}
		end := nl
		if end > 0 && f.buf[end-1] == '\r' {
			end--
		}
		line := string(f.buf[:end])
		f.buf = f.buf[nl+1:]
		emit(Unit{Line: line}, nil)
	}
}
