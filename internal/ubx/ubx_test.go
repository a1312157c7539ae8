package ubx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(class, id byte, payload []byte) []byte {
	buf := []byte{Sync1, Sync2, class, id, byte(len(payload)), byte(len(payload) >> 8)}
	buf = append(buf, payload...)
	a, b := fletcher8(buf[2:])
	return append(buf, a, b)
}

func TestFrameLenAndDecode(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	raw := buildFrame(0x01, 0x02, payload)

	require.Equal(t, len(raw), FrameLen(raw))

	frame, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), frame.Class)
	assert.Equal(t, byte(0x02), frame.ID)
	assert.Equal(t, payload, frame.Payload)
}

func TestDecodeChecksumMismatch(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	raw := buildFrame(0x01, 0x02, payload)
	raw[len(raw)-1] ^= 0xFF

	frame, err := Decode(raw)
	require.Error(t, err)
	var ce *ChecksumError
	assert.ErrorAs(t, err, &ce)
	// still decodes class/id/payload so caller can resync past the frame
	assert.Equal(t, byte(0x01), frame.Class)
}
