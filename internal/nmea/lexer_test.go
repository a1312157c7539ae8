package nmea

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidSentence(t *testing.T) {
	sent, err := Parse("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, "gp", sent.Talker)
	assert.Equal(t, "GGA", sent.Code)
	assert.Equal(t, "123519", sent.Cursor.Next())
}

func TestParseEmptyLineIsIgnored(t *testing.T) {
	sent, err := Parse("")
	assert.NoError(t, err)
	assert.Nil(t, sent)
}

func TestParseMissingDollar(t *testing.T) {
	_, err := Parse("GPGGA,1*00")
	assert.Error(t, err)
}

func TestParseBadChecksum(t *testing.T) {
	_, err := Parse("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00")
	require.Error(t, err)
	var ce *ChecksumError
	assert.ErrorAs(t, err, &ce)
}

func TestCursorExhaustion(t *testing.T) {
	cur := NewCursor("a,b,")
	assert.Equal(t, "a", cur.Next())
	assert.Equal(t, "b", cur.Next())
	assert.Equal(t, "", cur.Next())
	assert.Equal(t, "", cur.Next())
}

func TestToDoubleEmptyIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(ToDouble("")))
	assert.Equal(t, 545.4, ToDouble("545.4"))
}

func TestDegConversion(t *testing.T) {
	// 4807.038 -> 48 + 07.038/60
	got := Deg("4807.038")
	want := 48 + 7.038/60
	assert.InDelta(t, want, got, 1e-9)
}

func TestDegNoDecimalPoint(t *testing.T) {
	// no decimal point: whole minutes, no fractional minutes
	got := Deg("4807")
	want := 48 + 7.0/60
	assert.InDelta(t, want, got, 1e-9)
}

func TestDegEmptyIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(Deg("")))
}

func TestFormatValueNaNBecomesEmpty(t *testing.T) {
	assert.Equal(t, "", FormatValue("%.1f", math.NaN()))
	assert.Equal(t, "545.4", FormatValue("%.1f", 545.4))
}

func TestToIntDefaultsToZero(t *testing.T) {
	assert.Equal(t, 0, ToInt(""))
	assert.Equal(t, 0, ToInt("garbage"))
	assert.Equal(t, 8, ToInt("08"))
}
