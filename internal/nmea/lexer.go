// Package nmea validates and tokenizes NMEA-0183 sentences.
package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentence is a checksum-verified, checksum-stripped NMEA line ready for
// field-by-field consumption.
type Sentence struct {
	Talker string // two lowercase characters, e.g. "gp"
	Code   string // three uppercase characters, e.g. "GGA"
	Cursor *Cursor
}

// ChecksumError reports a line whose XOR-8 checksum does not match the
// two hex digits after '*'. A missing leading '$' or '*' is reported by
// Parse as a plain error instead.
type ChecksumError struct {
	Line string
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("nmea: bad checksum on %q: want %02X got %02X", e.Line, e.Want, e.Got)
}

// Parse validates a single NMEA line (no trailing newline) and returns a
// Sentence positioned to read the fields after the talker+code token.
// An empty line returns (nil, nil): silently ignored, per spec.
func Parse(line string) (*Sentence, error) {
	if line == "" {
		return nil, nil
	}
	if line[0] != '$' {
		return nil, fmt.Errorf("nmea: missing leading '$' in %q", line)
	}

	star := strings.IndexByte(line, '*')
	if star < 0 || star+2 >= len(line) {
		return nil, fmt.Errorf("nmea: incomplete sentence %q", line)
	}

	var sum byte
	for i := 1; i < star; i++ {
		sum ^= line[i]
	}
	want, err := strconv.ParseUint(line[star+1:star+3], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("nmea: malformed checksum in %q: %w", line, err)
	}
	if byte(want) != sum {
		return nil, &ChecksumError{Line: line, Want: byte(want), Got: sum}
	}

	body := line[1:star]
	cur := NewCursor(body)
	head := cur.Next()
	if len(head) < 5 {
		return nil, fmt.Errorf("nmea: short sentence id %q", head)
	}
	return &Sentence{
		Talker: strings.ToLower(head[:2]),
		Code:   strings.ToUpper(head[2:]),
		Cursor: cur,
	}, nil
}

// Cursor yields successive comma-separated fields from a checksum-stripped
// NMEA body, mirroring the original C implementation's nmea_tok: each call
// to Next consumes exactly one field, returning "" once fields run out.
type Cursor struct {
	rest string
	done bool
}

// NewCursor returns a Cursor over body, a comma-separated field list with
// no leading '$' and no trailing checksum.
func NewCursor(body string) *Cursor {
	return &Cursor{rest: body}
}

// Next returns the next field, or "" if the cursor is exhausted.
func (c *Cursor) Next() string {
	if c.done {
		return ""
	}
	idx := strings.IndexByte(c.rest, ',')
	if idx < 0 {
		field := c.rest
		c.rest = ""
		c.done = true
		return field
	}
	field := c.rest[:idx]
	c.rest = c.rest[idx+1:]
	return field
}

// Skip discards n fields.
func (c *Cursor) Skip(n int) {
	for i := 0; i < n; i++ {
		c.Next()
	}
}

// ToDouble parses s as an IEEE double; an empty field is NaN, matching the
// NMEA convention that an empty field means "unknown".
func ToDouble(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ToInt parses s as a base-10 integer, defaulting to 0 on empty or
// malformed input (matching the original's strtoul-on-empty-string
// behavior, which yields 0).
func ToInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return int(v)
}

// Deg parses an NMEA DDDMM.MMMM... field into decimal degrees, unsigned;
// the caller applies hemisphere sign. An empty field is NaN. Input
// lacking a decimal point is read as whole minutes (DDDMM) with no
// fractional minutes.
func Deg(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	dot := strings.IndexByte(s, '.')
	intPart := s
	fracStr := ""
	if dot >= 0 {
		intPart = s[:dot]
		fracStr = s[dot:]
	}
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return math.NaN()
	}
	frac := 0.0
	if fracStr != "" {
		frac, _ = strconv.ParseFloat("0"+fracStr, 64)
	}
	return math.Floor(float64(n)/100) + (math.Mod(float64(n), 100)+frac)/60
}

// FormatValue formats f with the given printf-style verb (e.g. "%.7f"),
// collapsing NaN to the empty string per spec NaN policy (an unknown
// field must become a retained delete, not the literal text "NaN").
func FormatValue(verb string, f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return fmt.Sprintf(verb, f)
}
