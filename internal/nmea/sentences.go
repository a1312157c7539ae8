package nmea

// QualityTable maps a GGA fix-quality index, or a GNS per-character mode
// index, to its published enum string. Index out of range yields "".
var QualityTable = []string{
	"none", "gps", "dgps", "pps", "rtk", "float-rtk", "estimated",
	"manual input", "simulation",
}

// ModeTable maps a GSA fix-mode index (1=no fix, 2=2D, 3=3D) to its
// published enum string.
var ModeTable = []string{"", "no fix", "2D", "3D"}

// FromTable returns table[idx], or "" if idx is out of range.
func FromTable(table []string, idx int) string {
	if idx < 0 || idx >= len(table) {
		return ""
	}
	return table[idx]
}

// GNSModeChars is the fixed character set a GNS mode-indicator field draws
// from; a character's position in this string is its QualityTable index.
const GNSModeChars = "NADPRFEMS"

// GNSTalkers is the fixed talker order that GNS mode characters
// correspond to, one character per talker, left to right.
var GNSTalkers = []string{"gp", "gl", "gb", "ga"}

// GNSModeIndex returns the QualityTable index for a single GNS mode
// character (case-insensitive). An unrecognized character maps to 0
// ("none"), per spec.
func GNSModeIndex(ch byte) int {
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
	}
	for i := 0; i < len(GNSModeChars); i++ {
		if GNSModeChars[i] == ch {
			return i
		}
	}
	return 0
}

// TXTLevel maps a TXT sentence's severity index to a logrus-compatible
// level name; "" marks an index that must be suppressed entirely.
func TXTLevel(severity int) string {
	switch severity {
	case 0:
		return "error"
	case 1:
		return "warning"
	case 2:
		return "notice"
	case 7:
		return "info"
	default:
		return ""
	}
}

// GSVSat is one satellite tuple read from a GSV sentence.
type GSVSat struct {
	PRN int
	Elv int
	Azm int
	SNR int // -1 means "no signal"
}

// GSVBlock is one GSV packet: part msgidx of msgcnt packets making up a
// talker's satellites-in-view block.
type GSVBlock struct {
	MsgCount int
	MsgIndex int
	SatsView int
	Sats     []GSVSat
}

// ParseGSV reads a GSV packet's fields from cur. Up to 4 satellite
// tuples are read; iteration stops at the first tuple whose PRN field
// is empty, which is legal (spec §8 boundary behavior).
func ParseGSV(cur *Cursor) GSVBlock {
	b := GSVBlock{
		MsgCount: cur.ToInt(),
		MsgIndex: cur.ToInt(),
		SatsView: cur.ToInt(),
	}
	for i := 0; i < 4; i++ {
		prnTok := cur.Next()
		if prnTok == "" {
			break
		}
		elv := ToInt(cur.Next())
		azm := ToInt(cur.Next())
		snrTok := cur.Next()
		snr := -1
		if snrTok != "" {
			snr = ToInt(snrTok)
		}
		b.Sats = append(b.Sats, GSVSat{
			PRN: ToInt(prnTok),
			Elv: elv,
			Azm: azm,
			SNR: snr,
		})
	}
	return b
}

// ToInt is a Cursor convenience for Cursor.Next() followed by ToInt.
func (c *Cursor) ToInt() int {
	return ToInt(c.Next())
}

// ToDouble is a Cursor convenience for Cursor.Next() followed by ToDouble.
func (c *Cursor) ToDouble() float64 {
	return ToDouble(c.Next())
}

// Deg is a Cursor convenience for Cursor.Next() followed by Deg.
func (c *Cursor) Deg() float64 {
	return Deg(c.Next())
}
