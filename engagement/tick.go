package engagement

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	c "github.com/relloyd/engagement/constants"
)

// tickLayouts are tried in order when parsing the date argument.
// Scheduler output uses RFC 3339; the rest cover values typed by hand.
var tickLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	c.TimeFormatYearSecondsTZ,
	c.TimeFormatYearSeconds,
}

// Tick is the logical timestamp of one run.
type Tick struct {
	Raw  string
	Time time.Time
}

// ParseTick parses the logical timestamp supplied on the command line.
// Values without a zone are read as UTC.
func ParseTick(s string) (Tick, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Tick{}, errors.New("missing date argument")
	}
	for _, layout := range tickLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return Tick{Raw: s, Time: t}, nil
		}
	}
	return Tick{}, errors.Errorf("unable to parse %q as a timestamp", s)
}

// HourBucket returns the start of the wall-clock hour containing the tick.
// The zone offset is kept on the value but plays no part in the truncation,
// which matches casting the argument to a timestamp without time zone.
func (t Tick) HourBucket() time.Time {
	return time.Date(t.Time.Year(), t.Time.Month(), t.Time.Day(), t.Time.Hour(), 0, 0, 0, t.Time.Location())
}

// WarehouseValue is the tick's wall-clock time formatted for binding to a TIMESTAMP_NTZ.
func (t Tick) WarehouseValue() string {
	return t.Time.Format(c.TimeFormatWarehouseNTZ)
}

func (t Tick) String() string {
	return t.Time.Format(time.RFC3339Nano)
}
