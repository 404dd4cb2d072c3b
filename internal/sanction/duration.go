package sanction

import (
	"fmt"
	"strings"
	"time"
)

var durationUnits = []struct {
	size        time.Duration
	short, long string
}{
	{24 * time.Hour, "d", "day"},
	{time.Hour, "h", "hour"},
	{time.Minute, "m", "minute"},
	{time.Second, "s", "second"},
}

// FormatDuration renders d as "2d 3h" or, when long, "2 days, 3 hours".
// Sub-second remainders are dropped.
func FormatDuration(d time.Duration, long bool) string {
	if d < 0 {
		d = -d
	}
	var parts []string
	for _, u := range durationUnits {
		n := d / u.size
		if n == 0 {
			continue
		}
		d -= n * u.size
		if long {
			unit := u.long
			if n != 1 {
				unit += "s"
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, unit))
		} else {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.short))
		}
	}
	if len(parts) == 0 {
		if long {
			return "0 seconds"
		}
		return "0s"
	}
	if long {
		return strings.Join(parts, ", ")
	}
	return strings.Join(parts, " ")
}
