// Package timefmt renders durations with the strftime-style layouts accepted
// by the config file's time_format field.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Format renders d using a strftime-style layout limited to %H (hours),
// %M (minutes of the hour), %S (seconds of the minute) and %% for a literal
// percent sign. Unknown directives pass through unchanged.
func Format(d time.Duration, layout string) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var b strings.Builder
	for i := 0; i < len(layout); i++ {
		if layout[i] != '%' || i+1 >= len(layout) {
			b.WriteByte(layout[i])
			continue
		}
		i++
		switch layout[i] {
		case 'H':
			fmt.Fprintf(&b, "%02d", hours)
		case 'M':
			fmt.Fprintf(&b, "%02d", minutes)
		case 'S':
			fmt.Fprintf(&b, "%02d", seconds)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}
	return b.String()
}
