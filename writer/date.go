package writer

import (
	"fmt"
	"time"
)

// FormatDate formats t as a PDF date string, D:YYYYMMDDHHmmSS followed by
// the offset from UTC.
func FormatDate(t time.Time) string {
	s := "D:" + t.Format("20060102150405")
	_, offset := t.Zone()
	if offset == 0 {
		return s + "Z"
	}
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return s + fmt.Sprintf("%c%02d'%02d'", sign, offset/3600, offset%3600/60)
}
