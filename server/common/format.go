package common

import (
	"fmt"
	"time"
)

// FormatBytes renders a byte count as a human readable size (two decimals).
func FormatBytes(bytes uint64) string {
	if bytes == 0 {
		return "0 B"
	}
	suffixes := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	i := 0
	d := float64(bytes)
	for d >= 1024 && i < len(suffixes)-1 {
		d /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", d, suffixes[i])
}

// FormatDuration renders a duration the way the wire-level debug suffix and
// the stress report expect it: µs below 1ms, ms below 1s, then s/m/h.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 0.001:
		return fmt.Sprintf("%.2fµs", seconds*1e6)
	case seconds < 1.0:
		return fmt.Sprintf("%.2fms", seconds*1e3)
	case seconds < 60.0:
		return fmt.Sprintf("%.3fs", seconds)
	case seconds < 3600.0:
		return fmt.Sprintf("%dm %.2fs", int(seconds)/60, mod(seconds, 60))
	default:
		return fmt.Sprintf("%dh %dm %.2fs", int(seconds)/3600, int(mod(seconds, 3600))/60, mod(seconds, 60))
	}
}

func mod(a, b float64) float64 {
	return a - b*float64(int(a/b))
}
