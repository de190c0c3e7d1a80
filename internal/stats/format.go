package stats

import (
	"fmt"
	"math"
)

const (
	metersPerKm = 1000.0
	mpsToKmh    = 3.6
)

// FormatPace renders a speed as minutes and seconds per kilometer.
// Zero or missing speed yields the "-" sentinel; the division below
// only runs for positive speeds.
func FormatPace(metersPerSecond float64) string {
	if metersPerSecond <= 0 {
		return "-"
	}
	paceSeconds := metersPerKm / metersPerSecond
	mins := int(paceSeconds) / 60
	secs := int(paceSeconds) % 60
	return fmt.Sprintf("%d:%02d/km", mins, secs)
}

// FormatDistance formats kilometers with two decimals, e.g. "5.23km".
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.2fkm", km)
}

// FormatDuration formats whole minutes as "1h15m" from one hour up,
// "45min" below.
func FormatDuration(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh%dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dmin", minutes)
}

// FormatSpeed formats km/h with one decimal, e.g. "12.3km/h".
func FormatSpeed(kmh float64) string {
	return fmt.Sprintf("%.1fkm/h", kmh)
}

// FormatElevation formats whole meters, e.g. "214m".
func FormatElevation(meters int) string {
	return fmt.Sprintf("%dm", meters)
}

// FormatHeartrate formats rounded bpm, or blank when absent.
func FormatHeartrate(bpm *float64) string {
	if bpm == nil {
		return ""
	}
	return fmt.Sprintf("%d bpm", int(math.Round(*bpm)))
}
