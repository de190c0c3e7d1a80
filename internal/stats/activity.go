package stats

import (
	"math"
	"time"

	"statshot/internal/strava"
)

// Activity is the display-unit view of an activity consumed by the
// overlay layout. Distances are kilometers, durations minutes, speeds
// km/h; pace strings are pre-derived so layout never touches raw speed.
type Activity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	StartLocal time.Time `json:"start_date_local"`

	DistanceKm  float64 `json:"distance_km"` // 2-decimal rounded
	MovingMin   int     `json:"moving_minutes"`
	ElapsedMin  int     `json:"elapsed_minutes"`
	AvgSpeedKmh float64 `json:"average_speed_kmh"`
	MaxSpeedKmh float64 `json:"max_speed_kmh"`
	AvgPace     string  `json:"average_pace"` // "MM:SS/km" or "-"
	MaxPace     string  `json:"max_pace"`
	ElevationM  int     `json:"elevation_m"`

	AvgHeartrate *float64 `json:"average_heartrate,omitempty"` // bpm, nil when the activity has no HR data
	MaxHeartrate *float64 `json:"max_heartrate,omitempty"`
	Calories     *float64 `json:"calories,omitempty"`
	SufferScore  *int     `json:"suffer_score,omitempty"`
}

// FromActivity converts an API activity (meters, seconds, m/s) into
// display units.
func FromActivity(a strava.Activity) Activity {
	act := Activity{
		ID:          a.ID,
		Name:        a.Name,
		Type:        a.Type,
		StartLocal:  a.StartDateLocal,
		DistanceKm:  math.Round(a.Distance/metersPerKm*100) / 100,
		MovingMin:   int(math.Round(float64(a.MovingTime) / 60)),
		ElapsedMin:  int(math.Round(float64(a.ElapsedTime) / 60)),
		AvgSpeedKmh: a.AverageSpeed * mpsToKmh,
		MaxSpeedKmh: a.MaxSpeed * mpsToKmh,
		AvgPace:     FormatPace(a.AverageSpeed),
		MaxPace:     FormatPace(a.MaxSpeed),
		ElevationM:  int(math.Round(a.TotalElevationGain)),
	}

	if a.AverageHeartrate > 0 {
		hr := a.AverageHeartrate
		act.AvgHeartrate = &hr
	}
	if a.MaxHeartrate > 0 {
		hr := a.MaxHeartrate
		act.MaxHeartrate = &hr
	}
	if a.Calories > 0 {
		cal := a.Calories
		act.Calories = &cal
	}
	if a.SufferScore > 0 {
		score := int(math.Round(a.SufferScore))
		act.SufferScore = &score
	}

	return act
}
