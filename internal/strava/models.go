package strava

import (
	"strconv"
	"time"
)

// Activity represents a Strava activity from the API. The summary and
// detail responses share this shape; Calories only arrives on detail.
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	MaxSpeed           float64   `json:"max_speed"`            // m/s
	AverageHeartrate   float64   `json:"average_heartrate"`    // bpm
	MaxHeartrate       float64   `json:"max_heartrate"`        // bpm
	Calories           float64   `json:"calories"`             // kcal, detail only
	SufferScore        float64   `json:"suffer_score"`
	HasHeartrate       bool      `json:"has_heartrate"`
	TotalPhotoCount    int       `json:"total_photo_count"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Photo represents one photo attached to an activity. Strava keys the
// urls and sizes maps by the pixel size that was requested.
type Photo struct {
	UniqueID   string            `json:"unique_id"`
	ActivityID int64             `json:"activity_id"`
	Caption    string            `json:"caption"`
	Source     int               `json:"source"`
	URLs       map[string]string `json:"urls"`
	Sizes      map[string][2]int `json:"sizes"`
}

// URL returns the photo URL at the requested size, falling back to
// whatever size is available when the exact one is missing.
func (p Photo) URL(size int) string {
	if u, ok := p.URLs[strconv.Itoa(size)]; ok {
		return u
	}
	for _, u := range p.URLs {
		return u
	}
	return ""
}
