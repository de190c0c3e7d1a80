package stats

import (
	"fmt"
	"math"
)

// Key identifies one stat in the catalog.
type Key string

const (
	KeyName         Key = "name"
	KeyDate         Key = "date"
	KeyType         Key = "type"
	KeyDistance     Key = "distance"
	KeyMovingTime   Key = "moving_time"
	KeyElapsedTime  Key = "elapsed_time"
	KeyAvgSpeed     Key = "average_speed"
	KeyMaxSpeed     Key = "max_speed"
	KeyAvgPace      Key = "average_pace"
	KeyMaxPace      Key = "max_pace"
	KeyElevation    Key = "elevation"
	KeyAvgHeartrate Key = "average_heartrate"
	KeyMaxHeartrate Key = "max_heartrate"
	KeyCalories     Key = "calories"
	KeySufferScore  Key = "suffer_score"
)

// Catalog is the fixed set of selectable stats. Its order defines
// display order regardless of the order keys were selected in. The
// name key renders as the title block, never as a label/value row.
var Catalog = []Key{
	KeyName,
	KeyDate,
	KeyType,
	KeyDistance,
	KeyMovingTime,
	KeyElapsedTime,
	KeyAvgSpeed,
	KeyMaxSpeed,
	KeyAvgPace,
	KeyMaxPace,
	KeyElevation,
	KeyAvgHeartrate,
	KeyMaxHeartrate,
	KeyCalories,
	KeySufferScore,
}

// Label returns the display label for a stat row.
func (k Key) Label() string {
	switch k {
	case KeyName:
		return "Name"
	case KeyDate:
		return "Date"
	case KeyType:
		return "Activity"
	case KeyDistance:
		return "Distance"
	case KeyMovingTime:
		return "Moving Time"
	case KeyElapsedTime:
		return "Elapsed Time"
	case KeyAvgSpeed:
		return "Avg Speed"
	case KeyMaxSpeed:
		return "Max Speed"
	case KeyAvgPace:
		return "Avg Pace"
	case KeyMaxPace:
		return "Max Pace"
	case KeyElevation:
		return "Elevation"
	case KeyAvgHeartrate:
		return "Avg HR"
	case KeyMaxHeartrate:
		return "Max HR"
	case KeyCalories:
		return "Calories"
	case KeySufferScore:
		return "Suffer Score"
	}
	return string(k)
}

// Value formats a stat value for the given activity. Absent optional
// fields format as blank rather than zero.
func (k Key) Value(a Activity) string {
	switch k {
	case KeyName:
		return a.Name
	case KeyDate:
		if a.StartLocal.IsZero() {
			return ""
		}
		return a.StartLocal.Format("Jan 2, 2006 3:04 PM")
	case KeyType:
		return a.Type
	case KeyDistance:
		return FormatDistance(a.DistanceKm)
	case KeyMovingTime:
		return FormatDuration(a.MovingMin)
	case KeyElapsedTime:
		return FormatDuration(a.ElapsedMin)
	case KeyAvgSpeed:
		return FormatSpeed(a.AvgSpeedKmh)
	case KeyMaxSpeed:
		return FormatSpeed(a.MaxSpeedKmh)
	case KeyAvgPace:
		return a.AvgPace
	case KeyMaxPace:
		return a.MaxPace
	case KeyElevation:
		return FormatElevation(a.ElevationM)
	case KeyAvgHeartrate:
		return FormatHeartrate(a.AvgHeartrate)
	case KeyMaxHeartrate:
		return FormatHeartrate(a.MaxHeartrate)
	case KeyCalories:
		if a.Calories == nil {
			return ""
		}
		return fmt.Sprintf("%d", int(math.Round(*a.Calories)))
	case KeySufferScore:
		if a.SufferScore == nil {
			return ""
		}
		return fmt.Sprintf("%d", *a.SufferScore)
	}
	return ""
}

// Selection is a set of selected stat keys, held in catalog order.
type Selection []Key

// NewSelection validates raw keys against the catalog and returns the
// selection in catalog order. Unknown keys and duplicates are rejected.
func NewSelection(keys []string) (Selection, error) {
	want := make(map[Key]bool, len(keys))
	for _, raw := range keys {
		k := Key(raw)
		if !inCatalog(k) {
			return nil, fmt.Errorf("unknown stat %q", raw)
		}
		if want[k] {
			return nil, fmt.Errorf("duplicate stat %q", raw)
		}
		want[k] = true
	}

	sel := make(Selection, 0, len(want))
	for _, k := range Catalog {
		if want[k] {
			sel = append(sel, k)
		}
	}
	return sel, nil
}

// Contains reports whether the key is selected.
func (s Selection) Contains(k Key) bool {
	for _, have := range s {
		if have == k {
			return true
		}
	}
	return false
}

// HasTitle reports whether the name key is selected.
func (s Selection) HasTitle() bool {
	return s.Contains(KeyName)
}

// Rows returns the selected keys that render as label/value rows, in
// catalog order. The name key is excluded even when selected.
func (s Selection) Rows() []Key {
	rows := make([]Key, 0, len(s))
	for _, k := range s {
		if k == KeyName {
			continue
		}
		rows = append(rows, k)
	}
	return rows
}

// Strings returns the selection as raw key strings.
func (s Selection) Strings() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = string(k)
	}
	return out
}

func inCatalog(k Key) bool {
	for _, have := range Catalog {
		if have == k {
			return true
		}
	}
	return false
}
