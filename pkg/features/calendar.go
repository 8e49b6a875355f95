package features

import "time"

// Calendar feature names.
const (
	FeatYear       = "year"
	FeatMonth      = "month"
	FeatDay        = "day"
	FeatDayOfWeek  = "day_of_week"
	FeatWeekOfYear = "week_of_year"
	FeatQuarter    = "quarter"
)

// CalendarFeatures derives the deterministic calendar attributes of a date.
// day_of_week follows the Monday=0 convention and week_of_year is the ISO
// week number.
func CalendarFeatures(t time.Time) map[string]float64 {
	_, isoWeek := t.ISOWeek()

	// time.Weekday has Sunday=0; shift to Monday=0.
	dow := (int(t.Weekday()) + 6) % 7

	return map[string]float64{
		FeatYear:       float64(t.Year()),
		FeatMonth:      float64(t.Month()),
		FeatDay:        float64(t.Day()),
		FeatDayOfWeek:  float64(dow),
		FeatWeekOfYear: float64(isoWeek),
		FeatQuarter:    float64((int(t.Month())-1)/3 + 1),
	}
}

func calendarColumns() []string {
	return []string{FeatYear, FeatMonth, FeatDay, FeatDayOfWeek, FeatWeekOfYear, FeatQuarter}
}
