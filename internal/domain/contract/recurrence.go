package contract

import "time"

// Frequency is how often a contract item bills
type Frequency string

const (
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyBimonthly  Frequency = "BIMONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
)

// AllFrequencies lists every known frequency
var AllFrequencies = []Frequency{
	FrequencyMonthly,
	FrequencyBimonthly,
	FrequencyQuarterly,
	FrequencySemiannual,
	FrequencyAnnual,
}

// IsValid checks if the frequency is known
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyBimonthly, FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual:
		return true
	}
	return false
}

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// Months is the step in months; unknown frequencies step one month
func (f Frequency) Months() int {
	switch f {
	case FrequencyBimonthly:
		return 2
	case FrequencyQuarterly:
		return 3
	case FrequencySemiannual:
		return 6
	case FrequencyAnnual:
		return 12
	}
	return 1
}

// NextDate advances current by one period of freq. When the target month is
// shorter than current's day, the result is clamped to its last day.
func NextDate(current time.Time, freq Frequency) time.Time {
	return addMonths(current, freq.Months(), current.Day())
}

// NextDateAnchored advances like NextDate but lands on anchorDay (clamped),
// so a short month does not pull every later date earlier.
func NextDateAnchored(current time.Time, freq Frequency, anchorDay int) time.Time {
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = current.Day()
	}
	return addMonths(current, freq.Months(), anchorDay)
}

func addMonths(t time.Time, months, day int) time.Time {
	y, m, _ := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
