package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDate(t *testing.T) {
	tests := []struct {
		name    string
		current time.Time
		freq    Frequency
		want    time.Time
	}{
		{"monthly", date(2026, 1, 15), FrequencyMonthly, date(2026, 2, 15)},
		{"bimonthly", date(2026, 1, 15), FrequencyBimonthly, date(2026, 3, 15)},
		{"quarterly", date(2026, 11, 10), FrequencyQuarterly, date(2027, 2, 10)},
		{"semiannual", date(2026, 8, 1), FrequencySemiannual, date(2027, 2, 1)},
		{"annual", date(2026, 6, 30), FrequencyAnnual, date(2027, 6, 30)},
		{"unknown falls back to monthly", date(2026, 4, 5), Frequency("WEEKLY"), date(2026, 5, 5)},
		{"empty falls back to monthly", date(2026, 4, 5), Frequency(""), date(2026, 5, 5)},
		{"jan 31 clamps to feb 28", date(2026, 1, 31), FrequencyMonthly, date(2026, 2, 28)},
		{"jan 31 clamps to feb 29 in leap year", date(2028, 1, 31), FrequencyMonthly, date(2028, 2, 29)},
		{"aug 31 quarterly clamps to nov 30", date(2026, 8, 31), FrequencyQuarterly, date(2026, 11, 30)},
		{"leap day annual clamps", date(2028, 2, 29), FrequencyAnnual, date(2029, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDate(tt.current, tt.freq))
		})
	}
}

func TestNextDate_TwelveMonthlyEqualsOneAnnual(t *testing.T) {
	for day := 1; day <= 28; day++ {
		for _, m := range []time.Month{time.January, time.February, time.June, time.December} {
			start := date(2026, m, day)
			d := start
			for i := 0; i < 12; i++ {
				d = NextDate(d, FrequencyMonthly)
			}
			assert.Equal(t, NextDate(start, FrequencyAnnual), d, "start %s", start.Format("2006-01-02"))
		}
	}
}

func TestNextDateAnchored_TwelveMonthlyEqualsOneAnnual(t *testing.T) {
	starts := []time.Time{
		date(2026, 1, 31),
		date(2026, 3, 30),
		date(2026, 5, 29),
		date(2027, 12, 31),
		date(2028, 1, 29),
	}
	for _, start := range starts {
		d := start
		for i := 0; i < 12; i++ {
			d = NextDateAnchored(d, FrequencyMonthly, start.Day())
		}
		assert.Equal(t, NextDateAnchored(start, FrequencyAnnual, start.Day()), d, "start %s", start.Format("2006-01-02"))
		assert.Equal(t, start.Day(), d.Day())
	}
}

func TestNextDateAnchored_RecoversAfterShortMonth(t *testing.T) {
	d := NextDateAnchored(date(2026, 1, 31), FrequencyMonthly, 31)
	assert.Equal(t, date(2026, 2, 28), d)
	d = NextDateAnchored(d, FrequencyMonthly, 31)
	assert.Equal(t, date(2026, 3, 31), d)
	d = NextDateAnchored(d, FrequencyMonthly, 31)
	assert.Equal(t, date(2026, 4, 30), d)

	assert.Equal(t, date(2026, 3, 5), NextDateAnchored(date(2026, 2, 5), FrequencyMonthly, 0), "invalid anchor uses current day")
}

func TestNextDate_PreservesClockAndLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	cur := time.Date(2026, 10, 31, 9, 30, 0, 0, loc)
	next := NextDate(cur, FrequencyMonthly)
	assert.Equal(t, time.Date(2026, 11, 30, 9, 30, 0, 0, loc), next)
}

func TestFrequency(t *testing.T) {
	for _, f := range AllFrequencies {
		assert.True(t, f.IsValid(), f)
	}
	assert.False(t, Frequency("DAILY").IsValid())
	assert.Equal(t, 12, FrequencyAnnual.Months())
	assert.Equal(t, 1, Frequency("DAILY").Months())
}
