package leave

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBusinessDays(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  float64
	}{
		{"single weekday", date(2026, time.March, 2), date(2026, time.March, 2), 1},
		{"full week mon-fri", date(2026, time.March, 2), date(2026, time.March, 6), 5},
		{"week spanning weekend", date(2026, time.March, 5), date(2026, time.March, 10), 4},
		{"saturday only", date(2026, time.March, 7), date(2026, time.March, 7), 0},
		{"weekend only", date(2026, time.March, 7), date(2026, time.March, 8), 0},
		{"two full weeks", date(2026, time.March, 2), date(2026, time.March, 13), 10},
		{"inverted range", date(2026, time.March, 6), date(2026, time.March, 2), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := BusinessDays(tc.start, tc.end); got != tc.want {
				t.Errorf("BusinessDays(%s, %s) = %v, want %v",
					tc.start.Format("2006-01-02"), tc.end.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", date(2026, 3, 2), date(2026, 3, 6), date(2026, 3, 2), date(2026, 3, 6), true},
		{"a inside b", date(2026, 3, 3), date(2026, 3, 4), date(2026, 3, 2), date(2026, 3, 6), true},
		{"b inside a", date(2026, 3, 2), date(2026, 3, 6), date(2026, 3, 3), date(2026, 3, 4), true},
		{"shared boundary day", date(2026, 3, 2), date(2026, 3, 6), date(2026, 3, 6), date(2026, 3, 10), true},
		{"adjacent no overlap", date(2026, 3, 2), date(2026, 3, 6), date(2026, 3, 7), date(2026, 3, 10), false},
		{"disjoint", date(2026, 3, 2), date(2026, 3, 3), date(2026, 3, 20), date(2026, 3, 21), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProratedAnnual(t *testing.T) {
	jan := date(2026, time.January, 15)
	oct := date(2026, time.October, 1)
	dec := date(2026, time.December, 31)
	prior := date(2024, time.June, 1)
	next := date(2027, time.February, 1)

	tests := []struct {
		name      string
		annual    float64
		startDate *time.Time
		want      float64
	}{
		{"nil start gets full", 20, nil, 20},
		{"prior-year start gets full", 20, &prior, 20},
		{"january start gets full", 20, &jan, 20},
		{"october start gets 3 months", 20, &oct, 5},
		{"december start gets 1 month", 20, &dec, 2},
		{"next-year start gets zero", 20, &next, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProratedAnnual(tc.annual, tc.startDate, 2026); got != tc.want {
				t.Errorf("ProratedAnnual(%v, %v, 2026) = %v, want %v", tc.annual, tc.startDate, got, tc.want)
			}
		})
	}
}

func TestCarryForward(t *testing.T) {
	tests := []struct {
		name    string
		prior   float64
		maxDays float64
		want    float64
	}{
		{"under cap carries all", 3, 5, 3},
		{"over cap is capped", 12, 5, 5},
		{"exact cap", 5, 5, 5},
		{"zero carries nothing", 0, 5, 0},
		{"negative carries nothing", -4, 5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CarryForward(tc.prior, tc.maxDays); got != tc.want {
				t.Errorf("CarryForward(%v, %v) = %v, want %v", tc.prior, tc.maxDays, got, tc.want)
			}
		})
	}
}

func TestNoticeDays(t *testing.T) {
	today := date(2026, time.March, 2)
	if got := NoticeDays(date(2026, time.March, 9), today); got != 7 {
		t.Errorf("NoticeDays one week out = %d, want 7", got)
	}
	if got := NoticeDays(today, today); got != 0 {
		t.Errorf("NoticeDays same day = %d, want 0", got)
	}
	if got := NoticeDays(date(2026, time.February, 27), today); got != -3 {
		t.Errorf("NoticeDays in the past = %d, want -3", got)
	}
}

func TestPolicyDays(t *testing.T) {
	policies := map[string]float64{TypeAnnual: 25}
	if got := PolicyDays(policies, TypeAnnual); got != 25 {
		t.Errorf("tenant override = %v, want 25", got)
	}
	if got := PolicyDays(policies, TypeSick); got != 10 {
		t.Errorf("org default sick = %v, want 10", got)
	}
	if got := PolicyDays(nil, TypeMaternity); got != 90 {
		t.Errorf("org default maternity = %v, want 90", got)
	}
}
