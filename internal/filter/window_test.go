package filter

import (
	"strconv"
	"testing"
	"time"

	"digil_monitor/internal/models"
)

// 14:30:00 local, longe da meia-noite
var fixedNow = time.Date(2025, 6, 12, 14, 30, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func TestIsVisibleAt_LiveWindow(t *testing.T) {
	live := models.FilterConfig{WindowMinutes: 10}

	cases := []struct {
		name      string
		timestamp string
		want      bool
	}{
		{"time of day now", "14:30:00", true},
		{"time of day 5 minutes ago", "14:25:00", true},
		{"time of day exactly at limit", "14:20:00", true},
		{"time of day 15 minutes ago", "14:15:00", false},
		{"time of day in the future", "14:45:10", true},
		{"hours and minutes only", "14:22", true},
		{"epoch ms 2 minutes ago", strconv.FormatInt(fixedNow.Add(-2*time.Minute).UnixMilli(), 10), true},
		{"epoch ms 11 minutes ago", strconv.FormatInt(fixedNow.Add(-11*time.Minute).UnixMilli(), 10), false},
		{"time of day with fractional seconds", "14:29:50.123", true},
		{"fractional seconds 15 minutes ago", "14:15:00.500", false},
		{"decimal epoch ms 1 minute ago", strconv.FormatInt(fixedNow.Add(-time.Minute).UnixMilli(), 10) + ".0", true},
		{"decimal epoch ms 11 minutes ago", strconv.FormatInt(fixedNow.Add(-11*time.Minute).UnixMilli(), 10) + ".75", false},
		{"garbage has no age", "not-a-time", true},
		{"empty has no age", "", true},
		{"out of range hour has no age", "25:00:00", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsVisibleAt(tc.timestamp, live, fixedNow); got != tc.want {
				t.Fatalf("IsVisibleAt(%q) = %v; want %v", tc.timestamp, got, tc.want)
			}
		})
	}
}

func TestIsVisibleAt_HistoricalModeAcceptsEverything(t *testing.T) {
	hist := models.FilterConfig{HistoricalMode: true, WindowMinutes: 10}
	for _, ts := range []string{"00:00:01", "0", "garbage", "", "13:00:00"} {
		if !IsVisibleAt(ts, hist, fixedNow) {
			t.Fatalf("historical mode must accept %q", ts)
		}
	}
}

func TestIsVisible_IsPure(t *testing.T) {
	w := New(models.FilterConfig{WindowMinutes: 10}, clock)
	for i := 0; i < 5; i++ {
		if !w.IsVisible("14:25:00") {
			t.Fatalf("call %d: expected visible", i)
		}
		if w.IsVisible("14:00:00") {
			t.Fatalf("call %d: expected hidden", i)
		}
	}
}

func TestReconfigure_SwitchesToHistorical(t *testing.T) {
	w := New(models.FilterConfig{WindowMinutes: 10}, clock)
	if w.IsVisible("14:15:00") {
		t.Fatalf("15-minute-old observation should be hidden in live mode")
	}

	w.Reconfigure(models.FilterConfig{HistoricalMode: true, WindowMinutes: 10})
	if !w.IsVisible("14:15:00") {
		t.Fatalf("historical mode should reveal the observation")
	}

	w.Reconfigure(models.FilterConfig{WindowMinutes: 30})
	if !w.IsVisible("14:15:00") {
		t.Fatalf("30-minute window should include a 15-minute-old observation")
	}
}

func TestParseTimestamp_TimeOfDayIsToday(t *testing.T) {
	got, err := ParseTimestamp("08:05:09", fixedNow)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := time.Date(2025, 6, 12, 8, 5, 9, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("expected %v; got %v", want, got)
	}
}

func TestParseTimestamp_FractionalForms(t *testing.T) {
	got, err := ParseTimestamp("14:29:50.250", fixedNow)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := time.Date(2025, 6, 12, 14, 29, 50, 250*int(time.Millisecond), time.Local)
	if !got.Equal(want) {
		t.Fatalf("expected %v; got %v", want, got)
	}

	ms := fixedNow.Add(-time.Minute).UnixMilli()
	got, err = ParseTimestamp(strconv.FormatInt(ms, 10)+".9", fixedNow)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.UnixMilli() != ms {
		t.Fatalf("expected %d ms; got %d", ms, got.UnixMilli())
	}

	for _, ts := range []string{"abc", "NaN", "12:xx:00", "14:29:61"} {
		if _, err := ParseTimestamp(ts, fixedNow); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", ts)
		}
	}
}

func TestParseTimestamp_MidnightRolloverIsKnownLimitation(t *testing.T) {
	justAfterMidnight := time.Date(2025, 6, 13, 0, 2, 0, 0, time.Local)
	// Registrado às 23:58 do dia anterior, mas interpretado como "hoje"
	if IsVisibleAt("23:58:00", models.FilterConfig{WindowMinutes: 10}, justAfterMidnight) != true {
		t.Fatalf("a timestamp interpreted as later today has negative age and stays visible")
	}

	lateEvening := time.Date(2025, 6, 12, 23, 59, 0, 0, time.Local)
	if IsVisibleAt("00:01:00", models.FilterConfig{WindowMinutes: 10}, lateEvening) {
		t.Fatalf("a timestamp from just after midnight looks ~24h old when read before midnight")
	}
}

func TestNew_DefaultsToWallClock(t *testing.T) {
	w := New(models.FilterConfig{WindowMinutes: DefaultWindowMinutes}, nil)
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if !w.IsVisible(now) {
		t.Fatalf("an observation stamped now must be visible")
	}
}
