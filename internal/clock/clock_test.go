package clock

import (
	"testing"
	"time"
)

func TestTodayTruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	fake := NewFakeClock(time.Date(2025, 3, 1, 1, 30, 0, 0, loc))

	got := Today(fake)
	want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := NewFakeClock(start)
	fake.Advance(48 * time.Hour)

	if got := Today(fake); !got.Equal(start.AddDate(0, 0, 2)) {
		t.Fatalf("unexpected date after advance: %s", got)
	}
}
