package lessons

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestExpandSeries(t *testing.T) {
	first := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	spec := SeriesSpec{
		AccountID:       uuid.New(),
		Title:           "GCSE Maths",
		FirstStart:      first,
		DurationMinutes: 90,
		Cost:            decimal.RequireFromString("45.00"),
	}

	series, groupID, err := ExpandSeries(spec, 52, 1)
	if err != nil {
		t.Fatalf("ExpandSeries error: %v", err)
	}
	if len(series) != 52 {
		t.Fatalf("expected 52 occurrences, got %d", len(series))
	}
	if groupID == uuid.Nil {
		t.Fatal("expected a series group id")
	}

	for i, lesson := range series {
		wantStart := first.Add(time.Duration(i) * 7 * 24 * time.Hour)
		if !lesson.StartTime.Equal(wantStart) {
			t.Fatalf("occurrence %d start = %s, want %s", i, lesson.StartTime, wantStart)
		}
		if !lesson.EndTime.Equal(wantStart.Add(90 * time.Minute)) {
			t.Fatalf("occurrence %d end mismatch", i)
		}
		if lesson.RecurringGroupID == nil || *lesson.RecurringGroupID != groupID {
			t.Fatalf("occurrence %d missing group id", i)
		}
		if !lesson.IsRecurring {
			t.Fatalf("occurrence %d not flagged recurring", i)
		}
		if !lesson.Cost.Equal(spec.Cost) {
			t.Fatalf("occurrence %d cost = %s, want %s", i, lesson.Cost, spec.Cost)
		}
	}
}

func TestExpandSeries_FreshGroupPerSeries(t *testing.T) {
	spec := SeriesSpec{
		AccountID:       uuid.New(),
		FirstStart:      time.Now(),
		DurationMinutes: 60,
		Cost:            decimal.RequireFromString("30.00"),
	}

	_, first, err := ExpandSeries(spec, 4, 1)
	if err != nil {
		t.Fatalf("ExpandSeries error: %v", err)
	}
	_, second, err := ExpandSeries(spec, 4, 1)
	if err != nil {
		t.Fatalf("ExpandSeries error: %v", err)
	}
	if first == second {
		t.Fatal("each series must get its own group id")
	}
}

func TestExpandSeries_Validation(t *testing.T) {
	valid := SeriesSpec{
		AccountID:       uuid.New(),
		FirstStart:      time.Now(),
		DurationMinutes: 60,
	}

	if _, _, err := ExpandSeries(SeriesSpec{FirstStart: time.Now(), DurationMinutes: 60}, 4, 1); err == nil {
		t.Fatal("expected error for missing account id")
	}
	if _, _, err := ExpandSeries(SeriesSpec{AccountID: uuid.New(), FirstStart: time.Now()}, 4, 1); err == nil {
		t.Fatal("expected error for non-positive duration")
	}
	if _, _, err := ExpandSeries(valid, 0, 1); err == nil {
		t.Fatal("expected error for zero occurrences")
	}
}

func TestExpandSeries_CadenceDefaultsToWeekly(t *testing.T) {
	first := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	spec := SeriesSpec{
		AccountID:       uuid.New(),
		FirstStart:      first,
		DurationMinutes: 60,
	}

	series, _, err := ExpandSeries(spec, 2, 0)
	if err != nil {
		t.Fatalf("ExpandSeries error: %v", err)
	}
	if !series[1].StartTime.Equal(first.Add(7 * 24 * time.Hour)) {
		t.Fatalf("cadence should default to one week, got %s", series[1].StartTime)
	}
}
