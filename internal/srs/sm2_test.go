package srs

import (
	"testing"
	"time"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		input   string
		want    Rating
		wantErr bool
	}{
		{"again", RatingAgain, false},
		{"hard", RatingHard, false},
		{"good", RatingGood, false},
		{"easy", RatingEasy, false},
		{"", "", true},
		{"perfect", "", true},
		{"GOOD", "", true},
	}

	for _, tc := range tests {
		got, err := ParseRating(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRating(%q): expected error, got %q", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRating(%q): unexpected error %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseRating(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestScheduleEaseNeverBelowFloor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCardState(now)

	// Hammer the card with failures; ease must stay clamped.
	for i := 0; i < 20; i++ {
		for _, r := range []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy} {
			state = Schedule(state, r, now)
			if state.Ease < MinEase {
				t.Fatalf("ease %f dropped below floor %f after rating %q", state.Ease, MinEase, r)
			}
			if state.Due.Before(now) {
				t.Fatalf("due %v is before now %v after rating %q", state.Due, now, r)
			}
			if state.Due.Before(state.LastReviewed) {
				t.Fatalf("due %v is before last reviewed %v", state.Due, state.LastReviewed)
			}
		}
	}
}

func TestScheduleAgainResetsReps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sequences := [][]Rating{
		{RatingAgain},
		{RatingGood, RatingAgain},
		{RatingGood, RatingGood, RatingGood, RatingAgain},
		{RatingEasy, RatingEasy, RatingHard, RatingAgain},
	}

	for _, seq := range sequences {
		state := NewCardState(now)
		lapsesBefore := 0
		for _, r := range seq {
			if r == RatingAgain {
				lapsesBefore = state.Lapses
			}
			state = Schedule(state, r, now)
		}

		if state.Reps != 0 {
			t.Errorf("sequence %v: reps = %d, want 0", seq, state.Reps)
		}
		if state.IntervalDays > RelearnIntervalDays {
			t.Errorf("sequence %v: interval %d exceeds relearn interval %d", seq, state.IntervalDays, RelearnIntervalDays)
		}
		if state.Lapses != lapsesBefore+1 {
			t.Errorf("sequence %v: lapses = %d, want %d", seq, state.Lapses, lapsesBefore+1)
		}
	}
}

func TestScheduleGoodProgression(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCardState(now)

	state = Schedule(state, RatingGood, now)
	if state.IntervalDays != 1 || state.Reps != 1 {
		t.Fatalf("first good: interval=%d reps=%d, want 1/1", state.IntervalDays, state.Reps)
	}

	state = Schedule(state, RatingGood, now)
	if state.IntervalDays != 6 || state.Reps != 2 {
		t.Fatalf("second good: interval=%d reps=%d, want 6/2", state.IntervalDays, state.Reps)
	}

	prev := state.IntervalDays
	state = Schedule(state, RatingGood, now)
	if state.IntervalDays <= prev {
		t.Fatalf("third good: interval %d did not grow past %d", state.IntervalDays, prev)
	}
	if state.Reps != 3 {
		t.Fatalf("third good: reps = %d, want 3", state.Reps)
	}
}

func TestScheduleEasyGrowsFasterThanGood(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	good := NewCardState(now)
	easy := NewCardState(now)
	for i := 0; i < 4; i++ {
		good = Schedule(good, RatingGood, now)
		easy = Schedule(easy, RatingEasy, now)
	}

	if easy.IntervalDays <= good.IntervalDays {
		t.Errorf("easy interval %d should exceed good interval %d after equal reps", easy.IntervalDays, good.IntervalDays)
	}
}

func TestScheduleHardKeepsLadderPosition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCardState(now)
	state = Schedule(state, RatingGood, now)
	state = Schedule(state, RatingGood, now)

	repsBefore := state.Reps
	easeBefore := state.Ease
	state = Schedule(state, RatingHard, now)

	if state.Reps != repsBefore {
		t.Errorf("hard changed reps: %d -> %d", repsBefore, state.Reps)
	}
	if state.Ease >= easeBefore {
		t.Errorf("hard should decrease ease: %f -> %f", easeBefore, state.Ease)
	}
	if state.IntervalDays < 1 {
		t.Errorf("hard produced interval %d < 1", state.IntervalDays)
	}
}

func TestNewCardStateDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := NewCardState(now)

	if state.Ease != InitialEase {
		t.Errorf("ease = %f, want %f", state.Ease, InitialEase)
	}
	if state.IntervalDays != 0 || state.Reps != 0 || state.Lapses != 0 {
		t.Errorf("unexpected non-zero fields: %+v", state)
	}
	if !state.Due.Equal(now) {
		t.Errorf("new card should be due immediately, got %v", state.Due)
	}
}
