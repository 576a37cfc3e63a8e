package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Rating is the recall grade a user assigns after reviewing a card.
type Rating string

const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

var ErrInvalidRating = errors.New("invalid rating")

// ParseRating validates a wire-level rating string. Anything outside the
// closed enum is rejected before it can reach Schedule.
func ParseRating(s string) (Rating, error) {
	switch Rating(s) {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return Rating(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// IsCorrect reports whether the rating counts as a successful recall.
func (r Rating) IsCorrect() bool {
	return r == RatingGood || r == RatingEasy
}

const (
	// MinEase is the floor the ease factor can never drop below.
	MinEase = 1.3

	// InitialEase is assigned to cards on creation.
	InitialEase = 2.5

	// RelearnIntervalDays is the short interval scheduled after "again".
	RelearnIntervalDays = 1

	// EasyBonus stretches the interval when recall was effortless.
	EasyBonus = 1.3
)

// CardState is the full SRS state of one reviewable unit.
type CardState struct {
	IntervalDays int
	Ease         float64
	Reps         int
	Lapses       int
	Due          time.Time
	LastReviewed time.Time
}

// NewCardState returns the default state for a freshly created card:
// due immediately, never reviewed.
func NewCardState(now time.Time) CardState {
	return CardState{
		IntervalDays: 0,
		Ease:         InitialEase,
		Reps:         0,
		Lapses:       0,
		Due:          now,
		LastReviewed: now,
	}
}

// Schedule applies one review to a card state and returns the next state.
// It is a total, deterministic function over valid ratings; it performs no
// I/O and never fails.
//
// Ease follows the SM-2 update EF' = EF + (0.1 - (3-q)*(0.08 + (3-q)*0.02))
// with q mapped again=0, hard=1, good=2, easy=3, clamped at MinEase.
func Schedule(state CardState, rating Rating, now time.Time) CardState {
	q := float64(qualityOf(rating))
	ease := state.Ease + (0.1 - (3-q)*(0.08+(3-q)*0.02))
	if ease < MinEase {
		ease = MinEase
	}

	next := state
	next.Ease = ease

	switch rating {
	case RatingAgain:
		// Lapse: restart the repetition ladder with a short relearning step.
		next.Reps = 0
		next.Lapses = state.Lapses + 1
		next.IntervalDays = RelearnIntervalDays
	case RatingHard:
		// Barely recalled: keep the ladder position, grow the interval slowly.
		interval := int(math.Round(float64(state.IntervalDays) * 1.2))
		if interval < 1 {
			interval = 1
		}
		next.IntervalDays = interval
	default: // good, easy
		next.Reps = state.Reps + 1
		switch next.Reps {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * ease))
		}
		if rating == RatingEasy && next.Reps > 2 {
			next.IntervalDays = int(math.Round(float64(next.IntervalDays) * EasyBonus))
		}
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
	}

	next.LastReviewed = now
	next.Due = now.AddDate(0, 0, next.IntervalDays)
	return next
}

func qualityOf(r Rating) int {
	switch r {
	case RatingAgain:
		return 0
	case RatingHard:
		return 1
	case RatingGood:
		return 2
	default:
		return 3
	}
}
