// Package typing turns the time taken to submit a fixed challenge phrase into a
// characters-per-minute figure.
//
// This is a latency proxy, not keystroke biometrics: it measures how long the whole
// phrase took to arrive, including reaction time, and is trivially gameable by a
// client that reports a fabricated duration.
package typing

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultPhrase        = "my home is where my screen is"
	DefaultReadingBuffer = 2 * time.Second

	minEffective = time.Second
)

var (
	ErrInvalidDuration = errors.New("typing duration must be positive")
	ErrPhraseMismatch  = errors.New("typed text does not match the challenge phrase")
)

// CPM returns characters per minute for phrase submitted after elapsed. The reading
// buffer is subtracted first; the remaining duration is floored at one second.
func CPM(phrase string, elapsed, readingBuffer time.Duration) (int, error) {
	if elapsed <= 0 {
		return 0, ErrInvalidDuration
	}

	effective := elapsed - readingBuffer
	if effective < minEffective {
		effective = minEffective
	}

	chars := float64(utf8.RuneCountInString(phrase))
	return int(math.Round(chars / effective.Minutes())), nil
}

// Matches reports whether typed is the challenge phrase, ignoring case and
// surrounding whitespace.
func Matches(phrase, typed string) bool {
	return strings.EqualFold(strings.TrimSpace(phrase), strings.TrimSpace(typed))
}

// Diff is the absolute difference between two typing speeds.
func Diff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
