package schema

import (
	"fmt"
	"time"
)

// Window is a half-open [From, To) range of epoch seconds.
type Window struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// NewWindow builds a window and rejects empty or inverted ranges.
func NewWindow(from, to int64) (Window, error) {
	if to <= from {
		return Window{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidWindow, from, to)
	}
	return Window{From: from, To: to}, nil
}

// MustWindow is like NewWindow but panics on invalid input.
// It is meant for literals in tests and fixtures.
func MustWindow(from, to int64) Window {
	w, err := NewWindow(from, to)
	if err != nil {
		panic(err)
	}
	return w
}

// Valid reports whether the window satisfies From < To.
func (w Window) Valid() bool {
	return w.From < w.To
}

// Duration returns the window length in seconds.
func (w Window) Duration() int64 {
	return w.To - w.From
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts int64) bool {
	return ts >= w.From && ts < w.To
}

// Start returns the lower edge as a UTC time.
func (w Window) Start() time.Time {
	return time.Unix(w.From, 0).UTC()
}

// End returns the upper edge as a UTC time.
func (w Window) End() time.Time {
	return time.Unix(w.To, 0).UTC()
}

// String renders the window as [from, to).
func (w Window) String() string {
	return fmt.Sprintf("[%d, %d)", w.From, w.To)
}
