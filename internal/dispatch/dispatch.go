// Package dispatch marshals callbacks onto the UI thread: background
// goroutines (the audio ticker, the download manager, the lyrics engine) must
// never touch UI-owned state directly, so they hand work to fyne's main-thread
// queue instead.
package dispatch

import "fyne.io/fyne/v2"

// Dispatcher marshals a func() onto fyne's UI goroutine via fyne.Do.
type Dispatcher struct{}

// New returns a Dispatcher. It has no state; it exists so callers can depend on an
// interface-shaped value and so a test build can substitute a synchronous stub.
func New() *Dispatcher { return &Dispatcher{} }

// Do runs fn on the UI thread. Safe to call from any goroutine.
func (d *Dispatcher) Do(fn func()) {
	fyne.Do(fn)
}
