// Package wdt provides a minimal watchdog driver for STM32-style independent
// (IWDG) and window (WWDG) watchdogs.
//
// A Watchdog is generic over its Variant, so calls resolve at compile time:
//
//	dog, err := wdt.New(wdt.NewIWDG(regs), 2000) // 2 s, not started
//	dog.Start()                                  // irreversible
//	dog.Feed()                                   // call well inside the timeout
//
// Register blocks are injected; the driver never addresses a peripheral by a
// global name. Out-of-range timeouts are clamped to the nearest value the
// hardware can represent rather than rejected.
//
// Preconditions (not checked): Start is called once, and no configuration
// call stops a running watchdog. The Watchdog has no internal locking; wrap it
// before sharing it between goroutines or interrupt handlers.
package wdt

import (
	"errors"
	"time"
)

var (
	// ErrHardwareBusy is returned when an update-pending flag does not clear
	// within the driver operation timeout. Before the unlock nothing is
	// written; after PR/RLR the reload key is withheld.
	ErrHardwareBusy = errors.New("wdt: hardware busy")
	// ErrNotWindowed is returned by SetWindow on variants without a window.
	ErrNotWindowed = errors.New("wdt: not windowed")
)

// DefaultOpTimeout bounds every wait on the hardware.
const DefaultOpTimeout = 100 * time.Millisecond

// Variant is implemented by each watchdog peripheral type.
type Variant interface {
	// Init returns the input clock frequency in Hz used until SetInputFreq.
	Init() uint32
	// Start arms the counter.
	Start() error
	// Feed reloads the counter with the configured value.
	Feed()
	// Configure translates timeoutMs at inputHz into register values and
	// writes them.
	Configure(inputHz, timeoutMs uint32) (Setting, error)
}

// Windowed is implemented by variants that reject early feeds.
type Windowed interface {
	// ConfigureWindow sets the earliest time after a feed at which the next
	// feed is accepted. It applies to the current timeout configuration.
	ConfigureWindow(inputHz, windowMs uint32) (Setting, error)
}

// Setting describes the register values written by the last configuration.
type Setting struct {
	Prescaler uint8  // register code
	Divisor   uint32 // total clock division
	Reload    uint32 // IWDG RLR, or WWDG counter T
	Window    uint32 // WWDG W, zero for IWDG

	TimeoutMs uint32 // timeout realised by Reload
	WindowMs  uint32 // earliest accepted feed realised by Window
}

// State is the lifecycle of a Watchdog.
type State uint8

const (
	Uninitialized State = iota
	Configured
	Running
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Running:
		return "running"
	default:
		return "uninitialized"
	}
}

// Watchdog is the user-facing handle to one watchdog peripheral.
type Watchdog[V Variant] struct {
	v V

	inputHz   uint32
	timeoutMs uint32
	windowMs  uint32
	setting   Setting
	state     State
}

// New initialises v and applies timeoutMs. The watchdog is not started.
func New[V Variant](v V, timeoutMs uint32) (*Watchdog[V], error) {
	w := &Watchdog[V]{v: v}
	w.SetInputFreq(v.Init())
	if err := w.SetTimeout(timeoutMs); err != nil {
		return nil, err
	}
	return w, nil
}

// Start arms the watchdog. It cannot be stopped afterwards except by a
// device reset.
func (w *Watchdog[V]) Start() error {
	if err := w.v.Start(); err != nil {
		return err
	}
	w.state = Running
	return nil
}

// Feed reloads the counter. It must be called at an interval strictly
// shorter than Setting().TimeoutMs.
func (w *Watchdog[V]) Feed() { w.v.Feed() }

// SetTimeout recomputes the prescaler and reload value for timeoutMs and
// writes them. It works before and after Start. A configured window is
// re-applied against the new timeout.
func (w *Watchdog[V]) SetTimeout(timeoutMs uint32) error {
	s, err := w.v.Configure(w.inputHz, timeoutMs)
	if err != nil {
		return err
	}
	w.timeoutMs = timeoutMs
	w.setting = s
	if w.state == Uninitialized {
		w.state = Configured
	}
	if w.windowMs != 0 {
		return w.SetWindow(w.windowMs)
	}
	return nil
}

// SetWindow rejects feeds arriving sooner than windowMs after the previous
// one. Zero removes the bound.
func (w *Watchdog[V]) SetWindow(windowMs uint32) error {
	wv, ok := any(w.v).(Windowed)
	if !ok {
		return ErrNotWindowed
	}
	s, err := wv.ConfigureWindow(w.inputHz, windowMs)
	if err != nil {
		return err
	}
	w.windowMs = windowMs
	w.setting = s
	return nil
}

// SetInputFreq sets the clock used by later SetTimeout calls. The armed
// timeout is not recomputed. Zero is treated as 1 Hz.
func (w *Watchdog[V]) SetInputFreq(hz uint32) {
	if hz == 0 {
		hz = 1
	}
	w.inputHz = hz
}

// Timeout returns the timeout last requested with SetTimeout, in ms.
func (w *Watchdog[V]) Timeout() uint32 { return w.timeoutMs }

// Window returns the earliest-feed bound last requested with SetWindow, in ms.
func (w *Watchdog[V]) Window() uint32 { return w.windowMs }

// InputFreq returns the clock in Hz used by the next SetTimeout.
func (w *Watchdog[V]) InputFreq() uint32 { return w.inputHz }

// Setting returns the register values written by the last configuration.
func (w *Watchdog[V]) Setting() Setting { return w.setting }

// State returns the lifecycle state.
func (w *Watchdog[V]) State() State { return w.state }

// Variant returns the underlying peripheral driver.
func (w *Watchdog[V]) Variant() V { return w.v }
