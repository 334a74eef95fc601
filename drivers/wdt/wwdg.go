package wdt

import "watchdog-go/x/mathx"

// DefaultWWDGInputHz is the nominal APB1 clock feeding the WWDG.
const DefaultWWDGInputHz = 36_000_000

// WWDG drives the window watchdog. The 7-bit down-counter resets the device
// when T6 clears, or when it is refreshed while still above the window value.
type WWDG struct {
	regs WWDGRegisters
	cfg  Config

	// Last written configuration; Feed reloads counter.
	counter uint32
	tb      WindowPrescaler
}

// NewWWDG wraps regs. It does not touch the hardware.
func NewWWDG(regs WWDGRegisters, cfgs ...Config) *WWDG {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	return &WWDG{regs: regs, cfg: c.withDefaults(DefaultWWDGInputHz), counter: wwdgCounterMax}
}

func (d *WWDG) Init() uint32 { return d.cfg.InputHz }

// Start sets WDGA. Only a reset clears it.
func (d *WWDG) Start() error {
	d.regs.CR.Set(CR_WDGA | d.counter)
	return nil
}

// Feed writes the configured counter. Writing WDGA as zero has no effect.
func (d *WWDG) Feed() { d.regs.CR.Set(d.counter) }

// Configure selects the smallest timer base that reaches timeoutMs and loads
// the counter. The window is left fully open.
func (d *WWDG) Configure(inputHz, timeoutMs uint32) (Setting, error) {
	s := WWDGSetting(inputHz, timeoutMs, 0)
	ewi := d.regs.CFR.Get() & CFR_EWI

	// Open the window before the refresh: the running counter may be above
	// the new T.
	d.regs.CFR.Set(ewi | uint32(s.Prescaler)<<CFR_WDGTBShift | wwdgCounterMax)
	d.counter = s.Reload
	d.tb = WindowPrescaler(s.Prescaler)
	d.Feed()
	return s, nil
}

// ConfigureWindow rejects feeds earlier than windowMs after the last one.
// The bound is rounded down to whole ticks and clamped so that at least the
// final tick before reset accepts a feed.
func (d *WWDG) ConfigureWindow(inputHz, windowMs uint32) (Setting, error) {
	s := wwdgWindow(inputHz, d.tb, d.counter, windowMs)
	ewi := d.regs.CFR.Get() & CFR_EWI
	d.regs.CFR.Set(ewi | uint32(d.tb)<<CFR_WDGTBShift | s.Window)
	return s, nil
}

// EnableEarlyWakeup arms the early wakeup interrupt, raised when the counter
// reaches 0x40. It cannot be disabled by software.
func (d *WWDG) EnableEarlyWakeup() {
	d.regs.CFR.Set(d.regs.CFR.Get() | CFR_EWI)
}

// EarlyWakeupPending reports and clears EWIF.
func (d *WWDG) EarlyWakeupPending() bool {
	if d.regs.SR.Get()&SR_EWIF == 0 {
		return false
	}
	d.regs.SR.Set(0)
	return true
}

// WWDGSetting computes counter, timer base and window for the given
// timeout and earliest-feed bound without touching hardware.
func WWDGSetting(inputHz, timeoutMs, windowMs uint32) Setting {
	if inputHz == 0 {
		inputHz = 1
	}
	tb := WDiv8
	ticks := uint64(0)
	for p := WDiv1; p <= WDiv8; p++ {
		ticks = uint64(timeoutMs) * uint64(inputHz) / (uint64(p.Divisor()) * 1000)
		if ticks <= wwdgMaxTicks {
			tb = p
			break
		}
	}
	ticks = mathx.Clamp(ticks, 1, wwdgMaxTicks)
	counter := uint32(wwdgCounterMin-1) + uint32(ticks)
	return wwdgWindow(inputHz, tb, counter, windowMs)
}

func wwdgWindow(inputHz uint32, tb WindowPrescaler, counter, windowMs uint32) Setting {
	if inputHz == 0 {
		inputHz = 1
	}
	div := tb.Divisor()
	s := Setting{
		Prescaler: uint8(tb),
		Divisor:   div,
		Reload:    counter,
		Window:    wwdgCounterMax,
		TimeoutMs: ticksToMs(uint64(counter-(wwdgCounterMin-1)), div, inputHz),
	}
	if windowMs == 0 {
		return s
	}
	early := uint64(windowMs) * uint64(inputHz) / (uint64(div) * 1000)
	w := int64(counter) - int64(mathx.Min(early, uint64(wwdgMaxTicks)))
	s.Window = uint32(mathx.Clamp(w, wwdgCounterMin, int64(counter)))
	s.WindowMs = ticksToMs(uint64(counter-s.Window), div, inputHz)
	return s
}

// WWDGMaxTimeout returns the longest timeout in ms reachable at inputHz.
func WWDGMaxTimeout(inputHz uint32) uint32 {
	if inputHz == 0 {
		inputHz = 1
	}
	return ticksToMs(wwdgMaxTicks, WDiv8.Divisor(), inputHz)
}
