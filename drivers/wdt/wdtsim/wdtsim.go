// Package wdtsim simulates IWDG and WWDG register blocks for host tests and
// demos. Time only moves when Tick or Advance is called.
package wdtsim

import (
	"sync"
	"time"

	"watchdog-go/drivers/wdt"
	"watchdog-go/x/timex"
)

// reg adapts a pair of closures to wdt.Register.
type reg struct {
	get func() uint32
	set func(uint32)
}

func (r reg) Get() uint32  { return r.get() }
func (r reg) Set(v uint32) { r.set(v) }

// clock converts elapsed time into prescaled ticks, carrying the remainder.
type clock struct {
	inputHz uint32
	remNs   uint64
}

func (c *clock) ticks(d time.Duration, div uint32) int {
	if d <= 0 {
		return 0
	}
	period := timex.PeriodFromHz(c.inputHz) * uint64(div)
	ns := c.remNs + uint64(d)
	c.remNs = ns % period
	return int(ns / period)
}

// ---------------- IWDG ----------------

// IWDG models the independent watchdog: key protection on PR/RLR, delayed
// PVU/RVU updates, the 12-bit down-counter and reset on underflow.
type IWDG struct {
	mu  sync.Mutex
	clk clock

	unlocked bool
	running  bool
	pr, rlr  uint32
	counter  uint32

	latency         int // ticks before a PR/RLR write takes effect
	pendPR, pendRLR uint32
	prBusy, rlrBusy int
	stuck           bool
	tickOnRead      bool
	resets, reloads int
	keys            []uint32
	ignoredWrites   int
}

// NewIWDG returns a simulator in its reset state, clocked at inputHz.
func NewIWDG(inputHz uint32) *IWDG {
	s := &IWDG{clk: clock{inputHz: inputHz}}
	s.resetRegs()
	return s
}

func (s *IWDG) resetRegs() {
	s.unlocked, s.running = false, false
	s.pr, s.rlr, s.counter = 0, wdt.MaxReload, wdt.MaxReload
	s.prBusy, s.rlrBusy = 0, 0
}

// Registers returns the block to hand to wdt.NewIWDG.
func (s *IWDG) Registers() wdt.IWDGRegisters {
	return wdt.IWDGRegisters{
		KR:  reg{get: func() uint32 { return 0 }, set: s.writeKR},
		PR:  reg{get: s.locked(func() uint32 { return s.pr }), set: s.writePR},
		RLR: reg{get: s.locked(func() uint32 { return s.rlr }), set: s.writeRLR},
		SR:  reg{get: s.readSR, set: func(uint32) {}},
	}
}

func (s *IWDG) locked(f func() uint32) func() uint32 {
	return func() uint32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return f()
	}
}

func (s *IWDG) writeKR(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, v)
	switch v & 0xFFFF {
	case wdt.KeyAccess:
		s.unlocked = true
	case wdt.KeyReload:
		s.unlocked = false
		s.counter = s.rlr
		s.reloads++
	case wdt.KeyStart:
		s.unlocked = false
		if !s.running {
			s.running = true
			s.counter = s.rlr
		}
	default:
		s.unlocked = false
	}
}

func (s *IWDG) writePR(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked || s.prBusy > 0 || s.stuck {
		s.ignoredWrites++
		return
	}
	if s.latency == 0 {
		s.pr = v & 0x7
		return
	}
	s.pendPR, s.prBusy = v&0x7, s.latency
}

func (s *IWDG) writeRLR(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked || s.rlrBusy > 0 || s.stuck {
		s.ignoredWrites++
		return
	}
	if s.latency == 0 {
		s.rlr = v & wdt.MaxReload
		return
	}
	s.pendRLR, s.rlrBusy = v&wdt.MaxReload, s.latency
}

func (s *IWDG) readSR() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tickOnRead {
		s.tick()
	}
	var sr uint32
	if s.prBusy > 0 || s.stuck {
		sr |= wdt.SR_PVU
	}
	if s.rlrBusy > 0 || s.stuck {
		sr |= wdt.SR_RVU
	}
	return sr
}

// SetUpdateLatency delays PR/RLR updates by n ticks, reporting PVU/RVU meanwhile.
func (s *IWDG) SetUpdateLatency(n int) {
	s.mu.Lock()
	s.latency = n
	s.mu.Unlock()
}

// TickOnStatusRead advances the clock by one tick on every SR read, so a
// driver polling SR sees pending updates complete.
func (s *IWDG) TickOnStatusRead(on bool) {
	s.mu.Lock()
	s.tickOnRead = on
	s.mu.Unlock()
}

// HoldBusy keeps PVU and RVU set until released.
func (s *IWDG) HoldBusy(on bool) {
	s.mu.Lock()
	s.stuck = on
	s.mu.Unlock()
}

// Tick advances the prescaled clock by n ticks.
func (s *IWDG) Tick(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ; n > 0; n-- {
		s.tick()
	}
}

// Advance converts d into ticks at the active prescaler and applies them.
func (s *IWDG) Advance(d time.Duration) {
	s.mu.Lock()
	pr := wdt.Prescaler(s.pr)
	if pr > wdt.Div256 {
		pr = wdt.Div256 // 0b111 also divides by 256
	}
	div := pr.Divisor()
	n := s.clk.ticks(d, div)
	s.mu.Unlock()
	s.Tick(n)
}

func (s *IWDG) tick() {
	if s.prBusy > 0 {
		if s.prBusy--; s.prBusy == 0 {
			s.pr = s.pendPR
		}
	}
	if s.rlrBusy > 0 {
		if s.rlrBusy--; s.rlrBusy == 0 {
			s.rlr = s.pendRLR
		}
	}
	if !s.running {
		return
	}
	if s.counter == 0 {
		s.resets++
		s.resetRegs()
		return
	}
	s.counter--
}

func (s *IWDG) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *IWDG) Counter() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

func (s *IWDG) Reload() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rlr
}

func (s *IWDG) Prescaler() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pr
}

func (s *IWDG) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

func (s *IWDG) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *IWDG) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

func (s *IWDG) IgnoredWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignoredWrites
}

// Keys returns every value written to KR, oldest first.
func (s *IWDG) Keys() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.keys...)
}

// ---------------- WWDG ----------------

// WWDG models the window watchdog: 7-bit free-running counter, reset when T6
// clears or on refresh above the window, and the early wakeup flag.
type WWDG struct {
	mu  sync.Mutex
	clk clock

	wdga    bool
	counter uint32
	cfr     uint32
	sr      uint32

	resets, early int
}

// NewWWDG returns a simulator in its reset state, clocked at inputHz.
func NewWWDG(inputHz uint32) *WWDG {
	s := &WWDG{clk: clock{inputHz: inputHz}}
	s.resetRegs()
	return s
}

func (s *WWDG) resetRegs() {
	s.wdga = false
	s.counter = wdt.CR_T
	s.cfr = wdt.CFR_W
	s.sr = 0
}

// Registers returns the block to hand to wdt.NewWWDG.
func (s *WWDG) Registers() wdt.WWDGRegisters {
	return wdt.WWDGRegisters{
		CR:  reg{get: s.readCR, set: s.writeCR},
		CFR: reg{get: s.readCFR, set: s.writeCFR},
		SR:  reg{get: s.readSR, set: s.writeSR},
	}
}

func (s *WWDG) readCR() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.counter
	if s.wdga {
		v |= wdt.CR_WDGA
	}
	return v
}

func (s *WWDG) writeCR(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wdga && s.counter > s.cfr&wdt.CFR_W {
		s.early++
		s.reset()
		return
	}
	s.counter = v & wdt.CR_T
	if v&wdt.CR_WDGA != 0 {
		s.wdga = true
	}
	if s.wdga && s.counter&wdt.CR_T6 == 0 {
		s.reset()
	}
}

func (s *WWDG) readCFR() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfr
}

func (s *WWDG) writeCFR(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// EWI is set-only.
	s.cfr = v&(wdt.CFR_W|wdt.CFR_WDGTB|wdt.CFR_EWI) | s.cfr&wdt.CFR_EWI
}

func (s *WWDG) readSR() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sr
}

func (s *WWDG) writeSR(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sr &= v
}

func (s *WWDG) reset() {
	s.resets++
	s.resetRegs()
}

// Tick advances the timer base by n ticks.
func (s *WWDG) Tick(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ; n > 0; n-- {
		s.counter = (s.counter - 1) & wdt.CR_T
		if s.counter == 0x40 && s.cfr&wdt.CFR_EWI != 0 {
			s.sr |= wdt.SR_EWIF
		}
		if s.wdga && s.counter&wdt.CR_T6 == 0 {
			s.reset()
		}
	}
}

// Advance converts d into ticks at the configured timer base and applies them.
func (s *WWDG) Advance(d time.Duration) {
	s.mu.Lock()
	tb := wdt.WindowPrescaler((s.cfr & wdt.CFR_WDGTB) >> wdt.CFR_WDGTBShift)
	n := s.clk.ticks(d, tb.Divisor())
	s.mu.Unlock()
	s.Tick(n)
}

func (s *WWDG) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wdga
}

func (s *WWDG) Counter() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

func (s *WWDG) Window() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfr & wdt.CFR_W
}

func (s *WWDG) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

func (s *WWDG) EarlyRefreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.early
}
