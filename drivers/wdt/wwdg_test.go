package wdt_test

import (
	"testing"

	"watchdog-go/drivers/wdt"
	"watchdog-go/drivers/wdt/wdtsim"
)

const pclk1 = 36_000_000

func newWWDG(t *testing.T, timeoutMs uint32) (*wdt.Watchdog[*wdt.WWDG], *wdtsim.WWDG) {
	t.Helper()
	sim := wdtsim.NewWWDG(pclk1)
	dog, err := wdt.New(wdt.NewWWDG(sim.Registers()), timeoutMs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dog, sim
}

func TestWWDGSetting_Scenarios(t *testing.T) {
	cases := []struct {
		name            string
		ms, windowMs    uint32
		wantTB          wdt.WindowPrescaler
		wantT, wantW    uint32
		wantMs, wantWMs uint32
	}{
		{"fits smallest base", 5, 0, wdt.WDiv1, 0x6A, 0x7F, 4, 0},
		{"needs WDGTB=2", 20, 0, wdt.WDiv4, 0x6A, 0x7F, 19, 0},
		{"clamped to max", 1000, 0, wdt.WDiv8, 0x7F, 0x7F, 58, 0},
		{"zero clamps to one tick", 0, 0, wdt.WDiv1, 0x40, 0x7F, 0, 0},
		{"window 10 of 20", 20, 10, wdt.WDiv4, 0x6A, 85, 19, 9},
		{"window beyond timeout", 20, 50, wdt.WDiv4, 0x6A, 0x40, 19, 19},
	}
	for _, c := range cases {
		s := wdt.WWDGSetting(pclk1, c.ms, c.windowMs)
		if wdt.WindowPrescaler(s.Prescaler) != c.wantTB || s.Reload != c.wantT || s.Window != c.wantW {
			t.Fatalf("%s: tb=%d T=%#x W=%#x, want %d/%#x/%#x", c.name, s.Prescaler, s.Reload, s.Window, c.wantTB, c.wantT, c.wantW)
		}
		if s.TimeoutMs != c.wantMs || s.WindowMs != c.wantWMs {
			t.Fatalf("%s: timeout=%d window=%d, want %d/%d", c.name, s.TimeoutMs, s.WindowMs, c.wantMs, c.wantWMs)
		}
	}
	if wdt.WWDGMaxTimeout(pclk1) != 58 {
		t.Fatalf("WWDGMaxTimeout=%d", wdt.WWDGMaxTimeout(pclk1))
	}
}

func TestWWDGSetting_RangeAndMonotonic(t *testing.T) {
	prev := uint32(0)
	for ms := uint32(0); ms < 200; ms++ {
		s := wdt.WWDGSetting(pclk1, ms, 0)
		if s.Reload < 0x40 || s.Reload > 0x7F {
			t.Fatalf("ms=%d: counter %#x outside [0x40,0x7F]", ms, s.Reload)
		}
		if s.TimeoutMs < prev {
			t.Fatalf("ms=%d: effective timeout decreased %d -> %d", ms, prev, s.TimeoutMs)
		}
		prev = s.TimeoutMs
	}
}

func TestWWDG_EarlyFeedResets(t *testing.T) {
	dog, sim := newWWDG(t, 20)
	if err := dog.SetWindow(10); err != nil {
		t.Fatal(err)
	}
	if sim.Window() != 85 {
		t.Fatalf("W=%d want 85", sim.Window())
	}
	_ = dog.Start()
	dog.Feed() // counter 0x6A is above W
	if sim.Resets() != 1 || sim.EarlyRefreshes() != 1 {
		t.Fatalf("resets=%d early=%d, want an early-refresh reset", sim.Resets(), sim.EarlyRefreshes())
	}
}

func TestWWDG_FeedInsideWindow(t *testing.T) {
	dog, sim := newWWDG(t, 20)
	_ = dog.SetWindow(10)
	_ = dog.Start()
	if !sim.Running() {
		t.Fatal("Start must set WDGA")
	}

	sim.Tick(30) // counter 0x6A-30 = 76 <= W
	dog.Feed()
	if sim.Resets() != 0 || sim.Counter() != 0x6A {
		t.Fatalf("resets=%d counter=%#x", sim.Resets(), sim.Counter())
	}

	sim.Tick(42)
	if sim.Resets() != 0 {
		t.Fatal("reset before the timeout elapsed")
	}
	sim.Tick(1)
	if sim.Resets() != 1 {
		t.Fatal("no reset when T6 cleared")
	}
}

func TestWWDG_SetTimeoutWhileRunning(t *testing.T) {
	dog, sim := newWWDG(t, 20)
	_ = dog.SetWindow(10)
	_ = dog.Start()
	sim.Tick(5) // counter well above the window

	if err := dog.SetTimeout(5); err != nil {
		t.Fatal(err)
	}
	if sim.Resets() != 0 {
		t.Fatal("retiming a running WWDG must not trip the window")
	}
	if sim.Counter() != 0x6A || dog.Setting().Prescaler != uint8(wdt.WDiv1) {
		t.Fatalf("counter=%#x tb=%d", sim.Counter(), dog.Setting().Prescaler)
	}
	if dog.Window() != 10 || sim.Window() != 0x40 {
		t.Fatalf("window=%d W=%#x", dog.Window(), sim.Window())
	}
}

func TestWWDG_EarlyWakeup(t *testing.T) {
	dog, sim := newWWDG(t, 20)
	v := dog.Variant()
	v.EnableEarlyWakeup()
	_ = dog.Start()
	if v.EarlyWakeupPending() {
		t.Fatal("EWIF set too early")
	}
	sim.Tick(0x6A - 0x40)
	if !v.EarlyWakeupPending() {
		t.Fatal("EWIF not raised at 0x40")
	}
	if v.EarlyWakeupPending() {
		t.Fatal("EWIF not cleared")
	}
}
