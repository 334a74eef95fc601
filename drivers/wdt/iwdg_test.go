package wdt_test

import (
	"errors"
	"testing"
	"time"

	"watchdog-go/drivers/wdt"
	"watchdog-go/drivers/wdt/wdtsim"
	"watchdog-go/x/mathx"
)

func newIWDG(t *testing.T, timeoutMs uint32, cfg wdt.Config) (*wdt.Watchdog[*wdt.IWDG], *wdtsim.IWDG) {
	t.Helper()
	sim := wdtsim.NewIWDG(wdt.DefaultIWDGInputHz)
	dog, err := wdt.New(wdt.NewIWDG(sim.Registers(), cfg), timeoutMs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dog, sim
}

func TestIWDG_Keys(t *testing.T) {
	if wdt.KeyAccess != 0x5555 || wdt.KeyReload != 0xAAAA || wdt.KeyStart != 0xCCCC {
		t.Fatal("IWDG keys changed")
	}
	if wdt.KeyAccess == wdt.KeyReload || wdt.KeyAccess == wdt.KeyStart || wdt.KeyReload == wdt.KeyStart {
		t.Fatal("IWDG keys must be pairwise distinct")
	}
	if wdt.MaxReload != 4095 {
		t.Fatalf("MaxReload=%d", wdt.MaxReload)
	}
}

func TestIWDGSetting_Scenarios(t *testing.T) {
	cases := []struct {
		name    string
		hz, ms  uint32
		wantRLR uint32
		wantMs  uint32
	}{
		{"2s at 32kHz", 32000, 2000, 250, 2000},
		{"zero clamps to 1", 32000, 0, 1, 8},
		{"far above max clamps", 32000, 1_000_000, 4095, 32760},
		{"max uint32", 32000, ^uint32(0), 4095, 32760},
		{"40kHz LSI", 40000, 1000, 156, 998},
		{"sub-tick timeout", 32000, 5, 1, 8},
	}
	for _, c := range cases {
		s := wdt.IWDGSetting(c.hz, c.ms)
		if s.Reload != c.wantRLR || s.TimeoutMs != c.wantMs {
			t.Fatalf("%s: reload=%d timeout=%d, want %d/%d", c.name, s.Reload, s.TimeoutMs, c.wantRLR, c.wantMs)
		}
		if s.Prescaler != uint8(wdt.Div256) || s.Divisor != 256 {
			t.Fatalf("%s: prescaler must be Div256, got %d", c.name, s.Prescaler)
		}
	}
	if wdt.IWDGMaxTimeout(32000) != 32760 {
		t.Fatalf("IWDGMaxTimeout=%d", wdt.IWDGMaxTimeout(32000))
	}
}

func TestIWDGSetting_RangeAndMonotonic(t *testing.T) {
	for _, hz := range []uint32{1, 100, 256, 1000, 32000, 37000, 40000, 1_000_000, ^uint32(0)} {
		prev := uint32(0)
		for ms := uint32(0); ms < 70_000; ms += 37 {
			r := wdt.IWDGSetting(hz, ms).Reload
			if !mathx.Between(r, 1, wdt.MaxReload) {
				t.Fatalf("hz=%d ms=%d: reload %d out of range", hz, ms, r)
			}
			if r < prev {
				t.Fatalf("hz=%d ms=%d: reload decreased %d -> %d", hz, ms, prev, r)
			}
			prev = r
		}
	}
}

func TestIWDG_ConfigureSequence(t *testing.T) {
	dog, sim := newIWDG(t, 2000, wdt.Config{})
	keys := sim.Keys()
	if len(keys) != 2 || keys[0] != wdt.KeyAccess || keys[1] != wdt.KeyReload {
		t.Fatalf("KR writes=%#v, want unlock then reload", keys)
	}
	if sim.Prescaler() != uint32(wdt.Div256) || sim.Reload() != 250 {
		t.Fatalf("PR=%d RLR=%d", sim.Prescaler(), sim.Reload())
	}
	if sim.Unlocked() {
		t.Fatal("registers must be locked after configuration")
	}
	if sim.IgnoredWrites() != 0 {
		t.Fatal("no PR/RLR write may be dropped")
	}
	if sim.Running() || dog.State() != wdt.Configured {
		t.Fatal("construction must not start the watchdog")
	}
	if err := dog.Start(); err != nil {
		t.Fatal(err)
	}
	keys = sim.Keys()
	if keys[len(keys)-1] != wdt.KeyStart || !sim.Running() {
		t.Fatal("Start must write the start key")
	}
}

func TestIWDG_SetTimeoutIdempotent(t *testing.T) {
	dog, sim := newIWDG(t, 1234, wdt.Config{})
	first := dog.Setting()
	pr, rlr := sim.Prescaler(), sim.Reload()
	if err := dog.SetTimeout(1234); err != nil {
		t.Fatal(err)
	}
	if dog.Setting() != first || sim.Prescaler() != pr || sim.Reload() != rlr {
		t.Fatal("repeating SetTimeout must leave identical register values")
	}
}

func TestIWDG_FeedReloadsLatestTimeout(t *testing.T) {
	dog, sim := newIWDG(t, 2000, wdt.Config{})
	_ = dog.Start()
	if err := dog.SetTimeout(1000); err != nil {
		t.Fatal(err)
	}
	sim.Tick(10)
	if sim.Counter() != 115 {
		t.Fatalf("counter=%d want 115", sim.Counter())
	}
	dog.Feed()
	if sim.Counter() != 125 {
		t.Fatalf("counter after feed=%d want 125 (1000 ms)", sim.Counter())
	}
}

func TestIWDG_ResetsWithoutFeed(t *testing.T) {
	dog, sim := newIWDG(t, 500, wdt.Config{})
	_ = dog.Start()

	for i := 0; i < 20; i++ {
		sim.Advance(200 * time.Millisecond)
		dog.Feed()
	}
	if sim.Resets() != 0 {
		t.Fatalf("fed watchdog reset %d times", sim.Resets())
	}

	sim.Advance(600 * time.Millisecond)
	if sim.Resets() != 1 {
		t.Fatalf("resets=%d, want 1 after missing the deadline", sim.Resets())
	}
}

func TestIWDG_HardwareBusy(t *testing.T) {
	dog, sim := newIWDG(t, 2000, wdt.Config{OpTimeout: 2 * time.Millisecond})
	sim.HoldBusy(true)
	keysBefore := len(sim.Keys())

	start := time.Now()
	err := dog.SetTimeout(500)
	if !errors.Is(err, wdt.ErrHardwareBusy) {
		t.Fatalf("err=%v want ErrHardwareBusy", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("busy wait was not bounded")
	}
	if len(sim.Keys()) != keysBefore {
		t.Fatal("nothing may be written when the wait expires")
	}
	if dog.Timeout() != 2000 || sim.Reload() != 250 {
		t.Fatal("previous configuration must stay in effect")
	}

	sim.HoldBusy(false)
	if err := dog.SetTimeout(500); err != nil {
		t.Fatal(err)
	}
	if sim.Reload() != 62 {
		t.Fatalf("RLR=%d want 62", sim.Reload())
	}
}

func TestIWDG_WaitsForPendingUpdate(t *testing.T) {
	dog, sim := newIWDG(t, 2000, wdt.Config{})
	sim.SetUpdateLatency(3)
	sim.TickOnStatusRead(true)

	if err := dog.SetTimeout(1000); err != nil {
		t.Fatal(err)
	}
	if err := dog.SetTimeout(400); err != nil {
		t.Fatalf("SetTimeout after a delayed update: %v", err)
	}
	if sim.IgnoredWrites() != 0 {
		t.Fatalf("%d writes dropped while busy", sim.IgnoredWrites())
	}
	if sim.Reload() != 50 {
		t.Fatalf("RLR=%d want 50", sim.Reload())
	}
}

func TestIWDG_FeedAfterDelayedUpdateLoadsNewReload(t *testing.T) {
	dog, sim := newIWDG(t, 2000, wdt.Config{})
	_ = dog.Start()
	sim.SetUpdateLatency(3)
	sim.TickOnStatusRead(true)

	if err := dog.SetTimeout(1000); err != nil {
		t.Fatal(err)
	}
	dog.Feed()
	if want := dog.Setting().Reload; sim.Counter() != want || want != 125 {
		t.Fatalf("counter=%d after feed, want %d from the latest SetTimeout", sim.Counter(), want)
	}
}

func TestIWDG_ReloadKeyWithheldWhileUpdatePending(t *testing.T) {
	dog, sim := newIWDG(t, 2000, wdt.Config{OpTimeout: 2 * time.Millisecond})
	sim.SetUpdateLatency(3)
	before := len(sim.Keys())

	if err := dog.SetTimeout(1000); !errors.Is(err, wdt.ErrHardwareBusy) {
		t.Fatalf("err=%v want ErrHardwareBusy", err)
	}
	keys := sim.Keys()
	if len(keys) != before+1 || keys[len(keys)-1] != wdt.KeyAccess {
		t.Fatalf("KR writes=%#v, want only the unlock after %d", keys[before:], before)
	}
	if dog.Timeout() != 2000 {
		t.Fatalf("timeout=%d, previous configuration must be reported", dog.Timeout())
	}
}
