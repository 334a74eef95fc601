// Command wdt-demo runs the watchdog service against a simulated IWDG on the
// host. Feeding is paused half way through so the simulated device resets.
package main

import (
	"context"
	"time"

	"watchdog-go/bus"
	"watchdog-go/drivers/wdt"
	"watchdog-go/drivers/wdt/wdtsim"
	"watchdog-go/services/config"
	"watchdog-go/services/watchdog"
	"watchdog-go/types"
)

const (
	device   = "sim"
	runFor   = 7 * time.Second
	pauseAt  = 3 * time.Second
	simSlice = 10 * time.Millisecond
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := wdtsim.NewIWDG(wdt.DefaultIWDGInputHz)
	dog, err := wdt.New(wdt.NewIWDG(sim.Registers()), 1000)
	if err != nil {
		println("Error:", "watchdog init failed:", err.Error())
		return
	}

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	uiConn := b.NewConnection("ui")

	mon := uiConn.Subscribe(bus.T("hal", "watchdog", "state"))
	go func() {
		for m := range mon.Channel() {
			if st, ok := m.Payload.(types.WatchdogState); ok {
				println("[monitor]", st.Level, "timeout", st.EffectiveMs, "ms, feed every", st.FeedIntervalMs, "ms, feeds", int(st.Feeds), "paused", st.Paused)
			}
		}
	}()

	println("[main] starting watchdog service …")
	if err := watchdog.New(dog).Start(ctx, b.NewConnection("watchdog")); err != nil {
		println("Error:", err.Error())
		return
	}

	println("[main] publishing config for", device, "…")
	config.NewConfigService().Start(context.WithValue(ctx, config.CtxDeviceKey, device), b.NewConnection("config"))

	tick := time.NewTicker(simSlice)
	defer tick.Stop()
	start := time.Now()
	paused := false
	resets := 0
	for range tick.C {
		sim.Advance(simSlice)
		if n := sim.Resets(); n != resets {
			resets = n
			println("[sim] watchdog reset after", int(time.Since(start)/time.Millisecond), "ms")
		}
		elapsed := time.Since(start)
		if !paused && elapsed >= pauseAt {
			paused = true
			reqCtx, done := context.WithTimeout(ctx, time.Second)
			_, err := uiConn.RequestWait(reqCtx, uiConn.NewMessage(
				bus.T("hal", "watchdog", "control", "pause_feed"), types.PauseFeed{Paused: true}, false))
			done()
			if err != nil {
				println("Warn:", "pause_feed:", err.Error())
			}
		}
		if elapsed >= runFor {
			break
		}
	}
	println("[main] done, resets:", resets)
}
