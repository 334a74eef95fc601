//go:build stm32

// Command stm32-wdt arms the independent watchdog on an STM32 board and keeps
// it fed from the watchdog service.
package main

import (
	"context"
	"time"

	"watchdog-go/bus"
	"watchdog-go/drivers/wdt"
	"watchdog-go/services/config"
	"watchdog-go/services/watchdog"
)

const device = "nucleo-f401"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.Background()

	// The configured timeout replaces this once config/watchdog arrives.
	dog, err := wdt.New(wdt.NewIWDG(wdt.IWDGFromDevice()), wdt.IWDGMaxTimeout(wdt.DefaultIWDGInputHz))
	if err != nil {
		println("Error:", "watchdog init failed:", err.Error())
		return
	}

	b := bus.NewBus(4)
	if err := watchdog.New(dog).Start(ctx, b.NewConnection("watchdog")); err != nil {
		println("Error:", err.Error())
		return
	}
	config.NewConfigService().Start(context.WithValue(ctx, config.CtxDeviceKey, device), b.NewConnection("config"))

	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()
	for t := range tick.C {
		println(t.Format("15:04:05"), "alive")
	}
}
