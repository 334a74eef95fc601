package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Host simulation: IWDG at the nominal 32 kHz LSI.
const cfgSim = `{
  "watchdog": {
    "timeout_ms": 2000,
    "feed_interval_ms": 500,
    "autostart": true
  }
}`

// STM32F401 Nucleo: LSI is specified at 32 kHz nominal, 17-47 kHz worst case.
// Feed at a quarter of the timeout to cover a fast LSI.
const cfgNucleoF401 = `{
  "watchdog": {
    "timeout_ms": 4000,
    "feed_interval_ms": 1000,
    "input_hz": 32000,
    "autostart": true
  }
}`

var embeddedConfigs = map[string][]byte{
	"sim":         []byte(cfgSim),
	"nucleo-f401": []byte(cfgNucleoF401),
}
