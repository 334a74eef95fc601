package types

// ------------------------
// Watchdog configuration, supplied on topic "config/watchdog"
// ------------------------

type WatchdogConfig struct {
	TimeoutMs      uint32 `json:"timeout_ms"`
	WindowMs       uint32 `json:"window_ms,omitempty"`        // earliest accepted feed; windowed variants only
	FeedIntervalMs uint32 `json:"feed_interval_ms,omitempty"` // 0 => half the effective timeout
	InputHz        uint32 `json:"input_hz,omitempty"`         // 0 => variant default
	Autostart      bool   `json:"autostart,omitempty"`
}

// ------------------------
// Watchdog state (retained on "hal/watchdog/state")
// ------------------------

type WatchdogState struct {
	Level          string `json:"level"` // "uninitialized", "configured", "running"
	TimeoutMs      uint32 `json:"timeout_ms"`
	EffectiveMs    uint32 `json:"effective_ms"` // timeout realised by the reload value
	WindowMs       uint32 `json:"window_ms,omitempty"`
	InputHz        uint32 `json:"input_hz"`
	Prescaler      uint8  `json:"prescaler"`
	Reload         uint32 `json:"reload"`
	FeedIntervalMs uint32 `json:"feed_interval_ms"`
	Feeds          uint64 `json:"feeds"`
	Paused         bool   `json:"paused,omitempty"`
	Error          string `json:"error,omitempty"` // last errcode, cleared on success
	TS             int64  `json:"ts_ms"`
}

// ------------------------
// Controls on "hal/watchdog/control/<verb>"
// ------------------------

type SetTimeout struct {
	TimeoutMs uint32 `json:"timeout_ms"`
}

type SetWindow struct {
	WindowMs uint32 `json:"window_ms"`
}

type PauseFeed struct {
	Paused bool `json:"paused"`
}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
