package wdt

// Register is a single memory-mapped register field. *volatile.Register32
// satisfies it, as do the simulators in wdtsim.
type Register interface {
	Get() uint32
	Set(value uint32)
}

// IWDGRegisters is the independent watchdog register block.
type IWDGRegisters struct {
	KR  Register // key
	PR  Register // prescaler
	RLR Register // reload
	SR  Register // status
}

// WWDGRegisters is the window watchdog register block.
type WWDGRegisters struct {
	CR  Register // control: T[6:0], WDGA
	CFR Register // configuration: W[6:0], WDGTB, EWI
	SR  Register // status: EWIF
}

const (
	// --- IWDG keys (KR) ---
	KeyAccess = 0x5555 // unlocks PR/RLR
	KeyReload = 0xAAAA // reloads the counter, re-locks PR/RLR
	KeyStart  = 0xCCCC // starts the counter

	// --- IWDG limits ---
	MaxReload = 0x0FFF // RLR is 12 bits

	// --- IWDG SR bits ---
	SR_PVU = 1 << 0 // prescaler value update in progress
	SR_RVU = 1 << 1 // reload value update in progress

	// --- WWDG CR ---
	CR_T    = 0x7F   // 7-bit counter
	CR_T6   = 1 << 6 // reset when this bit clears
	CR_WDGA = 1 << 7 // activation, cleared only by reset

	// --- WWDG CFR ---
	CFR_W          = 0x7F // 7-bit window
	CFR_WDGTBShift = 7
	CFR_WDGTB      = 0x3 << CFR_WDGTBShift
	CFR_EWI        = 1 << 9

	// --- WWDG SR ---
	SR_EWIF = 1 << 0

	// --- WWDG counter bounds ---
	wwdgCounterMin = 0x40 // lowest counter value with T6 set
	wwdgCounterMax = 0x7F
	wwdgMaxTicks   = wwdgCounterMax - wwdgCounterMin + 1
	wwdgFixedDiv   = 4096
)
