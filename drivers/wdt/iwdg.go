package wdt

import "watchdog-go/x/mathx"

// DefaultIWDGInputHz is the nominal LSI frequency clocking the IWDG.
const DefaultIWDGInputHz = 32000

// IWDG drives the independent watchdog. It always runs at Div256 for the
// longest reachable timeout.
type IWDG struct {
	regs IWDGRegisters
	cfg  Config
}

// NewIWDG wraps regs. It does not touch the hardware.
func NewIWDG(regs IWDGRegisters, cfgs ...Config) *IWDG {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	return &IWDG{regs: regs, cfg: c.withDefaults(DefaultIWDGInputHz)}
}

func (d *IWDG) Init() uint32 { return d.cfg.InputHz }

// Start writes the start key. The IWDG cannot be stopped once started.
func (d *IWDG) Start() error {
	d.regs.KR.Set(KeyStart)
	return nil
}

func (d *IWDG) Feed() { d.regs.KR.Set(KeyReload) }

func (d *IWDG) Configure(inputHz, timeoutMs uint32) (Setting, error) {
	s := IWDGSetting(inputHz, timeoutMs)

	// PR/RLR writes are ignored by hardware while a previous update is pending.
	if err := waitClear(d.regs.SR, SR_PVU|SR_RVU, d.cfg); err != nil {
		return Setting{}, err
	}
	d.regs.KR.Set(KeyAccess)
	d.regs.PR.Set(uint32(s.Prescaler))
	d.regs.RLR.Set(s.Reload)
	// The reload key copies RLR into the counter, so it has to wait until
	// the new values have crossed into the IWDG clock domain.
	if err := waitClear(d.regs.SR, SR_PVU|SR_RVU, d.cfg); err != nil {
		return Setting{}, err
	}
	// Re-locks and loads the new reload value into the counter.
	d.Feed()
	return s, nil
}

// IWDGSetting computes the register values for timeoutMs at inputHz without
// touching hardware. reload = timeoutMs * (inputHz/256) / 1000, truncated and
// clamped into [1, MaxReload].
func IWDGSetting(inputHz, timeoutMs uint32) Setting {
	if inputHz == 0 {
		inputHz = 1
	}
	div := Div256.Divisor()
	reload := uint64(timeoutMs) * uint64(inputHz) / (uint64(div) * 1000)
	reload = mathx.Clamp(reload, 1, MaxReload)
	return Setting{
		Prescaler: uint8(Div256),
		Divisor:   div,
		Reload:    uint32(reload),
		TimeoutMs: ticksToMs(reload, div, inputHz),
	}
}

// IWDGMaxTimeout returns the longest timeout in ms reachable at inputHz.
func IWDGMaxTimeout(inputHz uint32) uint32 {
	if inputHz == 0 {
		inputHz = 1
	}
	return ticksToMs(MaxReload, Div256.Divisor(), inputHz)
}

// ticksToMs converts a count of prescaled ticks to milliseconds, truncated
// and saturated at the uint32 range.
func ticksToMs(ticks uint64, div, inputHz uint32) uint32 {
	ms := ticks * uint64(div) * 1000 / uint64(inputHz)
	return uint32(mathx.Min(ms, uint64(^uint32(0))))
}
