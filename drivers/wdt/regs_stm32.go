//go:build stm32

package wdt

import "device/stm32"

// IWDGFromDevice maps the chip's IWDG block.
func IWDGFromDevice() IWDGRegisters {
	return IWDGRegisters{
		KR:  &stm32.IWDG.KR,
		PR:  &stm32.IWDG.PR,
		RLR: &stm32.IWDG.RLR,
		SR:  &stm32.IWDG.SR,
	}
}

// WWDGFromDevice maps the chip's WWDG block. The WWDG clock must already be
// enabled in RCC.
func WWDGFromDevice() WWDGRegisters {
	return WWDGRegisters{
		CR:  &stm32.WWDG.CR,
		CFR: &stm32.WWDG.CFR,
		SR:  &stm32.WWDG.SR,
	}
}
