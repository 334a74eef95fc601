package wdt

// Prescaler selects the IWDG clock divider (PR register code).
type Prescaler uint8

const (
	Div4   Prescaler = 0b000
	Div8   Prescaler = 0b001
	Div16  Prescaler = 0b010
	Div32  Prescaler = 0b011
	Div64  Prescaler = 0b100
	Div128 Prescaler = 0b101
	Div256 Prescaler = 0b110
)

// Divisor returns the clock division applied by p.
func (p Prescaler) Divisor() uint32 { return 4 << p }

// WindowPrescaler selects the WWDG timer base (CFR.WDGTB). It divides the
// clock after the fixed /4096 stage.
type WindowPrescaler uint8

const (
	WDiv1 WindowPrescaler = iota
	WDiv2
	WDiv4
	WDiv8
)

// Divisor returns the total clock division, including the /4096 stage.
func (p WindowPrescaler) Divisor() uint32 { return wwdgFixedDiv << p }
