package wdt

import "tinygo.org/x/drivers"

// IWDG block offsets, shared by the MMIO layout and the I2C bridge.
const (
	offKR  = 0x00
	offPR  = 0x04
	offRLR = 0x08
	offSR  = 0x0C
)

// I2CBlock exposes a remote register block through an I2C bridge that maps
// each 32-bit register to a sub-address (little-endian, low byte first).
//
// Register has no error return, so the first bus error is latched and read
// back with Err. A failed read returns all ones, which keeps status waits
// pessimistic.
type I2CBlock struct {
	bus  drivers.I2C
	addr uint16
	err  error

	// Fixed buffers to avoid per-call heap allocations.
	w [5]byte
	r [4]byte
}

func NewI2CBlock(bus drivers.I2C, addr uint16) *I2CBlock {
	return &I2CBlock{bus: bus, addr: addr}
}

// Reg returns the register at sub-address sub.
func (b *I2CBlock) Reg(sub byte) Register { return i2cRegister{b: b, sub: sub} }

// Err returns and clears the first latched bus error.
func (b *I2CBlock) Err() error {
	err := b.err
	b.err = nil
	return err
}

func (b *I2CBlock) latch(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

func (b *I2CBlock) read(sub byte) uint32 {
	b.w[0] = sub
	if err := b.bus.Tx(b.addr, b.w[:1], b.r[:4]); err != nil {
		b.latch(err)
		return ^uint32(0)
	}
	return uint32(b.r[0]) | uint32(b.r[1])<<8 | uint32(b.r[2])<<16 | uint32(b.r[3])<<24
}

func (b *I2CBlock) write(sub byte, v uint32) {
	b.w[0] = sub
	b.w[1] = byte(v)
	b.w[2] = byte(v >> 8)
	b.w[3] = byte(v >> 16)
	b.w[4] = byte(v >> 24)
	b.latch(b.bus.Tx(b.addr, b.w[:5], nil))
}

type i2cRegister struct {
	b   *I2CBlock
	sub byte
}

func (r i2cRegister) Get() uint32  { return r.b.read(r.sub) }
func (r i2cRegister) Set(v uint32) { r.b.write(r.sub, v) }

// NewI2CIWDG builds an IWDG register block behind an I2C bridge at addr.
func NewI2CIWDG(bus drivers.I2C, addr uint16) (IWDGRegisters, *I2CBlock) {
	b := NewI2CBlock(bus, addr)
	return IWDGRegisters{
		KR:  b.Reg(offKR),
		PR:  b.Reg(offPR),
		RLR: b.Reg(offRLR),
		SR:  b.Reg(offSR),
	}, b
}
