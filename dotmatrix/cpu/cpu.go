// Package cpu implements the SM83 core: fetch, decode and execute
// over the full instruction set, stepped at machine-cycle
// granularity. Every memory access and internal delay ticks the bus
// as it happens, so the timer, DMA engine and PPU observe
// mid-instruction state at the correct cycle boundary.
package cpu

import (
	"log/slog"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
)

// Bus is the CPU's window onto the rest of the machine.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
}

// Flag is one of the four condition bits in the high nibble of F.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptDispatchCycles is the cost of servicing an interrupt: two
// internal machine cycles, two stack pushes and the vector jump.
const interruptDispatchCycles = 20

// CPU holds the full execution state.
type CPU struct {
	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	ime       bool
	eiPending bool
	halted    bool
	stopped   bool

	// haltBug makes the next opcode fetch skip the PC increment, so
	// the byte after HALT is executed twice. Armed by HALT when IME
	// is clear and an interrupt is already pending.
	haltBug bool

	currentOpcode uint16
	cycles        uint64
	instCycles    int

	illegalOp   uint8
	illegalSeen bool

	bus Bus
}

// New returns a CPU in the documented post-boot state.
func New(bus Bus) *CPU {
	cpu := &CPU{bus: bus}
	cpu.setAF(0x01B0)
	cpu.setBC(0x0013)
	cpu.setDE(0x00D8)
	cpu.setHL(0x014D)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100
	return cpu
}

// Step runs one instruction, or one interrupt dispatch, or one idle
// halt cycle, and returns the T-cycles consumed. The bus has already
// been ticked for every one of them by the time Step returns.
func (c *CPU) Step() int {
	c.instCycles = 0

	pending := c.pendingMask() != 0

	if pending && (c.halted || c.stopped) {
		// wake even when IME is clear; without IME no dispatch
		// happens (wake-without-service)
		c.halted = false
		c.stopped = false
	}

	if c.ime && pending {
		c.dispatchInterrupt()
		return c.instCycles
	}

	if c.halted || c.stopped {
		c.tick(4)
		return c.instCycles
	}

	enableIME := c.eiPending

	op := c.fetchOpcode()
	c.currentOpcode = uint16(op)
	opcodes[op](c)

	// EI takes effect after the following instruction; DI in that
	// window cancels it
	if enableIME && c.eiPending {
		c.eiPending = false
		c.ime = true
	}

	return c.instCycles
}

// pendingMask returns the interrupts both enabled and requested.
func (c *CPU) pendingMask() uint8 {
	return c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & 0x1F
}

// dispatchInterrupt services the highest-priority pending interrupt:
// push PC, clear IME and the request bit, jump to the vector.
func (c *CPU) dispatchInterrupt() {
	flags := c.bus.Read(addr.IF)
	mask := c.bus.Read(addr.IE) & flags & 0x1F

	for i := uint8(0); i < 5; i++ {
		if !bit.IsSet(i, mask) {
			continue
		}
		kind := addr.Interrupt(i)

		c.ime = false
		c.bus.Write(addr.IF, bit.Clear(i, flags))

		// two internal cycles while the CPU decides
		c.tick(8)
		c.pushWord(c.pc)
		c.pc = kind.Vector()
		c.tick(4)
		return
	}
}

// fetchOpcode reads the next opcode byte. Under the halt bug the PC
// increment is skipped, so the same byte is fetched again by the
// following instruction.
func (c *CPU) fetchOpcode() uint8 {
	op := c.bus.Read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	c.tick(4)
	return op
}

// tick spends T-cycles: accounting plus the bus fan-out that keeps
// timer, DMA and PPU in lockstep.
func (c *CPU) tick(cycles int) {
	c.instCycles += cycles
	c.cycles += uint64(cycles)
	c.bus.Tick(cycles)
}

// read performs a one-machine-cycle bus read.
func (c *CPU) read(address uint16) uint8 {
	value := c.bus.Read(address)
	c.tick(4)
	return value
}

// write performs a one-machine-cycle bus write.
func (c *CPU) write(address uint16, value uint8) {
	c.bus.Write(address, value)
	c.tick(4)
}

// fetchByte reads the immediate operand at PC.
func (c *CPU) fetchByte() uint8 {
	value := c.read(c.pc)
	c.pc++
	return value
}

// fetchWord reads a little-endian immediate word at PC.
func (c *CPU) fetchWord() uint16 {
	low := c.fetchByte()
	high := c.fetchByte()
	return bit.Combine(high, low)
}

func (c *CPU) pushWord(value uint16) {
	c.sp--
	c.write(c.sp, bit.High(value))
	c.sp--
	c.write(c.sp, bit.Low(value))
}

func (c *CPU) popWord() uint16 {
	low := c.read(c.sp)
	c.sp++
	high := c.read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

// illegal records an undefined opcode. Policy: flag and continue as a
// no-op; the host can poll IllegalOpcode to halt or report.
func (c *CPU) illegal() {
	op := uint8(c.currentOpcode)
	if !c.illegalSeen {
		slog.Warn("Illegal opcode executed", "opcode", op, "pc", c.pc)
	}
	c.illegalOp = op
	c.illegalSeen = true
}

// IllegalOpcode reports whether an undefined opcode was executed and
// which one.
func (c *CPU) IllegalOpcode() (uint8, bool) {
	return c.illegalOp, c.illegalSeen
}

func (c *CPU) setFlag(flag Flag) { c.f |= uint8(flag) }

func (c *CPU) resetFlag(flag Flag) { c.f &^= uint8(flag) }

func (c *CPU) isSetFlag(flag Flag) bool { return c.f&uint8(flag) != 0 }

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

// flagToBit returns 1 if the flag is set, 0 otherwise.
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// low nibble of F is not wired and always reads zero
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }

// State accessors for the driver, debuggers and tests.

func (c *CPU) A() uint8        { return c.a }
func (c *CPU) F() uint8        { return c.f }
func (c *CPU) B() uint8        { return c.b }
func (c *CPU) C() uint8        { return c.c }
func (c *CPU) D() uint8        { return c.d }
func (c *CPU) E() uint8        { return c.e }
func (c *CPU) H() uint8        { return c.h }
func (c *CPU) L() uint8        { return c.l }
func (c *CPU) SP() uint16      { return c.sp }
func (c *CPU) PC() uint16      { return c.pc }
func (c *CPU) Cycles() uint64  { return c.cycles }
func (c *CPU) IME() bool       { return c.ime }
func (c *CPU) IsHalted() bool  { return c.halted }
func (c *CPU) IsStopped() bool { return c.stopped }
