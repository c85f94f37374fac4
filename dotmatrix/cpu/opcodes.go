package cpu

import "github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"

// opcodeFn executes one instruction. Cycle spending happens inside,
// through the timed bus helpers.
type opcodeFn func(*CPU)

// Operand indices follow the hardware encoding: B C D E H L (HL) A.
const operandHL = 6

// readOperand reads one of the eight r8 operands; index 6 is the
// byte at (HL) and costs a machine cycle.
func (c *CPU) readOperand(index int) uint8 {
	switch index {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case operandHL:
		return c.read(c.getHL())
	default:
		return c.a
	}
}

func (c *CPU) writeOperand(index int, value uint8) {
	switch index {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case operandHL:
		c.write(c.getHL(), value)
	default:
		c.a = value
	}
}

// condition decodes the cc field: NZ, Z, NC, C.
func (c *CPU) condition(index int) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	default:
		return c.isSetFlag(carryFlag)
	}
}

// opcodes is the primary dispatch table. The irregular rows are
// listed here; the regular LD/ALU/INC/DEC/LD-immediate blocks are
// filled in by init below.
var opcodes = [256]opcodeFn{
	0x00: (*CPU).nop,
	0x01: (*CPU).ldBCnn,
	0x02: (*CPU).ldIndBCA,
	0x03: (*CPU).incBC,
	0x07: (*CPU).rlca,
	0x08: (*CPU).ldIndnnSP,
	0x09: (*CPU).addHLBC,
	0x0A: (*CPU).ldAIndBC,
	0x0B: (*CPU).decBC,
	0x0F: (*CPU).rrca,

	0x10: (*CPU).stop,
	0x11: (*CPU).ldDEnn,
	0x12: (*CPU).ldIndDEA,
	0x13: (*CPU).incDE,
	0x17: (*CPU).rla,
	0x18: (*CPU).jr,
	0x19: (*CPU).addHLDE,
	0x1A: (*CPU).ldAIndDE,
	0x1B: (*CPU).decDE,
	0x1F: (*CPU).rra,

	0x20: (*CPU).jrNZ,
	0x21: (*CPU).ldHLnn,
	0x22: (*CPU).ldIndHLIncA,
	0x23: (*CPU).incHL,
	0x27: (*CPU).opDAA,
	0x28: (*CPU).jrZ,
	0x29: (*CPU).addHLHL,
	0x2A: (*CPU).ldAIndHLInc,
	0x2B: (*CPU).decHL,
	0x2F: (*CPU).cpl,

	0x30: (*CPU).jrNC,
	0x31: (*CPU).ldSPnn,
	0x32: (*CPU).ldIndHLDecA,
	0x33: (*CPU).incSP,
	0x37: (*CPU).scf,
	0x38: (*CPU).jrC,
	0x39: (*CPU).addHLSP,
	0x3A: (*CPU).ldAIndHLDec,
	0x3B: (*CPU).decSP,
	0x3F: (*CPU).ccf,

	0x76: (*CPU).halt,

	0xC0: (*CPU).retNZ,
	0xC1: (*CPU).popBC,
	0xC2: (*CPU).jpNZ,
	0xC3: (*CPU).jp,
	0xC4: (*CPU).callNZ,
	0xC5: (*CPU).pushBC,
	0xC6: (*CPU).addAn,
	0xC7: (*CPU).rst00,
	0xC8: (*CPU).retZ,
	0xC9: (*CPU).ret,
	0xCA: (*CPU).jpZ,
	0xCB: (*CPU).prefixCB,
	0xCC: (*CPU).callZ,
	0xCD: (*CPU).call,
	0xCE: (*CPU).adcAn,
	0xCF: (*CPU).rst08,

	0xD0: (*CPU).retNC,
	0xD1: (*CPU).popDE,
	0xD2: (*CPU).jpNC,
	0xD3: (*CPU).illegal,
	0xD4: (*CPU).callNC,
	0xD5: (*CPU).pushDE,
	0xD6: (*CPU).subAn,
	0xD7: (*CPU).rst10,
	0xD8: (*CPU).retC,
	0xD9: (*CPU).reti,
	0xDA: (*CPU).jpC,
	0xDB: (*CPU).illegal,
	0xDC: (*CPU).callC,
	0xDD: (*CPU).illegal,
	0xDE: (*CPU).sbcAn,
	0xDF: (*CPU).rst18,

	0xE0: (*CPU).ldhIndnA,
	0xE1: (*CPU).popHL,
	0xE2: (*CPU).ldhIndCA,
	0xE3: (*CPU).illegal,
	0xE4: (*CPU).illegal,
	0xE5: (*CPU).pushHL,
	0xE6: (*CPU).andAn,
	0xE7: (*CPU).rst20,
	0xE8: (*CPU).addSPn,
	0xE9: (*CPU).jpHL,
	0xEA: (*CPU).ldIndnnA,
	0xEB: (*CPU).illegal,
	0xEC: (*CPU).illegal,
	0xED: (*CPU).illegal,
	0xEE: (*CPU).xorAn,
	0xEF: (*CPU).rst28,

	0xF0: (*CPU).ldhAIndn,
	0xF1: (*CPU).popAF,
	0xF2: (*CPU).ldhAIndC,
	0xF3: (*CPU).di,
	0xF4: (*CPU).illegal,
	0xF5: (*CPU).pushAF,
	0xF6: (*CPU).orAn,
	0xF7: (*CPU).rst30,
	0xF8: (*CPU).ldHLSPn,
	0xF9: (*CPU).ldSPHL,
	0xFA: (*CPU).ldAIndnn,
	0xFB: (*CPU).ei,
	0xFC: (*CPU).illegal,
	0xFD: (*CPU).illegal,
	0xFE: (*CPU).cpAn,
	0xFF: (*CPU).rst38,
}

// aluOps indexes the eight accumulator operations by the opcode's
// bits 5-3: ADD ADC SUB SBC AND XOR OR CP.
var aluOps = [8]func(*CPU, uint8){
	(*CPU).addToA,
	(*CPU).adcToA,
	(*CPU).subFromA,
	(*CPU).sbcFromA,
	(*CPU).andWithA,
	(*CPU).xorWithA,
	(*CPU).orWithA,
	(*CPU).compareA,
}

func init() {
	// LD r,r' block (0x40-0x7F, 0x76 is HALT)
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			op := 0x40 + dst*8 + src
			if op == 0x76 {
				continue
			}
			opcodes[op] = makeLD(dst, src)
		}
	}

	// ALU A,r block (0x80-0xBF)
	for i, fn := range aluOps {
		for src := 0; src < 8; src++ {
			opcodes[0x80+i*8+src] = makeALU(fn, src)
		}
	}

	// the INC r / DEC r / LD r,n columns of rows 0x0.-0x3.
	for i := 0; i < 8; i++ {
		opcodes[0x04+i*8] = makeINC(i)
		opcodes[0x05+i*8] = makeDEC(i)
		opcodes[0x06+i*8] = makeLDImmediate(i)
	}
}

func makeLD(dst, src int) opcodeFn {
	return func(c *CPU) {
		c.writeOperand(dst, c.readOperand(src))
	}
}

func makeALU(fn func(*CPU, uint8), src int) opcodeFn {
	return func(c *CPU) {
		fn(c, c.readOperand(src))
	}
}

func makeINC(index int) opcodeFn {
	return func(c *CPU) {
		c.writeOperand(index, c.inc8(c.readOperand(index)))
	}
}

func makeDEC(index int) opcodeFn {
	return func(c *CPU) {
		c.writeOperand(index, c.dec8(c.readOperand(index)))
	}
}

func makeLDImmediate(index int) opcodeFn {
	return func(c *CPU) {
		c.writeOperand(index, c.fetchByte())
	}
}

// NOP
func (c *CPU) nop() {}

// LD rr,nn

func (c *CPU) ldBCnn() { c.setBC(c.fetchWord()) }
func (c *CPU) ldDEnn() { c.setDE(c.fetchWord()) }
func (c *CPU) ldHLnn() { c.setHL(c.fetchWord()) }
func (c *CPU) ldSPnn() { c.sp = c.fetchWord() }

// LD (rr),A and LD A,(rr)

func (c *CPU) ldIndBCA() { c.write(c.getBC(), c.a) }
func (c *CPU) ldIndDEA() { c.write(c.getDE(), c.a) }
func (c *CPU) ldAIndBC() { c.a = c.read(c.getBC()) }
func (c *CPU) ldAIndDE() { c.a = c.read(c.getDE()) }

func (c *CPU) ldIndHLIncA() {
	c.write(c.getHL(), c.a)
	c.setHL(c.getHL() + 1)
}

func (c *CPU) ldIndHLDecA() {
	c.write(c.getHL(), c.a)
	c.setHL(c.getHL() - 1)
}

func (c *CPU) ldAIndHLInc() {
	c.a = c.read(c.getHL())
	c.setHL(c.getHL() + 1)
}

func (c *CPU) ldAIndHLDec() {
	c.a = c.read(c.getHL())
	c.setHL(c.getHL() - 1)
}

// LD (nn),SP
func (c *CPU) ldIndnnSP() {
	address := c.fetchWord()
	c.write(address, bit.Low(c.sp))
	c.write(address+1, bit.High(c.sp))
}

// 16-bit INC/DEC take one extra internal cycle.

func (c *CPU) incBC() { c.setBC(c.getBC() + 1); c.tick(4) }
func (c *CPU) incDE() { c.setDE(c.getDE() + 1); c.tick(4) }
func (c *CPU) incHL() { c.setHL(c.getHL() + 1); c.tick(4) }
func (c *CPU) incSP() { c.sp++; c.tick(4) }
func (c *CPU) decBC() { c.setBC(c.getBC() - 1); c.tick(4) }
func (c *CPU) decDE() { c.setDE(c.getDE() - 1); c.tick(4) }
func (c *CPU) decHL() { c.setHL(c.getHL() - 1); c.tick(4) }
func (c *CPU) decSP() { c.sp--; c.tick(4) }

// ADD HL,rr

func (c *CPU) addHLBC() { c.addToHL(c.getBC()); c.tick(4) }
func (c *CPU) addHLDE() { c.addToHL(c.getDE()); c.tick(4) }
func (c *CPU) addHLHL() { c.addToHL(c.getHL()); c.tick(4) }
func (c *CPU) addHLSP() { c.addToHL(c.sp); c.tick(4) }

// Accumulator rotates: the zero flag is always cleared.

func (c *CPU) rlca() { c.a = c.rlc(c.a, false) }
func (c *CPU) rrca() { c.a = c.rrc(c.a, false) }
func (c *CPU) rla()  { c.a = c.rl(c.a, false) }
func (c *CPU) rra()  { c.a = c.rr(c.a, false) }

// DAA
func (c *CPU) opDAA() { c.daa() }

// CPL
func (c *CPU) cpl() {
	c.a = ^c.a
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// SCF
func (c *CPU) scf() {
	c.setFlag(carryFlag)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// CCF
func (c *CPU) ccf() {
	c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// JR and conditional variants. A taken branch costs one extra cycle.

func (c *CPU) jrIf(taken bool) {
	offset := int8(c.fetchByte())
	if !taken {
		return
	}
	c.pc = uint16(int32(c.pc) + int32(offset))
	c.tick(4)
}

func (c *CPU) jr()   { c.jrIf(true) }
func (c *CPU) jrNZ() { c.jrIf(c.condition(0)) }
func (c *CPU) jrZ()  { c.jrIf(c.condition(1)) }
func (c *CPU) jrNC() { c.jrIf(c.condition(2)) }
func (c *CPU) jrC()  { c.jrIf(c.condition(3)) }

// JP and conditional variants.

func (c *CPU) jpIf(taken bool) {
	target := c.fetchWord()
	if !taken {
		return
	}
	c.pc = target
	c.tick(4)
}

func (c *CPU) jp()   { c.jpIf(true) }
func (c *CPU) jpNZ() { c.jpIf(c.condition(0)) }
func (c *CPU) jpZ()  { c.jpIf(c.condition(1)) }
func (c *CPU) jpNC() { c.jpIf(c.condition(2)) }
func (c *CPU) jpC()  { c.jpIf(c.condition(3)) }

// JP HL jumps without any extra cycle.
func (c *CPU) jpHL() { c.pc = c.getHL() }

// CALL and conditional variants.

func (c *CPU) callIf(taken bool) {
	target := c.fetchWord()
	if !taken {
		return
	}
	c.tick(4)
	c.pushWord(c.pc)
	c.pc = target
}

func (c *CPU) call()   { c.callIf(true) }
func (c *CPU) callNZ() { c.callIf(c.condition(0)) }
func (c *CPU) callZ()  { c.callIf(c.condition(1)) }
func (c *CPU) callNC() { c.callIf(c.condition(2)) }
func (c *CPU) callC()  { c.callIf(c.condition(3)) }

// RET, RETI and conditional variants.

func (c *CPU) ret() {
	c.pc = c.popWord()
	c.tick(4)
}

func (c *CPU) reti() {
	c.pc = c.popWord()
	c.tick(4)
	c.ime = true
}

func (c *CPU) retIf(taken bool) {
	c.tick(4) // condition check takes an internal cycle
	if !taken {
		return
	}
	c.pc = c.popWord()
	c.tick(4)
}

func (c *CPU) retNZ() { c.retIf(c.condition(0)) }
func (c *CPU) retZ()  { c.retIf(c.condition(1)) }
func (c *CPU) retNC() { c.retIf(c.condition(2)) }
func (c *CPU) retC()  { c.retIf(c.condition(3)) }

// RST

func (c *CPU) rst(target uint16) {
	c.tick(4)
	c.pushWord(c.pc)
	c.pc = target
}

func (c *CPU) rst00() { c.rst(0x00) }
func (c *CPU) rst08() { c.rst(0x08) }
func (c *CPU) rst10() { c.rst(0x10) }
func (c *CPU) rst18() { c.rst(0x18) }
func (c *CPU) rst20() { c.rst(0x20) }
func (c *CPU) rst28() { c.rst(0x28) }
func (c *CPU) rst30() { c.rst(0x30) }
func (c *CPU) rst38() { c.rst(0x38) }

// PUSH/POP

func (c *CPU) pushBC() { c.tick(4); c.pushWord(c.getBC()) }
func (c *CPU) pushDE() { c.tick(4); c.pushWord(c.getDE()) }
func (c *CPU) pushHL() { c.tick(4); c.pushWord(c.getHL()) }
func (c *CPU) pushAF() { c.tick(4); c.pushWord(c.getAF()) }

func (c *CPU) popBC() { c.setBC(c.popWord()) }
func (c *CPU) popDE() { c.setDE(c.popWord()) }
func (c *CPU) popHL() { c.setHL(c.popWord()) }

// popAF goes through setAF so the low nibble of F stays zero.
func (c *CPU) popAF() { c.setAF(c.popWord()) }

// ALU A,n immediates

func (c *CPU) addAn() { c.addToA(c.fetchByte()) }
func (c *CPU) adcAn() { c.adcToA(c.fetchByte()) }
func (c *CPU) subAn() { c.subFromA(c.fetchByte()) }
func (c *CPU) sbcAn() { c.sbcFromA(c.fetchByte()) }
func (c *CPU) andAn() { c.andWithA(c.fetchByte()) }
func (c *CPU) xorAn() { c.xorWithA(c.fetchByte()) }
func (c *CPU) orAn()  { c.orWithA(c.fetchByte()) }
func (c *CPU) cpAn()  { c.compareA(c.fetchByte()) }

// High-page loads (0xFF00 window)

func (c *CPU) ldhIndnA() { c.write(0xFF00+uint16(c.fetchByte()), c.a) }
func (c *CPU) ldhAIndn() { c.a = c.read(0xFF00 + uint16(c.fetchByte())) }
func (c *CPU) ldhIndCA() { c.write(0xFF00+uint16(c.c), c.a) }
func (c *CPU) ldhAIndC() { c.a = c.read(0xFF00 + uint16(c.c)) }

// LD (nn),A / LD A,(nn)

func (c *CPU) ldIndnnA() { c.write(c.fetchWord(), c.a) }
func (c *CPU) ldAIndnn() { c.a = c.read(c.fetchWord()) }

// ADD SP,e
func (c *CPU) addSPn() {
	c.sp = c.addSPRelative(int8(c.fetchByte()))
	c.tick(8)
}

// LD HL,SP+e
func (c *CPU) ldHLSPn() {
	c.setHL(c.addSPRelative(int8(c.fetchByte())))
	c.tick(4)
}

// LD SP,HL
func (c *CPU) ldSPHL() {
	c.sp = c.getHL()
	c.tick(4)
}

// DI
func (c *CPU) di() {
	c.ime = false
	c.eiPending = false
}

// EI enables IME after the following instruction.
func (c *CPU) ei() {
	c.eiPending = true
}

// HALT enters low-power mode. With IME clear and an interrupt
// already pending the CPU does not halt; instead the halt bug arms
// and the next opcode byte is fetched twice.
func (c *CPU) halt() {
	if c.ime {
		c.halted = true
		return
	}
	if c.pendingMask() != 0 {
		c.haltBug = true
		return
	}
	c.halted = true
}

// STOP enters deep low-power mode and resets the divider. The
// operand padding byte is skipped without a bus access.
func (c *CPU) stop() {
	c.pc++
	c.stopped = true
	c.bus.Write(0xFF04, 0)
}
