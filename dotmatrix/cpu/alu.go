package cpu

// Arithmetic and logic helpers shared by the opcode tables. Flag
// rules follow hardware nibble/byte overflow semantics exactly.

func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value) > 0xFF)

	c.a = result
}

func (c *CPU) adcToA(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a + value + carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carry) > 0xFF)

	c.a = result
}

func (c *CPU) subFromA(value uint8) {
	a := c.a
	result := a - value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
	c.setFlagToCondition(carryFlag, a < value)

	c.a = result
}

func (c *CPU) sbcFromA(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a - value - carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF+carry)
	c.setFlagToCondition(carryFlag, uint16(a) < uint16(value)+uint16(carry))

	c.a = result
}

func (c *CPU) andWithA(value uint8) {
	c.a &= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xorWithA(value uint8) {
	c.a ^= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) orWithA(value uint8) {
	c.a |= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) compareA(value uint8) {
	c.setFlagToCondition(zeroFlag, c.a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, c.a&0xF < value&0xF)
	c.setFlagToCondition(carryFlag, c.a < value)
}

func (c *CPU) inc8(value uint8) uint8 {
	result := value + 1

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0xF)

	return result
}

func (c *CPU) dec8(value uint8) uint8 {
	result := value - 1

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0)

	return result
}

// addToHL implements ADD HL,rr. The zero flag is untouched.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := hl + value

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, hl&0x0FFF+value&0x0FFF > 0x0FFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(value) > 0xFFFF)

	c.setHL(result)
}

// addSPRelative computes SP plus a signed immediate, with the flags
// taken from the low-byte addition as hardware does.
func (c *CPU) addSPRelative(offset int8) uint16 {
	sp := c.sp
	value := uint16(int32(offset))
	result := sp + value

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, sp&0xF+value&0xF > 0xF)
	c.setFlagToCondition(carryFlag, sp&0xFF+value&0xFF > 0xFF)

	return result
}

// daa decimal-adjusts A after a BCD addition or subtraction.
func (c *CPU) daa() {
	a := uint16(c.a)

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			a = (a - 0x06) & 0xFF
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	} else {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x9F {
			a += 0x60
		}
	}

	if a&0x100 != 0 {
		c.setFlag(carryFlag)
	}
	c.a = uint8(a)

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(halfCarryFlag)
}

// Rotates and shifts. The A-register variants (RLCA and friends)
// always clear the zero flag; the CB-prefixed versions set it from
// the result.

func (c *CPU) rlc(value uint8, setZero bool) uint8 {
	result := value<<1 | value>>7

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, setZero && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) rrc(value uint8, setZero bool) uint8 {
	result := value>>1 | value<<7

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, setZero && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) rl(value uint8, setZero bool) uint8 {
	result := value<<1 | c.flagToBit(carryFlag)

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, setZero && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) rr(value uint8, setZero bool) uint8 {
	result := value>>1 | c.flagToBit(carryFlag)<<7

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, setZero && result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1

	c.setFlagToCondition(carryFlag, value > 0x7F)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

// sra shifts right keeping bit 7 (arithmetic shift).
func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1

	c.setFlagToCondition(carryFlag, value&1 == 1)
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)

	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)

	return result
}

// bitTest implements BIT b,r: only flags change.
func (c *CPU) bitTest(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, value>>index&1 == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}
