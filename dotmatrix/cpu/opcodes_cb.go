package cpu

import "github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"

// The 0xCB-prefixed table is fully regular, so it is decoded by bit
// field instead of a second 256-entry table:
//
//	bits 7-6: group (shift/rotate, BIT, RES, SET)
//	bits 5-3: sub-operation or bit index
//	bits 2-0: operand (B C D E H L (HL) A)
//
// Register forms cost 8 cycles (prefix + opcode fetch). (HL) forms
// add the memory cycles: 12 for BIT, 16 for everything that writes
// back.
func (c *CPU) prefixCB() {
	op := c.fetchByte()
	c.currentOpcode = bit.Combine(0xCB, op)

	operand := int(op & 0x07)
	index := op >> 3 & 0x07

	switch op >> 6 {
	case 0:
		c.writeOperand(operand, c.shiftRotate(index, c.readOperand(operand)))
	case 1:
		c.bitTest(index, c.readOperand(operand))
	case 2:
		c.writeOperand(operand, bit.Clear(index, c.readOperand(operand)))
	case 3:
		c.writeOperand(operand, bit.Set(index, c.readOperand(operand)))
	}
}

// shiftRotate dispatches group 0: RLC RRC RL RR SLA SRA SWAP SRL.
func (c *CPU) shiftRotate(index uint8, value uint8) uint8 {
	switch index {
	case 0:
		return c.rlc(value, true)
	case 1:
		return c.rrc(value, true)
	case 2:
		return c.rl(value, true)
	case 3:
		return c.rr(value, true)
	case 4:
		return c.sla(value)
	case 5:
		return c.sra(value)
	case 6:
		return c.swap(value)
	default:
		return c.srl(value)
	}
}
