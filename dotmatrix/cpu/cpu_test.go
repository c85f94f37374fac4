package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
)

// testBus is flat 64KB memory with no timing side effects, enough to
// execute programs and observe cycle accounting.
type testBus struct {
	mem   [0x10000]byte
	ticks int
}

func (b *testBus) Read(address uint16) byte         { return b.mem[address] }
func (b *testBus) Write(address uint16, value byte) { b.mem[address] = value }
func (b *testBus) Tick(cycles int)                  { b.ticks += cycles }

// newTestCPU loads the program at the post-boot PC and clears flags so
// conditional tests start from a known state.
func newTestCPU(program ...byte) (*CPU, *testBus) {
	bus := &testBus{}
	cpu := New(bus)
	cpu.f = 0
	copy(bus.mem[cpu.pc:], program)
	return cpu, bus
}

func TestCPU_stack(t *testing.T) {
	cpu, _ := newTestCPU()

	cpu.sp = 0xFFFF
	cpu.pushWord(0x0102)

	assert.Equal(t, uint16(0xFFFD), cpu.sp)

	popped := cpu.popWord()

	assert.Equal(t, uint16(0x0102), popped)
	assert.Equal(t, uint16(0xFFFF), cpu.sp)
}

func TestCPU_Step_cycles(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		setup   func(*CPU)
		want    int
	}{
		{desc: "NOP", program: []byte{0x00}, want: 4},
		{desc: "LD B,C", program: []byte{0x41}, want: 4},
		{desc: "LD B,n", program: []byte{0x06, 0x42}, want: 8},
		{desc: "LD A,(HL)", program: []byte{0x7E}, want: 8},
		{desc: "LD (HL),A", program: []byte{0x77}, want: 8},
		{desc: "LD (HL),n", program: []byte{0x36, 0x42}, want: 12},
		{desc: "INC B", program: []byte{0x04}, want: 4},
		{desc: "INC (HL)", program: []byte{0x34}, want: 12},
		{desc: "INC BC", program: []byte{0x03}, want: 8},
		{desc: "DEC SP", program: []byte{0x3B}, want: 8},
		{desc: "ADD HL,DE", program: []byte{0x19}, want: 8},
		{desc: "ADD A,B", program: []byte{0x80}, want: 4},
		{desc: "ADD A,(HL)", program: []byte{0x86}, want: 8},
		{desc: "ADD A,n", program: []byte{0xC6, 0x01}, want: 8},
		{desc: "LD rr,nn", program: []byte{0x01, 0x34, 0x12}, want: 12},
		{desc: "LD (nn),SP", program: []byte{0x08, 0x00, 0xC0}, want: 20},
		{desc: "JR taken", program: []byte{0x18, 0x05}, want: 12},
		{
			desc:    "JR NZ not taken",
			program: []byte{0x20, 0x05},
			setup:   func(c *CPU) { c.setFlag(zeroFlag) },
			want:    8,
		},
		{desc: "JR NZ taken", program: []byte{0x20, 0x05}, want: 12},
		{desc: "JP", program: []byte{0xC3, 0x00, 0xC0}, want: 16},
		{
			desc:    "JP Z not taken",
			program: []byte{0xCA, 0x00, 0xC0},
			want:    12,
		},
		{desc: "JP HL", program: []byte{0xE9}, want: 4},
		{desc: "CALL", program: []byte{0xCD, 0x00, 0xC0}, want: 24},
		{
			desc:    "CALL C not taken",
			program: []byte{0xDC, 0x00, 0xC0},
			want:    12,
		},
		{desc: "RET", program: []byte{0xC9}, want: 16},
		{desc: "RETI", program: []byte{0xD9}, want: 16},
		{desc: "RET NZ taken", program: []byte{0xC0}, want: 20},
		{
			desc:    "RET NZ not taken",
			program: []byte{0xC0},
			setup:   func(c *CPU) { c.setFlag(zeroFlag) },
			want:    8,
		},
		{desc: "RST 38", program: []byte{0xFF}, want: 16},
		{desc: "PUSH BC", program: []byte{0xC5}, want: 16},
		{desc: "POP BC", program: []byte{0xC1}, want: 12},
		{desc: "LDH (n),A", program: []byte{0xE0, 0x80}, want: 12},
		{desc: "LDH A,(n)", program: []byte{0xF0, 0x80}, want: 12},
		{desc: "LD (C),A", program: []byte{0xE2}, want: 8},
		{desc: "LD (nn),A", program: []byte{0xEA, 0x00, 0xC0}, want: 16},
		{desc: "LD A,(nn)", program: []byte{0xFA, 0x00, 0xC0}, want: 16},
		{desc: "ADD SP,n", program: []byte{0xE8, 0x01}, want: 16},
		{desc: "LD HL,SP+n", program: []byte{0xF8, 0x01}, want: 12},
		{desc: "LD SP,HL", program: []byte{0xF9}, want: 8},
		{desc: "EI", program: []byte{0xFB}, want: 4},
		{desc: "DI", program: []byte{0xF3}, want: 4},
		{desc: "RLC B", program: []byte{0xCB, 0x00}, want: 8},
		{desc: "RLC (HL)", program: []byte{0xCB, 0x06}, want: 16},
		{desc: "BIT 0,(HL)", program: []byte{0xCB, 0x46}, want: 12},
		{desc: "SET 0,(HL)", program: []byte{0xCB, 0xC6}, want: 16},
		{desc: "SWAP A", program: []byte{0xCB, 0x37}, want: 8},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu, bus := newTestCPU(tC.program...)
			cpu.setHL(0xC800)
			if tC.setup != nil {
				tC.setup(cpu)
			}

			cycles := cpu.Step()

			assert.Equal(t, tC.want, cycles)
			assert.Equal(t, tC.want, bus.ticks, "bus ticks must match reported cycles")
		})
	}
}

func TestCPU_ldMovesBetweenRegisters(t *testing.T) {
	cpu, _ := newTestCPU(0x41) // LD B,C
	cpu.c = 0x99

	cpu.Step()

	assert.Equal(t, uint8(0x99), cpu.b)
}

func TestCPU_ldThroughHL(t *testing.T) {
	cpu, bus := newTestCPU(0x77, 0x7E) // LD (HL),A ; LD A,(HL)
	cpu.setHL(0xC123)
	cpu.a = 0x5A

	cpu.Step()
	assert.Equal(t, uint8(0x5A), bus.mem[0xC123])

	cpu.a = 0
	cpu.Step()
	assert.Equal(t, uint8(0x5A), cpu.a)
}

func TestCPU_add(t *testing.T) {
	testCases := []struct {
		desc  string
		a     uint8
		value uint8
		want  uint8
		flags Flag
	}{
		{desc: "adds", a: 0x01, value: 0x02, want: 0x03},
		{desc: "sets zero and carry", a: 0xFF, value: 0x01, want: 0, flags: zeroFlag | halfCarryFlag | carryFlag},
		{desc: "sets half carry", a: 0x0F, value: 0x01, want: 0x10, flags: halfCarryFlag},
		{desc: "sets carry", a: 0xF0, value: 0x20, want: 0x10, flags: carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu, _ := newTestCPU()
			cpu.a = tC.a
			cpu.addToA(tC.value)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_adcUsesCarry(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.a = 0x01
	cpu.setFlag(carryFlag)

	cpu.adcToA(0x01)

	assert.Equal(t, uint8(0x03), cpu.a)
}

func TestCPU_sub(t *testing.T) {
	testCases := []struct {
		desc  string
		a     uint8
		value uint8
		want  uint8
		flags Flag
	}{
		{desc: "subtracts", a: 0x03, value: 0x01, want: 0x02, flags: subFlag},
		{desc: "sets zero", a: 0x42, value: 0x42, want: 0, flags: zeroFlag | subFlag},
		{desc: "borrows", a: 0x00, value: 0x01, want: 0xFF, flags: subFlag | halfCarryFlag | carryFlag},
		{desc: "half borrows", a: 0x10, value: 0x01, want: 0x0F, flags: subFlag | halfCarryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu, _ := newTestCPU()
			cpu.a = tC.a
			cpu.subFromA(tC.value)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_sbcUsesCarry(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.a = 0x03
	cpu.setFlag(carryFlag)

	cpu.sbcFromA(0x01)

	assert.Equal(t, uint8(0x01), cpu.a)
}

func TestCPU_logicOps(t *testing.T) {
	cpu, _ := newTestCPU()

	cpu.a = 0xF0
	cpu.andWithA(0x0F)
	assert.Equal(t, uint8(0), cpu.a)
	assert.Equal(t, uint8(zeroFlag|halfCarryFlag), cpu.f)

	cpu.a = 0xF0
	cpu.orWithA(0x0F)
	assert.Equal(t, uint8(0xFF), cpu.a)
	assert.Equal(t, uint8(0), cpu.f)

	cpu.xorWithA(0xFF)
	assert.Equal(t, uint8(0), cpu.a)
	assert.Equal(t, uint8(zeroFlag), cpu.f)
}

func TestCPU_compareLeavesA(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.a = 0x42

	cpu.compareA(0x42)

	assert.Equal(t, uint8(0x42), cpu.a)
	assert.True(t, cpu.isSetFlag(zeroFlag))

	cpu.compareA(0x50)
	assert.True(t, cpu.isSetFlag(carryFlag))
	assert.False(t, cpu.isSetFlag(zeroFlag))
}

func TestCPU_addHLKeepsZeroFlag(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.setFlag(zeroFlag)
	cpu.setHL(0x0FFF)

	cpu.addToHL(0x0001)

	assert.Equal(t, uint16(0x1000), cpu.getHL())
	assert.True(t, cpu.isSetFlag(zeroFlag))
	assert.True(t, cpu.isSetFlag(halfCarryFlag))
	assert.False(t, cpu.isSetFlag(carryFlag))
}

func TestCPU_addSPRelative(t *testing.T) {
	testCases := []struct {
		desc   string
		sp     uint16
		offset int8
		want   uint16
		flags  Flag
	}{
		{desc: "adds positive", sp: 0xFFF8, offset: 0x08, want: 0x0000, flags: carryFlag | halfCarryFlag},
		{desc: "adds negative", sp: 0x0005, offset: -1, want: 0x0004, flags: carryFlag | halfCarryFlag},
		{desc: "no flags", sp: 0x1000, offset: 0x01, want: 0x1001},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu, _ := newTestCPU()
			cpu.sp = tC.sp
			got := cpu.addSPRelative(tC.offset)
			assert.Equal(t, tC.want, got)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_daa(t *testing.T) {
	testCases := []struct {
		desc    string
		a       uint8
		initial Flag
		want    uint8
		carry   bool
	}{
		{desc: "adjusts low nibble", a: 0x3C, want: 0x42},
		{desc: "adjusts high nibble", a: 0x7D, want: 0x83},
		{desc: "adjusts after carry", a: 0x2A, initial: carryFlag, want: 0x8A + 0x06, carry: true},
		{desc: "adjusts after subtraction", a: 0x0D, initial: subFlag | halfCarryFlag, want: 0x07},
		{desc: "no adjustment needed", a: 0x42, want: 0x42},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu, _ := newTestCPU()
			cpu.a = tC.a
			cpu.f = uint8(tC.initial)
			cpu.daa()
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, tC.carry, cpu.isSetFlag(carryFlag))
		})
	}
}

func TestCPU_popAFMasksLowNibble(t *testing.T) {
	cpu, bus := newTestCPU(0xF1) // POP AF
	cpu.sp = 0xC000
	bus.mem[0xC000] = 0xFF // would set the unwired low flag bits
	bus.mem[0xC001] = 0x12

	cpu.Step()

	assert.Equal(t, uint8(0x12), cpu.a)
	assert.Equal(t, uint8(0xF0), cpu.f)
}

func TestCPU_cbRegisterOps(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		setup   func(*CPU)
		check   func(*testing.T, *CPU)
	}{
		{
			desc:    "RLC B",
			program: []byte{0xCB, 0x00},
			setup:   func(c *CPU) { c.b = 0x80 },
			check: func(t *testing.T, c *CPU) {
				assert.Equal(t, uint8(0x01), c.b)
				assert.True(t, c.isSetFlag(carryFlag))
			},
		},
		{
			desc:    "RR C through carry",
			program: []byte{0xCB, 0x19},
			setup: func(c *CPU) {
				c.c = 0x02
				c.setFlag(carryFlag)
			},
			check: func(t *testing.T, c *CPU) {
				assert.Equal(t, uint8(0x81), c.c)
				assert.False(t, c.isSetFlag(carryFlag))
			},
		},
		{
			desc:    "SRA keeps sign bit",
			program: []byte{0xCB, 0x2F},
			setup:   func(c *CPU) { c.a = 0x81 },
			check: func(t *testing.T, c *CPU) {
				assert.Equal(t, uint8(0xC0), c.a)
				assert.True(t, c.isSetFlag(carryFlag))
			},
		},
		{
			desc:    "SWAP A",
			program: []byte{0xCB, 0x37},
			setup:   func(c *CPU) { c.a = 0xF1 },
			check: func(t *testing.T, c *CPU) {
				assert.Equal(t, uint8(0x1F), c.a)
			},
		},
		{
			desc:    "BIT 7,H zero",
			program: []byte{0xCB, 0x7C},
			setup:   func(c *CPU) { c.h = 0x7F },
			check: func(t *testing.T, c *CPU) {
				assert.True(t, c.isSetFlag(zeroFlag))
				assert.True(t, c.isSetFlag(halfCarryFlag))
			},
		},
		{
			desc:    "SET 3,E",
			program: []byte{0xCB, 0xDB},
			setup:   func(c *CPU) { c.e = 0 },
			check: func(t *testing.T, c *CPU) {
				assert.Equal(t, uint8(0x08), c.e)
			},
		},
		{
			desc:    "RES 0,A",
			program: []byte{0xCB, 0x87},
			setup:   func(c *CPU) { c.a = 0xFF },
			check: func(t *testing.T, c *CPU) {
				assert.Equal(t, uint8(0xFE), c.a)
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu, _ := newTestCPU(tC.program...)
			tC.setup(cpu)
			cpu.Step()
			tC.check(t, cpu)
		})
	}
}

func TestCPU_cbMemoryOperand(t *testing.T) {
	cpu, bus := newTestCPU(0xCB, 0xC6) // SET 0,(HL)
	cpu.setHL(0xC900)
	bus.mem[0xC900] = 0x00

	cpu.Step()

	assert.Equal(t, uint8(0x01), bus.mem[0xC900])
}

func TestCPU_jumpTargets(t *testing.T) {
	cpu, _ := newTestCPU(0xC3, 0x00, 0xC0) // JP 0xC000
	cpu.Step()
	assert.Equal(t, uint16(0xC000), cpu.pc)

	cpu, _ = newTestCPU(0x18, 0x03) // JR +3
	cpu.Step()
	assert.Equal(t, uint16(0x0105), cpu.pc)

	cpu, _ = newTestCPU(0x18, 0xFE) // JR -2, tight loop
	cpu.Step()
	assert.Equal(t, uint16(0x0100), cpu.pc)
}

func TestCPU_callAndReturn(t *testing.T) {
	cpu, bus := newTestCPU(0xCD, 0x00, 0xC0) // CALL 0xC000
	bus.mem[0xC000] = 0xC9                   // RET
	start := cpu.sp

	cpu.Step()
	assert.Equal(t, uint16(0xC000), cpu.pc)
	assert.Equal(t, start-2, cpu.sp)

	cpu.Step()
	assert.Equal(t, uint16(0x0103), cpu.pc)
	assert.Equal(t, start, cpu.sp)
}

func TestCPU_illegalOpcode(t *testing.T) {
	cpu, _ := newTestCPU(0xD3, 0x00)

	cycles := cpu.Step()

	op, seen := cpu.IllegalOpcode()
	assert.True(t, seen)
	assert.Equal(t, uint8(0xD3), op)
	assert.Equal(t, 4, cycles)

	// execution continues as a no-op
	cpu.Step()
	assert.Equal(t, uint16(0x0102), cpu.pc)
}

func TestCPU_stopResetsDivider(t *testing.T) {
	cpu, bus := newTestCPU(0x10, 0x00)
	bus.mem[addr.DIV] = 0xAB

	cpu.Step()

	assert.True(t, cpu.IsStopped())
	assert.Equal(t, uint16(0x0102), cpu.pc, "STOP skips its padding byte")
	assert.Equal(t, uint8(0), bus.mem[addr.DIV])
}
