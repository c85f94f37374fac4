package memory

import (
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
)

// tacClockBit maps the TAC clock-select field (bits 1-0) to the bit
// of the internal 16-bit divider used as the timer's clock source.
// TIMA increments on falling edges of the selected bit while the
// timer is enabled (TAC bit 2).
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacClockBit = [4]uint8{9, 3, 5, 7}

// Timer implements the DIV/TIMA/TMA/TAC register block on top of a
// free-running 16-bit counter. DIV is the counter's top byte.
//
// A TIMA overflow does not reload immediately: for one machine cycle
// the counter reads as zero, then TMA is loaded and the timer
// interrupt is requested. Writes landing inside that window alter the
// outcome, see Write.
type Timer struct {
	counter     uint16 // internal divider, DIV is the upper 8 bits
	lastEdgeBit bool   // previous state of the selected clock bit

	overflowWait int // T-cycles left in the post-overflow window
	reloadGuard  int // T-cycles after a reload in which TIMA writes are ignored

	tima byte
	tma  byte
	tac  byte

	// RequestInterrupt is invoked when the timer interrupt fires.
	RequestInterrupt func()
}

// Seed sets the internal divider counter, used to match post-boot
// hardware state.
func (t *Timer) Seed(value uint16) {
	t.counter = value
	t.lastEdgeBit = false
	t.overflowWait = 0
	t.reloadGuard = 0
}

// Tick advances the timer by the given number of T-cycles.
func (t *Timer) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		if t.reloadGuard > 0 {
			t.reloadGuard--
		}

		t.counter++

		if t.overflowWait > 0 {
			t.overflowWait--
			if t.overflowWait == 0 {
				// the reload and the interrupt land in the same
				// machine cycle
				t.tima = t.tma
				t.reloadGuard = 4
				if t.RequestInterrupt != nil {
					t.RequestInterrupt()
				}
			}
			continue
		}

		t.detectEdge()
	}
}

// detectEdge increments TIMA on a falling edge of the selected
// divider bit.
func (t *Timer) detectEdge() {
	if !bit.IsSet(2, t.tac) {
		t.lastEdgeBit = false
		return
	}

	current := bit.IsSet16(tacClockBit[t.tac&0x03], t.counter)
	if t.lastEdgeBit && !current {
		t.incrementTIMA()
	}
	t.lastEdgeBit = current
}

func (t *Timer) incrementTIMA() {
	if t.tima == 0xFF {
		// wrapped: TIMA reads 0 for one machine cycle before the
		// TMA reload lands
		t.overflowWait = 4
	}
	t.tima++
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return byte(t.counter >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		// any write clears the whole internal counter; if the selected
		// clock bit was high this produces a falling edge and TIMA
		// ticks once
		if bit.IsSet(2, t.tac) && bit.IsSet16(tacClockBit[t.tac&0x03], t.counter) {
			t.incrementTIMA()
		}
		t.counter = 0
		t.lastEdgeBit = false
	case addr.TIMA:
		if t.reloadGuard > 0 {
			// the reload landed this machine cycle, hardware ignores
			// the write
			return
		}
		// a write during the overflow window aborts the reload and
		// the interrupt that would follow
		t.overflowWait = 0
		t.tima = value
	case addr.TMA:
		t.tma = value
		if t.overflowWait > 0 {
			// reload-register write inside the overflow window:
			// the written value replaces the automatic reload and the
			// pending interrupt is suppressed
			t.tima = value
			t.overflowWait = 0
		}
	case addr.TAC:
		t.tac = value & 0x07
	}
}
