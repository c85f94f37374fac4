package memory

import "github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"

// Button is one of the 8 logical joypad inputs.
type Button uint8

const (
	ButtonRight Button = iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

// Joypad models the P1 register: bits 4-5 written by software select
// which button group appears on the low nibble, where 0 means
// pressed. Bits 6-7 always read as 1.
//
// The core never polls the host; the host pushes state in through
// SetButton and the register read reflects it.
type Joypad struct {
	selectBits byte // last written bits 4-5
	dpad       byte // low nibble, right/left/up/down
	buttons    byte // low nibble, a/b/select/start

	// RequestInterrupt is invoked when a line of a selected group
	// transitions high to low.
	RequestInterrupt func()
}

// NewJoypad returns a joypad with all buttons released.
func NewJoypad() Joypad {
	return Joypad{
		selectBits: 0x30,
		dpad:       0x0F,
		buttons:    0x0F,
	}
}

// SetButton records the pressed state of one logical button.
func (j *Joypad) SetButton(b Button, pressed bool) {
	group := &j.buttons
	selected := !bit.IsSet(5, j.selectBits)
	index := uint8(b) - 4
	if b <= ButtonDown {
		group = &j.dpad
		selected = !bit.IsSet(4, j.selectBits)
		index = uint8(b)
	}

	was := *group
	if pressed {
		*group = bit.Clear(index, *group)
	} else {
		*group = bit.Set(index, *group)
	}

	// only lines of the selected group reach the interrupt source
	if selected && was&^*group != 0 && j.RequestInterrupt != nil {
		j.RequestInterrupt()
	}
}

// Write stores the group-select bits; the low nibble is read only.
func (j *Joypad) Write(value byte) {
	j.selectBits = value & 0x30
}

// Read assembles P1 from the select bits and current button state.
func (j *Joypad) Read() byte {
	result := byte(0xC0) | j.selectBits

	selectDpad := !bit.IsSet(4, j.selectBits)
	selectButtons := !bit.IsSet(5, j.selectBits)

	switch {
	case selectDpad && selectButtons:
		// both groups selected, hardware ANDs the lines
		result |= j.dpad & j.buttons
	case selectDpad:
		result |= j.dpad
	case selectButtons:
		result |= j.buttons
	default:
		result |= 0x0F
	}

	return result
}
