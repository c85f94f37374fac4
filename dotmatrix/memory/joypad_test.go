package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypad_nothingSelected(t *testing.T) {
	j := NewJoypad()
	j.Write(0x30)

	j.SetButton(ButtonA, true)

	assert.Equal(t, uint8(0xFF), j.Read(), "deselected groups read all released")
}

func TestJoypad_buttonGroups(t *testing.T) {
	j := NewJoypad()

	j.SetButton(ButtonA, true)
	j.SetButton(ButtonDown, true)

	j.Write(0x10) // select buttons
	assert.Equal(t, uint8(0xDE), j.Read())

	j.Write(0x20) // select d-pad
	assert.Equal(t, uint8(0xE7), j.Read())
}

func TestJoypad_bothGroupsAnd(t *testing.T) {
	j := NewJoypad()
	j.Write(0x00)

	// bit 0 of both groups goes low, the read ANDs them
	j.SetButton(ButtonA, true)
	j.SetButton(ButtonRight, true)

	assert.Equal(t, uint8(0xCE), j.Read())
}

func TestJoypad_interruptOnPressOnly(t *testing.T) {
	j := NewJoypad()
	fired := 0
	j.RequestInterrupt = func() { fired++ }
	j.Write(0x10) // select the button group

	j.SetButton(ButtonStart, true)
	assert.Equal(t, 1, fired)

	j.SetButton(ButtonStart, true) // already down, no new edge
	assert.Equal(t, 1, fired)

	j.SetButton(ButtonStart, false)
	assert.Equal(t, 1, fired, "release is not an edge")

	j.SetButton(ButtonStart, true)
	assert.Equal(t, 2, fired)
}

func TestJoypad_interruptOnlyForSelectedGroup(t *testing.T) {
	j := NewJoypad()
	fired := 0
	j.RequestInterrupt = func() { fired++ }
	j.Write(0x20) // d-pad selected, buttons deselected

	j.SetButton(ButtonStart, true)
	assert.Equal(t, 0, fired, "deselected group never pulls the line")

	j.SetButton(ButtonLeft, true)
	assert.Equal(t, 1, fired)
}
